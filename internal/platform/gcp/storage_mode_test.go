package gcp

import (
	"errors"
	"testing"
)

func TestResolveObjectStorageConfigFromEnv(t *testing.T) {
	cases := []struct {
		name     string
		mode     string
		bucket   string
		emulator string
		wantMode ObjectStorageMode
		wantCode ObjectStorageConfigErrorCode
	}{
		{name: "default gcs", bucket: "docs", wantMode: ObjectStorageModeGCS},
		{name: "explicit gcs ignores emulator", mode: "gcs", bucket: "docs", emulator: "http://fake-gcs:4443", wantMode: ObjectStorageModeGCS},
		{name: "implicit emulator", bucket: "docs", emulator: "http://fake-gcs:4443", wantMode: ObjectStorageModeGCSEmulator},
		{name: "explicit emulator", mode: "GCS_EMULATOR", bucket: "docs", emulator: "http://fake-gcs:4443", wantMode: ObjectStorageModeGCSEmulator},
		{name: "missing bucket", mode: "gcs", wantCode: ObjectStorageConfigErrorMissingBucket},
		{name: "invalid mode", mode: "s3", bucket: "docs", wantCode: ObjectStorageConfigErrorInvalidMode},
		{name: "emulator without host", mode: "gcs_emulator", bucket: "docs", wantCode: ObjectStorageConfigErrorMissingEmulatorHost},
		{name: "emulator bad host", mode: "gcs_emulator", bucket: "docs", emulator: "fake-gcs:4443", wantCode: ObjectStorageConfigErrorInvalidEmulatorHost},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("OBJECT_STORAGE_MODE", tc.mode)
			t.Setenv("DOCUMENT_GCS_BUCKET_NAME", tc.bucket)
			t.Setenv("STORAGE_EMULATOR_HOST", tc.emulator)

			cfg, err := ResolveObjectStorageConfigFromEnv()
			if tc.wantCode != "" {
				var cfgErr *ObjectStorageConfigError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("expected ObjectStorageConfigError, got %v", err)
				}
				if cfgErr.Code != tc.wantCode {
					t.Fatalf("code: want=%q got=%q", tc.wantCode, cfgErr.Code)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveObjectStorageConfigFromEnv: %v", err)
			}
			if cfg.Mode != tc.wantMode {
				t.Fatalf("mode: want=%q got=%q", tc.wantMode, cfg.Mode)
			}
		})
	}
}

func TestInvalidModeErrorCarriesRawValue(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_MODE", "S3")
	t.Setenv("DOCUMENT_GCS_BUCKET_NAME", "docs")
	_, err := ResolveObjectStorageConfigFromEnv()
	var cfgErr *ObjectStorageConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Mode != "S3" {
		t.Fatalf("expected raw mode in error, got %v", err)
	}
}
