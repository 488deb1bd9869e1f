package logger

import (
	"strings"
	"testing"
)

func TestSanitizeValueRedactsCredentials(t *testing.T) {
	cases := []struct {
		key  string
		val  interface{}
		want string
	}{
		{key: "authorization", val: "Bearer abc", want: "[REDACTED]"},
		{key: "admin_password", val: "hunter2", want: "[REDACTED]"},
		{key: "supabase_apikey", val: "anon", want: "[REDACTED]"},
	}
	for _, tc := range cases {
		got := sanitizeValue(tc.key, tc.val)
		if got != tc.want {
			t.Fatalf("sanitizeValue(%q): got=%v want=%v", tc.key, got, tc.want)
		}
	}
}

func TestSanitizeValueHashesUserID(t *testing.T) {
	got, ok := sanitizeValue("user_id", "6d3c1f0e-8d8f-4c55-9f3e-1b1d2e3f4a5b").(string)
	if !ok || !strings.HasPrefix(got, "hash:") {
		t.Fatalf("expected hashed user id, got=%v", got)
	}
	again := sanitizeValue("user_id", "6d3c1f0e-8d8f-4c55-9f3e-1b1d2e3f4a5b")
	if again != got {
		t.Fatalf("hash not stable: %v vs %v", got, again)
	}
}

func TestSanitizeValueRedactsJWTLookingStrings(t *testing.T) {
	jwt := "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxMjM0NTY3ODkwIn0.sig"
	if got := sanitizeValue("detail", jwt); got != "[REDACTED]" {
		t.Fatalf("expected jwt redaction, got=%v", got)
	}
	if got := sanitizeValue("phase", "ocr"); got != "ocr" {
		t.Fatalf("plain values must pass through, got=%v", got)
	}
}
