package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/http/middleware"
	"github.com/yungbote/biomarker-backend/internal/http/response"
	"github.com/yungbote/biomarker-backend/internal/platform/ctxutil"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
	"github.com/yungbote/biomarker-backend/internal/services"
	"github.com/yungbote/biomarker-backend/internal/services/progress"
)

var testUser = uuid.MustParse("6f1c1d2e-7a55-4c1b-9d0e-2a5b3c4d5e6f")

// asUser stands in for RequireAuth.
func asUser(c *gin.Context) {
	ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{UserID: testUser, Token: "tok"})
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) response.APIError {
	t.Helper()
	var env response.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return env.Error
}

type fakeDocuments struct {
	services.DocumentService
	uploaded services.UploadInput
	doc      *types.Document
}

func (f *fakeDocuments) Upload(_ context.Context, in services.UploadInput) (*types.Document, error) {
	f.uploaded = in
	return f.doc, nil
}

type fakePipeline struct {
	run func(ctx context.Context, stream progress.Sink) (*services.ProcessResult, error)
}

func (f *fakePipeline) Process(ctx context.Context, _ uuid.UUID, _ string, _ uuid.UUID, stream progress.Sink) (*services.ProcessResult, error) {
	return f.run(ctx, stream)
}

func documentEngine(p *fakePipeline, docs *fakeDocuments) *gin.Engine {
	if docs == nil {
		docs = &fakeDocuments{}
	}
	h := NewDocumentHandler(logger.Nop(), docs, p, time.Minute)
	r := newEngine()
	r.Use(asUser)
	r.POST("/api/documents/upload", h.Upload)
	r.POST("/api/documents/:id/process", h.Process)
	return r
}

func emit(ctx context.Context, s progress.Sink, phase progress.Phase, msg string) {
	_ = s.Emit(ctx, progress.Update{Phase: phase, Message: msg, Timestamp: time.Now().UTC()})
}

func readLines(t *testing.T, body string) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		out = append(out, m)
	}
	return out
}

func processRequest(stream bool) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/documents/"+uuid.NewString()+"/process", nil)
	if stream {
		req.Header.Set("Accept", "text/stream")
	}
	return req
}

func completedResult() *services.ProcessResult {
	return &services.ProcessResult{
		Document:   &types.Document{ID: uuid.New(), Status: types.DocumentStatusCompleted},
		Biomarkers: []*types.BiomarkerReading{{ID: uuid.New(), Name: "Ferritin"}},
	}
}

func TestProcessJSONDetachesContext(t *testing.T) {
	var detached bool
	p := &fakePipeline{run: func(ctx context.Context, stream progress.Sink) (*services.ProcessResult, error) {
		detached = ctx.Done() == nil && stream == nil
		return completedResult(), nil
	}}
	rec := httptest.NewRecorder()
	documentEngine(p, nil).ServeHTTP(rec, processRequest(false))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if !detached {
		t.Fatalf("pipeline should run on a non-cancelable context without a sink")
	}
	var got services.ProcessResult
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Document == nil || len(got.Biomarkers) != 1 {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestProcessJSONStageError(t *testing.T) {
	p := &fakePipeline{run: func(context.Context, progress.Sink) (*services.ProcessResult, error) {
		return nil, &services.StageError{Stage: progress.PhaseOCR, Err: errors.New("vision unavailable")}
	}}
	rec := httptest.NewRecorder()
	documentEngine(p, nil).ServeHTTP(rec, processRequest(false))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	e := decodeError(t, rec)
	if e.Code != "processing_failed" || e.Message != "Document processing failed at ocr" {
		t.Fatalf("unexpected error: %+v", e)
	}
	if e.Details != "vision unavailable" {
		t.Fatalf("details = %v", e.Details)
	}
}

func TestProcessStreamEmitsNDJSON(t *testing.T) {
	p := &fakePipeline{run: func(ctx context.Context, stream progress.Sink) (*services.ProcessResult, error) {
		if _, ok := ctx.Deadline(); !ok {
			t.Errorf("streaming run should carry a deadline")
		}
		emit(ctx, stream, progress.PhaseValidation, "Validating document")
		emit(ctx, stream, progress.PhaseOCR, "Extracting text")
		emit(ctx, stream, progress.PhaseCompleted, "Done")
		return completedResult(), nil
	}}
	rec := httptest.NewRecorder()
	documentEngine(p, nil).ServeHTTP(rec, processRequest(true))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/stream; charset=utf-8" {
		t.Fatalf("content-type = %q", ct)
	}
	lines := readLines(t, rec.Body.String())
	if len(lines) != 3 {
		t.Fatalf("lines = %d: %s", len(lines), rec.Body.String())
	}
	if lines[0]["status"] != "validation" || lines[2]["status"] != "completed" {
		t.Fatalf("unexpected phases: %v", lines)
	}
}

func TestProcessStreamFailureEndsWithFailedLine(t *testing.T) {
	p := &fakePipeline{run: func(ctx context.Context, stream progress.Sink) (*services.ProcessResult, error) {
		emit(ctx, stream, progress.PhaseOCR, "Extracting text")
		emit(ctx, stream, progress.PhaseFailed, "OCR failed")
		return nil, &services.StageError{Stage: progress.PhaseOCR, Err: services.ErrNoTextExtracted}
	}}
	rec := httptest.NewRecorder()
	documentEngine(p, nil).ServeHTTP(rec, processRequest(true))

	if rec.Code != http.StatusOK {
		t.Fatalf("stream already committed, status = %d", rec.Code)
	}
	lines := readLines(t, rec.Body.String())
	if len(lines) != 2 || lines[1]["status"] != "failed" {
		t.Fatalf("unexpected lines: %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), `"error"`) {
		t.Fatalf("no JSON error envelope expected after streaming began")
	}
}

func TestProcessStreamRejectedBeforeStart(t *testing.T) {
	p := &fakePipeline{run: func(context.Context, progress.Sink) (*services.ProcessResult, error) {
		return nil, services.ErrAlreadyProcessing
	}}
	rec := httptest.NewRecorder()
	documentEngine(p, nil).ServeHTTP(rec, processRequest(true))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
	if e := decodeError(t, rec); e.Code != "already_processing" {
		t.Fatalf("code = %q", e.Code)
	}
}

func TestProcessStreamAlreadyCompleted(t *testing.T) {
	p := &fakePipeline{run: func(context.Context, progress.Sink) (*services.ProcessResult, error) {
		res := completedResult()
		res.AlreadyCompleted = true
		return res, nil
	}}
	rec := httptest.NewRecorder()
	documentEngine(p, nil).ServeHTTP(rec, processRequest(true))

	lines := readLines(t, rec.Body.String())
	if len(lines) != 1 || lines[0]["status"] != "completed" {
		t.Fatalf("unexpected lines: %s", rec.Body.String())
	}
	details, _ := lines[0]["details"].(map[string]any)
	if details["already_completed"] != true || details["biomarker_count"] != float64(1) {
		t.Fatalf("details = %v", details)
	}
}

func TestProcessRejectsBadID(t *testing.T) {
	p := &fakePipeline{run: func(context.Context, progress.Sink) (*services.ProcessResult, error) {
		t.Fatalf("pipeline should not run")
		return nil, nil
	}}
	rec := httptest.NewRecorder()
	documentEngine(p, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/documents/nope/process", nil))
	if rec.Code != http.StatusBadRequest || decodeError(t, rec).Code != "invalid_id" {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestUploadSniffsMimeType(t *testing.T) {
	docs := &fakeDocuments{doc: &types.Document{ID: uuid.New(), Status: types.DocumentStatusPending}}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "labs.pdf")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = fw.Write([]byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	documentEngine(&fakePipeline{}, docs).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if docs.uploaded.MimeType != "application/pdf" {
		t.Fatalf("mime = %q", docs.uploaded.MimeType)
	}
	if docs.uploaded.UserID != testUser || docs.uploaded.Token != "tok" || docs.uploaded.Filename != "labs.pdf" {
		t.Fatalf("unexpected input: %+v", docs.uploaded)
	}
}

func TestUploadRequiresFile(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", strings.NewReader("x=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	documentEngine(&fakePipeline{}, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest || decodeError(t, rec).Code != "missing_file" {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestHandlersRequireUser(t *testing.T) {
	h := NewDocumentHandler(logger.Nop(), &fakeDocuments{}, &fakePipeline{}, 0)
	r := newEngine()
	r.GET("/api/documents", h.List)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

type fakeAnalyses struct {
	services.AnalysisService
	got services.AnalyzeInput
}

func (f *fakeAnalyses) Analyze(_ context.Context, in services.AnalyzeInput) (*types.HealthAnalysis, error) {
	f.got = in
	return &types.HealthAnalysis{ID: in.AnalysisID, UserID: in.UserID, DocumentID: in.DocumentID}, nil
}

func TestAnalyzeBody(t *testing.T) {
	docID := uuid.New()
	chosen := uuid.New()

	cases := []struct {
		name     string
		body     string
		wantCode int
		wantID   uuid.UUID
	}{
		{name: "empty body", body: "", wantCode: http.StatusCreated, wantID: uuid.Nil},
		{name: "client id", body: `{"analysis_id":"` + chosen.String() + `"}`, wantCode: http.StatusCreated, wantID: chosen},
		{name: "bad id", body: `{"analysis_id":"abc"}`, wantCode: http.StatusBadRequest},
		{name: "bad json", body: `{`, wantCode: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fa := &fakeAnalyses{}
			h := NewAnalysisHandler(logger.Nop(), fa, nil)
			r := newEngine()
			r.Use(asUser)
			r.POST("/api/documents/:id/analyze", h.Analyze)

			req := httptest.NewRequest(http.MethodPost, "/api/documents/"+docID.String()+"/analyze", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tc.wantCode {
				t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
			}
			if tc.wantCode != http.StatusCreated {
				return
			}
			if fa.got.DocumentID != docID || fa.got.UserID != testUser || fa.got.AnalysisID != tc.wantID {
				t.Fatalf("unexpected input: %+v", fa.got)
			}
		})
	}
}

type fakeCommerce struct {
	services.CommerceService
	qty    int
	called bool
}

func (f *fakeCommerce) UpdateItem(_ context.Context, _, _ uuid.UUID, quantity int) (*services.CartView, error) {
	f.called = true
	f.qty = quantity
	return &services.CartView{Cart: &types.Cart{ID: uuid.New(), UserID: testUser}}, nil
}

func (f *fakeCommerce) ConfirmOrder(context.Context, uuid.UUID, uuid.UUID) (*types.Order, error) {
	return nil, services.ErrOrderNotPending
}

func TestUpdateCartItemQuantity(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		wantCode int
		wantQty  int
	}{
		{name: "zero removes", body: `{"quantity":0}`, wantCode: http.StatusOK, wantQty: 0},
		{name: "set", body: `{"quantity":3}`, wantCode: http.StatusOK, wantQty: 3},
		{name: "missing", body: `{}`, wantCode: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fc := &fakeCommerce{}
			h := NewCartHandler(logger.Nop(), fc)
			r := newEngine()
			r.Use(asUser)
			r.PATCH("/api/cart/items/:id", h.UpdateItem)

			req := httptest.NewRequest(http.MethodPatch, "/api/cart/items/"+uuid.NewString(), strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tc.wantCode {
				t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
			}
			if tc.wantCode == http.StatusOK && (!fc.called || fc.qty != tc.wantQty) {
				t.Fatalf("service got qty %d (called %v)", fc.qty, fc.called)
			}
		})
	}
}

func TestConfirmOrderConflict(t *testing.T) {
	h := NewOrderHandler(logger.Nop(), &fakeCommerce{})
	r := newEngine()
	r.Use(asUser)
	r.POST("/api/orders/:id/confirm", h.Confirm)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/orders/"+uuid.NewString()+"/confirm", nil))
	if rec.Code != http.StatusConflict || decodeError(t, rec).Code != "order_not_pending" {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
}

type fakeAuth struct {
	services.AuthService
	password string
}

func (f fakeAuth) AdminLogin(password string) (string, time.Time, error) {
	if password != f.password {
		return "", time.Time{}, services.ErrInvalidCredentials
	}
	return "session-token", time.Now().Add(time.Hour), nil
}

func (f fakeAuth) AdminSessionTTL() time.Duration { return time.Hour }

func TestAdminLogin(t *testing.T) {
	h := NewAdminHandler(logger.Nop(), fakeAuth{password: "hunter2"}, nil, true)
	r := newEngine()
	r.POST("/api/admin/login", h.Login)

	login := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := login(`{"password":"hunter2"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var cookie *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.AdminCookieName {
			cookie = ck
		}
	}
	if cookie == nil || cookie.Value != "session-token" {
		t.Fatalf("admin cookie not set: %v", rec.Result().Cookies())
	}
	if !cookie.HttpOnly || !cookie.Secure || cookie.MaxAge != 3600 {
		t.Fatalf("unexpected cookie attributes: %+v", cookie)
	}

	rec = login(`{"password":"nope"}`)
	if rec.Code != http.StatusUnauthorized || len(rec.Result().Cookies()) != 0 {
		t.Fatalf("status = %d cookies=%v", rec.Code, rec.Result().Cookies())
	}

	rec = login(`{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestPageClamps(t *testing.T) {
	cases := []struct {
		query      string
		limit, off int
	}{
		{"", defaultPageSize, 0},
		{"?limit=5&offset=10", 5, 10},
		{"?limit=1000", maxPageSize, 0},
		{"?limit=-3&offset=-1", defaultPageSize, 0},
		{"?limit=abc", defaultPageSize, 0},
	}
	gin.SetMode(gin.TestMode)
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/x"+tc.query, nil)
		limit, off := page(c)
		if limit != tc.limit || off != tc.off {
			t.Fatalf("%q: got (%d,%d) want (%d,%d)", tc.query, limit, off, tc.limit, tc.off)
		}
	}
}

