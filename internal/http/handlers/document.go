package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/http/response"
	"github.com/yungbote/biomarker-backend/internal/platform/apierr"
	"github.com/yungbote/biomarker-backend/internal/platform/ctxutil"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
	"github.com/yungbote/biomarker-backend/internal/services"
	"github.com/yungbote/biomarker-backend/internal/services/progress"
)

const (
	// StreamContentType is both the Accept value that selects streaming and
	// the response type of the NDJSON stream.
	StreamContentType = "text/stream"

	multipartOverhead = 1 << 20
)

type DocumentHandler struct {
	log           *logger.Logger
	documents     services.DocumentService
	pipeline      services.DocumentPipeline
	streamTimeout time.Duration
}

func NewDocumentHandler(log *logger.Logger, documents services.DocumentService, pipeline services.DocumentPipeline, streamTimeout time.Duration) *DocumentHandler {
	if streamTimeout <= 0 {
		streamTimeout = 300 * time.Second
	}
	return &DocumentHandler{
		log:           log.With("handler", "DocumentHandler"),
		documents:     documents,
		pipeline:      pipeline,
		streamTimeout: streamTimeout,
	}
}

// POST /api/documents/upload
func (h *DocumentHandler) Upload(c *gin.Context) {
	rd, ok := requireUser(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, services.MaxUploadBytes+multipartOverhead)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.RespondAPIError(c, apierr.BadRequest("invalid_file", errors.New("file exceeds the 10MB limit")))
			return
		}
		response.RespondAPIError(c, apierr.BadRequest("missing_file", errors.New("multipart field \"file\" is required")))
		return
	}
	if fh.Size > services.MaxUploadBytes {
		response.RespondAPIError(c, apierr.BadRequest("invalid_file", errors.New("file exceeds the 10MB limit")))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondAPIError(c, apierr.BadRequest("invalid_file", err))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, services.MaxUploadBytes+1))
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	mime := fh.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(data)
	}

	doc, err := h.documents.Upload(c.Request.Context(), services.UploadInput{
		UserID:   rd.UserID,
		Token:    rd.Token,
		Filename: fh.Filename,
		MimeType: mime,
		Data:     data,
	})
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"document": doc})
}

// POST /api/documents
func (h *DocumentHandler) Register(c *gin.Context) {
	rd, ok := requireUser(c)
	if !ok {
		return
	}
	var in services.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondAPIError(c, bindError(err))
		return
	}
	in.UserID = rd.UserID
	doc, err := h.documents.Register(c.Request.Context(), in)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"document": doc})
}

// GET /api/documents
func (h *DocumentHandler) List(c *gin.Context) {
	rd, ok := requireUser(c)
	if !ok {
		return
	}
	limit, offset := page(c)
	docs, err := h.documents.List(c.Request.Context(), rd.UserID, limit, offset)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	if docs == nil {
		docs = []*types.Document{}
	}
	response.RespondOK(c, gin.H{"documents": docs, "limit": limit, "offset": offset})
}

// GET /api/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	rd, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	detail, err := h.documents.Get(c.Request.Context(), rd.UserID, id)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, detail)
}

// GET /api/documents/:id/status
func (h *DocumentHandler) Status(c *gin.Context) {
	rd, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	st, err := h.documents.Status(c.Request.Context(), rd.UserID, id)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, st)
}

// POST /api/documents/:id/process
//
// The run is detached from the request context: a client that disconnects
// does not stop server-side work.
func (h *DocumentHandler) Process(c *gin.Context) {
	rd, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	ctx := context.WithoutCancel(c.Request.Context())

	if wantsStream(c) {
		h.processStream(ctx, c, rd, id)
		return
	}

	res, err := h.pipeline.Process(ctx, rd.UserID, rd.Token, id, nil)
	if err != nil {
		response.Fail(c, h.log, err)
		return
	}
	response.RespondOK(c, res)
}

func (h *DocumentHandler) processStream(ctx context.Context, c *gin.Context, rd *ctxutil.RequestData, id uuid.UUID) {
	ctx, cancel := context.WithTimeout(ctx, h.streamTimeout)
	defer cancel()

	stream := &lazyStream{c: c}
	res, err := h.pipeline.Process(ctx, rd.UserID, rd.Token, id, stream)
	switch {
	case err != nil && !stream.started():
		// rejected before the run began: plain JSON error
		response.Fail(c, h.log, err)
	case err != nil:
		h.log.Warn("streamed processing failed", "document_id", id, "user_id", rd.UserID, "error", err)
	case !stream.started():
		// completed earlier and returned unchanged
		_ = stream.Emit(ctx, progress.Update{
			Phase:     progress.PhaseCompleted,
			Message:   "Document already processed",
			Details:   map[string]any{"document_id": res.Document.ID, "biomarker_count": len(res.Biomarkers), "already_completed": true},
			Timestamp: time.Now().UTC(),
		})
	}
}

func wantsStream(c *gin.Context) bool {
	return strings.Contains(strings.ToLower(c.GetHeader("Accept")), StreamContentType)
}

// lazyStream commits the streaming response on the first update so that
// errors raised before any progress can still be returned as JSON.
type lazyStream struct {
	mu   sync.Mutex
	c    *gin.Context
	sink *progress.NDJSONSink
}

func (s *lazyStream) Emit(ctx context.Context, u progress.Update) error {
	s.mu.Lock()
	if s.sink == nil {
		h := s.c.Writer.Header()
		h.Set("Content-Type", StreamContentType+"; charset=utf-8")
		h.Set("Cache-Control", "no-cache")
		h.Set("X-Accel-Buffering", "no")
		s.c.Status(http.StatusOK)
		s.sink = progress.NewNDJSONSink(s.c.Writer, s.c.Writer.Flush)
	}
	sink := s.sink
	s.mu.Unlock()
	return sink.Emit(ctx, u)
}

func (s *lazyStream) started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink != nil
}
