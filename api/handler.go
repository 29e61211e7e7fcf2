package api

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/transcriptcheck/audit"
	apperrors "github.com/kbukum/transcriptcheck/errors"
	"github.com/kbukum/transcriptcheck/ledger"
	"github.com/kbukum/transcriptcheck/logger"
	"github.com/kbukum/transcriptcheck/server"
	"github.com/kbukum/transcriptcheck/transcription"
	"github.com/kbukum/transcriptcheck/validation"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Validator is the audit surface the handlers need. *audit.Validator
// satisfies it.
type Validator interface {
	Validate(ctx context.Context, videoID string) (*audit.Verdict, error)
	ValidateClip(candidate, reference transcription.Transcript, w audit.Window) (audit.ScoreResult, error)
}

// Indexer publishes a video. *indexer.Indexer satisfies it.
type Indexer interface {
	IndexVideo(ctx context.Context, videoID string) ([]ledger.Row, error)
}

// IndexLister lists published chunks. Every ledger.Store satisfies it.
type IndexLister interface {
	LoadIndex(ctx context.Context) ([]ledger.Index, error)
}

// VideoRequest names the video to validate or index.
type VideoRequest struct {
	VideoID string `json:"video_id" validate:"required,max=64"`
}

// ScoreRequest scores a candidate transcript against a reference over one window.
type ScoreRequest struct {
	Candidate transcription.Transcript `json:"candidate"`
	Reference transcription.Transcript `json:"reference"`
	Window    [2]float64               `json:"window" validate:"window"`
}

// IndexResponse is returned by POST /v1/indices.
type IndexResponse struct {
	VideoID string       `json:"video_id"`
	Rows    []ledger.Row `json:"rows"`
}

// Handler serves the /v1 routes.
type Handler struct {
	validator Validator
	indexer   Indexer
	index     IndexLister
	log       *logger.Logger
}

// NewHandler builds the handler. indexer and index may be nil, in which case
// their routes answer 503.
func NewHandler(v Validator, ix Indexer, index IndexLister, log *logger.Logger) *Handler {
	return &Handler{validator: v, indexer: ix, index: index, log: log.WithComponent("api")}
}

// Register mounts the routes under /v1.
func (h *Handler) Register(r gin.IRouter) {
	v1 := r.Group("/v1")
	v1.POST("/validations", h.CreateValidation)
	v1.POST("/scores", h.Score)
	v1.POST("/indices", h.CreateIndex)
	v1.GET("/indices", h.ListIndices)
}

// CreateValidation runs one audit synchronously. A finished audit answers
// 200 even when inconclusive; the verdict carries the error. Caller mistakes
// (blank id, bad configuration) answer with the error status instead.
func (h *Handler) CreateValidation(c *gin.Context) {
	var req VideoRequest
	if err := bind(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}

	verdict, err := h.validator.Validate(c.Request.Context(), req.VideoID)
	if err != nil && (verdict == nil || verdict.Status == "") {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, verdict)
}

// Score compares two transcripts directly over the requested window.
func (h *Handler) Score(c *gin.Context) {
	var req ScoreRequest
	if err := bind(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}

	w := audit.Window{Start: req.Window[0], End: req.Window[1]}
	result, err := h.validator.ValidateClip(req.Candidate, req.Reference, w)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, result)
}

// CreateIndex transcribes, chunks and publishes a video.
func (h *Handler) CreateIndex(c *gin.Context) {
	if h.indexer == nil {
		server.RespondWithError(c, apperrors.ServiceUnavailable("indexer"))
		return
	}
	var req VideoRequest
	if err := bind(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}

	rows, err := h.indexer.IndexVideo(c.Request.Context(), req.VideoID)
	if err != nil {
		h.log.WithContext(c.Request.Context()).Warn("Indexing failed", logger.MergeWithError(
			logger.Fields(logger.FieldVideoID, req.VideoID), err))
		server.RespondWithError(c, err)
		return
	}
	server.RespondCreated(c, IndexResponse{VideoID: req.VideoID, Rows: rows})
}

// ListIndices pages through the published index.
func (h *Handler) ListIndices(c *gin.Context) {
	if h.index == nil {
		server.RespondWithError(c, apperrors.ServiceUnavailable("ledger"))
		return
	}
	page, pageSize, err := pagination(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	all, err := h.index.LoadIndex(c.Request.Context())
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	total := len(all)
	from := min((page-1)*pageSize, total)
	to := min(from+pageSize, total)
	server.RespondOKWithMeta(c, all[from:to], &server.Meta{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: (total + pageSize - 1) / pageSize,
	})
}

func bind(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return apperrors.New(apperrors.ErrCodeInvalidInput, "Request body too large.", http.StatusRequestEntityTooLarge).
				WithDetail("limit", tooLarge.Limit)
		case errors.Is(err, io.EOF):
			return apperrors.InvalidInput("body", "request body is empty")
		default:
			return apperrors.InvalidInput("body", "malformed JSON").WithCause(err)
		}
	}
	return validation.Validate(req)
}

func pagination(c *gin.Context) (page, pageSize int, err error) {
	page, pageSize = 1, defaultPageSize
	v := validation.New()
	if q := c.Query("page"); q != "" {
		if page, err = strconv.Atoi(q); err != nil {
			v.AddError("page", "must be an integer")
		} else {
			// (page-1)*pageSize must not overflow.
			v.Range("page", float64(page), 1, float64(math.MaxInt/maxPageSize))
		}
	}
	if q := c.Query("page_size"); q != "" {
		if pageSize, err = strconv.Atoi(q); err != nil {
			v.AddError("page_size", "must be an integer")
		} else {
			v.Range("page_size", float64(pageSize), 1, maxPageSize)
		}
	}
	if appErr := v.Validate(); appErr != nil {
		return 0, 0, appErr
	}
	return page, pageSize, nil
}
