package audit

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/kbukum/transcriptcheck/errors"
	"github.com/kbukum/transcriptcheck/ledger"
	"github.com/kbukum/transcriptcheck/logger"
	"github.com/kbukum/transcriptcheck/observability"
	"github.com/kbukum/transcriptcheck/pipeline"
	"github.com/kbukum/transcriptcheck/provider"
	"github.com/kbukum/transcriptcheck/scoring"
	"github.com/kbukum/transcriptcheck/transcription"
)

// Deps are the collaborators of a Validator. Sink and Sampler are optional.
type Deps struct {
	Metadata  MetadataSource
	Reference ReferenceSource
	Index     ChunkIndex
	// Chunks fetches a chunk's JSON segment array by content id.
	Chunks provider.RequestResponse[string, []byte]
	// Sink receives every finished verdict.
	Sink    provider.Sink[*Verdict]
	Sampler Sampler
	Now     func() time.Time
	// Metrics records every finished audit. Nil uses the global meter.
	Metrics *observability.AuditMetrics
}

// Validator audits published transcripts. It holds no per-request state and
// is safe for concurrent use.
type Validator struct {
	cfg    Config
	scorer *scoring.Scorer
	deps   Deps
	log    *logger.Logger
}

// NewValidator checks cfg and deps. Invalid weights or threshold fail here
// with a CONFIGURATION_ERROR.
func NewValidator(cfg Config, deps Deps, log *logger.Logger) (*Validator, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	scorer, err := scoring.NewScorer(cfg.TranscriptWeights, cfg.TimestampWeights)
	if err != nil {
		return nil, err
	}
	var missing []string
	if deps.Metadata == nil {
		missing = append(missing, "metadata")
	}
	if deps.Reference == nil {
		missing = append(missing, "reference")
	}
	if deps.Index == nil {
		missing = append(missing, "index")
	}
	if deps.Chunks == nil {
		missing = append(missing, "chunks")
	}
	if len(missing) > 0 {
		return nil, apperrors.Configuration("audit: missing collaborators: " + strings.Join(missing, ", "))
	}
	if deps.Sampler == nil {
		deps.Sampler = NewSampler(time.Now().UnixNano())
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Metrics == nil {
		if deps.Metrics, err = observability.NewAuditMetrics(observability.Meter()); err != nil {
			return nil, apperrors.Internal(err)
		}
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Validator{cfg: cfg, scorer: scorer, deps: deps, log: log.WithComponent("audit")}, nil
}

// Config returns the effective configuration.
func (v *Validator) Config() Config { return v.cfg }

// SampleTimeRange picks a window of the configured interval.
func (v *Validator) SampleTimeRange(duration float64) (Window, error) {
	return SampleTimeRange(v.deps.Sampler, duration, v.cfg.TimeInterval)
}

// ValidateClip clips both transcripts to w, stitches each side into one
// segment and scores them. An empty reference clip is EMPTY_INPUT: there is
// nothing to compare against. An empty candidate clip scores 0.
func (v *Validator) ValidateClip(candidate, reference transcription.Transcript, w Window) (ScoreResult, error) {
	ref, err := transcription.Stitch(transcription.Clip(reference.Segments, w.Start, w.End))
	if err != nil {
		return ScoreResult{}, apperrors.EmptyInput("reference window").
			WithDetail("window", [2]float64{w.Start, w.End})
	}
	cand, err := transcription.Stitch(transcription.Clip(candidate.Segments, w.Start, w.End))
	if err != nil {
		return ScoreResult{IsValid: false, Score: 0}, nil
	}
	score := v.scorer.Score(cand, ref)
	return ScoreResult{IsValid: score > v.cfg.ScoreThreshold, Score: score}, nil
}

// run carries one audit through the state machine.
type run struct {
	v       *Validator
	log     *logger.Logger
	verdict *Verdict
}

func (r *run) advance(to State) {
	if next, ok := r.verdict.State.Next(); !ok || next != to {
		// Transitions are driven by Validate alone; a skip is a programming error.
		panic(fmt.Sprintf("audit: illegal transition %s -> %s", r.verdict.State, to))
	}
	r.log.Debug("audit state", logger.Fields("from", string(r.verdict.State), "to", string(to)))
	r.verdict.State = to
}

// Validate audits one random window of videoID. The returned verdict is
// never nil. The error is non-nil exactly when the audit failed: a
// CONFIGURATION_ERROR or INVALID_INPUT leaves the status empty, anything
// else makes the verdict inconclusive. A low score is not an error.
func (v *Validator) Validate(ctx context.Context, videoID string) (*Verdict, error) {
	auditID := uuid.NewString()
	ctx = logger.ContextWithAuditID(ctx, auditID)
	ctx, span := observability.StartSpan(ctx, "audit.Validate")
	defer span.End()
	if sc := span.SpanContext(); sc.HasTraceID() {
		ctx = logger.ContextWithTraceID(ctx, sc.TraceID().String())
	}
	observability.SetSpanAttribute(ctx, observability.AttrAuditID, auditID)
	observability.SetSpanAttribute(ctx, observability.AttrVideoID, videoID)

	if v.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.cfg.Timeout)
		defer cancel()
	}

	r := &run{
		v:   v,
		log: v.log.WithContext(ctx).WithFields(logger.Fields(logger.FieldVideoID, videoID)),
		verdict: &Verdict{
			AuditID:   auditID,
			VideoID:   videoID,
			State:     StateIdle,
			StartedAt: v.deps.Now(),
		},
	}

	err := r.execute(ctx)
	if err != nil {
		err = classify(ctx, err)
		r.verdict.State = StateFailed
		r.verdict.Status = StatusFor(err)
		r.verdict.Error, _ = apperrors.AsAppError(err)
		observability.SetSpanError(ctx, err)
	}
	r.verdict.FinishedAt = v.deps.Now()
	observability.SetSpanAttribute(ctx, observability.AttrStatus, string(r.verdict.Status))
	v.finish(ctx, r)
	return r.verdict, err
}

func (r *run) execute(ctx context.Context) error {
	v := r.v
	if strings.TrimSpace(r.verdict.VideoID) == "" {
		return apperrors.InvalidInput("video_id", "is required")
	}

	md, err := v.deps.Metadata.Metadata(ctx, r.verdict.VideoID)
	if err != nil {
		return err
	}
	var duration float64
	if md != nil {
		duration = md.Duration
	}
	if duration <= 0 {
		duration = v.cfg.FallbackDuration
		r.log.Debug("duration unknown, using fallback", logger.Fields("duration", duration))
	}
	w, err := v.SampleTimeRange(duration)
	if err != nil {
		return err
	}
	r.verdict.Window = w
	observability.SetSpanAttribute(ctx, observability.AttrWindowStart, w.Start)
	observability.SetSpanAttribute(ctx, observability.AttrWindowEnd, w.End)
	r.log = r.log.WithFields(logger.WindowFields(r.verdict.VideoID, w.Start, w.End))
	r.advance(StateWindowSelected)

	reference, err := v.deps.Reference.Reference(ctx, r.verdict.VideoID, w)
	if err != nil {
		return err
	}
	r.advance(StateReferenceFetched)

	candidate, chunks, err := v.candidate(ctx, r.verdict.VideoID, w)
	if err != nil {
		return err
	}
	r.verdict.Chunks = chunks
	r.advance(StateCandidateFetched)

	result, err := v.ValidateClip(*candidate, *reference, w)
	if err != nil {
		return err
	}
	r.verdict.Result = &result
	r.advance(StateScored)

	r.verdict.Status = StatusInvalid
	if result.IsValid {
		r.verdict.Status = StatusValid
	}
	observability.SetSpanAttribute(ctx, observability.AttrScore, result.Score)
	r.advance(StateDone)
	return nil
}

type chunk struct {
	start    float64
	segments []transcription.Segment
}

type rawChunk struct {
	row  ledger.Row
	data []byte
}

// candidate loads every chunk overlapping w and flattens them in chunk
// order. All chunks must arrive; a partial candidate is never scored.
func (v *Validator) candidate(ctx context.Context, videoID string, w Window) (*transcription.Transcript, int, error) {
	rows, err := v.deps.Index.LoadIndexWithVideo(ctx, videoID, w.Start)
	if err != nil {
		return nil, 0, err
	}
	if len(rows) == 0 {
		return &transcription.Transcript{}, 0, nil
	}

	raw := pipeline.Parallel(pipeline.FromSlice(rows), v.cfg.FetchConcurrency,
		func(ctx context.Context, row ledger.Row) (rawChunk, error) {
			data, err := v.deps.Chunks.Execute(ctx, row.CID)
			if err != nil {
				return rawChunk{}, err
			}
			return rawChunk{row: row, data: data}, nil
		})
	fetched, err := pipeline.Collect(ctx, pipeline.Map(raw, decodeChunk))
	if err != nil {
		return nil, 0, err
	}

	sort.SliceStable(fetched, func(i, j int) bool { return fetched[i].start < fetched[j].start })
	parts := make([][]transcription.Segment, len(fetched))
	for i, c := range fetched {
		parts[i] = c.segments
	}
	return &transcription.Transcript{Segments: transcription.Flatten(parts)}, len(fetched), nil
}

// decodeChunk parses a chunk's JSON segment array. Unreadable content is a
// collaborator failure: the publisher stored something that is not a chunk.
func decodeChunk(_ context.Context, rc rawChunk) (chunk, error) {
	var segs []transcription.Segment
	if err := json.Unmarshal(rc.data, &segs); err != nil {
		return chunk{}, apperrors.ExternalServiceError("cas", fmt.Errorf("decode chunk %s: %w", rc.row.CID, err)).
			WithDetail("cid", rc.row.CID)
	}
	return chunk{start: rc.row.ChunkStart, segments: segs}, nil
}

// classify turns deadline expiry into TIMEOUT and foreign errors into
// retryable collaborator failures.
func classify(ctx context.Context, err error) error {
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) && !apperrors.HasCode(err, apperrors.ErrCodeTimeout) {
		return apperrors.Timeout("validate").WithCause(err)
	}
	if apperrors.IsAppError(err) {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return apperrors.Timeout("validate").WithCause(err)
	}
	return apperrors.ExternalServiceError("audit", err)
}

func (v *Validator) finish(ctx context.Context, r *run) {
	vd := r.verdict
	fields := logger.Fields(
		logger.FieldAuditID, vd.AuditID,
		"state", string(vd.State),
		"status", string(vd.Status),
		"chunks", vd.Chunks,
	)
	fields = logger.MergeWithDuration(fields, vd.FinishedAt.Sub(vd.StartedAt))
	if vd.Result != nil {
		fields[logger.FieldScore] = vd.Result.Score
	}
	var errCode string
	if vd.Error != nil {
		errCode = string(vd.Error.Code)
		r.log.Warn("audit failed", logger.MergeWithError(fields, vd.Error))
	} else {
		r.log.Info("audit finished", fields)
	}
	var score float64
	if vd.Result != nil {
		score = vd.Result.Score
	}
	v.deps.Metrics.RecordAudit(ctx, string(vd.Status), errCode, score, vd.Result != nil, vd.FinishedAt.Sub(vd.StartedAt))

	if v.deps.Sink == nil {
		return
	}
	// The verdict is final; publishing must not be cut short by the audit deadline.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := v.deps.Sink.Send(sendCtx, vd); err != nil {
		r.log.Error("verdict publish failed", logger.MergeWithError(logger.Fields(logger.FieldAuditID, vd.AuditID), err))
	}
}
