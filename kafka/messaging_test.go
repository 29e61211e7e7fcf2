package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/transcriptcheck/audit"
	apperrors "github.com/kbukum/transcriptcheck/errors"
	"github.com/kbukum/transcriptcheck/logger"
	"github.com/kbukum/transcriptcheck/provider"
)

type fakeWriter struct {
	mu       sync.Mutex
	failures []error
	written  []kafkago.Message
	calls    int
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if len(w.failures) > 0 {
		err := w.failures[0]
		w.failures = w.failures[1:]
		return err
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

// fakeReader serves queued messages, then blocks until the context ends.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafkago.Message
	errs      []error
	committed []int64
	drained   chan struct{}
}

func newFakeReader(msgs ...kafkago.Message) *fakeReader {
	return &fakeReader{queue: msgs, drained: make(chan struct{})}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	r.mu.Lock()
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		r.mu.Unlock()
		return kafkago.Message{}, err
	}
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	select {
	case <-r.drained:
	default:
		close(r.drained)
	}
	<-ctx.Done()
	return kafkago.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func testProducer(w MessageWriter) *Producer {
	return NewProducerWithWriter(Config{Enabled: true, Retries: 3}, w, logger.NewNop())
}

func TestProducerSendJSON(t *testing.T) {
	w := &fakeWriter{}
	p := testProducer(w)

	err := p.SendJSON(context.Background(), "verdicts", "vid", map[string]string{"status": "valid"})
	if err != nil {
		t.Fatalf("SendJSON() error: %v", err)
	}
	if len(w.written) != 1 {
		t.Fatalf("written = %d, want 1", len(w.written))
	}
	msg := w.written[0]
	if msg.Topic != "verdicts" || string(msg.Key) != "vid" {
		t.Errorf("topic/key = %s/%s", msg.Topic, msg.Key)
	}
	if string(msg.Value) != `{"status":"valid"}` {
		t.Errorf("value = %s", msg.Value)
	}
	if len(msg.Headers) == 0 || msg.Headers[0].Key != "content-type" {
		t.Errorf("headers = %v", msg.Headers)
	}
}

func TestProducerRetriesTransientErrors(t *testing.T) {
	w := &fakeWriter{failures: []error{errors.New("connection reset by peer")}}
	p := testProducer(w)

	if err := p.SendJSON(context.Background(), "verdicts", "k", 1); err != nil {
		t.Fatalf("SendJSON() error: %v", err)
	}
	if w.calls != 2 {
		t.Errorf("calls = %d, want 2", w.calls)
	}
}

func TestProducerDoesNotRetryRejectedMessages(t *testing.T) {
	w := &fakeWriter{failures: []error{errors.New("message too large")}}
	p := testProducer(w)

	err := p.SendJSON(context.Background(), "verdicts", "k", 1)
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Code != apperrors.ErrCodeExternalService || appErr.Retryable {
		t.Fatalf("error = %v, want non-retryable EXTERNAL_SERVICE_ERROR", err)
	}
	if w.calls != 1 {
		t.Errorf("calls = %d, want 1", w.calls)
	}
}

func TestProducerGivesUpAfterRetries(t *testing.T) {
	refused := errors.New("dial tcp: connection refused")
	w := &fakeWriter{failures: []error{refused, refused, refused, refused}}
	p := testProducer(w)

	err := p.SendJSON(context.Background(), "verdicts", "k", 1)
	if !apperrors.HasCode(err, apperrors.ErrCodeServiceUnavailable) {
		t.Fatalf("error = %v, want SERVICE_UNAVAILABLE", err)
	}
	if w.calls != 3 {
		t.Errorf("calls = %d, want 3", w.calls)
	}
}

func TestProducerClose(t *testing.T) {
	w := &fakeWriter{}
	p := testProducer(w)
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if !w.closed || !p.Closed() {
		t.Error("producer should be closed")
	}
	err := p.SendJSON(context.Background(), "verdicts", "k", 1)
	if !apperrors.HasCode(err, apperrors.ErrCodeServiceUnavailable) {
		t.Errorf("send after close = %v, want SERVICE_UNAVAILABLE", err)
	}
}

func TestVerdictPublisher(t *testing.T) {
	w := &fakeWriter{}
	p := testProducer(w)
	pub := NewPublisher(p, "verdicts", "verdict", func(v *audit.Verdict) string { return v.VideoID })

	var sink provider.Sink[*audit.Verdict] = pub
	if sink.Name() != "kafka:verdicts" {
		t.Errorf("Name() = %q", sink.Name())
	}
	if !sink.IsAvailable(context.Background()) {
		t.Error("publisher should be available")
	}

	verdict := &audit.Verdict{
		AuditID: "a-1",
		VideoID: "mars",
		Window:  audit.Window{Start: 30, End: 60},
		Status:  audit.StatusValid,
		Result:  &audit.ScoreResult{IsValid: true, Score: 0.8},
		State:   audit.StateDone,
	}
	if err := sink.Send(context.Background(), verdict); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	msg := w.written[0]
	if string(msg.Key) != "mars" {
		t.Errorf("key = %q, want mars", msg.Key)
	}
	var got audit.Verdict
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatal(err)
	}
	if got.AuditID != "a-1" || got.Status != audit.StatusValid || got.Result.Score != 0.8 {
		t.Errorf("decoded verdict = %+v", got)
	}
	var eventType string
	for _, h := range msg.Headers {
		if h.Key == "event-type" {
			eventType = string(h.Value)
		}
	}
	if eventType != "verdict" {
		t.Errorf("event-type = %q", eventType)
	}

	_ = p.Close()
	if sink.IsAvailable(context.Background()) {
		t.Error("publisher should be unavailable after close")
	}
}

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name    string
		msg     kafkago.Message
		want    string
		wantErr bool
	}{
		{"body", kafkago.Message{Value: []byte(`{"video_id":"mars"}`)}, "mars", false},
		{"key fallback", kafkago.Message{Key: []byte("venus"), Value: []byte(`{}`)}, "venus", false},
		{"empty body", kafkago.Message{Key: []byte("venus")}, "venus", false},
		{"trimmed", kafkago.Message{Value: []byte(`{"video_id":"  mars "}`)}, "mars", false},
		{"bad json", kafkago.Message{Value: []byte(`{video`)}, "", true},
		{"missing", kafkago.Message{Value: []byte(`{"video_id":" "}`)}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRequest(tt.msg)
			if tt.wantErr {
				if !apperrors.HasCode(err, apperrors.ErrCodeInvalidInput) {
					t.Fatalf("error = %v, want INVALID_INPUT", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got.VideoID != tt.want {
				t.Errorf("VideoID = %q, want %q", got.VideoID, tt.want)
			}
		})
	}
}

type fakeValidator struct {
	mu       sync.Mutex
	videos   []string
	deadline bool
	err      error
}

func (f *fakeValidator) Validate(ctx context.Context, videoID string) (*audit.Verdict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videos = append(f.videos, videoID)
	_, f.deadline = ctx.Deadline()
	v := &audit.Verdict{AuditID: "a", VideoID: videoID, Status: audit.StatusValid, State: audit.StateDone}
	if f.err != nil {
		v.Status, v.State = audit.StatusInconclusive, audit.StateFailed
	}
	return v, f.err
}

func TestValidationHandler(t *testing.T) {
	v := &fakeValidator{}
	h := ValidationHandler(v, time.Minute, logger.NewNop())

	if err := h(context.Background(), kafkago.Message{Value: []byte(`{"video_id":"mars"}`)}); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if len(v.videos) != 1 || v.videos[0] != "mars" || !v.deadline {
		t.Errorf("validator calls = %v deadline=%v", v.videos, v.deadline)
	}

	if err := h(context.Background(), kafkago.Message{Value: []byte(`nope`)}); err == nil {
		t.Error("malformed request should fail")
	}
	if len(v.videos) != 1 {
		t.Error("malformed request should not reach the validator")
	}

	v.err = apperrors.ExternalServiceError("asr", errors.New("down"))
	err := h(context.Background(), kafkago.Message{Key: []byte("venus")})
	if !apperrors.HasCode(err, apperrors.ErrCodeExternalService) {
		t.Errorf("error = %v, want EXTERNAL_SERVICE_ERROR", err)
	}
}

func TestConsumerHandlesAndCommits(t *testing.T) {
	reader := newFakeReader(
		kafkago.Message{Offset: 1, Value: []byte(`{"video_id":"mars"}`)},
		kafkago.Message{Offset: 2, Value: []byte(`garbage`)},
		kafkago.Message{Offset: 3, Key: []byte("venus")},
	)
	c := NewConsumerWithReader(reader, "requests", "g", logger.NewNop())
	v := &fakeValidator{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Consume(ctx, ValidationHandler(v, 0, logger.NewNop())) }()

	select {
	case <-reader.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not drain the queue")
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Consume() error = %v, want context.Canceled", err)
	}

	commits := reader.commits()
	if len(commits) != 3 || commits[0] != 1 || commits[2] != 3 {
		t.Errorf("commits = %v, want [1 2 3]", commits)
	}
	if len(v.videos) != 2 || v.videos[0] != "mars" || v.videos[1] != "venus" {
		t.Errorf("validated = %v", v.videos)
	}
	if v.deadline {
		t.Error("zero timeout should not set a deadline")
	}
}

func TestConsumerBacksOffOnReadErrors(t *testing.T) {
	reader := newFakeReader(kafkago.Message{Offset: 7})
	reader.errs = []error{errors.New("broker not available"), errors.New("broker not available")}
	c := NewConsumerWithReader(reader, "requests", "g", logger.NewNop())
	var waits []int
	c.backoff = func(failures int) time.Duration {
		waits = append(waits, failures)
		return time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	var handled atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- c.Consume(ctx, func(context.Context, kafkago.Message) error {
			handled.Add(1)
			return nil
		})
	}()

	<-reader.drained
	cancel()
	<-done

	if handled.Load() != 1 {
		t.Errorf("handled = %d, want 1", handled.Load())
	}
	if len(waits) != 2 || waits[1] != 2 {
		t.Errorf("backoff calls = %v, want [1 2]", waits)
	}
	if c.failures != 0 {
		t.Errorf("failures = %d, want reset to 0", c.failures)
	}
}

func TestReadBackoff(t *testing.T) {
	for i := 0; i < 50; i++ {
		if d := readBackoff(1); d < 800*time.Millisecond || d > 1200*time.Millisecond {
			t.Fatalf("readBackoff(1) = %v, want 1s +/- 20%%", d)
		}
		if d := readBackoff(3); d < 3200*time.Millisecond || d > 4800*time.Millisecond {
			t.Fatalf("readBackoff(3) = %v, want 4s +/- 20%%", d)
		}
	}
	if d := readBackoff(100); d != maxReadBackoff {
		t.Errorf("readBackoff(100) = %v, want cap", d)
	}
}
