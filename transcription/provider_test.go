package transcription

import (
	"context"
	"strings"
	"testing"

	"github.com/kbukum/transcriptcheck/provider"
)

type stubProvider struct {
	calls int
}

func (s *stubProvider) Name() string                       { return "stub" }
func (s *stubProvider) IsAvailable(_ context.Context) bool { return true }
func (s *stubProvider) Transcribe(_ context.Context, req Request) (*Transcript, error) {
	s.calls++
	return &Transcript{Duration: 30, Segments: Shift([]Segment{{Start: 0, End: 2, Text: "hi"}}, req.Offset)}, nil
}

func TestWrap_AppliesMiddleware(t *testing.T) {
	stub := &stubProvider{}
	var seen []string
	mw := func(inner provider.RequestResponse[Request, *Transcript]) provider.RequestResponse[Request, *Transcript] {
		return provider.Func(inner.Name(), func(ctx context.Context, req Request) (*Transcript, error) {
			seen = append(seen, req.FileName)
			return inner.Execute(ctx, req)
		})
	}

	p := Wrap(stub, mw)
	if p.Name() != "stub" {
		t.Errorf("name should pass through, got %q", p.Name())
	}
	tr, err := p.Transcribe(context.Background(), Request{Audio: strings.NewReader("x"), FileName: "clip.mp3", Offset: 60})
	if err != nil {
		t.Fatal(err)
	}
	if tr.Segments[0].Start != 60 {
		t.Errorf("expected offset applied, got %+v", tr.Segments[0])
	}
	if stub.calls != 1 || len(seen) != 1 || seen[0] != "clip.mp3" {
		t.Errorf("calls=%d seen=%v", stub.calls, seen)
	}
}

func TestWrap_NoMiddlewareReturnsSame(t *testing.T) {
	stub := &stubProvider{}
	if Wrap(stub) != Provider(stub) {
		t.Error("expected identity")
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterFactory("stub", func(map[string]any) (Provider, error) { return &stubProvider{}, nil })
	p, err := reg.Create("stub", nil)
	if err != nil || p.Name() != "stub" {
		t.Errorf("Create = %v, %v", p, err)
	}
}
