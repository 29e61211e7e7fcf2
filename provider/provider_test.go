package provider_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/kbukum/transcriptcheck/logger"
	"github.com/kbukum/transcriptcheck/provider"
)

type echoProvider struct{ name string }

func (p *echoProvider) Name() string                       { return p.name }
func (p *echoProvider) IsAvailable(_ context.Context) bool { return true }
func (p *echoProvider) Execute(_ context.Context, in string) (string, error) {
	return p.name + ":" + in, nil
}

func TestRegistry_CreateAndList(t *testing.T) {
	reg := provider.NewRegistry[provider.RequestResponse[string, string]]()
	reg.RegisterFactory("whisper", func(cfg map[string]any) (provider.RequestResponse[string, string], error) {
		return &echoProvider{name: "whisper"}, nil
	})
	reg.RegisterFactory("openai", func(cfg map[string]any) (provider.RequestResponse[string, string], error) {
		if cfg["api_key"] == "" {
			return nil, errors.New("api_key required")
		}
		return &echoProvider{name: "openai"}, nil
	})

	if got := reg.List(); !slices.Equal(got, []string{"openai", "whisper"}) {
		t.Errorf("List() = %v", got)
	}

	p, err := reg.Create("whisper", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	out, _ := p.Execute(context.Background(), "x")
	if out != "whisper:x" {
		t.Errorf("unexpected output %q", out)
	}

	if _, err := reg.Create("openai", map[string]any{"api_key": ""}); err == nil {
		t.Error("expected factory error")
	}
	_, err = reg.Create("deepgram", nil)
	if err == nil || !strings.Contains(err.Error(), "not registered") {
		t.Errorf("expected not registered error, got %v", err)
	}
}

func tag(label string, trail *[]string) provider.Middleware[string, string] {
	return func(inner provider.RequestResponse[string, string]) provider.RequestResponse[string, string] {
		return provider.Func(inner.Name(), func(ctx context.Context, in string) (string, error) {
			*trail = append(*trail, label)
			return inner.Execute(ctx, in)
		})
	}
}

func TestChain_OutermostFirst(t *testing.T) {
	var trail []string
	wrapped := provider.Chain(tag("a", &trail), tag("b", &trail), tag("c", &trail))(&echoProvider{name: "asr"})

	out, err := wrapped.Execute(context.Background(), "clip")
	if err != nil || out != "asr:clip" {
		t.Fatalf("got %q, %v", out, err)
	}
	if !slices.Equal(trail, []string{"a", "b", "c"}) {
		t.Errorf("order = %v", trail)
	}
	if wrapped.Name() != "asr" {
		t.Errorf("name should pass through, got %q", wrapped.Name())
	}
}

func TestWithLogging_PassesThrough(t *testing.T) {
	failing := provider.Func("cas", func(_ context.Context, _ string) (string, error) {
		return "", errors.New("boom")
	})
	wrapped := provider.WithLogging[string, string](logger.NewNop())(failing)
	if _, err := wrapped.Execute(context.Background(), "cid"); err == nil || err.Error() != "boom" {
		t.Errorf("expected boom, got %v", err)
	}
	ok := provider.WithLogging[string, string](logger.NewNop())(&echoProvider{name: "e"})
	if out, _ := ok.Execute(context.Background(), "x"); out != "e:x" {
		t.Errorf("unexpected %q", out)
	}
}

func TestAdapt_MapsTypes(t *testing.T) {
	lengths := provider.Func("len", func(_ context.Context, s string) (int, error) { return len(s), nil })
	adapted := provider.Adapt(lengths, "words",
		func(_ context.Context, words []string) (string, error) { return strings.Join(words, " "), nil },
		func(words []string, n int) (bool, error) { return n > len(words), nil },
	)
	if adapted.Name() != "words" {
		t.Errorf("unexpected name %q", adapted.Name())
	}
	got, err := adapted.Execute(context.Background(), []string{"a", "b"})
	if err != nil || !got {
		t.Errorf("got %v, %v", got, err)
	}
}

func TestAdapt_MapInError(t *testing.T) {
	called := false
	inner := provider.Func("x", func(_ context.Context, s string) (string, error) { called = true; return s, nil })
	adapted := provider.Adapt(inner, "x",
		func(_ context.Context, n int) (string, error) { return "", errors.New("bad input") },
		func(_ int, s string) (string, error) { return s, nil },
	)
	if _, err := adapted.Execute(context.Background(), 1); err == nil || called {
		t.Errorf("expected mapIn error without calling inner, err=%v called=%v", err, called)
	}
}

func TestSinkFunc(t *testing.T) {
	var got []string
	s := provider.SinkFunc("verdicts", func(_ context.Context, v string) error {
		got = append(got, v)
		return nil
	})
	if err := s.Send(context.Background(), "valid"); err != nil {
		t.Fatal(err)
	}
	if !s.IsAvailable(context.Background()) || len(got) != 1 {
		t.Errorf("unexpected sink state %v", got)
	}
}
