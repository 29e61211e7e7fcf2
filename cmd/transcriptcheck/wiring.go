package main

import (
	"context"
	"fmt"

	"github.com/kbukum/transcriptcheck/api"
	"github.com/kbukum/transcriptcheck/audit"
	"github.com/kbukum/transcriptcheck/bootstrap"
	apperrors "github.com/kbukum/transcriptcheck/errors"
	"github.com/kbukum/transcriptcheck/indexer"
	"github.com/kbukum/transcriptcheck/kafka"
	"github.com/kbukum/transcriptcheck/ledger"
	"github.com/kbukum/transcriptcheck/logger"
	"github.com/kbukum/transcriptcheck/observability"
	"github.com/kbukum/transcriptcheck/platform"
	"github.com/kbukum/transcriptcheck/process"
	"github.com/kbukum/transcriptcheck/provider"
	"github.com/kbukum/transcriptcheck/redis"
	"github.com/kbukum/transcriptcheck/resilience"
	"github.com/kbukum/transcriptcheck/server"
	"github.com/kbukum/transcriptcheck/storage"
	_ "github.com/kbukum/transcriptcheck/storage/local"
	_ "github.com/kbukum/transcriptcheck/storage/s3"
	"github.com/kbukum/transcriptcheck/transcription"
	"github.com/kbukum/transcriptcheck/transcription/openai"
	"github.com/kbukum/transcriptcheck/transcription/whisper"
)

type app = bootstrap.App[*Config]

// services are the business-layer objects every mode may use.
type services struct {
	validator *audit.Validator
	indexer   *indexer.Indexer
	ledger    ledger.Store
	producer  *kafka.Producer
}

// infra holds the components started before the business layer is wired.
type infra struct {
	ledger  *ledger.Component
	storage *storage.Component
	redis   *redis.Component
}

// registerInfra registers the stateful components in dependency order.
func registerInfra(a *app) (*infra, error) {
	cfg := a.Cfg
	in := &infra{
		ledger:  ledger.NewComponent(cfg.Ledger, cfg.Indexer.ChunkInterval, a.Logger),
		storage: storage.NewComponent(cfg.Storage, a.Logger),
	}
	if err := a.RegisterComponent(in.ledger); err != nil {
		return nil, err
	}
	if err := a.RegisterComponent(in.storage); err != nil {
		return nil, err
	}
	if cfg.Redis.Enabled {
		in.redis = redis.NewComponent(cfg.Redis, a.Logger)
		if err := a.RegisterComponent(in.redis); err != nil {
			return nil, err
		}
	}
	return in, nil
}

// initTelemetry installs the OTLP tracer and meter when tracing is enabled.
// An exporter that cannot be built is logged and skipped; the service runs
// without it.
func initTelemetry(ctx context.Context, a *app) {
	cfg := a.Cfg
	res := observability.Resource{
		ServiceName:    cfg.Name,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
	}

	tp, err := observability.InitTracer(ctx, cfg.Tracing, res)
	if err != nil {
		a.Logger.Warn("Tracing disabled", logger.MergeWithError(nil, err))
	} else if tp != nil {
		a.OnStop(tp.Shutdown)
	}

	mp, err := observability.InitMeter(ctx, cfg.Tracing, res)
	if err != nil {
		a.Logger.Warn("Metrics disabled", logger.MergeWithError(nil, err))
	} else if mp != nil {
		a.OnStop(mp.Shutdown)
	}
}

// buildServices wires the collaborators over the started infrastructure.
func buildServices(a *app, in *infra) (*services, error) {
	cfg := a.Cfg
	log := a.Logger

	cb := resilience.DefaultCircuitBreakerConfig("yt-dlp")
	bh := resilience.DefaultBulkheadConfig("yt-dlp")
	runner := process.NewAdapter(
		process.Config{Name: "yt-dlp", Timeout: cfg.Platform.Timeout},
		provider.ResilienceConfig{CircuitBreaker: &cb, Bulkhead: &bh},
	)
	yt := platform.New(cfg.Platform, runner, log)

	var metadata audit.MetadataSource = yt
	if in.redis != nil {
		metadata = platform.NewCachedMetadata(yt, in.redis.Client(), cfg.Redis.TTL(), log)
	}

	asr, err := newASR(cfg.ASR, log)
	if err != nil {
		return nil, err
	}

	cas := in.storage.ContentStore()
	chunks := provider.Chain(
		provider.WithTracing[string, []byte]("cas"),
		provider.WithLogging[string, []byte](log),
	)(provider.WithResilience(cas.Fetcher(), provider.DefaultResilienceConfig("cas")))

	svc := &services{ledger: in.ledger.Store()}
	deps := audit.Deps{
		Metadata:  metadata,
		Reference: audit.NewASRReference(yt, asr, cfg.ASR.Language, ""),
		Index:     svc.ledger,
		Chunks:    chunks,
	}

	if cfg.Kafka.Enabled {
		svc.producer, err = kafka.NewProducer(cfg.Kafka, log)
		if err != nil {
			return nil, err
		}
		deps.Sink = kafka.NewPublisher(svc.producer, cfg.Kafka.VerdictTopic, "transcriptcheck.verdict",
			func(v *audit.Verdict) string { return v.VideoID })
	}

	svc.validator, err = audit.NewValidator(cfg.Validator, deps, log)
	if err != nil {
		if svc.producer != nil {
			_ = svc.producer.Close()
		}
		return nil, err
	}
	svc.indexer = indexer.New(cfg.Indexer, yt, asr, cas, svc.ledger, log)
	return svc, nil
}

// newASR creates the configured backend and wraps it in tracing, logging
// and resilience, outermost first.
func newASR(cfg ASRConfig, log *logger.Logger) (transcription.Provider, error) {
	reg := transcription.NewRegistry()
	reg.RegisterFactory(openai.ProviderName, openai.Factory())
	reg.RegisterFactory(whisper.ProviderName, whisper.Factory())

	base, err := reg.Create(cfg.Provider, cfg.factoryConfig())
	if err != nil {
		return nil, fmt.Errorf("asr: %w", err)
	}
	resilient := transcription.FromRequestResponse(provider.WithResilience(
		transcription.AsRequestResponse(base), provider.DefaultResilienceConfig("asr")))
	return transcription.Wrap(resilient,
		provider.WithTracing[transcription.Request, *transcription.Transcript]("asr"),
		provider.WithLogging[transcription.Request, *transcription.Transcript](log),
	), nil
}

// registerKafka adds the kafka component. In worker mode it also consumes
// validation requests.
func registerKafka(a *app, svc *services, consume bool) error {
	if svc.producer == nil {
		return nil
	}
	cfg := a.Cfg.Kafka
	comp := kafka.NewComponent(cfg, a.Logger)
	comp.SetProducer(svc.producer)

	if consume {
		consumer, err := kafka.NewConsumer(cfg, cfg.RequestTopic, a.Logger)
		if err != nil {
			return err
		}
		comp.AddConsumer(consumer, kafka.ValidationHandler(svc.validator, kafka.ParseDuration(cfg.HandlerTimeout), a.Logger))
		a.Summary.TrackConsumer(cfg.GroupID, cfg.RequestTopic)
	}
	return a.RegisterComponent(comp)
}

// registerServer mounts the API and health endpoints and adds the server component.
func registerServer(a *app, svc *services) error {
	s := server.New(a.Cfg.Server, a.Logger)
	s.ApplyMiddleware()
	s.RegisterDefaultEndpoints(a.Name, a.Components.HealthAll)
	api.NewHandler(svc.validator, svc.indexer, svc.ledger, a.Logger).Register(s.GinEngine())

	for _, r := range s.GinEngine().Routes() {
		a.Summary.TrackRoute(r.Method, r.Path)
	}
	return a.RegisterComponent(server.NewComponent(s))
}

// configureMode returns the configure callback for mode and stores the
// wired services in *out.
func configureMode(mode string, in *infra, out **services) func(context.Context, *app) error {
	return func(_ context.Context, a *app) error {
		svc, err := buildServices(a, in)
		if err != nil {
			return err
		}
		*out = svc

		switch mode {
		case modeServe:
			if err := registerKafka(a, svc, false); err != nil {
				return err
			}
			return registerServer(a, svc)
		case modeWorker:
			if svc.producer == nil {
				return apperrors.Configuration("worker mode requires kafka.enabled")
			}
			return registerKafka(a, svc, true)
		default:
			// one-shot commands publish verdicts when kafka is on but never consume
			return registerKafka(a, svc, false)
		}
	}
}
