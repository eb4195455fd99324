package app

import (
	"context"
	"time"

	core "github.com/ankitaa186/agentic-memories-sub004/internal/app/core/service"
	"github.com/ankitaa186/agentic-memories-sub004/internal/intent"
	"github.com/ankitaa186/agentic-memories-sub004/internal/logging"
	"github.com/ankitaa186/agentic-memories-sub004/internal/metrics"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage"
	"github.com/ankitaa186/agentic-memories-sub004/internal/streaming"
	"github.com/ankitaa186/agentic-memories-sub004/pkg/config"
)

func intentPollInterval(cfg *config.Config) time.Duration {
	secs := cfg.Runtime.IntentPollIntervalSec
	if secs <= 0 {
		secs = 60
	}
	return time.Duration(secs) * time.Second
}

func streamSweepInterval(cfg *config.Config) time.Duration {
	ms := cfg.Runtime.StreamIdleFlushMS
	if ms <= 0 {
		ms = 2000
	}
	return time.Duration(ms) * time.Millisecond
}

// intentPollService is the proactive worker's pending-poll loop (spec.md
// §9 "Background work"): it claims due intents so no two workers act on the
// same one, and surfaces the count via Metrics. Evaluating trigger
// conditions and delivering the resulting message is out of scope (spec.md
// §1 Non-goals) — that happens externally, via POST /v1/intents/{id}/fire.
type intentPollService struct {
	svc      *intent.Service
	metrics  *metrics.Metrics
	log      *logging.Logger
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

func newIntentPollService(svc *intent.Service, m *metrics.Metrics, log *logging.Logger, interval time.Duration) *intentPollService {
	return &intentPollService{svc: svc, metrics: m, log: log, interval: interval}
}

func (s *intentPollService) Name() string { return "intent-poll" }

func (s *intentPollService) Descriptor() core.Descriptor {
	return core.Descriptor{Name: s.Name(), Domain: "intent", Layer: core.LayerIntent}.
		WithCapabilities("pending-poll", "claim")
}

func (s *intentPollService) Start(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				s.tick(loopCtx)
			}
		}
	}()
	return nil
}

func (s *intentPollService) tick(ctx context.Context) {
	entries, err := s.svc.Pending(ctx, "")
	if err != nil {
		if s.log != nil {
			s.log.WithError(err).Warn("intent poll: list pending failed")
		}
		return
	}
	s.metrics.SetIntentPending(len(entries))

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.CooldownActive {
			ids = append(ids, e.Intent.ID)
		}
	}
	if len(ids) == 0 {
		return
	}
	if _, err := s.svc.Claim(ctx, ids, intent.DefaultClaimTTL); err != nil && s.log != nil {
		s.log.WithError(err).Warn("intent poll: claim failed")
	}
}

func (s *intentPollService) Stop(context.Context) error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	return nil
}

// streamSweepService periodically flushes idle conversation buffers,
// implementing the "orchestrator batch-flush timer" background task named
// in spec.md §9.
type streamSweepService struct {
	orch     *streaming.Orchestrator
	log      *logging.Logger
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

func newStreamSweepService(orch *streaming.Orchestrator, log *logging.Logger, interval time.Duration) *streamSweepService {
	return &streamSweepService{orch: orch, log: log, interval: interval}
}

func (s *streamSweepService) Name() string { return "stream-sweep" }

func (s *streamSweepService) Descriptor() core.Descriptor {
	return core.Descriptor{Name: s.Name(), Domain: "streaming", Layer: core.LayerStreaming}.
		WithCapabilities("idle-flush")
}

func (s *streamSweepService) Start(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				if _, err := s.orch.SweepIdle(loopCtx); err != nil && s.log != nil {
					s.log.WithError(err).Warn("stream sweep failed")
				}
			}
		}
	}()
	return nil
}

func (s *streamSweepService) Stop(context.Context) error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	return nil
}

// healthBeatService periodically probes every adapter and records the
// result in Metrics, backing the /health/full endpoint's freshest readings
// even between requests.
type healthBeatService struct {
	stores   Stores
	metrics  *metrics.Metrics
	log      *logging.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

const healthBeatInterval = 30 * time.Second

func newHealthBeatService(stores Stores, m *metrics.Metrics, log *logging.Logger) *healthBeatService {
	return &healthBeatService{stores: stores, metrics: m, log: log}
}

func (s *healthBeatService) Name() string { return "health-beat" }

func (s *healthBeatService) Descriptor() core.Descriptor {
	return core.Descriptor{Name: s.Name(), Domain: "storage", Layer: core.LayerStorage}.
		WithCapabilities("health-probe")
}

func (s *healthBeatService) Start(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(healthBeatInterval)
		defer ticker.Stop()
		s.probe(loopCtx)
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				s.probe(loopCtx)
			}
		}
	}()
	return nil
}

func (s *healthBeatService) probe(ctx context.Context) {
	checks := map[string]storage.Health{
		"vector":     s.stores.Vector.Health(ctx),
		"relational": s.stores.Relational.Health(ctx),
		"timeseries": s.stores.TimeSeries.Health(ctx),
		"cache":      s.stores.Cache.Health(ctx),
	}
	if s.stores.Graph != nil {
		checks["graph"] = s.stores.Graph.Health(ctx)
	}
	for name, h := range checks {
		s.metrics.SetStoreHealth(name, h.OK)
	}
}

func (s *healthBeatService) Stop(context.Context) error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	return nil
}
