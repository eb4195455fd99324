// Package app wires every adapter and engine named in spec.md §2 into a
// single application object, grounded on the teacher's internal/app
// Application (Stores struct + applyDefaults + system.Manager lifecycle),
// re-keyed from blockchain services to the memory service's
// ingestion/retrieval/persistence/maintenance/intent/streaming stack.
package app

import (
	"context"
	"database/sql"

	core "github.com/ankitaa186/agentic-memories-sub004/internal/app/core/service"
	"github.com/ankitaa186/agentic-memories-sub004/internal/app/system"
	"github.com/ankitaa186/agentic-memories-sub004/internal/extraction"
	"github.com/ankitaa186/agentic-memories-sub004/internal/intent"
	"github.com/ankitaa186/agentic-memories-sub004/internal/llmclient"
	"github.com/ankitaa186/agentic-memories-sub004/internal/logging"
	"github.com/ankitaa186/agentic-memories-sub004/internal/maintenance"
	"github.com/ankitaa186/agentic-memories-sub004/internal/metrics"
	"github.com/ankitaa186/agentic-memories-sub004/internal/orchestrator/persistence"
	narrativeproj "github.com/ankitaa186/agentic-memories-sub004/internal/projection/narrative"
	portfolioproj "github.com/ankitaa186/agentic-memories-sub004/internal/projection/portfolio"
	profileproj "github.com/ankitaa186/agentic-memories-sub004/internal/projection/profile"
	"github.com/ankitaa186/agentic-memories-sub004/internal/retrieval"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage/cache"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage/graph"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage/memstore"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage/postgres"
	"github.com/ankitaa186/agentic-memories-sub004/internal/storage/timeseries"
	vectorstore "github.com/ankitaa186/agentic-memories-sub004/internal/storage/vector"
	"github.com/ankitaa186/agentic-memories-sub004/internal/streaming"
	"github.com/ankitaa186/agentic-memories-sub004/internal/workpool"
	"github.com/ankitaa186/agentic-memories-sub004/pkg/config"
)

// Stores encapsulates the adapter set. Nil fields default to the in-process
// implementation, mirroring the teacher's Stores.applyDefaults shape.
type Stores struct {
	Vector     storage.VectorAdapter
	Relational storage.RelationalAdapter
	TimeSeries storage.TimeSeriesAdapter
	Cache      storage.CacheAdapter
	Graph      storage.GraphAdapter
	ProfileDB  profileproj.Store
}

func (s *Stores) applyDefaults() {
	if s.Vector == nil {
		s.Vector = vectorstore.New()
	}
	if s.Relational == nil {
		s.Relational = memstore.NewRelational()
	}
	if s.TimeSeries == nil {
		s.TimeSeries = memstore.NewTimeSeries()
	}
	if s.Cache == nil {
		s.Cache = cache.NewMemoryStore()
	}
	if s.ProfileDB == nil {
		s.ProfileDB = profileproj.NewMemoryStore()
	}
}

// Collaborators encapsulates the LLM/embedding oracle interfaces (spec.md
// §4.9). A single stub implementation satisfies all four by default.
type Collaborators struct {
	Worthiness  llmclient.Worthiness
	Extractor   llmclient.Extractor
	Synthesizer llmclient.Synthesizer
	Embedder    llmclient.Embedder
}

func (c *Collaborators) applyDefaults(embeddingDim int) {
	stub := llmclient.NewStub(embeddingDim)
	if c.Worthiness == nil {
		c.Worthiness = stub
	}
	if c.Extractor == nil {
		c.Extractor = stub
	}
	if c.Synthesizer == nil {
		c.Synthesizer = stub
	}
	if c.Embedder == nil {
		c.Embedder = stub
	}
}

// App is the fully wired application: every engine described in spec.md §2,
// lifecycle-managed by a system.Manager.
type App struct {
	Config  *config.Config
	Log     *logging.Logger
	Metrics *metrics.Metrics
	manager *system.Manager

	DB *sql.DB

	Stores        Stores
	Collaborators Collaborators

	Retrieval    *retrieval.Engine
	Persistence  *persistence.Orchestrator
	Extraction   *extraction.Pipeline
	Maintenance  *maintenance.Engine
	Intents      *intent.Service
	Streaming    *streaming.Orchestrator
	Narrative    *narrativeproj.Builder
	Profile      *profileproj.Projector
	Portfolio    *portfolioproj.Projector
	IngestPool   *workpool.Pool

	descriptors []core.Descriptor
}

// New opens the configured adapters (falling back to in-process stores when
// no relational DSN is set), constructs every engine, and registers the
// background services with a system.Manager. Callers may override individual
// adapters/collaborators via stores/collab before engines are built.
func New(cfg *config.Config, db *sql.DB, stores Stores, collab Collaborators, log *logging.Logger) (*App, error) {
	if log == nil {
		log = logging.NewFromEnv("memoryservice")
	}

	if db != nil {
		if stores.Relational == nil {
			stores.Relational = postgres.NewStore(db)
		}
		if stores.TimeSeries == nil {
			stores.TimeSeries = timeseries.NewStore(db)
		}
		if stores.Graph == nil && cfg.Features.GraphEnabled {
			stores.Graph = graph.NewStore(db)
		}
	}
	if stores.Cache == nil && cfg.Cache.CacheURL != "" {
		redisStore, err := cache.NewRedisStore(cfg.Cache.CacheURL)
		if err != nil {
			return nil, err
		}
		stores.Cache = redisStore
	}

	stores.applyDefaults()
	collab.applyDefaults(cfg.Vector.EmbeddingDim)

	m := metrics.New("memoryservice", "dev")

	retr := retrieval.New(stores.Vector, stores.Relational, stores.Graph, stores.Cache, collab.Embedder, collab.Synthesizer, log)
	persist := persistence.New(stores.Vector, stores.Relational, log)
	extractPipe := extraction.New(collab.Worthiness, collab.Extractor, collab.Embedder, retr, persist, stores.Vector, log)
	maint := maintenance.New(stores.Vector, stores.Relational, collab.Synthesizer, collab.Embedder, log)
	intents := intent.New(stores.Relational, log)
	stream := streaming.New(extractPipe, retr)
	narrative := narrativeproj.New(retr, collab.Synthesizer)
	profile := profileproj.New(stores.ProfileDB)
	portfolio := portfolioproj.New(stores.Relational, stores.TimeSeries)
	pool := workpool.New(cfg.Runtime.WorkerPoolSize, cfg.Runtime.WorkerQueueDepth)

	manager := system.NewManager()

	a := &App{
		Config:        cfg,
		Log:           log,
		Metrics:       m,
		manager:       manager,
		DB:            db,
		Stores:        stores,
		Collaborators: collab,
		Retrieval:     retr,
		Persistence:   persist,
		Extraction:    extractPipe,
		Maintenance:   maint,
		Intents:       intents,
		Streaming:     stream,
		Narrative:     narrative,
		Profile:       profile,
		Portfolio:     portfolio,
		IngestPool:    pool,
	}

	intentPoll := newIntentPollService(intents, m, log, intentPollInterval(cfg))
	streamSweep := newStreamSweepService(stream, log, streamSweepInterval(cfg))
	healthBeat := newHealthBeatService(stores, m, log)

	for _, svc := range []system.Service{intentPoll, streamSweep, healthBeat} {
		if err := manager.Register(svc); err != nil {
			return nil, err
		}
	}

	a.descriptors = manager.Descriptors()
	return a, nil
}

// Attach registers an additional lifecycle-managed service (e.g. the HTTP
// server) before Start is called.
func (a *App) Attach(svc system.Service) error {
	return a.manager.Register(svc)
}

// Start begins every registered background service.
func (a *App) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops every registered background service and closes the ingestion
// pool and database handle.
func (a *App) Stop(ctx context.Context) error {
	err := a.manager.Stop(ctx)
	a.IngestPool.Close()
	if a.DB != nil {
		_ = a.DB.Close()
	}
	return err
}

// Descriptors returns the background services' advertised descriptors for
// operational visibility (spec.md §9 "Background work").
func (a *App) Descriptors() []core.Descriptor {
	return a.manager.Descriptors()
}

// Health probes every configured adapter and records the result in Metrics,
// returning one storage.Health per adapter name.
func (a *App) Health(ctx context.Context) map[string]storage.Health {
	out := map[string]storage.Health{
		"vector":     a.Stores.Vector.Health(ctx),
		"relational": a.Stores.Relational.Health(ctx),
		"timeseries": a.Stores.TimeSeries.Health(ctx),
		"cache":      a.Stores.Cache.Health(ctx),
	}
	if a.Stores.Graph != nil {
		out["graph"] = a.Stores.Graph.Health(ctx)
	}
	for name, h := range out {
		a.Metrics.SetStoreHealth(name, h.OK)
	}
	return out
}
