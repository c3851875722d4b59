// Package app initializes and holds the long-lived services, acting as
// the dependency injection container for the commands.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sgg-bj/lawharvest/internal/api"
	"github.com/sgg-bj/lawharvest/internal/clock/system"
	"github.com/sgg-bj/lawharvest/internal/config"
	"github.com/sgg-bj/lawharvest/internal/enumerate"
	"github.com/sgg-bj/lawharvest/internal/extract"
	"github.com/sgg-bj/lawharvest/internal/fetchclient"
	"github.com/sgg-bj/lawharvest/internal/id/uuid"
	"github.com/sgg-bj/lawharvest/internal/lawdoc"
	"github.com/sgg-bj/lawharvest/internal/logging"
	"github.com/sgg-bj/lawharvest/internal/metrics"
	"github.com/sgg-bj/lawharvest/internal/notify/telegram"
	"github.com/sgg-bj/lawharvest/internal/ocr"
	"github.com/sgg-bj/lawharvest/internal/pipeline"
	"github.com/sgg-bj/lawharvest/internal/prober"
	publishermemory "github.com/sgg-bj/lawharvest/internal/publisher/memory"
	publisherpubsub "github.com/sgg-bj/lawharvest/internal/publisher/pubsub"
	"github.com/sgg-bj/lawharvest/internal/ratelimit"
	"github.com/sgg-bj/lawharvest/internal/scan"
	"github.com/sgg-bj/lawharvest/internal/storage/gcs"
	"github.com/sgg-bj/lawharvest/internal/storage/local"
	storagememory "github.com/sgg-bj/lawharvest/internal/storage/memory"
	storememory "github.com/sgg-bj/lawharvest/internal/store/memory"
	storepostgres "github.com/sgg-bj/lawharvest/internal/store/postgres"
)

// App holds the shared services. It is built once at startup and handed
// to the commands; Close releases everything in reverse order.
type App struct {
	Cfg    config.Config
	Logger *zap.Logger

	Found    lawdoc.FoundStore
	Ranges   lawdoc.RangeStore
	Cursors  lawdoc.CursorStore
	Articles lawdoc.ArticleStore

	Artifacts lawdoc.ArtifactStore
	Retriever lawdoc.Retriever
	Limiter   *ratelimit.Controller
	Prober    lawdoc.Prober
	Runner    *scan.Runner
	Pipeline  *pipeline.Orchestrator
	Publisher lawdoc.Publisher
	Notifier  lawdoc.Notifier
	Server    *api.Server
	Clock     lawdoc.Clock

	closers []func()
}

// New builds the full service graph from the configuration. It fails
// fast: any service that cannot be initialized aborts startup.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	metrics.Init()

	a := &App{Cfg: cfg, Logger: logger, Clock: system.New()}

	if err := a.initStores(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initArtifacts(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initPublisher(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initPipeline(); err != nil {
		a.Close()
		return nil, err
	}

	a.Server = api.NewServer(a.Found, a.Ranges, a.Pipeline, a.Limiter, logger)
	return a, nil
}

// Close releases held resources in reverse initialization order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}

// EnumerateDeps bundles the stores the enumerators consult.
func (a *App) EnumerateDeps() enumerate.Deps {
	return enumerate.Deps{
		Found:   a.Found,
		Ranges:  a.Ranges,
		Cursors: a.Cursors,
		Clock:   a.Clock,
	}
}

// ScanTypes returns the document types the scans cover, per configuration.
func (a *App) ScanTypes() []lawdoc.DocumentType {
	out := make([]lawdoc.DocumentType, 0, len(a.Cfg.Law.DocumentTypes))
	for _, s := range a.Cfg.Law.DocumentTypes {
		out = append(out, lawdoc.DocumentType(s))
	}
	return out
}

// EnumerateOptions translates the law section into strategy bounds.
func (a *App) EnumerateOptions(t lawdoc.DocumentType) enumerate.Options {
	return enumerate.Options{
		DocumentType: t,
		MaxNumber:    a.Cfg.Law.MaxNumber,
		FloorYear:    a.Cfg.Law.FloorYear,
		MaxItems:     a.Cfg.Law.MaxItemsPerRun,
	}
}

func (a *App) initStores(ctx context.Context) error {
	if a.Cfg.DB.DSN == "" {
		a.Logger.Info("no database configured, using in-memory stores")
		a.Found = storememory.NewFoundStore()
		a.Ranges = storememory.NewRangeStore(a.Clock)
		a.Cursors = storememory.NewCursorStore()
		a.Articles = storememory.NewArticleStore()
		return nil
	}

	a.Logger.Info("connecting to postgres")
	pool, err := storepostgres.Connect(ctx, a.Cfg.DB)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	a.closers = append(a.closers, pool.Close)
	a.Found = storepostgres.NewFoundStore(pool)
	a.Ranges = storepostgres.NewRangeStore(pool, a.Clock)
	a.Cursors = storepostgres.NewCursorStore(pool)
	a.Articles = storepostgres.NewArticleStore(pool)
	return nil
}

func (a *App) initArtifacts(ctx context.Context) error {
	switch a.Cfg.Storage.Backend {
	case "local":
		a.Logger.Info("using local artifact storage",
			zap.String("base_dir", a.Cfg.Storage.Local.BaseDir))
		store, err := local.New(a.Cfg.Storage.Local)
		if err != nil {
			return fmt.Errorf("init local storage: %w", err)
		}
		a.Artifacts = store
	case "gcs":
		a.Logger.Info("using GCS artifact storage",
			zap.String("bucket", a.Cfg.Storage.GCS.Bucket))
		store, err := gcs.Connect(ctx, a.Cfg.Storage.GCS)
		if err != nil {
			return fmt.Errorf("init gcs storage: %w", err)
		}
		a.Artifacts = store
	case "memory":
		a.Logger.Info("using in-memory artifact storage")
		a.Artifacts = storagememory.NewStore()
	default:
		return fmt.Errorf("unknown storage backend: %s", a.Cfg.Storage.Backend)
	}
	return nil
}

func (a *App) initPublisher(ctx context.Context) error {
	if !a.Cfg.PubSub.Enabled {
		a.Publisher = publishermemory.New()
		return nil
	}
	a.Logger.Info("connecting to pub/sub",
		zap.String("project", a.Cfg.PubSub.ProjectID),
		zap.String("topic", a.Cfg.PubSub.TopicName))
	pub, err := publisherpubsub.Connect(ctx, a.Cfg.PubSub.ProjectID)
	if err != nil {
		return fmt.Errorf("init publisher: %w", err)
	}
	a.closers = append(a.closers, func() { _ = pub.Close() })
	a.Publisher = pub
	return nil
}

func (a *App) initPipeline() error {
	a.Retriever = fetchclient.New(a.Cfg.HTTP, a.Logger)
	a.Limiter = ratelimit.New(a.Cfg.RateLimit.Controller(), a.Logger)
	a.Prober = prober.New(a.Cfg.Law.BaseURL, a.Retriever, a.Limiter, a.Logger)

	a.Runner = scan.NewRunner(
		a.Prober,
		a.EnumerateDeps(),
		a.Publisher,
		uuid.New(),
		scan.Config{
			Workers:     a.Cfg.Scan.Workers,
			CommitChunk: a.Cfg.Scan.CommitChunk,
			Topic:       a.Cfg.Scan.Topic,
		},
		a.Logger,
	)

	patterns, err := extract.DefaultPatterns()
	if err != nil {
		return fmt.Errorf("load default extraction patterns: %w", err)
	}
	if a.Cfg.Extract.PatternsPath != "" {
		patterns, err = extract.LoadPatterns(a.Cfg.Extract.PatternsPath)
		if err != nil {
			return fmt.Errorf("load extraction patterns: %w", err)
		}
	}
	extractor, err := extract.New(patterns, a.Logger)
	if err != nil {
		return fmt.Errorf("init extractor: %w", err)
	}
	if a.Cfg.Extract.DictionaryPath != "" {
		if err := extractor.LoadDictionary(a.Cfg.Extract.DictionaryPath); err != nil {
			return fmt.Errorf("load dictionary: %w", err)
		}
	}

	engine := ocr.New(a.Cfg.OCR, a.Logger)

	a.Pipeline = pipeline.New(
		a.Found,
		a.Articles,
		a.Artifacts,
		a.Prober,
		a.Retriever,
		engine,
		extractor,
		a.Clock,
		pipeline.Config{MinTextLength: a.Cfg.Pipeline.MinTextLength},
		a.Logger,
	)

	if a.Cfg.Telegram.Enabled {
		a.Notifier = telegram.New(a.Cfg.Telegram.Token, a.Cfg.Telegram.ChatID)
	}
	return nil
}
