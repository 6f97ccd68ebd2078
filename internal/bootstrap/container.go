package bootstrap

import (
	"context"
	"fmt"

	"kernel-workspace-be/internal/config"
	"kernel-workspace-be/internal/controller"
	"kernel-workspace-be/internal/entity"
	"kernel-workspace-be/internal/pkg/logger"
	"kernel-workspace-be/internal/repository/contract"
	"kernel-workspace-be/internal/repository/implementation"
	"kernel-workspace-be/internal/repository/memory"
	"kernel-workspace-be/internal/service"
	"kernel-workspace-be/pkg/ai/router"
	"kernel-workspace-be/pkg/approval"
	"kernel-workspace-be/pkg/database"
	"kernel-workspace-be/pkg/embedding"
	"kernel-workspace-be/pkg/events"
	"kernel-workspace-be/pkg/llm/factory"
	"kernel-workspace-be/pkg/loader"
	"kernel-workspace-be/pkg/process"
	ragcontext "kernel-workspace-be/pkg/rag/context"
	"kernel-workspace-be/pkg/rag/history"
	"kernel-workspace-be/pkg/rag/response"
	"kernel-workspace-be/pkg/rag/workspace"
	"kernel-workspace-be/pkg/sandbox"
	"kernel-workspace-be/pkg/vectorstore"
	"kernel-workspace-be/pkg/websearch"

	pktNats "kernel-workspace-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	KernelController    controller.IKernelController
	UploadController    controller.IUploadController
	CommandController   controller.ICommandController
	ExecutionController controller.IExecutionController

	// Background Services (Exposed for main.go to run)
	AuditService service.IAuditService

	Logger logger.ILogger

	closers []func() error
}

// repositories is the storage backend chosen by STORAGE_DRIVER.
type repositories struct {
	interactions contract.InteractionRepository
	embeddings   contract.MemoryEmbeddingRepository
	close        func() error
}

func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	auditLogger := logger.NewIsolatedLogger(cfg.App.AuditLogFilePath)
	c := &Container{Logger: sysLogger}
	c.closers = append(c.closers, auditLogger.Sync)

	repos, err := openRepositories(cfg, sysLogger)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, repos.close)

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, pubSub.Close)

	publishers := events.MultiPublisher{events.NewChannelPublisher(pubSub, events.AuditTopic)}
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			sysLogger.Warn("Bootstrap", "Failed to connect to NATS, events stay in-process", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			publishers = append(publishers, natsPub)
			c.closers = append(c.closers, func() error { natsPub.Close(); return nil })
		}
	}

	// 3. AI Providers
	llmProvider, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, cfg.Ai.OllamaBaseURL)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("init llm provider: %w", err)
	}
	embeddingProvider, err := embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("init embedding provider: %w", err)
	}
	sysLogger.Info("Bootstrap", "AI providers ready", map[string]interface{}{
		"llm":       cfg.Ai.LLMProvider + "/" + cfg.Ai.LLMModel,
		"embedding": cfg.Ai.EmbeddingModel,
		"storage":   cfg.Storage.Driver,
	})

	index := vectorstore.NewEmbeddingStore(repos.embeddings, embeddingProvider, cfg.Storage.EmbeddingDim)
	searcher := c.newSearcher(cfg, sysLogger)

	// 4. Session State
	store := history.NewStore(repos.interactions, cfg.Ai.HistoryLimit)
	runner := process.NewExecRunner()
	session := service.NewSession(
		workspace.NewRegistry(cfg.Ai.PreviewChars),
		approval.NewMachine(runner, approval.Config{
			Enabled:   cfg.Command.Enabled,
			AllowList: cfg.Command.Allowlist,
			Timeout:   cfg.Command.Timeout,
		}, sysLogger),
		store,
	)

	// 5. Domain Components
	routeCache := memory.NewRouteCacheRepository(cfg.Ai.RouteCacheTTL)
	intentRouter := router.NewRouter(llmProvider, routeCache, router.Config{
		DefaultRoute:      router.Route(cfg.Ai.DefaultRoute),
		ShortQueryTokens:  cfg.Ai.ShortQueryTokens,
		ClassifierTimeout: cfg.Ai.ClassifierTimeout,
		Temperature:       cfg.Ai.ClassificationTemp,
	}, sysLogger)
	assembler := ragcontext.NewAssembler(index, searcher, ragcontext.Config{
		TopK:             cfg.Ai.TopK,
		RetrievalTimeout: cfg.Ai.RetrievalTimeout,
	}, sysLogger)
	generator := response.NewGenerator(llmProvider, store, response.Config{
		Temperature:    cfg.Ai.GenerationTemp,
		PersistTimeout: cfg.Ai.PersistTimeout,
	}, sysLogger)
	generator.OnPersist(func(interaction *entity.Interaction) {
		err := publishers.Publish(context.Background(), events.New(events.InteractionPersisted, map[string]interface{}{
			"id":        interaction.Id,
			"truncated": interaction.Truncated,
		}))
		if err != nil {
			sysLogger.Warn("Bootstrap", "Failed to publish event", map[string]interface{}{"error": err.Error()})
		}
	})
	executor := sandbox.NewExecutor(runner, sandbox.Config{
		BaseDir:   cfg.Sandbox.Dir,
		Timeout:   cfg.Sandbox.Timeout,
		PythonBin: cfg.Sandbox.PythonBin,
		JavacBin:  cfg.Sandbox.JavacBin,
		JavaBin:   cfg.Sandbox.JavaBin,
	}, sysLogger)

	// 6. Services
	kernelService := service.NewKernelService(session, intentRouter, assembler, generator, index, routeCache, publishers, sysLogger)
	uploadService := service.NewUploadService(session, loader.NewDocumentLoader(int64(cfg.App.BodyLimitMB)<<20), index, service.UploadConfig{
		DataDir:      cfg.Storage.DataDir,
		ChunkSize:    cfg.Ai.ChunkSize,
		ChunkOverlap: cfg.Ai.ChunkOverlap,
	}, publishers, sysLogger)
	commandService := service.NewCommandService(session, publishers, sysLogger)
	executionService := service.NewExecutionService(executor, publishers, sysLogger)
	c.AuditService = service.NewAuditService(pubSub, events.AuditTopic, auditLogger, sysLogger)

	// 7. Controllers
	c.KernelController = controller.NewKernelController(kernelService, cfg.Ai.StreamTimeout, sysLogger)
	c.UploadController = controller.NewUploadController(uploadService)
	c.CommandController = controller.NewCommandController(commandService)
	c.ExecutionController = controller.NewExecutionController(executionService)

	return c, nil
}

// Close releases storage, brokers and log files in reverse order of creation.
func (c *Container) Close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}

func openRepositories(cfg *config.Config, log logger.ILogger) (*repositories, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		db, err := database.NewPostgresDB(cfg.Storage.Connection, !cfg.IsProduction())
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return &repositories{
			interactions: implementation.NewInteractionRepository(db),
			embeddings:   implementation.NewMemoryEmbeddingRepository(db),
			close:        closeGorm(db),
		}, nil

	case "sqlite", "":
		db, err := database.NewSQLiteDB(cfg.Storage.SQLitePath, !cfg.IsProduction())
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := implementation.Migrate(db, cfg.Storage.EmbeddingDim); err != nil {
			closeGorm(db)()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		log.Info("Bootstrap", "Using SQLite storage", map[string]interface{}{"path": cfg.Storage.SQLitePath})
		return &repositories{
			interactions: implementation.NewInteractionRepository(db),
			embeddings:   implementation.NewMemoryEmbeddingRepository(db),
			close:        closeGorm(db),
		}, nil

	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q (want sqlite or postgres)", cfg.Storage.Driver)
	}
}

// newSearcher wraps the web search tool in a redis cache when REDIS_URL is
// set and reachable.
func (c *Container) newSearcher(cfg *config.Config, log logger.ILogger) websearch.Searcher {
	ddg := websearch.NewDuckDuckGo(cfg.Search.BaseURL, cfg.Search.MaxResults, cfg.Search.Timeout)
	if cfg.App.RedisURL == "" {
		return ddg
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Warn("Bootstrap", "Failed to parse Redis URL, using it as an address", map[string]interface{}{
			"error": err.Error(),
		})
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Warn("Bootstrap", "Redis unreachable, web search results are not cached", map[string]interface{}{
			"error": err.Error(),
		})
		rdb.Close()
		return ddg
	}
	c.closers = append(c.closers, rdb.Close)
	return websearch.NewCachedSearcher(ddg, rdb, cfg.Search.CacheTTL, log)
}

func closeGorm(db *gorm.DB) func() error {
	return func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
}
