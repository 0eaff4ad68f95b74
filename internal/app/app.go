package app

import (
	"context"
	"fmt"

	"autotag/internal/config"
	"autotag/internal/costtracker"
	"autotag/internal/license"
	"autotag/internal/nonce"
	"autotag/internal/optimizer"
	"autotag/internal/scheduler"
	"autotag/internal/services"
	"autotag/internal/store"
	"autotag/internal/store/primary"
	"autotag/internal/store/wordpress"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"
)

// App holds the wired services shared by the CLI, the HTTP server and the
// worker.
type App struct {
	Config    *config.Config
	Store     store.Store
	JobClient store.JobClient

	CostTracker costtracker.CostTracker
	Optimizer   *optimizer.Optimizer
	License     *license.Verifier
	Nonces      *nonce.Issuer

	Settings     *services.SettingsService
	Tagging      *services.TaggingService
	Categorizing *services.CategorizationService
	Terms        *services.TagService
	Stats        *services.StatsService
	Costs        *services.CostService
	Scheduler    *scheduler.Scheduler
}

// NewApp opens the configured store and job client and wires the services.
func NewApp(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	jc := store.NewAsynqJobClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	a, err := New(cfg, st, jc)
	if err != nil {
		_ = jc.Close()
		st.Close()
		return nil, err
	}
	log.Debug("Application initialization complete.")
	return a, nil
}

// New wires the services on top of an already opened store and job client.
func New(cfg *config.Config, st store.Store, jc store.JobClient) (*App, error) {
	a := &App{Config: cfg, Store: st, JobClient: jc}

	if err := a.initOptimizer(); err != nil {
		return nil, err
	}
	a.initCoreServices()
	a.initScheduler()
	return a, nil
}

// Close releases the job client and the store.
func (a *App) Close() {
	if a.JobClient != nil {
		if err := a.JobClient.Close(); err != nil {
			log.Warnf("Error closing job client: %v", err)
		}
	}
	if a.Store != nil {
		a.Store.Close()
	}
}

// --- Private Helper Methods ---

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	db := cfg.Database
	switch db.Driver {
	case config.DriverWordPress:
		ws, err := wordpress.Open(ctx, db.DSN, db.TablePrefix, wordpress.PoolOptions{
			MaxOpenConns:    db.MaxOpenConns,
			MaxIdleConns:    db.MaxIdleConns,
			ConnMaxLifetime: db.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("init wordpress store: %w", err)
		}
		if db.Migrate {
			if err := ws.Migrate(ctx); err != nil {
				ws.Close()
				return nil, fmt.Errorf("migrate wordpress store: %w", err)
			}
		}
		return ws, nil
	case config.DriverPostgres:
		ps, err := primary.NewPrimaryStore(ctx, db.DSN, primary.PoolOptions{
			MaxConns:        db.MaxOpenConns,
			MinConns:        db.MaxIdleConns,
			MaxConnLifetime: db.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		if db.Migrate {
			if err := ps.Migrate(ctx); err != nil {
				ps.Close()
				return nil, fmt.Errorf("migrate postgres store: %w", err)
			}
		}
		return ps, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", db.Driver)
	}
}

func (a *App) initOptimizer() error {
	cfg := a.Config
	prompt, err := config.LoadPromptContent(cfg.AI.PromptTemplate, optimizer.DefaultPromptTemplate)
	if err != nil {
		return fmt.Errorf("load optimization prompt: %w", err)
	}

	a.CostTracker = costtracker.New(a.Store, cfg.Pricing)
	a.Optimizer = optimizer.New(optimizer.Config{
		Timeout:           cfg.AI.Timeout,
		RequestsPerMinute: cfg.AI.RequestsPerMinute,
		OpenAIModel:       cfg.AI.Models.OpenAI,
		AnthropicModel:    cfg.AI.Models.Anthropic,
		GoogleModel:       cfg.AI.Models.Google,
		OpenAIBaseURL:     cfg.AI.OpenAIBaseURL,
		AnthropicBaseURL:  cfg.AI.AnthropicBaseURL,
		GoogleEndpoint:    cfg.AI.GoogleEndpoint,
		CustomEndpoint:    cfg.AI.Custom.Endpoint,
		CustomHeaders:     cfg.AI.Custom.Headers,
		PromptTemplate:    prompt,
	}, a.CostTracker)
	return nil
}

func (a *App) initCoreServices() {
	cfg := a.Config
	a.License = license.NewVerifier(cfg.License.ServerURL, cfg.Site.URL, cfg.License.PluginVersion, cfg.License.Timeout)
	a.Nonces = nonce.NewIssuer(cfg.Server.NonceSecret, nonce.DefaultTTL)
	if a.Nonces.Ephemeral() {
		log.Warn("server.nonce_secret is not set; using a random key, nonces will not survive a restart")
	}

	a.Settings = services.NewSettingsService(a.Store, a.License)
	a.Tagging = services.NewTaggingService(a.Store, a.Optimizer)
	a.Categorizing = services.NewCategorizationService(a.Store, a.Store)
	a.Terms = services.NewTagService(a.Store)
	a.Stats = services.NewStatsService(a.Store, cfg.Location())
	a.Costs = services.NewCostService(a.Store)
}

func (a *App) initScheduler() {
	a.Scheduler = scheduler.New(scheduler.Deps{
		Settings:     a.Settings,
		Posts:        a.Store,
		Options:      a.Store,
		Tagging:      a.Tagging,
		Categorizing: a.Categorizing,
		Trigger:      scheduler.NewAsynqTrigger(a.JobClient, a.Store),
		Location:     a.Config.Location(),
		LockPath:     a.Config.Scheduler.LockPath,
	})
	a.Scheduler.OnAfterRun(func(ctx context.Context, res scheduler.RunResult) {
		log.WithFields(log.Fields{
			"status":    res.Status,
			"processed": res.Processed,
		}).Info("Scheduled run finished")
	})
	a.Settings.SetScheduleUpdater(a.Scheduler)
}
