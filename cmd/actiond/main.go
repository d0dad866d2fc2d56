package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/runforge-labs/actiond/internal/events"
	"github.com/runforge-labs/actiond/internal/platform/auth"
	"github.com/runforge-labs/actiond/internal/platform/env"
	"github.com/runforge-labs/actiond/internal/platform/httpserver"
	"github.com/runforge-labs/actiond/internal/platform/objectstore"
	"github.com/runforge-labs/actiond/internal/platform/postgres"
	"github.com/runforge-labs/actiond/internal/registry"
	repopg "github.com/runforge-labs/actiond/internal/repo/postgres"
	"github.com/runforge-labs/actiond/internal/runner"
	"github.com/runforge-labs/actiond/internal/service/executions"
	storageobject "github.com/runforge-labs/actiond/internal/storage/objectstore"
	"github.com/runforge-labs/actiond/internal/storage/results"
)

const serviceName = "actiond"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := env.String("ACTIOND_HTTP_ADDR", ":8080")
	shutdownTimeout, err := env.Duration("ACTIOND_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	dbCfg, err := postgres.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid database config", "error", err)
		os.Exit(2)
	}
	db, err := postgres.Open(ctx, dbCfg)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	offloadEnabled, err := env.Bool("ACTIOND_RESULT_OFFLOAD", false)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	inlineLimit, err := env.Int("ACTIOND_RESULT_INLINE_LIMIT", results.DefaultInlineLimit)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	var resultStore *results.Store
	var readinessChecks []httpserver.ReadinessCheck
	if offloadEnabled {
		storeCfg, err := objectstore.ConfigFromEnv()
		if err != nil {
			logger.Error("invalid object store config", "error", err)
			os.Exit(2)
		}
		storeClient, err := objectstore.NewMinIOClient(storeCfg)
		if err != nil {
			logger.Error("object store client init failed", "error", err)
			os.Exit(2)
		}
		startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := objectstore.EnsureBuckets(startupCtx, storeClient, storeCfg); err != nil {
			cancel()
			logger.Error("object store unavailable", "error", err)
			os.Exit(1)
		}
		cancel()
		minioStore, err := storageobject.NewMinioStoreWithClient(storeClient)
		if err != nil {
			logger.Error("object store init failed", "error", err)
			os.Exit(2)
		}
		resultStore = results.New(minioStore, storeCfg.BucketResults, inlineLimit)
		readinessChecks = append(readinessChecks, httpserver.ReadinessCheck{
			Name: "objectstore",
			Check: func(ctx context.Context) error {
				return objectstore.CheckBuckets(ctx, storeClient, storeCfg)
			},
		})
	}
	readinessChecks = append([]httpserver.ReadinessCheck{{
		Name:  "database",
		Check: db.PingContext,
	}}, readinessChecks...)

	actionRepo := repopg.NewActionStore(db)
	runnerRepo := repopg.NewRunnerTypeStore(db)
	liveActionRepo := repopg.NewLiveActionStore(db)
	reg := registry.New(actionRepo, runnerRepo)

	if contentDir := env.String("ACTIOND_CONTENT_DIR", ""); contentDir != "" {
		loader := registry.NewLoader(actionRepo, runnerRepo)
		loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		loaded, err := loader.LoadDir(loadCtx, contentDir)
		cancel()
		if err != nil {
			logger.Error("pack content load failed", "dir", contentDir, "error", err)
			os.Exit(1)
		}
		logger.Info("pack content loaded", "dir", contentDir, "entities", loaded)
	}

	container := runner.NewContainer()
	for module, factory := range map[string]runner.Factory{
		runner.ModuleNoop:       runner.NewNoopRunner,
		runner.ModuleLocalShell: runner.NewLocalShellRunner,
	} {
		if err := container.Register(module, factory); err != nil {
			logger.Error("runner registration failed", "module", module, "error", err)
			os.Exit(2)
		}
	}

	publisher := events.MultiPublisher{
		events.NewLogPublisher(logger),
		events.NewPostgresPublisher(db),
	}

	svc := executions.New(reg, liveActionRepo, publisher, resultStore, logger)
	if svc == nil {
		logger.Error("execution service init failed")
		os.Exit(2)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", httpserver.Healthz(serviceName))
	mux.HandleFunc("GET /readyz", httpserver.Readyz(serviceName, readinessChecks...))

	api := newActiondAPI(logger, svc, reg, container)
	api.register(mux)

	handler, err := wrapAuth(ctx, logger, mux)
	if err != nil {
		logger.Error("invalid auth config", "error", err)
		os.Exit(2)
	}
	handler = httpserver.Wrap(logger, serviceName, handler)

	cfg := httpserver.Config{
		Service:         serviceName,
		Addr:            addr,
		ShutdownTimeout: shutdownTimeout,
	}
	if err := httpserver.Run(ctx, logger, cfg, handler); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
}

func wrapAuth(ctx context.Context, logger *slog.Logger, next http.Handler) (http.Handler, error) {
	authCfg, err := auth.ConfigFromEnv()
	if err != nil {
		return nil, err
	}

	var authenticator auth.Authenticator
	switch authCfg.Mode {
	case auth.ModeDisabled:
		return next, nil
	case auth.ModeToken:
		authenticator, err = auth.NewStaticTokenAuthenticator(authCfg)
	case auth.ModeOIDC:
		authenticator, err = auth.NewOIDCAuthenticator(ctx, authCfg)
	}
	if err != nil {
		return nil, err
	}

	middleware := auth.Middleware{
		Logger:        logger,
		Authenticator: authenticator,
		Authorize:     auth.RoleAuthorize,
		SkipPrefixes:  []string{"/healthz", "/readyz"},
	}
	return middleware.Wrap(next), nil
}
