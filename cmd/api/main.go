package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/search"
	"github.com/spec-kit/helpdesk/internal/service"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var store repository.Store
	if pool := pg.PoolHandle(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		store = repository.NewPostgres(pool)
	} else {
		store = repository.NewMemory()
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()
	cache := persistence.NewProfileCache(redis, logger)

	var searcher search.Searcher
	switch cfg.Search.Driver {
	case "meilisearch":
		searcher = search.NewMeilisearch(cfg.Search)
		logger.Info("using meilisearch backend", zap.String("host", cfg.Search.Host))
	default:
		searcher = search.NewMemorySearcher()
		logger.Info("using in-memory search backend")
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	search.NewIndexer(searcher, dispatcher)

	fileStore, err := persistence.NewFileStore(cfg.Upload.Dir)
	if err != nil {
		logger.Fatal("failed to prepare upload dir", zap.Error(err))
	}

	userService := service.NewUserService(service.UserDependencies{
		UserRepo:       store.Users(),
		IdentityRepo:   store.Identities(),
		GroupRepo:      store.Groups(),
		UserGroupsRepo: store.UserGroups(),
		Cache:          cache,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	groupService := service.NewGroupService(service.GroupDependencies{
		GroupRepo:      store.Groups(),
		UserRepo:       store.Users(),
		UserGroupsRepo: store.UserGroups(),
		TicketRepo:     store.Tickets(),
		ListingRepo:    store.TicketListings(),
		Cache:          cache,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  store.Tickets(),
		UserRepo:    store.Users(),
		GroupRepo:   store.Groups(),
		ListingRepo: store.TicketListings(),
		Cache:       cache,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	loginService := service.NewLoginService(service.LoginDependencies{
		UserRepo:     store.Users(),
		IdentityRepo: store.Identities(),
		UserService:  userService,
		Auth:         cfg.Auth,
		Logger:       logger,
	})
	uploadService := service.NewUploadService(service.UploadDependencies{
		UploadRepo: store.Uploads(),
		Store:      fileStore,
		Secret:     cfg.Auth.CookieSecret,
		Upload:     cfg.Upload,
		Logger:     logger,
	})

	cookies := auth.NewCookieManager(cfg.Auth)
	authMiddleware := auth.NewMiddleware(cookies)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: cfg.Upload.BodyLimit(),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, version, pg, redis),
		Users:          handlers.NewUsersHandler(userService),
		Groups:         handlers.NewGroupsHandler(groupService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Login:          handlers.NewLoginHandler(loginService, cookies),
		Search:         handlers.NewSearchHandler(searcher),
		Upload:         handlers.NewUploadHandler(uploadService),
		AuthMiddleware: authMiddleware,
		ExposeInternal: cfg.Routes.ExposeInternal,
	})
	if cfg.Routes.ExposeInternal {
		logger.Warn("internal routes are exposed; do not run this configuration in production")
	}

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
