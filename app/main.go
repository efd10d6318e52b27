package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/config"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/metrics"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/repository"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/repository/memory"
	mysqlRepo "github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/repository/mysql"
	natsRepo "github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/repository/nats"
	redisRepo "github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/repository/redis"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/rest"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/rest/middleware"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/usecase/feed"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/usecase/image"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/usecase/like"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/workers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	cfg.ConfigureLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// prepare store
	var (
		userRepo  domain.UserRepository
		imageRepo domain.ImageRepository
		likeRepo  domain.LikeRepository
	)
	switch cfg.StoreDriver {
	case config.DriverMySQL:
		db, err := mysqlRepo.Open(cfg.DSN(), cfg.DBMaxRetry, cfg.DBRetryInterval)
		if err != nil {
			logrus.Fatal(err)
		}
		defer func() {
			if err := mysqlRepo.Close(db); err != nil {
				logrus.Errorf("got error when closing the DB connection: %v", err)
			}
		}()
		if cfg.DBAutoMigrate {
			if err := mysqlRepo.Migrate(db); err != nil {
				logrus.Fatalf("failed to migrate database: %v", err)
			}
		}
		userRepo = mysqlRepo.NewUserRepository(db)
		imageRepo = mysqlRepo.NewImageRepository(db)
		likeRepo = mysqlRepo.NewLikeRepository(db)
	case config.DriverMemory:
		mem := memory.NewDB()
		userRepo = memory.NewUserRepository(mem)
		imageRepo = memory.NewImageRepository(mem)
		likeRepo = memory.NewLikeRepository(mem)
		seedDemoUser(ctx, userRepo, cfg.JWTSecret)
	}

	// prepare cache
	var (
		pages     domain.FeedPageCache
		bloomRepo domain.BloomRepository
	)
	switch cfg.CacheDriver {
	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.CacheAddress(),
			Password: cfg.CachePass,
			DB:       cfg.CacheDB,
		})
		defer func() {
			if err := client.Close(); err != nil {
				logrus.Errorf("got error when closing the cache connection: %v", err)
			}
		}()
		if err := client.Ping(ctx).Err(); err != nil {
			logrus.Fatalf("failed to open connection to cache: %v", err)
		}
		pages = redisRepo.NewFeedCache(client, cfg.FeedPageTTL, cfg.FeedLatestTTL)
		bloomRepo = redisRepo.NewImageBloom(client, cfg.BloomFilterSize, cfg.BloomHashes)
	case config.DriverMemory:
		pages = memory.NewFeedCache(cfg.FeedLatestTTL)
	}

	// workers outlive the signal: they are stopped once in-flight requests are done
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	var workersDone sync.WaitGroup

	// prepare events
	var publisher domain.EventPublisher
	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL, nats.Name("feed-service"), nats.MaxReconnects(-1))
		if err != nil {
			logrus.Fatalf("unable to connect to NATS: %v", err)
		}
		defer func() {
			if err := nc.Drain(); err != nil {
				logrus.Errorf("failed to drain NATS connection: %v", err)
			}
		}()
		eventWorker := workers.NewPublishEventsWorker(natsRepo.NewPublisher(nc), cfg.EventQueueSize)
		workersDone.Add(1)
		go func() {
			defer workersDone.Done()
			eventWorker.Start(workerCtx)
		}()
		publisher = eventWorker
	} else {
		logrus.Info("NATS_URL not set, domain events are not published")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// Build service Layer
	ledger := like.NewService(likeRepo, imageRepo, bloomRepo, publisher)
	feedCache := repository.NewFeedCache(pages, imageRepo, userRepo, ledger, collector, cfg.FeedPopulateTimeout)
	ledger.Subscribe(feedCache)

	feedSvc := feed.NewService(feedCache)
	imageSvc := image.NewService(imageRepo, bloomRepo, feedCache, publisher)

	// Prepare bloom filter
	if err := imageSvc.InitBloomFilter(ctx); err != nil {
		logrus.Fatalf("failed to init bloom filter: %v", err)
	}

	reconciler := workers.NewReconcileFeedWorker(feedCache, cfg.ReconcileInterval)
	go reconciler.Start(ctx)

	// prepare gin
	route := gin.Default()
	route.Use(middleware.CORS())
	route.Use(middleware.SetRequestContextWithTimeout(cfg.ContextTimeout))

	rest.RegisterRoutes(route, rest.Handlers{
		Feed:  rest.NewFeedHandler(feedSvc),
		Image: rest.NewImageHandler(imageSvc),
		Like:  rest.NewLikeHandler(ledger),
		RPC:   rest.NewRPCHandler(imageSvc, ledger, feedSvc),
	}, middleware.AuthMiddleware(cfg.JWTSecret), middleware.OptionalAuth(cfg.JWTSecret))
	route.GET("/metrics", gin.WrapH(metrics.Handler(registry)))
	route.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Start Server
	srv := &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: route,
	}
	go func() {
		logrus.Infof("Server is running on %s", cfg.ServerAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("listen: %s", err)
		}
	}()

	// shutdown
	<-ctx.Done()
	logrus.Info("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	shutdown(shutdownCtx, srv, stopWorkers, &workersDone)

	logrus.Info("Server exiting")
}

// shutdown stops accepting requests and waits for in-flight ones before it
// stops the workers, so events enqueued by those requests are still published.
func shutdown(ctx context.Context, srv *http.Server, stopWorkers context.CancelFunc, workersDone *sync.WaitGroup) {
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Waiting for worker to cleanup...")
	stopWorkers()
	workersDone.Wait()
}

// seedDemoUser gives a memory store one account to act as, since accounts are
// otherwise registered by another service.
func seedDemoUser(ctx context.Context, users domain.UserRepository, secret string) {
	u := domain.User{Handle: "demo", Email: "demo@example.com"}
	if err := users.Insert(ctx, &u); err != nil {
		logrus.Errorf("failed to seed demo user: %v", err)
		return
	}
	token, err := middleware.GenerateToken(secret, u.ID, 24*time.Hour)
	if err != nil {
		logrus.Errorf("failed to sign demo token: %v", err)
		return
	}
	logrus.Infof("seeded user %q (id %d), bearer token: %s", u.Handle, u.ID, token)
}
