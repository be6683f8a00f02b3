package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/goteo/org.goteo.www-sub000/internal/auth"
	"github.com/goteo/org.goteo.www-sub000/internal/cart"
	cartcache "github.com/goteo/org.goteo.www-sub000/internal/cart/cache"
	cartrepo "github.com/goteo/org.goteo.www-sub000/internal/cart/repository"
	"github.com/goteo/org.goteo.www-sub000/internal/config"
	"github.com/goteo/org.goteo.www-sub000/internal/events"
	h "github.com/goteo/org.goteo.www-sub000/internal/http"
	"github.com/goteo/org.goteo.www-sub000/internal/i18n"
	"github.com/goteo/org.goteo.www-sub000/internal/payment"
	paymentrepo "github.com/goteo/org.goteo.www-sub000/internal/payment/repository"
	"github.com/goteo/org.goteo.www-sub000/internal/v4"
	"github.com/goteo/org.goteo.www-sub000/internal/webhook"
	"github.com/goteo/org.goteo.www-sub000/internal/wizard"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	cfg := config.Load()
	ctx := context.Background()

	translator, err := i18n.New(cfg.DefaultLocale)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load locale catalogs")
	}

	mongoDB, err := cartrepo.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer mongoDB.Client().Disconnect(ctx)
	if err := cartrepo.CreateIndexes(ctx, mongoDB); err != nil {
		log.Fatal().Err(err).Msg("failed to create cart indexes")
	}
	log.Info().Str("uri", cfg.MongoURI).Msg("connected to MongoDB")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("connected to Redis")

	pgCred := &paymentrepo.Credentials{
		Host:              cfg.PostgresHost,
		Port:              cfg.PostgresPort,
		User:              cfg.PostgresUser,
		Password:          cfg.PostgresPassword,
		DBName:            cfg.PostgresDBName,
		MigrationsDirPath: cfg.MigrationsDirPath,
	}
	ledger, err := paymentrepo.NewPostgresLedger(pgCred)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Postgres")
	}
	defer ledger.Close()
	if err := ledger.RunMigrations(pgCred); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Str("host", cfg.PostgresHost).Msg("connected to Postgres")

	apiClient := v4.New(cfg.V4BaseURL,
		v4.WithCache(v4.NewRedisCache(redisClient, 5*time.Minute)),
		v4.WithLogger(log),
	)

	cartService := cart.NewService(
		cartrepo.NewMongoRepository(mongoDB),
		cartcache.NewRedisCache(redisClient),
		cfg.FreeDonationLabel,
		log,
	)
	authService := auth.NewService(apiClient, log)
	paymentService := payment.NewService(apiClient, ledger, log)
	wizardStore := wizard.NewStore(redisClient, log)

	publisher := events.NewPublisher(cfg.KafkaBrokers...)
	defer publisher.Close()
	receiver := webhook.NewReceiver(publisher, ledger, log)

	pollerCtx, stopPoller := context.WithCancel(ctx)
	poller := events.NewPoller(cartService, log, cfg.KafkaBrokers...)
	go poller.Run(pollerCtx)

	router := h.NewRouter(h.RouterDeps{
		Carts:      cartService,
		Auth:       authService,
		Payments:   paymentService,
		Wizard:     wizardStore,
		Relay:      apiClient,
		Webhook:    receiver,
		Codec:      auth.NewCookieCodec([]byte(cfg.JWTSecret), cfg.SecureCookies),
		Translator: translator,
		Timeout:    cfg.RequestTimeout,
		Secure:     cfg.SecureCookies,
		Log:        log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	stopPoller()
	poller.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}
