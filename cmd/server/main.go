package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ninamar-service/config"
	"ninamar-service/internal/api"
	"ninamar-service/internal/auth"
	"ninamar-service/internal/broker"
	"ninamar-service/internal/cart"
	"ninamar-service/internal/email"
	"ninamar-service/internal/notify"
	"ninamar-service/internal/payment"
	"ninamar-service/internal/redisclient"
	"ninamar-service/internal/service"
	"ninamar-service/internal/store"
	"ninamar-service/internal/util"
	"ninamar-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Observ.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting ninamar service", zap.String("env", cfg.Server.Env))

	tp, err := util.InitTracer("ninamar-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	if cfg.Database.MigrateOnStart {
		applied, err := store.MigrateUp(cfg.Database.URL)
		if err != nil {
			logger.Fatal("Failed to apply migrations", zap.Error(err))
		}
		logger.Info("Migrations checked", zap.Bool("applied", applied))
	}

	db, err := store.NewStore(cfg.Database.URL, cfg.Database.PublicURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	paymentClient := payment.NewClient(cfg.Payment.BaseURL, cfg.Payment.AccessToken, cfg.Payment.Timeout)
	emailClient := email.NewClient(cfg.Email.BaseURL, cfg.Email.APIKey, cfg.Email.From, cfg.Email.Timeout)

	mailer, err := notify.NewMailer(emailClient, notify.MailerConfig{
		AdminEmail: cfg.Email.AdminEmail,
		SiteURL:    cfg.Email.SiteURL,
		APIURL:     cfg.Email.APIURL,
	})
	if err != nil {
		logger.Fatal("Failed to load email templates", zap.Error(err))
	}

	var sink notify.Sink = mailer
	useKafka := cfg.Business.NotificationTransport == config.TransportKafka
	if useKafka {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicNotifications)
		defer producer.Close()
		sink = broker.NewEventPublisher(producer)
		logger.Info("Notifications routed through Kafka", zap.String("topic", cfg.Kafka.TopicNotifications))
	}
	dispatcher := notify.NewDispatcher(sink, cfg.Business.NotificationTimeout)

	orderService := service.NewOrderService(db, redisClient, dispatcher, cfg.Business.OrderPrefix)
	paymentService := service.NewPaymentService(db, paymentClient, service.PaymentConfig{
		SuccessURL:          cfg.Payment.SuccessURL,
		FailureURL:          cfg.Payment.FailureURL,
		PendingURL:          cfg.Payment.PendingURL,
		NotificationURL:     cfg.Payment.NotificationURL,
		Currency:            cfg.Payment.Currency,
		StatementDescriptor: cfg.Payment.Descriptor,
	})
	catalogService := service.NewCatalogService(db, redisClient, cfg.Business.CatalogCacheTTL)
	cartService := service.NewCartService(cart.NewStore(redisClient, 0), catalogService, nil)
	newsletterService := service.NewNewsletterService(db, dispatcher, mailer, cfg.Business.CampaignBatchSize)

	authenticator, err := auth.NewAuthenticator(cfg.Admin.PasswordHash, cfg.Admin.SessionSecret, cfg.Admin.SessionTTL)
	if err != nil {
		logger.Warn("Admin login disabled", zap.Error(err))
		authenticator = nil
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var notificationWorker *worker.NotificationWorker
	if useKafka && cfg.Kafka.RunWorker {
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicNotifications, cfg.Kafka.ConsumerGroup)
		notificationWorker = worker.NewNotificationWorker(consumer, db, mailer.WithDeliveryLog(db))
		go func() {
			if err := notificationWorker.Start(workerCtx); err != nil {
				logger.Error("Notification worker error", zap.Error(err))
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(api.Deps{
		Orders:        orderService,
		Payments:      paymentService,
		Catalog:       catalogService,
		Carts:         cartService,
		Newsletter:    newsletterService,
		Auth:          authenticator,
		SecureCookies: cfg.Admin.SecureCookies,
		Checks: map[string]api.Check{
			"database": db.Ping,
			"redis":    redisClient.Ping,
		},
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}

	// in-flight emails and publishes finish before their clients close
	dispatcher.Wait()

	workerCancel()
	if notificationWorker != nil {
		if err := notificationWorker.Stop(); err != nil {
			logger.Warn("Error stopping notification worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
