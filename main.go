package main

import (
	"log"
	"strings"

	"chamapay/config"
	"chamapay/controllers"
	"chamapay/daraja"
	"chamapay/database"
	"chamapay/kafka"
	"chamapay/logger"
	"chamapay/middleware"
	"chamapay/models"
	"chamapay/repository"
	"chamapay/routes"
	"chamapay/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("[ChamaPay] ❌ Failed to load config:", err)
	}

	logger.Initialize(cfg.Env)
	zlog := zap.L()
	defer zlog.Sync()

	if err := database.Connect(cfg); err != nil {
		log.Fatal("[ChamaPay] ❌ Failed to connect to DB:", err)
	}

	if err := database.DB.AutoMigrate(
		&models.Member{},
		&models.PaymentIntent{},
		&models.NotificationLog{},
		&models.Investment{},
		&models.InvestmentVote{},
	); err != nil {
		log.Fatal("[ChamaPay] ❌ Failed to migrate models:", err)
	}

	memberRepo := repository.NewMemberRepository(database.DB)
	intentRepo := repository.NewPaymentIntentRepository(database.DB)
	notifRepo := repository.NewNotificationRepository(database.DB)
	investmentRepo := repository.NewInvestmentRepository(database.DB)

	gateway := daraja.NewClient(cfg, zlog)
	producer := kafka.NewPaymentEventProducer(strings.Split(cfg.KafkaBrokers, ","), cfg.PaymentEventTopic, zlog)
	defer producer.Close()

	tokenSvc := services.NewTokenService(cfg.JWTSecret)
	authSvc := services.NewAuthService(memberRepo, tokenSvc)
	paymentSvc := services.NewPaymentService(gateway, intentRepo, producer, zlog)
	reconciler := services.NewReconcileService(intentRepo, notifRepo, producer, zlog)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(zlog))
	r.Use(middleware.SecurityHeaders())

	routes.RegisterRoutes(r, routes.Controllers{
		Auth:          controllers.NewAuthController(authSvc, zlog),
		Members:       controllers.NewMemberController(memberRepo, zlog),
		Payments:      controllers.NewPaymentController(paymentSvc, memberRepo, intentRepo, zlog),
		Webhooks:      controllers.NewDarajaWebhookController(reconciler, cfg.WebhookSecret, zlog),
		Notifications: controllers.NewNotificationController(notifRepo, zlog),
		Investments:   controllers.NewInvestmentController(investmentRepo, zlog),
	}, tokenSvc)

	log.Println("[ChamaPay] ✅ Running on port", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("[ChamaPay] ❌ Server failed:", err)
	}
}
