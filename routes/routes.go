package routes

import (
	"chamapay/controllers"
	"chamapay/daraja"
	"chamapay/middleware"

	"github.com/gin-gonic/gin"
)

type Controllers struct {
	Auth          *controllers.AuthController
	Members       *controllers.MemberController
	Payments      *controllers.PaymentController
	Webhooks      *controllers.DarajaWebhookController
	Notifications *controllers.NotificationController
	Investments   *controllers.InvestmentController
}

func RegisterRoutes(r *gin.Engine, c Controllers, tokens middleware.TokenValidator) {
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	auth := r.Group("/auth")
	auth.POST("/register", c.Auth.Register)
	auth.POST("/login", c.Auth.Login)
	auth.POST("/refresh", c.Auth.Refresh)

	// Gateway callbacks authenticate with the shared webhook secret, not JWTs.
	// Registered from the same constants the client advertises so the URLs the
	// gateway POSTs to always resolve.
	r.POST(daraja.STKCallbackPath, c.Webhooks.STKCallback)
	r.POST(daraja.B2CResultPath, c.Webhooks.B2CResult)
	r.POST(daraja.B2CTimeoutPath, c.Webhooks.B2CTimeout)

	api := r.Group("/")
	api.Use(middleware.RequireAuth(tokens))
	{
		api.GET("/members/me", c.Members.GetProfile)
		api.PATCH("/members/me", c.Members.UpdateProfile)
		api.GET("/members", c.Members.ListMembers)

		payments := api.Group("/payments")
		payments.Use(middleware.RateLimitMiddleware())
		payments.POST("/deposit", c.Payments.InitiateDeposit)
		payments.POST("/withdraw", c.Payments.InitiateWithdrawal)

		api.GET("/transactions", c.Payments.ListTransactions)
		api.GET("/transactions/:id", c.Payments.GetTransaction)

		api.GET("/notifications", c.Notifications.List)
		api.PATCH("/notifications/:id/read", c.Notifications.MarkRead)
		api.DELETE("/notifications/:id", c.Notifications.Delete)

		api.POST("/investments", c.Investments.Propose)
		api.GET("/investments", c.Investments.List)
		api.GET("/investments/:id", c.Investments.Get)
		api.POST("/investments/:id/vote", c.Investments.Vote)
	}
}
