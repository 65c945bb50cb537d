package controllers

import (
	"crypto/subtle"
	"net/http"

	"chamapay/daraja"
	"chamapay/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DarajaWebhookController receives gateway callbacks. Every handler answers
// HTTP 200 with an M-Pesa result envelope: the gateway retries anything else,
// and a retried callback against a terminal intent is a no-op anyway.
type DarajaWebhookController struct {
	Reconciler *services.ReconcileService
	Secret     string
	Logger     *zap.Logger
}

func NewDarajaWebhookController(reconciler *services.ReconcileService, secret string, logger *zap.Logger) *DarajaWebhookController {
	return &DarajaWebhookController{Reconciler: reconciler, Secret: secret, Logger: logger}
}

// STKCallback handles deposit confirmations.
func (dc *DarajaWebhookController) STKCallback(c *gin.Context) {
	if !dc.authorized(c) {
		return
	}

	var env daraja.CallbackEnvelope
	if err := c.ShouldBindJSON(&env); err != nil {
		dc.Logger.Warn("Unparseable STK callback body", zap.Error(err))
		ack(c)
		return
	}

	dc.Reconciler.ProcessSTKCallback(c.Request.Context(), &env)
	ack(c)
}

// B2CResult handles payout confirmations.
func (dc *DarajaWebhookController) B2CResult(c *gin.Context) {
	if !dc.authorized(c) {
		return
	}

	var env daraja.B2CResultEnvelope
	if err := c.ShouldBindJSON(&env); err != nil {
		dc.Logger.Warn("Unparseable B2C result body", zap.Error(err))
		ack(c)
		return
	}

	dc.Reconciler.ProcessB2CResult(c.Request.Context(), &env)
	ack(c)
}

// B2CTimeout handles queue-timeout notices. The intent stays pending; the
// B2C result, if one ever arrives, still resolves it.
func (dc *DarajaWebhookController) B2CTimeout(c *gin.Context) {
	if !dc.authorized(c) {
		return
	}
	dc.Logger.Warn("B2C queue timeout received", zap.String("remote", c.ClientIP()))
	ack(c)
}

func (dc *DarajaWebhookController) authorized(c *gin.Context) bool {
	got := c.Query("secret")
	if subtle.ConstantTimeCompare([]byte(got), []byte(dc.Secret)) != 1 {
		dc.Logger.Warn("Callback with bad secret", zap.String("remote", c.ClientIP()))
		c.JSON(http.StatusOK, gin.H{"ResultCode": 1, "ResultDesc": "Rejected"})
		return false
	}
	return true
}

func ack(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}
