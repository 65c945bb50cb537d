package daraja

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"chamapay/config"

	"go.uber.org/zap"
)

// Client talks to the Safaricom Daraja gateway. All methods perform network
// I/O and none are idempotent at the transport level: a retried push prompts
// the payer's phone a second time.
type Client struct {
	baseURL         string
	consumerKey     string
	consumerSecret  string
	shortcode       string
	passkey         string
	callbackBaseURL string
	webhookSecret   string

	initiatorName     string
	initiatorPassword string
	certPath          string

	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{
		baseURL:           cfg.DarajaBaseURL,
		consumerKey:       cfg.DarajaConsumerKey,
		consumerSecret:    cfg.DarajaSecret,
		shortcode:         cfg.DarajaShortcode,
		passkey:           cfg.DarajaPasskey,
		callbackBaseURL:   cfg.CallbackBaseURL,
		webhookSecret:     cfg.WebhookSecret,
		initiatorName:     cfg.DarajaInitiatorName,
		initiatorPassword: cfg.DarajaInitiatorPassword,
		certPath:          cfg.DarajaCertPath,
		httpClient:        &http.Client{Timeout: 30 * time.Second},
		logger:            logger,
	}
}

// AccessToken exchanges the configured consumer credentials for a short-lived
// bearer token.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if c.consumerKey == "" || c.consumerSecret == "" {
		return "", ErrCredentialsMissing
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.consumerKey, c.consumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Daraja token request failed", zap.Error(err))
		return "", ErrGatewayUnreachable
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("Daraja token request rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return "", ErrGatewayUnreachable
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		c.logger.Error("Daraja token response malformed", zap.Error(err))
		return "", ErrGatewayUnreachable
	}
	return token.AccessToken, nil
}

// Timestamp renders t in the 14-digit YYYYMMDDHHMMSS format the gateway
// requires.
func Timestamp(t time.Time) string {
	return t.Format("20060102150405")
}

// Password derives the request-signing password. It embeds the timestamp, so
// it must be recomputed for every request.
func Password(shortcode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortcode + passkey + timestamp))
}

// InitiateSTKPush sends a customer-to-business push prompt to the given phone.
// accountRef is an opaque reference carried on the request for statement
// purposes. The returned CheckoutRequestID is the correlation identifier the
// eventual callback will carry.
func (c *Client) InitiateSTKPush(ctx context.Context, phone string, amount int, accountRef string) (*STKPushResponse, error) {
	if amount < 1 {
		return nil, ErrInvalidAmount
	}

	msisdn, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := Timestamp(time.Now())
	payload := STKPushRequest{
		BusinessShortCode: c.shortcode,
		Password:          Password(c.shortcode, c.passkey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            amount,
		PartyA:            msisdn,
		PartyB:            c.shortcode,
		PhoneNumber:       msisdn,
		CallBackURL:       c.callbackURL(STKCallbackPath),
		AccountReference:  accountRef,
		TransactionDesc:   "ChamaPay deposit",
	}

	var result STKPushResponse
	if err := c.post(ctx, "/mpesa/stkpush/v1/processrequest", token, payload, &result); err != nil {
		return nil, ErrPushFailed
	}
	if result.ResponseCode != "0" {
		c.logger.Error("Daraja rejected STK push",
			zap.String("response_code", result.ResponseCode),
			zap.String("description", result.ResponseDescription),
		)
		return nil, ErrPushFailed
	}
	return &result, nil
}

// InitiateB2C sends a business-to-customer payout to the given phone.
func (c *Client) InitiateB2C(ctx context.Context, phone string, amount int, remarks string) (*B2CResponse, error) {
	if amount < 1 {
		return nil, ErrInvalidAmount
	}

	msisdn, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}

	credential, err := c.SecurityCredential()
	if err != nil {
		return nil, err
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := B2CRequest{
		InitiatorName:      c.initiatorName,
		SecurityCredential: credential,
		CommandID:          "BusinessPayment",
		Amount:             amount,
		PartyA:             c.shortcode,
		PartyB:             msisdn,
		Remarks:            remarks,
		QueueTimeOutURL:    c.callbackURL(B2CTimeoutPath),
		ResultURL:          c.callbackURL(B2CResultPath),
		Occasion:           "ChamaPay withdrawal",
	}

	var result B2CResponse
	if err := c.post(ctx, "/mpesa/b2c/v1/paymentrequest", token, payload, &result); err != nil {
		return nil, ErrPushFailed
	}
	if result.ResponseCode != "0" {
		c.logger.Error("Daraja rejected B2C request",
			zap.String("response_code", result.ResponseCode),
			zap.String("description", result.ResponseDescription),
		)
		return nil, ErrPushFailed
	}
	return &result, nil
}

// SecurityCredential encrypts the initiator password with the configured
// public certificate. Required by the gateway for privileged (B2C) calls.
func (c *Client) SecurityCredential() (string, error) {
	if c.certPath == "" {
		return "", ErrCertificateMissing
	}

	raw, err := os.ReadFile(c.certPath)
	if err != nil {
		return "", fmt.Errorf("reading daraja certificate: %w", err)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return "", fmt.Errorf("daraja certificate is not PEM encoded")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return "", fmt.Errorf("parsing daraja certificate: %w", err)
	}

	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return "", fmt.Errorf("daraja certificate does not carry an RSA public key")
	}

	encrypted, err := rsa.EncryptPKCS1v15(rand.Reader, pub, []byte(c.initiatorPassword))
	if err != nil {
		return "", fmt.Errorf("encrypting initiator password: %w", err)
	}
	return base64.StdEncoding.EncodeToString(encrypted), nil
}

func (c *Client) callbackURL(path string) string {
	return fmt.Sprintf("%s%s?secret=%s", c.callbackBaseURL, path, url.QueryEscape(c.webhookSecret))
}

// post sends a bearer-authenticated JSON request and decodes the response.
// Transport errors and non-2xx statuses are logged in full here; callers only
// see the generic failure.
func (c *Client) post(ctx context.Context, path, token string, payload, result interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Daraja request failed", zap.String("path", path), zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("Daraja request rejected",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody),
		)
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		c.logger.Error("Daraja response malformed", zap.String("path", path), zap.Error(err))
		return err
	}
	return nil
}
