package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
)

// StripeClient implements Gateway against the provider's REST API. Calls run
// through a circuit breaker so a flapping gateway fails fast instead of
// tying up checkout workers.
type StripeClient struct {
	baseURL       string
	secretKey     string
	webhookSecret string
	httpClient    *http.Client
	breaker       *gobreaker.CircuitBreaker[*Intent]
	tolerance     time.Duration
}

type StripeConfig struct {
	BaseURL       string // defaults to https://api.stripe.com
	SecretKey     string
	WebhookSecret string
	Timeout       time.Duration
}

func NewStripeClient(cfg StripeConfig) *StripeClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.stripe.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[*Intent](gobreaker.Settings{
		Name:    "payment-gateway",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &StripeClient{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		breaker:       breaker,
		tolerance:     DefaultTolerance,
	}
}

func (c *StripeClient) CreateIntent(ctx context.Context, amount int64, currency string) (*Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", currency)
	form.Set("payment_method_types[]", "card")

	return c.breaker.Execute(func() (*Intent, error) {
		return c.postForm(ctx, "/v1/payment_intents", form)
	})
}

func (c *StripeClient) UpdateIntentAmount(ctx context.Context, intentID string, amount int64) (*Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))

	return c.breaker.Execute(func() (*Intent, error) {
		return c.postForm(ctx, "/v1/payment_intents/"+url.PathEscape(intentID), form)
	})
}

func (c *StripeClient) VerifyAndParseEvent(rawBody []byte, signatureHeader string) (*Event, error) {
	if err := verifySignature(rawBody, signatureHeader, c.webhookSecret, c.tolerance, time.Now()); err != nil {
		return nil, err
	}
	return parseEvent(rawBody)
}

func (c *StripeClient) postForm(ctx context.Context, path string, form url.Values) (*Intent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrGatewayUnavailable, err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: gateway returned %d", ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("gateway rejected request with %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		ID           string `json:"id"`
		ClientSecret string `json:"client_secret"`
		Amount       int64  `json:"amount"`
		Currency     string `json:"currency"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	return &Intent{
		ID:           payload.ID,
		ClientSecret: payload.ClientSecret,
		Amount:       payload.Amount,
		Currency:     payload.Currency,
	}, nil
}

func parseEvent(rawBody []byte) (*Event, error) {
	var payload struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID            string `json:"id"`
				Status        string `json:"status"`
				PaymentIntent string `json:"payment_intent"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode webhook event: %w", err)
	}

	ev := &Event{ID: payload.ID, Type: payload.Type}

	switch payload.Type {
	case EventPaymentIntentSucceeded:
		ev.PaymentIntentID = payload.Data.Object.ID
		ev.Succeeded = payload.Data.Object.Status == "succeeded"
	case EventChargeSucceeded:
		ev.PaymentIntentID = payload.Data.Object.PaymentIntent
		ev.Succeeded = payload.Data.Object.Status == "succeeded"
	case EventPaymentIntentFailed:
		ev.PaymentIntentID = payload.Data.Object.ID
		ev.Failed = true
	default:
		// Acknowledged and ignored by the reconciler.
	}

	return ev, nil
}
