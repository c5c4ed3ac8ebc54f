// Package botcheck verifies registration requests against the Cloudflare
// Turnstile siteverify endpoint.
package botcheck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/copypaster/server/internal/logging"
	"github.com/copypaster/server/internal/shared"
)

// DefaultEndpoint is the production Turnstile verification URL. Tests
// override it with a local server.
const DefaultEndpoint = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

type TurnstileVerifier struct {
	secret   string
	endpoint string
	client   *http.Client
	logger   logging.Logger
}

func NewTurnstileVerifier(secret string, logger logging.Logger) *TurnstileVerifier {
	return &TurnstileVerifier{
		secret:   secret,
		endpoint: DefaultEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger.With("module", "botcheck"),
	}
}

// NewTurnstileVerifierWithEndpoint is like NewTurnstileVerifier with a
// custom siteverify URL.
func NewTurnstileVerifierWithEndpoint(secret, endpoint string, logger logging.Logger) *TurnstileVerifier {
	v := NewTurnstileVerifier(secret, logger)
	v.endpoint = endpoint
	return v
}

type siteverifyRequest struct {
	Secret   string `json:"secret"`
	Response string `json:"response"`
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify checks a client-supplied Turnstile token. A missing server secret
// fails verification rather than bypassing it.
func (v *TurnstileVerifier) Verify(ctx context.Context, token string) error {
	if v.secret == "" {
		v.logger.Error(ctx, "turnstile secret key is not configured")
		return shared.ErrorBotCheckFailed
	}

	if token == "" {
		return shared.ErrorBotCheckFailed
	}

	payload, err := json.Marshal(siteverifyRequest{Secret: v.secret, Response: token})
	if err != nil {
		return shared.ErrorBotCheckFailed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(payload))
	if err != nil {
		return shared.ErrorBotCheckFailed
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.Error(ctx, "turnstile verification request failed", "error", err.Error())
		return shared.ErrorBotCheckFailed
	}
	defer resp.Body.Close()

	var result siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		v.logger.Error(ctx, "turnstile verification decode failed", "error", err.Error())
		return shared.ErrorBotCheckFailed
	}

	if !result.Success {
		code := ""
		if len(result.ErrorCodes) > 0 {
			code = result.ErrorCodes[0]
		}
		return fmt.Errorf("%w: %s", shared.ErrorBotCheckFailed, code)
	}

	return nil
}
