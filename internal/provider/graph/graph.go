package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shineum/mdmail/internal/email"
)

// Config holds the Microsoft Graph application and mailbox settings.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	// Sender is the mailbox the message is sent from.
	Sender string
	// SaveToSentItems keeps a copy in the sender's Sent Items folder.
	SaveToSentItems bool
}

// maxRetries is the maximum number of retry attempts for transient failures.
const maxRetries = 3

// baseRetryDelay is the initial delay for exponential backoff.
const baseRetryDelay = 1 * time.Second

const (
	graphBaseURL = "https://graph.microsoft.com/v1.0"
	loginBaseURL = "https://login.microsoftonline.com"
)

// Provider sends emails via the Microsoft Graph sendMail action using
// OAuth2 client credentials. Inline images are sent as inline file
// attachments so cid: references in the HTML body keep working.
type Provider struct {
	sender     string
	saveToSent bool
	sendURL    string
	httpClient *http.Client
	token      *tokenSource
	retryDelay time.Duration
}

// New creates a Provider for the configured tenant and mailbox.
func New(cfg Config) *Provider {
	tokenURL := loginBaseURL + "/" + url.PathEscape(cfg.TenantID) + "/oauth2/v2.0/token"
	sendURL := graphBaseURL + "/users/" + url.PathEscape(cfg.Sender) + "/sendMail"
	return newWithOverrides(cfg, sendURL, tokenURL, &http.Client{Timeout: 30 * time.Second})
}

// newWithOverrides creates a Provider against custom endpoints.
func newWithOverrides(cfg Config, sendURL, tokenURL string, client *http.Client) *Provider {
	return &Provider{
		sender:     cfg.Sender,
		saveToSent: cfg.SaveToSentItems,
		sendURL:    sendURL,
		httpClient: client,
		token:      newTokenSource(tokenURL, cfg.ClientID, cfg.ClientSecret, client),
		retryDelay: baseRetryDelay,
	}
}

// Send delivers the message through Graph. The payload is encoded once and
// replayed unchanged on every attempt. Transient failures back off
// exponentially, HTTP 429 honours Retry-After and the first HTTP 401
// forces a new token. Graph always sends as the configured mailbox.
func (p *Provider) Send(ctx context.Context, msg *email.Message) error {
	reqBody := buildSendMailRequest(msg)
	reqBody.SaveToSentItems = p.saveToSent
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	log := slog.With(
		"provider", p.Name(),
		"subject", msg.Subject,
		"inline", len(msg.Inline),
		"attachments", len(msg.Attachments),
	)

	var lastErr error
	refreshed := false
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := p.post(ctx, payload)
		if err == nil {
			log.Debug("message accepted by Graph", "attempts", attempt+1)
			return nil
		}
		lastErr = err

		delay, refresh, err := p.nextStep(err, attempt, refreshed)
		if err != nil {
			return err
		}

		if refresh {
			log.Info("refreshing Graph token after 401")
			if _, err := p.token.ForceRefresh(); err != nil {
				return fmt.Errorf("token refresh failed: %w", err)
			}
			refreshed = true
			continue
		}

		log.Info("Graph request failed, retrying", "error", lastErr, "attempt", attempt+1, "delay", delay)
		if err := sleepWithContext(ctx, delay); err != nil {
			return fmt.Errorf("context cancelled during retry wait: %w", err)
		}
	}

	return fmt.Errorf("Graph API request failed after %d retries: %w", maxRetries, lastErr)
}

// nextStep decides how to continue after a failed attempt: wait for delay,
// refresh the token and retry at once, or give up with the returned error.
func (p *Provider) nextStep(err error, attempt int, refreshed bool) (time.Duration, bool, error) {
	var apiErr *sendError
	if !errors.As(err, &apiErr) {
		return 0, false, err
	}

	switch {
	case apiErr.permanent:
		return 0, false, apiErr
	case apiErr.statusCode == http.StatusUnauthorized:
		if refreshed {
			return 0, false, apiErr
		}
		return 0, true, nil
	case apiErr.statusCode == http.StatusTooManyRequests:
		return p.retryAfterDelay(apiErr.retryAfter, attempt), false, nil
	case apiErr.transient:
		return p.backoff(attempt), false, nil
	default:
		return 0, false, apiErr
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "msgraph"
}

// post performs a single sendMail request.
func (p *Provider) post(ctx context.Context, payload []byte) error {
	token, err := p.token.Token()
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.sendURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &sendError{
			message:   fmt.Sprintf("HTTP request failed: %v", err),
			transient: true,
		}
	}
	defer resp.Body.Close()

	// sendMail answers 202 Accepted.
	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := io.ReadAll(resp.Body)
	retryAfter := resp.Header.Get("Retry-After")

	var errResp graphErrorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		sendErr := classifyError(resp.StatusCode, errResp.Error.Message, retryAfter)
		sendErr.code = errResp.Error.Code
		return sendErr
	}
	return classifyError(resp.StatusCode, string(body), retryAfter)
}

// sendError is a failed sendMail response classified for retry decisions.
type sendError struct {
	message    string
	code       string
	statusCode int
	permanent  bool
	transient  bool
	retryAfter string
}

func (e *sendError) Error() string {
	if e.code != "" {
		return fmt.Sprintf("Graph API error (HTTP %d, %s): %s", e.statusCode, e.code, e.message)
	}
	return fmt.Sprintf("Graph API error (HTTP %d): %s", e.statusCode, e.message)
}

// classifyError categorizes an HTTP error response for retry decisions.
func classifyError(statusCode int, message, retryAfter string) *sendError {
	err := &sendError{
		message:    message,
		statusCode: statusCode,
		retryAfter: retryAfter,
	}

	switch {
	case statusCode == http.StatusUnauthorized,
		statusCode == http.StatusTooManyRequests,
		statusCode >= 500:
		err.transient = true
	default:
		err.permanent = true
	}
	return err
}

// retryAfterDelay honours a Retry-After header given in seconds or as an
// HTTP date, falling back to exponential backoff.
func (p *Provider) retryAfterDelay(retryAfter string, attempt int) time.Duration {
	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(retryAfter); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return p.backoff(attempt)
}

func (p *Provider) backoff(attempt int) time.Duration {
	return backoffDelay(p.retryDelay, attempt)
}

// backoffDelay doubles base once per attempt: 1s, 2s, 4s for the default.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	return base << attempt
}

// sleepWithContext waits for the specified duration or until the context is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
