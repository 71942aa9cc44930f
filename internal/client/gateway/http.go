package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sethvargo/go-retry"

	"github.com/feltkeeper/feltkeeper/internal/client/models"
	"github.com/feltkeeper/feltkeeper/internal/common"
)

const (
	defaultTimeout   = 15 * time.Second
	retryBase        = 500 * time.Millisecond
	retryMaxAttempts = 3
)

// HTTPGateway talks JSON over HTTP to the sync endpoints. Transport-level
// failures and 5xx responses are retried with capped exponential backoff;
// other non-2xx responses fail immediately.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	tokens  TokenSource
}

// NewHTTPGateway returns a gateway for the service at baseURL. A nil client
// gets a default with a request timeout.
func NewHTTPGateway(baseURL string, tokens TokenSource, client *http.Client) *HTTPGateway {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &HTTPGateway{baseURL: baseURL, client: client, tokens: tokens}
}

func (g *HTTPGateway) Ping(ctx context.Context) error {
	if err := g.do(ctx, http.MethodPost, "/sync/ping", nil, nil); err != nil {
		return fmt.Errorf("%w: %v", common.ErrNetworkUnavailable, err)
	}
	return nil
}

func (g *HTTPGateway) Pull(ctx context.Context, cursor string) (*PullResponse, error) {
	path := "/sync/pull"
	if cursor != "" {
		path += "?cursor=" + url.QueryEscape(cursor)
	}
	var resp PullResponse
	if err := g.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (g *HTTPGateway) Push(ctx context.Context, mutations []models.Mutation) (*PushResponse, error) {
	body := struct {
		Mutations []models.Mutation `json:"mutations"`
	}{Mutations: mutations}

	var resp PushResponse
	if err := g.do(ctx, http.MethodPost, "/sync/push", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PresignUpload asks the service for a short-lived URL to PUT attachment
// bytes to. It is not part of the Gateway sync contract; the attachment
// service depends on it separately.
func (g *HTTPGateway) PresignUpload(ctx context.Context, attachmentID string) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	path := "/attachments/" + url.PathEscape(attachmentID) + "/presign"
	if err := g.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// bearer returns the token to attach, refusing tokens that are already
// expired so a stale credential fails fast instead of burning a round trip.
func (g *HTTPGateway) bearer() (string, error) {
	if g.tokens == nil {
		return "", nil
	}
	tok, err := g.tokens.Token()
	if err != nil {
		return "", err
	}
	if tok == "" {
		return "", nil
	}
	// Expiry check only; signature verification is the server's business.
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && exp.Before(time.Now()) {
			return "", common.ErrTokenExpired
		}
	}
	return tok, nil
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, in, out any) error {
	tok, err := g.bearer()
	if err != nil {
		return err
	}

	var payload []byte
	if in != nil {
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	backoff := retry.WithMaxRetries(retryMaxAttempts, retry.NewExponential(retryBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}

		resp, err := g.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			b, _ := io.ReadAll(resp.Body)
			return retry.RetryableError(gatewayError(resp.StatusCode, b))
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			b, _ := io.ReadAll(resp.Body)
			return gatewayError(resp.StatusCode, b)
		}

		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("decode response: %w: %v", common.ErrGatewayFailure, err)
		}
		return nil
	})
}

func gatewayError(status int, body []byte) error {
	return fmt.Errorf("%w: status %d: %s", common.ErrGatewayFailure, status, string(body))
}
