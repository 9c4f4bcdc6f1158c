package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"ingestion-portal/internal/config"
	"ingestion-portal/internal/logger"
	"ingestion-portal/internal/model"
	perrors "ingestion-portal/pkg/errors"

	"github.com/rs/zerolog"
)

// TokenManager obtains and caches an app-only access token via the client-credentials grant.
type TokenManager struct {
	cfg       config.DirectoryConfig
	client    *http.Client
	token     string
	expiresAt time.Time
	mu        sync.RWMutex
	now       func() time.Time
	log       zerolog.Logger
}

func NewTokenManager(cfg config.DirectoryConfig, client *http.Client) *TokenManager {
	return &TokenManager{
		cfg:    cfg,
		client: client,
		now:    time.Now,
		log:    logger.Component("directory"),
	}
}

func (a *TokenManager) GetToken(ctx context.Context) (string, error) {
	a.mu.RLock()
	if a.valid() {
		token := a.token
		a.mu.RUnlock()
		return token, nil
	}
	a.mu.RUnlock()

	return a.refreshToken(ctx)
}

// Invalidate drops the cached token so the next call fetches a new one.
func (a *TokenManager) Invalidate() {
	a.mu.Lock()
	a.token = ""
	a.mu.Unlock()
}

func (a *TokenManager) valid() bool {
	return a.token != "" && a.now().Before(a.expiresAt.Add(-30*time.Second))
}

func (a *TokenManager) refreshToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Double check after acquiring write lock
	if a.valid() {
		return a.token, nil
	}

	a.log.Debug().Msg("Refreshing directory token")

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", a.cfg.ClientID)
	form.Set("client_secret", a.cfg.ClientSecret)
	form.Set("scope", a.cfg.Scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", perrors.NewRetryableError(err, "token request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned status %d", perrors.ErrAuthentication, resp.StatusCode)
	}

	var tokenResp model.DirectoryTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", perrors.ErrAuthentication)
	}

	a.token = tokenResp.AccessToken
	a.expiresAt = a.now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)

	a.log.Debug().Time("expires_at", a.expiresAt).Msg("Directory token refreshed")

	return a.token, nil
}
