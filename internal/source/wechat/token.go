package wechat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"wechat_sync/internal/domain"
)

// tokenRefreshMargin renews a token this long before WeChat expires it.
const tokenRefreshMargin = 5 * time.Minute

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// TokenProvider fetches and caches access tokens per app id.
type TokenProvider struct {
	client *client
	mu     sync.Mutex
	cache  map[string]cachedToken
	now    func() time.Time
	logger *slog.Logger
}

func NewTokenProvider(cfg Config, logger *slog.Logger) *TokenProvider {
	logger = logger.With("component", "wechat_token")
	return &TokenProvider{
		client: newClient(cfg, logger),
		cache:  make(map[string]cachedToken),
		now:    time.Now,
		logger: logger,
	}
}

// AccessToken returns a valid token for the account, fetching a new one when
// the cached token is missing or close to expiry.
func (p *TokenProvider) AccessToken(ctx context.Context, account *domain.Account) (string, error) {
	if account == nil || account.AppID == "" || account.AppSecret == "" {
		return "", fmt.Errorf("%w: account has no app credentials", domain.ErrCredentialUnavailable)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if tok, ok := p.cache[account.AppID]; ok && p.now().Before(tok.expiresAt) {
		return tok.value, nil
	}

	var resp tokenResponse
	err := p.client.call(ctx, http.MethodGet, "/cgi-bin/token", url.Values{
		"grant_type": {"client_credential"},
		"appid":      {account.AppID},
		"secret":     {account.AppSecret},
	}, nil, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: fetch access token: %w", domain.ErrCredentialUnavailable, err)
		}
		return "", fmt.Errorf("fetch access token: %w", err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", domain.ErrCredentialUnavailable)
	}

	ttl := time.Duration(resp.ExpiresIn)*time.Second - tokenRefreshMargin
	if ttl < 0 {
		ttl = 0
	}
	p.cache[account.AppID] = cachedToken{
		value:     resp.AccessToken,
		expiresAt: p.now().Add(ttl),
	}

	p.logger.Info("access token refreshed", "account_id", account.ID, "expires_in", resp.ExpiresIn)

	return resp.AccessToken, nil
}

// InvalidateToken drops a cached token that WeChat rejected, so the next
// AccessToken call fetches a fresh one.
func (p *TokenProvider) InvalidateToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for appID, tok := range p.cache {
		if tok.value == token {
			delete(p.cache, appID)
		}
	}
}
