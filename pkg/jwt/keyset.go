package jwt

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/zitadel/oidc/v3/pkg/client"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrKeyNotFound     = errors.New("signing key not found in key set")
	ErrJWKSFetchFailed = errors.New("failed to fetch JWKS")
)

const maxJWKSBytes = 1 << 20

type KeySetConfig struct {
	// URL of the JWKS document. When empty it is discovered from Issuer.
	URL                string
	Issuer             string
	RefreshInterval    time.Duration
	MinRefreshInterval time.Duration
	HTTPClient         *http.Client
	Logger             *zap.Logger
}

// RemoteKeySet caches an identity provider's public signing keys.
//
// The set is loaded on first use (or eagerly through Refresh), reloaded once it
// is older than RefreshInterval, and reloaded when a token names a kid we do not
// know. Every reload after the first is throttled by MinRefreshInterval, so neither
// garbage kids nor a down key endpoint turn into a fetch per request. Concurrent
// reloads share one HTTP round trip.
type RemoteKeySet struct {
	issuer             string
	httpClient         *http.Client
	refreshInterval    time.Duration
	minRefreshInterval time.Duration
	fetchTimeout       time.Duration
	logger             *zap.Logger
	now                func() time.Time
	group              singleflight.Group

	mu          sync.RWMutex
	url         string
	keys        map[string]*rsa.PublicKey
	fetchedAt   time.Time
	lastAttempt time.Time
}

func NewRemoteKeySet(cfg KeySetConfig) *RemoteKeySet {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = time.Hour
	}
	if cfg.MinRefreshInterval <= 0 {
		cfg.MinRefreshInterval = time.Minute
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	fetchTimeout := cfg.HTTPClient.Timeout
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}
	return &RemoteKeySet{
		issuer:             cfg.Issuer,
		httpClient:         cfg.HTTPClient,
		refreshInterval:    cfg.RefreshInterval,
		minRefreshInterval: cfg.MinRefreshInterval,
		fetchTimeout:       fetchTimeout,
		logger:             cfg.Logger,
		now:                time.Now,
		url:                cfg.URL,
		keys:               make(map[string]*rsa.PublicKey),
	}
}

// Key returns the public key for kid, reloading the set when needed.
// Reloads of a populated set happen at most once per MinRefreshInterval; in
// between, a stale set keeps serving the keys it has.
func (ks *RemoteKeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	ks.mu.RLock()
	key, found := ks.keys[kid]
	fetchedAt, lastAttempt := ks.fetchedAt, ks.lastAttempt
	ks.mu.RUnlock()

	now := ks.now()
	throttled := !lastAttempt.IsZero() && now.Sub(lastAttempt) < ks.minRefreshInterval
	switch {
	case fetchedAt.IsZero():
		if throttled {
			return nil, fmt.Errorf("%w: retry throttled", ErrJWKSFetchFailed)
		}
		if err := ks.Refresh(ctx); err != nil {
			return nil, err
		}
	case now.Sub(fetchedAt) >= ks.refreshInterval && !throttled:
		if err := ks.Refresh(ctx); err != nil {
			if found {
				ks.logger.Warn("jwks refresh failed, serving cached key", zap.String("kid", kid), zap.Error(err))
				return key, nil
			}
			return nil, err
		}
	case found:
		return key, nil
	case !throttled:
		ks.logger.Debug("unknown kid, refreshing jwks", zap.String("kid", kid))
		if err := ks.Refresh(ctx); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, kid)
	}

	ks.mu.RLock()
	key, found = ks.keys[kid]
	ks.mu.RUnlock()
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, kid)
	}
	return key, nil
}

// Refresh reloads the key set now. Concurrent callers share a single fetch,
// which runs detached from any one caller's cancellation and is bounded by the
// HTTP timeout. A caller whose ctx ends stops waiting; the fetch carries on.
func (ks *RemoteKeySet) Refresh(ctx context.Context) error {
	ch := ks.group.DoChan("jwks", func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ks.fetchTimeout)
		defer cancel()
		return nil, ks.fetch(fetchCtx)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len reports how many usable keys are cached.
func (ks *RemoteKeySet) Len() int {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return len(ks.keys)
}

func (ks *RemoteKeySet) fetch(ctx context.Context) error {
	ks.mu.Lock()
	ks.lastAttempt = ks.now()
	ks.mu.Unlock()

	url, err := ks.jwksURL(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create jwks request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := ks.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJWKSFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status code %d", ErrJWKSFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSBytes))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJWKSFetchFailed, err)
	}
	keys, err := ks.decode(body)
	if err != nil {
		return err
	}

	ks.mu.Lock()
	ks.keys = keys
	ks.fetchedAt = ks.now()
	ks.mu.Unlock()

	ks.logger.Info("jwks loaded", zap.String("url", url), zap.Int("keys", len(keys)))
	return nil
}

// decode keeps RSA signing keys and skips entries go-jose cannot parse,
// so one exotic key does not take the whole set down.
func (ks *RemoteKeySet) decode(body []byte) (map[string]*rsa.PublicKey, error) {
	var doc struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, raw := range doc.Keys {
		var jwk jose.JSONWebKey
		if err := jwk.UnmarshalJSON(raw); err != nil {
			ks.logger.Debug("skipping unparseable jwk", zap.Error(err))
			continue
		}
		if jwk.KeyID == "" || (jwk.Use != "" && jwk.Use != "sig") {
			continue
		}
		pub, ok := jwk.Key.(*rsa.PublicKey)
		if !ok {
			continue
		}
		keys[jwk.KeyID] = pub
	}
	if len(keys) == 0 {
		return nil, errors.New("decode jwks: no usable RSA signing keys")
	}
	return keys, nil
}

func (ks *RemoteKeySet) jwksURL(ctx context.Context) (string, error) {
	ks.mu.RLock()
	url := ks.url
	ks.mu.RUnlock()
	if url != "" {
		return url, nil
	}
	if ks.issuer == "" {
		return "", errors.New("jwks url and issuer are both empty")
	}

	discovery, err := client.Discover(ctx, ks.issuer, ks.httpClient)
	if err != nil {
		return "", fmt.Errorf("discover jwks url: %w", err)
	}
	if discovery.JwksURI == "" {
		return "", errors.New("discovery document has no jwks_uri")
	}

	ks.mu.Lock()
	ks.url = discovery.JwksURI
	ks.mu.Unlock()
	ks.logger.Info("jwks url discovered", zap.String("issuer", ks.issuer), zap.String("jwks_uri", discovery.JwksURI))
	return discovery.JwksURI, nil
}
