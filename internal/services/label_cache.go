package services

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rahul4469/qrguard/internal/config"
	"github.com/rahul4469/qrguard/internal/models"
	"github.com/valkey-io/valkey-go"
)

const (
	analysisKeyPrefix   = "qrguard:analysis:"
	registeredKeyPrefix = "qrguard:registered:"
)

// NewValkeyClient connects to Valkey and pings it.
func NewValkeyClient(ctx context.Context, cfg config.ValkeyConfig) (valkey.Client, error) {
	opts := valkey.ClientOption{
		InitAddress:      []string{cfg.Address},
		Password:         cfg.Password,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create valkey client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping valkey: %w", err)
	}

	return client, nil
}

// LabelCache keeps recent URL lookups in Valkey in front of a URLStore.
// Cache failures are logged and the lookup falls through to the store.
// Missing analyses are not cached so new verdicts show up immediately.
type LabelCache struct {
	client valkey.Client
	ttl    time.Duration
	next   URLStore
}

// NewLabelCache rounds ttl down to whole seconds, with a floor of one.
func NewLabelCache(client valkey.Client, ttl time.Duration, next URLStore) *LabelCache {
	if ttl < time.Second {
		ttl = time.Second
	}
	return &LabelCache{client: client, ttl: ttl.Truncate(time.Second), next: next}
}

func cacheKey(prefix, url string) string {
	sum := sha256.Sum256([]byte(url))
	return prefix + hex.EncodeToString(sum[:])
}

func (c *LabelCache) IsRegistered(ctx context.Context, url string) (bool, error) {
	key := cacheKey(registeredKeyPrefix, url)

	res := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
	if v, err := res.ToString(); err == nil {
		return v == "1", nil
	} else if !valkey.IsValkeyNil(err) {
		slog.WarnContext(ctx, "Label cache read failed", slog.String("key", key), slog.Any("error", err))
	}

	registered, err := c.next.IsRegistered(ctx, url)
	if err != nil {
		return false, err
	}
	if registered {
		c.set(ctx, key, "1")
	}
	return registered, nil
}

func (c *LabelCache) FindByURL(ctx context.Context, url string) (*models.URLAnalysis, error) {
	key := cacheKey(analysisKeyPrefix, url)

	res := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
	if raw, err := res.AsBytes(); err == nil {
		var a models.URLAnalysis
		if err := json.Unmarshal(raw, &a); err == nil {
			return &a, nil
		}
		slog.WarnContext(ctx, "Dropping undecodable cache entry", slog.String("key", key))
	} else if !valkey.IsValkeyNil(err) {
		slog.WarnContext(ctx, "Label cache read failed", slog.String("key", key), slog.Any("error", err))
	}

	a, err := c.next.FindByURL(ctx, url)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(a); err == nil {
		c.set(ctx, key, string(raw))
	}
	return a, nil
}

func (c *LabelCache) set(ctx context.Context, key, value string) {
	cmd := c.client.B().Set().Key(key).Value(value).ExSeconds(int64(c.ttl.Seconds())).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		slog.WarnContext(ctx, "Label cache write failed", slog.String("key", key), slog.Any("error", err))
	}
}
