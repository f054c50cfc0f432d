package vault

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/vault/api"
)

// Config holds the Vault connection settings. When disabled, all
// lookups miss and callers fall back to config values.
type Config struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	TLSEnabled bool   `json:"tls_enabled"`
	CACert     string `json:"ca_cert"`
}

// Client wraps the HashiCorp Vault client as an optional secret source
// for credentials: database password, redis password, notifier tokens,
// the operator password hash.
type Client struct {
	client *api.Client
	config Config
	mu     sync.RWMutex
	cache  map[string]map[string]string
}

// NewClient creates a new Vault client. A disabled config yields a
// client whose lookups always miss.
func NewClient(cfg Config) (*Client, error) {
	c := &Client{
		config: cfg,
		cache:  make(map[string]map[string]string),
	}
	if !cfg.Enabled {
		return c, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.TLSEnabled && cfg.CACert != "" {
		tlsConfig := &api.TLSConfig{CACert: cfg.CACert}
		if err := vaultConfig.ConfigureTLS(tlsConfig); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)
	c.client = client
	return c, nil
}

// Secret reads a KV v2 secret at the given path, caching the result
// for the process lifetime.
func (c *Client) Secret(ctx context.Context, path string) (map[string]string, error) {
	c.mu.RLock()
	if cached, ok := c.cache[path]; ok {
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	if !c.config.Enabled {
		return nil, fmt.Errorf("vault disabled, secret %q unavailable", path)
	}

	secret, err := c.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret %q: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret %q not found", path)
	}

	// KV v2 nests the payload under "data".
	payload := secret.Data
	if inner, ok := secret.Data["data"].(map[string]interface{}); ok {
		payload = inner
	}

	values := make(map[string]string, len(payload))
	for k, v := range payload {
		if s, ok := v.(string); ok {
			values[k] = s
		}
	}

	c.mu.Lock()
	c.cache[path] = values
	c.mu.Unlock()
	return values, nil
}

// Field returns one key from a secret, or fallback when Vault is
// disabled or the key is absent.
func (c *Client) Field(ctx context.Context, path, key, fallback string) string {
	if !c.config.Enabled {
		return fallback
	}
	values, err := c.Secret(ctx, path)
	if err != nil {
		return fallback
	}
	if v, ok := values[key]; ok && v != "" {
		return v
	}
	return fallback
}
