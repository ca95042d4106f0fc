package middleware

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/dszwed/wp-blueprints/internal/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/go-retryablehttp"
)

// JWKSet represents a JSON Web Key Set
type JWKSet struct {
	Keys []JWK `json:"keys"`
}

// JWK represents a JSON Web Key
type JWK struct {
	Kid string   `json:"kid"`
	Kty string   `json:"kty"`
	Use string   `json:"use"`
	N   string   `json:"n"`
	E   string   `json:"e"`
	X5c []string `json:"x5c"`
}

// ErrUnknownKey is returned when the key set has no key with the token's kid
var ErrUnknownKey = errors.New("unable to find appropriate key")

// JWKSClient fetches and caches the signing keys of an identity provider
type JWKSClient struct {
	url  string
	http *retryablehttp.Client
	ttl  time.Duration

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewJWKSClient creates a client for the key set at url. Keys are cached
// for ttl; an unknown kid forces a refetch.
func NewJWKSClient(url string, ttl time.Duration) *JWKSClient {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = 10 * time.Second
	client.Logger = retryLogger{}

	return &JWKSClient{
		url:  url,
		http: client,
		ttl:  ttl,
		keys: map[string]*rsa.PublicKey{},
	}
}

// Key returns the public key with the given kid
func (c *JWKSClient) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if key, ok := c.keys[kid]; ok && time.Since(c.fetchedAt) < c.ttl {
		return key, nil
	}

	if err := c.refresh(ctx); err != nil {
		return nil, err
	}
	if key, ok := c.keys[kid]; ok {
		return key, nil
	}
	return nil, ErrUnknownKey
}

// refresh replaces the cached keys; the caller holds c.mu
func (c *JWKSClient) refresh(ctx context.Context) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch JWKS: unexpected status %d", resp.StatusCode)
	}

	var set JWKSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("failed to decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, jwk := range set.Keys {
		key, err := jwk.publicKey()
		if err != nil {
			logger.WithField("kid", jwk.Kid).WithError(err).Warn("Skipping unusable JWKS key")
			continue
		}
		keys[jwk.Kid] = key
	}

	c.keys = keys
	c.fetchedAt = time.Now()
	logger.WithField("keys", len(keys)).Debug("JWKS refreshed")
	return nil
}

// publicKey decodes an RSA key from its certificate chain or its modulus
// and exponent
func (k JWK) publicKey() (*rsa.PublicKey, error) {
	if k.Kty != "" && k.Kty != "RSA" {
		return nil, fmt.Errorf("unsupported key type %q", k.Kty)
	}
	if len(k.X5c) > 0 {
		cert := fmt.Sprintf("-----BEGIN CERTIFICATE-----\n%s\n-----END CERTIFICATE-----", k.X5c[0])
		return jwt.ParseRSAPublicKeyFromPEM([]byte(cert))
	}

	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}
	if len(n) == 0 || len(e) == 0 {
		return nil, errors.New("missing modulus or exponent")
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(n),
		E: int(new(big.Int).SetBytes(e).Int64()),
	}, nil
}

// retryLogger routes retryablehttp's leveled logs to logrus
type retryLogger struct{}

func (retryLogger) fields(keysAndValues []interface{}) logger.Fields {
	fields := logger.Fields{"component": "jwks"}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return fields
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) {
	logger.WithFields(l.fields(keysAndValues)).Error(msg)
}

func (l retryLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.WithFields(l.fields(keysAndValues)).Debug(msg)
}

func (l retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	logger.WithFields(l.fields(keysAndValues)).Debug(msg)
}

func (l retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	logger.WithFields(l.fields(keysAndValues)).Warn(msg)
}
