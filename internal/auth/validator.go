package auth

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

	"github.com/golang-jwt/jwt/v5"
)

const (
	jwksTTL           = time.Hour
	jwksFetchAttempts = 3
	jwksFetchBackoff  = time.Second
)

var errNoPrincipal = errors.New("token carries no usable identity")

// Validator checks RS256 bearer tokens against the tenant's published signing
// keys. Keys are cached and refreshed on expiry or on sight of an unknown key
// id; callers never manage cache bookkeeping themselves.
type Validator struct {
	tenantID string
	audience string
	client   *http.Client

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func NewValidator(tenantID, audience string) *Validator {
	return &Validator{
		tenantID: tenantID,
		audience: audience,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Validate parses and verifies the token, returning the principal it carries.
func (v *Validator) Validate(ctx context.Context, token string) (Principal, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token missing key id")
		}
		return v.signingKey(ctx, kid)
	},
		jwt.WithAudience(v.audience),
		jwt.WithIssuer(fmt.Sprintf("https://login.microsoftonline.com/%s/v2.0", v.tenantID)),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{"RS256"}),
	)
	if err != nil {
		return Principal{}, fmt.Errorf("token validation failed: %w", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return Principal{}, errors.New("invalid token claims")
	}
	p := principalFromClaims(claims)
	if p.UserID == "" {
		return Principal{}, errNoPrincipal
	}
	return p, nil
}

// signingKey returns the cached public key for kid, refreshing the key set
// when the cache is stale or the kid is unknown.
func (v *Validator) signingKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if key, ok := v.keys[kid]; ok && time.Since(v.fetchedAt) < jwksTTL {
		return key, nil
	}
	if err := v.refreshLocked(ctx); err != nil {
		return nil, err
	}
	key, ok := v.keys[kid]
	if !ok {
		return nil, fmt.Errorf("signing key %s not found", kid)
	}
	return key, nil
}

type jwksDocument struct {
	Keys []struct {
		Kid string `json:"kid"`
		Kty string `json:"kty"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

func (v *Validator) refreshLocked(ctx context.Context) error {
	url := fmt.Sprintf("https://login.microsoftonline.com/%s/discovery/v2.0/keys", v.tenantID)
	var lastErr error
	backoff := jwksFetchBackoff
	for i := 0; i < jwksFetchAttempts; i++ {
		doc, err := v.fetch(ctx, url)
		if err == nil {
			keys := map[string]*rsa.PublicKey{}
			for _, k := range doc.Keys {
				if k.Kty != "RSA" || k.Kid == "" {
					continue
				}
				pub, err := rsaKey(k.N, k.E)
				if err != nil {
					continue
				}
				keys[k.Kid] = pub
			}
			if len(keys) == 0 {
				return errors.New("key set contains no usable RSA keys")
			}
			v.keys = keys
			v.fetchedAt = time.Now()
			return nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("fetch signing keys: %w", lastErr)
}

func (v *Validator) fetch(ctx context.Context, url string) (*jwksDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("key endpoint returned %d", resp.StatusCode)
	}
	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func rsaKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, err
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nb),
		E: int(new(big.Int).SetBytes(eb).Int64()),
	}, nil
}
