package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"hash"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-aisync/core"
	goerrors "github.com/goliatone/go-errors"
)

// The signing material comes only from process environment; it must never
// be read from the persisted settings store.
const (
	EnvJWTSecret    = "AI_WEBHOOK_JWT_SECRET"
	EnvJWTAlgorithm = "AI_WEBHOOK_JWT_ALGORITHM"
)

const (
	DefaultIssuer  = "schoolsystem"
	DefaultSubject = core.TokenSubjectAISync
	DefaultScope   = core.TokenScopeWebhook

	jwtAlgHS256 = "HS256"
	jwtAlgHS384 = "HS384"
	jwtAlgHS512 = "HS512"

	defaultTokenTTL = time.Hour
)

type HMACTokenIssuerConfig struct {
	Secret    string
	Algorithm string
	Issuer    string
	TokenTTL  time.Duration
	Now       func() time.Time
}

// HMACTokenIssuer mints a compact header.payload.signature token per call.
// Tokens are never cached or reused across dispatches.
type HMACTokenIssuer struct {
	config HMACTokenIssuerConfig
}

func NewHMACTokenIssuer(cfg HMACTokenIssuerConfig) *HMACTokenIssuer {
	tokenTTL := cfg.TokenTTL
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	algorithm := strings.TrimSpace(strings.ToUpper(cfg.Algorithm))
	if algorithm == "" {
		algorithm = jwtAlgHS256
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = DefaultIssuer
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &HMACTokenIssuer{
		config: HMACTokenIssuerConfig{
			Secret:    strings.TrimSpace(cfg.Secret),
			Algorithm: algorithm,
			Issuer:    issuer,
			TokenTTL:  tokenTTL,
			Now:       now,
		},
	}
}

// NewHMACTokenIssuerFromEnv reads the signing secret and algorithm from the
// process environment. lookup follows the os.LookupEnv contract.
func NewHMACTokenIssuerFromEnv(lookup func(string) (string, bool)) *HMACTokenIssuer {
	cfg := HMACTokenIssuerConfig{}
	if lookup != nil {
		if value, ok := lookup(EnvJWTSecret); ok {
			cfg.Secret = value
		}
		if value, ok := lookup(EnvJWTAlgorithm); ok {
			cfg.Algorithm = value
		}
	}
	return NewHMACTokenIssuer(cfg)
}

// Generate mints a fresh signed assertion for one outbound call. A missing
// secret fails with the AISYNC_JWT_SECRET_MISSING envelope so the caller
// aborts before creating a log row or touching the network.
func (s *HMACTokenIssuer) Generate(_ context.Context, subject string, scope string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("auth: token issuer is not configured")
	}
	if s.config.Secret == "" {
		return "", goerrors.New(
			"auth: jwt signing secret is not configured",
			goerrors.CategoryAuth,
		).
			WithCode(http.StatusUnauthorized).
			WithTextCode(core.SyncErrorSecretMissing)
	}

	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = DefaultSubject
	}
	scope = strings.TrimSpace(scope)
	if scope == "" {
		scope = DefaultScope
	}

	now := s.config.Now().UTC()
	expiresAt := now.Add(s.config.TokenTTL)
	claims := map[string]any{
		"iss":   s.config.Issuer,
		"sub":   subject,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
		"scope": scope,
	}
	return buildHMACJWT(s.config.Algorithm, s.config.Secret, claims)
}

// buildHMACJWT signs the literal ASCII string "<header>.<payload>" with the
// shared secret; all three segments are unpadded base64url.
func buildHMACJWT(algorithm string, secret string, claims map[string]any) (string, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", fmt.Errorf("auth: jwt signing secret is required")
	}
	hasher, err := hmacHasher(algorithm)
	if err != nil {
		return "", err
	}

	header := map[string]any{
		"alg": strings.TrimSpace(strings.ToUpper(algorithm)),
		"typ": "JWT",
	}
	headerRaw, err := json.Marshal(header)
	if err != nil {
		return "", fmt.Errorf("auth: marshal jwt header: %w", err)
	}
	claimsRaw, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("auth: marshal jwt claims: %w", err)
	}

	headerToken := base64.RawURLEncoding.EncodeToString(headerRaw)
	claimsToken := base64.RawURLEncoding.EncodeToString(claimsRaw)
	signed := headerToken + "." + claimsToken

	mac := hmac.New(hasher, []byte(secret))
	_, _ = mac.Write([]byte(signed))
	signature := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return signed + "." + signature, nil
}

func hmacHasher(algorithm string) (func() hash.Hash, error) {
	switch strings.TrimSpace(strings.ToUpper(algorithm)) {
	case "", jwtAlgHS256:
		return sha256.New, nil
	case jwtAlgHS384:
		return sha512.New384, nil
	case jwtAlgHS512:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("auth: unsupported jwt signing algorithm %q", algorithm)
	}
}

var _ core.TokenIssuer = (*HMACTokenIssuer)(nil)
