// Package control is DireClaw's local control plane: a unix-socket HTTP
// server the CLI's send/attach verbs and `update check` talk to
// in-process with the running supervisor. Grounded on the teacher's internal/controller/auth
// (JWT claims/validation shape) and internal/daemon/auth (bearer
// extraction, per-key rate limiting), collapsed to the symmetric-secret,
// single-daemon case DireClaw actually has: no remote clients, no
// multi-tenant issuer, just a CLI and the daemon it's attached to sharing
// one state root.
package control

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/direclaw/direclaw/internal/fsutil"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// tokenIssuer and tokenAudience pin GenerateToken/Authenticate to
	// DireClaw's own tokens; a JWT minted for anything else is rejected.
	tokenIssuer   = "direclaw-supervisor"
	tokenAudience = "direclaw-control"

	// DefaultTokenTTL bounds how long a CLI-minted token is accepted,
	// per spec §6's "short-lived control-plane tokens".
	DefaultTokenTTL = 5 * time.Minute

	sessionSecretLen = 32
)

// Claims is the JWT payload a control-plane token carries. ClientID
// identifies the caller for rate limiting and logging; it is not an
// authorization boundary by itself (the signature is), so any caller
// holding the session secret may choose its own.
type Claims struct {
	jwt.RegisteredClaims
	ClientID string `json:"clientId,omitempty"`
}

// LoadOrCreateSessionSecret returns the daemon's control-plane signing
// secret at <stateRoot>/control/session.key, generating one on first use.
// The CLI reads the same file (it runs as the same user, against the same
// state root) to mint its own tokens locally; there is no token-issuing
// endpoint, since minting requires exactly the trust the secret already
// encodes.
func LoadOrCreateSessionSecret(stateRoot string) ([]byte, error) {
	path := sessionSecretPath(stateRoot)
	if data, err := os.ReadFile(path); err == nil {
		if len(data) == 0 {
			return nil, fmt.Errorf("control: session secret at %s is empty", path)
		}
		return data, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("control: read session secret: %w", err)
	}

	secret := make([]byte, sessionSecretLen)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("control: generate session secret: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("control: create control dir: %w", err)
	}
	if err := fsutil.WriteAtomic(path, secret, 0o600); err != nil {
		return nil, fmt.Errorf("control: persist session secret: %w", err)
	}
	return secret, nil
}

func sessionSecretPath(stateRoot string) string {
	return filepath.Join(stateRoot, "control", "session.key")
}

// GenerateToken mints a control-plane bearer token for clientID, valid for
// ttl (DefaultTokenTTL if <= 0).
func GenerateToken(secret []byte, clientID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		ClientID: clientID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("control: sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies tokenString against secret, checking
// signature, issuer, audience, and expiry (with a small clock-skew
// leeway; this is all local-clock anyway since client and server are the
// same machine).
func ValidateToken(secret []byte, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("control: token is empty")
	}
	parser := jwt.NewParser(jwt.WithLeeway(2 * time.Second))
	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != "HS256" {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("control: invalid token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("control: invalid token claims")
	}
	if claims.Issuer != tokenIssuer {
		return nil, fmt.Errorf("control: unexpected issuer %q", claims.Issuer)
	}
	validAudience := false
	for _, aud := range claims.Audience {
		if aud == tokenAudience {
			validAudience = true
			break
		}
	}
	if !validAudience {
		return nil, fmt.Errorf("control: token missing audience %q", tokenAudience)
	}
	return claims, nil
}

// extractBearerToken pulls the token out of an Authorization header,
// case-insensitive on the "Bearer" scheme per RFC 6750.
func extractBearerToken(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", fmt.Errorf("missing Authorization header")
	}
	const prefixLen = len("Bearer ")
	if len(auth) <= prefixLen || !strings.EqualFold(auth[:prefixLen], "Bearer ") {
		return "", fmt.Errorf("invalid Authorization header format, expected \"Bearer <token>\"")
	}
	token := strings.TrimSpace(auth[prefixLen:])
	if token == "" {
		return "", fmt.Errorf("empty bearer token")
	}
	return token, nil
}
