package security

import (
	"crypto"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a session descriptor is malformed, forged or expired.
var ErrInvalidToken = errors.New("invalid token")

// SessionClaims is the signed session descriptor carried in the session cookie.
// Subject is the user id; ID and SessionID both hold the session row id.
type SessionClaims struct {
	jwt.RegisteredClaims
	SessionID  string `json:"sid"`
	IsLoggedIn bool   `json:"is_logged_in"`
	IsAdmin    bool   `json:"is_admin"`
}

// TokenProvider signs and verifies session descriptors with an RS256 or ES256 key pair.
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	method     jwt.SigningMethod
}

// NewTokenProvider returns a TokenProvider signing with privateKey. The JWS algorithm follows the key
// type; issuer is stamped on every descriptor and required on validation.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer string) *TokenProvider {
	p := &TokenProvider{privateKey: privateKey, publicKey: publicKey, issuer: issuer}
	if privateKey != nil {
		p.method = jwt.GetSigningMethod(KeyAlg(privateKey.Public()))
	}
	return p
}

// IssueSession signs a logged-in descriptor for the session row sessionID owned by userID.
// The token expires together with the row.
func (p *TokenProvider) IssueSession(sessionID, userID string, isAdmin bool, expiresAt time.Time) (string, error) {
	if p.method == nil {
		return "", ErrInvalidKey
	}
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   userID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID:  sessionID,
		IsLoggedIn: true,
		IsAdmin:    isAdmin,
	}
	return jwt.NewWithClaims(p.method, claims).SignedString(p.privateKey)
}

// ValidateSession verifies signature, algorithm, issuer and expiry of a descriptor. Every failure is
// reported as ErrInvalidToken.
func (p *TokenProvider) ValidateSession(raw string) (*SessionClaims, error) {
	alg := KeyAlg(p.publicKey)
	if alg == "" {
		return nil, ErrInvalidToken
	}
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return p.publicKey, nil },
		jwt.WithValidMethods([]string{alg}),
		jwt.WithIssuer(p.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || claims.Subject == "" || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
