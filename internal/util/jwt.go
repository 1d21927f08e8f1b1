package util

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the session token claims issued by the identity provider. The
// subject is the provider's user id (clerkId on the user record).
type Claims struct {
	SessionID string `json:"sid,omitempty"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier validates session tokens against a single key. The key
// material is either a shared HMAC secret or a PEM encoded RSA/ECDSA public
// key.
type TokenVerifier struct {
	hmacSecret []byte
	publicKey  any
	issuer     string
}

// NewTokenVerifier parses keyMaterial once. issuer is optional; when set the
// token's iss claim must match.
func NewTokenVerifier(keyMaterial, issuer string) (*TokenVerifier, error) {
	keyMaterial = strings.TrimSpace(keyMaterial)
	if keyMaterial == "" {
		return nil, errors.New("token key material is empty")
	}
	v := &TokenVerifier{issuer: issuer}
	if !strings.HasPrefix(keyMaterial, "-----BEGIN") {
		v.hmacSecret = []byte(keyMaterial)
		return v, nil
	}
	pub, err := parsePublicKey(keyMaterial)
	if err != nil {
		return nil, err
	}
	v.publicKey = pub
	return v, nil
}

// parsePublicKey parses a PEM encoded PKIX public key and keeps RSA and
// ECDSA keys.
func parsePublicKey(pemKey string) (any, error) {
	block, _ := pem.Decode([]byte(pemKey))
	if block == nil {
		return nil, errors.New("failed to decode PEM block containing public key")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	switch pub.(type) {
	case *rsa.PublicKey, *ecdsa.PublicKey:
		return pub, nil
	default:
		return nil, fmt.Errorf("unsupported public key type %T", pub)
	}
}

func (v *TokenVerifier) keyFunc(token *jwt.Token) (any, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if v.hmacSecret == nil {
			return nil, fmt.Errorf("unexpected signing method: %v (expected asymmetric)", token.Header["alg"])
		}
		return v.hmacSecret, nil
	case *jwt.SigningMethodRSA:
		if key, ok := v.publicKey.(*rsa.PublicKey); ok {
			return key, nil
		}
	case *jwt.SigningMethodECDSA:
		if key, ok := v.publicKey.(*ecdsa.PublicKey); ok {
			return key, nil
		}
	}
	return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
}

// Validate parses and verifies tokenString and returns its claims. The
// subject must be present.
func (v *TokenVerifier) Validate(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512", "RS256", "RS384", "RS512", "ES256", "ES384", "ES512"}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyFunc, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
