package util

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signHS256(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestValidateHMAC(t *testing.T) {
	v, err := NewTokenVerifier("top-secret", "")
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	token := signHS256(t, "top-secret", jwt.RegisteredClaims{
		Subject:   "user_123",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	claims, err := v.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "user_123" {
		t.Fatalf("subject = %q", claims.Subject)
	}
}

func TestValidateRejects(t *testing.T) {
	v, err := NewTokenVerifier("top-secret", "https://clerk.example")
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	tests := map[string]string{
		"wrong secret": signHS256(t, "other", jwt.RegisteredClaims{Subject: "u", Issuer: "https://clerk.example", ExpiresAt: future}),
		"expired":      signHS256(t, "top-secret", jwt.RegisteredClaims{Subject: "u", Issuer: "https://clerk.example", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))}),
		"no expiry":    signHS256(t, "top-secret", jwt.RegisteredClaims{Subject: "u", Issuer: "https://clerk.example"}),
		"wrong issuer": signHS256(t, "top-secret", jwt.RegisteredClaims{Subject: "u", Issuer: "https://evil.example", ExpiresAt: future}),
		"no subject":   signHS256(t, "top-secret", jwt.RegisteredClaims{Issuer: "https://clerk.example", ExpiresAt: future}),
		"garbage":      "not-a-token",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := v.Validate(token); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestValidateECDSA(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	pemKey := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	v, err := NewTokenVerifier(pemKey, "")
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.RegisteredClaims{
		Subject:   "user_ec",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := v.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "user_ec" {
		t.Fatalf("subject = %q", claims.Subject)
	}

	// an HMAC token signed with the PEM text must not be accepted
	forged := signHS256(t, pemKey, jwt.RegisteredClaims{Subject: "x", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))})
	if _, err := v.Validate(forged); err == nil || !strings.Contains(err.Error(), "signing method") {
		t.Fatalf("expected signing method error, got %v", err)
	}
}

func TestNewTokenVerifierErrors(t *testing.T) {
	if _, err := NewTokenVerifier("  ", ""); err == nil {
		t.Fatal("expected error for empty key")
	}
	if _, err := NewTokenVerifier("-----BEGIN PUBLIC KEY-----\nnope\n-----END PUBLIC KEY-----", ""); err == nil {
		t.Fatal("expected error for malformed PEM")
	}
}
