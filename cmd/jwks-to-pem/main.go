// Command jwks-to-pem prints a signing key of the identity provider's JWKS
// as a PEM public key, ready to be used as AUTH_KEY.
//
//	jwks-to-pem https://clerk.example.com/.well-known/jwks.json [kid]
package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"os"
	"time"
)

type JWKS struct {
	Keys []JWK `json:"keys"`
}

type JWK struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	// RSA
	N string `json:"n"`
	E string `json:"e"`
	// EC
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

func main() {
	url := os.Getenv("JWKS_URL")
	if len(os.Args) > 1 {
		url = os.Args[1]
	}
	if url == "" {
		fmt.Fprintln(os.Stderr, "usage: jwks-to-pem <jwks-url> [kid]")
		os.Exit(2)
	}
	var kid string
	if len(os.Args) > 2 {
		kid = os.Args[2]
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching JWKS: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Error fetching JWKS: status %d\n", resp.StatusCode)
		os.Exit(1)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading response: %v\n", err)
		os.Exit(1)
	}

	pemBytes, err := convert(body, kid)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(string(pemBytes))
}

// convert picks the key with kid, or the first signing key, and encodes it
// as a PKIX PEM block.
func convert(raw []byte, kid string) ([]byte, error) {
	var jwks JWKS
	if err := json.Unmarshal(raw, &jwks); err != nil {
		return nil, fmt.Errorf("parse JWKS: %w", err)
	}
	key, err := pick(jwks.Keys, kid)
	if err != nil {
		return nil, err
	}

	var pub any
	switch key.Kty {
	case "RSA":
		pub, err = rsaKey(key)
	case "EC":
		pub, err = ecKey(key)
	default:
		return nil, fmt.Errorf("unsupported key type %q", key.Kty)
	}
	if err != nil {
		return nil, err
	}

	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

func pick(keys []JWK, kid string) (JWK, error) {
	for _, k := range keys {
		if kid != "" {
			if k.Kid == kid {
				return k, nil
			}
			continue
		}
		if k.Use == "" || k.Use == "sig" {
			return k, nil
		}
	}
	if kid != "" {
		return JWK{}, fmt.Errorf("no key with kid %q", kid)
	}
	return JWK{}, errors.New("no signing keys found in JWKS")
}

func decodeInt(field, v string) (*big.Int, error) {
	b, err := base64.RawURLEncoding.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", field, err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("missing %s", field)
	}
	return new(big.Int).SetBytes(b), nil
}

func rsaKey(k JWK) (*rsa.PublicKey, error) {
	n, err := decodeInt("n", k.N)
	if err != nil {
		return nil, err
	}
	e, err := decodeInt("e", k.E)
	if err != nil {
		return nil, err
	}
	if !e.IsInt64() || e.Int64() > 1<<31-1 {
		return nil, errors.New("rsa exponent out of range")
	}
	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

func ecKey(k JWK) (*ecdsa.PublicKey, error) {
	var curve elliptic.Curve
	switch k.Crv {
	case "P-256":
		curve = elliptic.P256()
	case "P-384":
		curve = elliptic.P384()
	case "P-521":
		curve = elliptic.P521()
	default:
		return nil, fmt.Errorf("unsupported curve %q", k.Crv)
	}
	x, err := decodeInt("x", k.X)
	if err != nil {
		return nil, err
	}
	y, err := decodeInt("y", k.Y)
	if err != nil {
		return nil, err
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}
