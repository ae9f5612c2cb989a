package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
	Validate() error
}

// minHS256KeySize guards against weak symmetric keys. 256-bit keys are
// the accepted floor for HS256.
const minHS256KeySize = 32

// HS256Signer implements the Signer interface using an HMAC-SHA256
// symmetric secret.
type HS256Signer struct {
	key []byte
	alg string
}

// NewSignerHS256 creates an HS256 signer from raw secret bytes.
func NewSignerHS256(key []byte) (*HS256Signer, error) {
	if len(key) < minHS256KeySize {
		return nil, errors.New("jwtx: HS256 key must be at least 32 bytes")
	}
	return &HS256Signer{key: key, alg: jwt.SigningMethodHS256.Alg()}, nil
}

func (s *HS256Signer) Alg() string { return s.alg }

// Sign takes your claims and turns them into a signed JWT string.
func (s *HS256Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.key)
}

// Validate does a quick sanity check to make sure we actually have a key.
func (s *HS256Signer) Validate() error {
	if len(s.key) < minHS256KeySize {
		return errors.New("jwtx: HS256 key too short")
	}
	return nil
}
