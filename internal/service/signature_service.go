package service

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"settlement-ledger/internal/core/domain"
)

// Ed25519Verifier implements ports.SignatureVerifier. A signer identity is
// its raw ed25519 public key.
type Ed25519Verifier struct{}

// NewEd25519Verifier creates a new request signature verifier.
func NewEd25519Verifier() *Ed25519Verifier {
	return &Ed25519Verifier{}
}

// BuildCanonicalString constructs the canonical payload for signing.
// Format: METHOD|PATH|TIMESTAMP|NONCE|BODY
func (v *Ed25519Verifier) BuildCanonicalString(method, path string, timestamp int64, nonce string, body string) string {
	return fmt.Sprintf("%s|%s|%d|%s|%s", method, path, timestamp, nonce, body)
}

// Verify checks a hex encoded ed25519 signature of payload by signer.
func (v *Ed25519Verifier) Verify(signer domain.Identity, payload string, signature string) bool {
	sig, err := hex.DecodeString(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(signer[:]), []byte(payload), sig)
}

// SignCanonical signs a canonical string with priv. Clients and tests use
// it to produce X-Signature.
func SignCanonical(priv ed25519.PrivateKey, canonical string) string {
	return hex.EncodeToString(ed25519.Sign(priv, []byte(canonical)))
}

// HMACSigner signs outbound webhook bodies with HMAC-SHA256.
type HMACSigner struct{}

// Sign computes HMAC-SHA256 of payload using key.
// Returns lowercase hex-encoded signature.
func (HMACSigner) Sign(key []byte, payload []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks if signature matches HMAC-SHA256(key, payload).
// Uses constant-time comparison to prevent timing attacks.
func (s HMACSigner) Verify(key []byte, payload []byte, signature string) bool {
	expected := s.Sign(key, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}
