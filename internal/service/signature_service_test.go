package service

import (
	"crypto/ed25519"
	"testing"

	"settlement-ledger/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSigner(t *testing.T) (domain.Identity, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	var id domain.Identity
	copy(id[:], pub)
	return id, priv
}

func TestEd25519Verifier_SignAndVerify(t *testing.T) {
	v := NewEd25519Verifier()
	signer, priv := newTestSigner(t)
	payload := v.BuildCanonicalString("POST", "/api/v1/payments", 1708092000, "abc123nonce", `{"amount":50000}`)

	signature := SignCanonical(priv, payload)
	assert.Regexp(t, `^[0-9a-f]{128}$`, signature)
	assert.True(t, v.Verify(signer, payload, signature))
}

func TestEd25519Verifier_Rejects(t *testing.T) {
	v := NewEd25519Verifier()
	signer, priv := newTestSigner(t)
	other, _ := newTestSigner(t)
	signature := SignCanonical(priv, "original payload")

	assert.False(t, v.Verify(other, "original payload", signature), "wrong signer")
	assert.False(t, v.Verify(signer, "tampered payload", signature), "wrong payload")
	assert.False(t, v.Verify(signer, "original payload", "zz"), "not hex")
	assert.False(t, v.Verify(signer, "original payload", signature[:64]), "truncated")
}

func TestEd25519Verifier_BuildCanonicalString(t *testing.T) {
	v := NewEd25519Verifier()

	assert.Equal(t, "POST|/api/v1/payments|1708092000|abc123|{\"amount\":50000}",
		v.BuildCanonicalString("POST", "/api/v1/payments", 1708092000, "abc123", `{"amount":50000}`))
	assert.Equal(t, "GET|/api/v1/events|1708092000|nonce1|",
		v.BuildCanonicalString("GET", "/api/v1/events", 1708092000, "nonce1", ""))
}

func TestHMACSigner(t *testing.T) {
	var s HMACSigner
	key := []byte("webhook-key")

	sig := s.Sign(key, []byte("body"))
	assert.Regexp(t, `^[0-9a-f]{64}$`, sig)
	assert.Equal(t, sig, s.Sign(key, []byte("body")))
	assert.True(t, s.Verify(key, []byte("body"), sig))
	assert.False(t, s.Verify([]byte("other"), []byte("body"), sig))
	assert.False(t, s.Verify(key, []byte("tampered"), sig))
}
