package paychangu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prosblk/paychangu-service/internal/adapters/paychangu"
)

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"event_type":"api.charge.payment","status":"success","reference":"TXN-1"}`)

	t.Run("Valid", func(t *testing.T) {
		sig := paychangu.Sign(body, secret)
		assert.True(t, paychangu.VerifySignature(body, sig, secret))
	})

	t.Run("TamperedBody", func(t *testing.T) {
		sig := paychangu.Sign(body, secret)
		tampered := []byte(`{"event_type":"api.charge.payment","status":"success","reference":"TXN-2"}`)
		assert.False(t, paychangu.VerifySignature(tampered, sig, secret))
	})

	t.Run("WrongSecret", func(t *testing.T) {
		sig := paychangu.Sign(body, "other-secret")
		assert.False(t, paychangu.VerifySignature(body, sig, secret))
	})

	t.Run("EmptySignature", func(t *testing.T) {
		assert.False(t, paychangu.VerifySignature(body, "", secret))
	})

	t.Run("GarbageSignature", func(t *testing.T) {
		assert.False(t, paychangu.VerifySignature(body, "deadbeef", secret))
	})
}

func TestSignDependsOnRawBytes(t *testing.T) {
	secret := "whsec_test"
	// Semantically equal JSON, different bytes: signatures must differ.
	a := []byte(`{"amount":100,"currency":"MWK"}`)
	b := []byte(`{"currency":"MWK","amount":100}`)

	assert.NotEqual(t, paychangu.Sign(a, secret), paychangu.Sign(b, secret))
}
