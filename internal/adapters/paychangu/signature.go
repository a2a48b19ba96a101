package paychangu

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader is the header PayChangu uses to carry the webhook signature
const SignatureHeader = "Signature"

// Sign computes the hex-encoded HMAC-SHA256 of body under the webhook secret.
// Signing always operates on the raw body bytes; a re-serialized payload
// would produce a different digest.
func Sign(body []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySignature checks a caller-supplied signature against the raw body.
// The comparison is constant time regardless of where the first mismatching
// byte occurs.
func VerifySignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	expected := Sign(body, secret)
	return hmac.Equal([]byte(signature), []byte(expected))
}
