package sec

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// signatureLen is the width of the hex-encoded HMAC-SHA256 trailing a token.
const signatureLen = sha256.Size * 2

// Signer mints and verifies session tokens. It is immutable and safe for
// concurrent use.
type Signer struct {
	secret []byte
}

// NewSigner returns a Signer keyed with secret.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Mint returns the token for subject. The same subject and secret always
// produce the same token.
func (s *Signer) Mint(subject string) string {
	return subject + "." + s.sign(subject)
}

// Verify returns the subject of token if its signature matches. The signature
// is the trailing fixed-width hex digest, so a subject may itself contain
// dots. Malformed or tampered tokens report false.
func (s *Signer) Verify(token string) (subject string, ok bool) {
	split := len(token) - signatureLen - 1
	if split < 1 || token[split] != '.' {
		return "", false
	}
	subject, sig := token[:split], token[split+1:]
	if !hmac.Equal([]byte(sig), []byte(s.sign(subject))) {
		return "", false
	}
	return subject, true
}

func (s *Signer) sign(subject string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(subject))
	return hex.EncodeToString(mac.Sum(nil))
}
