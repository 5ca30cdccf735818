package sec

import (
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSigner(t *testing.T, secret string) *Signer {
	t.Helper()
	signer, err := NewSigner(secret)
	require.NoError(t, err)
	return signer
}

func TestNewSigner(t *testing.T) {
	t.Parallel()

	_, err := NewSigner("")
	require.ErrorIs(t, err, ErrEmptySecret)
}

func TestSigner_Mint(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t, "test-secret")
	token := signer.Mint("admin@example.com")

	subject, sig, ok := strings.Cut(token, ".")
	require.True(t, ok)
	assert.Equal(t, "admin@example", subject, "the first dot belongs to the subject")
	assert.Len(t, token, len("admin@example.com")+1+signatureLen)
	assert.NotEmpty(t, sig)
	assert.Equal(t, token, signer.Mint("admin@example.com"), "minting is deterministic")
	assert.NotEqual(t, token, newTestSigner(t, "other-secret").Mint("admin@example.com"))
}

func TestSigner_Verify(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t, "test-secret")
	email := gofakeit.Email()
	token := signer.Mint(email)

	subject, ok := signer.Verify(token)
	require.True(t, ok)
	assert.Equal(t, email, subject)

	flipped := []byte(token)
	last := len(flipped) - 1
	if flipped[last] == '0' {
		flipped[last] = '1'
	} else {
		flipped[last] = '0'
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "no delimiter", token: "garbage"},
		{name: "only delimiter", token: "."},
		{name: "signature only", token: token[len(email)+1:]},
		{name: "missing signature", token: email + "."},
		{name: "truncated signature", token: token[:len(token)-1]},
		{name: "extended signature", token: token + "0"},
		{name: "tampered signature", token: string(flipped)},
		{name: "tampered subject", token: "x" + token},
		{name: "uppercase signature", token: email + "." + strings.ToUpper(token[len(email)+1:])},
		{name: "other secret", token: newTestSigner(t, "other-secret").Mint(email)},
		{name: "non hex", token: email + "." + strings.Repeat("z", signatureLen)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			subject, ok := signer.Verify(test.token)
			assert.False(t, ok)
			assert.Empty(t, subject)
		})
	}
}

func TestSigner_VerifyBitFlip(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t, "test-secret")
	const email = "admin@example.com"
	token := signer.Mint(email)

	flip := func(i int, bit uint) string {
		b := []byte(token)
		b[i] ^= 1 << bit
		return string(b)
	}

	t.Run("signature byte", func(t *testing.T) {
		t.Parallel()
		subject, ok := signer.Verify(flip(len(email)+1, 0))
		assert.False(t, ok)
		assert.Empty(t, subject)
	})

	t.Run("subject byte", func(t *testing.T) {
		t.Parallel()
		subject, ok := signer.Verify(flip(0, 0))
		assert.False(t, ok)
		assert.Empty(t, subject)
	})

	// A flip may leave a character outside the hex alphabet or move the
	// delimiter; none of them may verify.
	t.Run("every bit", func(t *testing.T) {
		t.Parallel()
		for i := range len(token) {
			for bit := range uint(8) {
				_, ok := signer.Verify(flip(i, bit))
				require.False(t, ok, "byte %d bit %d", i, bit)
			}
		}
	})
}

func TestSigner_VerifyDottedSubject(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t, "test-secret")
	for _, subject := range []string{"first.last@mail.example.co.uk", "a.b.c", "trailing."} {
		got, ok := signer.Verify(signer.Mint(subject))
		require.True(t, ok, subject)
		assert.Equal(t, subject, got)
	}
}
