package crypto

import (
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"
)

func TestHashPasswordFormat(t *testing.T) {
	hash := HashPassword("admin123", []byte("0123456789abcdef"))

	parts := strings.Split(hash, "$")
	require.Len(t, parts, 6)
	assert.Equal(t, "argon2id", parts[1])
	assert.Equal(t, "v=19", parts[2])
	assert.Equal(t, "m=65536,t=3,p=4", parts[3])
}

func TestHashPasswordDeterministicPerSalt(t *testing.T) {
	salt := []byte("fixed-salt-value")
	assert.Equal(t, HashPassword("pw", salt), HashPassword("pw", salt))
	assert.NotEqual(t, HashPassword("pw", salt), HashPassword("pw", []byte("other-salt-value")))
}

func TestGeneratePasswordHashUsesRandomSalt(t *testing.T) {
	h1, err := GeneratePasswordHash("admin123")
	require.NoError(t, err)
	h2, err := GeneratePasswordHash("admin123")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
	assert.True(t, VerifyPassword("admin123", h1))
	assert.True(t, VerifyPassword("admin123", h2))
}

func TestVerifyPassword(t *testing.T) {
	hash, err := GeneratePasswordHash("CorrectPassword123!")
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		hash     string
		expected bool
	}{
		{"correct password", "CorrectPassword123!", hash, true},
		{"wrong password", "WrongPassword123!", hash, false},
		{"empty password", "", hash, false},
		{"case sensitive", "correctpassword123!", hash, false},
		{"empty hash", "CorrectPassword123!", "", false},
		{"wrong algorithm", "CorrectPassword123!", strings.Replace(hash, "argon2id", "argon2i", 1), false},
		{"garbage params", "CorrectPassword123!", "$argon2id$v=19$m=x,t=y,p=z$c2FsdA$aGFzaA", false},
		{"bad base64", "CorrectPassword123!", "$argon2id$v=19$m=65536,t=3,p=4$!!!$!!!", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, VerifyPassword(tt.password, tt.hash))
		})
	}
}

func TestVerifyPasswordHonoursEncodedParameters(t *testing.T) {
	salt := []byte("somesaltvalue123")
	key := argon2.IDKey([]byte("cheap"), salt, 1, 1024, 1, 16)
	encoded := fmt.Sprintf("$argon2id$v=%d$m=1024,t=1,p=1$%s$%s", argon2.Version,
		base64.RawStdEncoding.EncodeToString(salt), base64.RawStdEncoding.EncodeToString(key))

	assert.True(t, VerifyPassword("cheap", encoded))
	assert.False(t, VerifyPassword("expensive", encoded))

	_, err := verify("cheap", strings.TrimSuffix(encoded, base64.RawStdEncoding.EncodeToString(key)))
	assert.ErrorIs(t, err, ErrMalformedHash)
}

func BenchmarkHashPassword(b *testing.B) {
	salt := []byte("0123456789abcdef")
	for i := 0; i < b.N; i++ {
		HashPassword("benchmark-password", salt)
	}
}
