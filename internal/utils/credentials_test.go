package utils

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	header, err := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	require.NoError(t, err)
	body, err := json.Marshal(claims)
	require.NoError(t, err)
	enc := base64.RawURLEncoding
	return enc.EncodeToString(header) + "." + enc.EncodeToString(body) + "." + enc.EncodeToString([]byte("sig"))
}

func TestSessionExpiryReadsExpClaim(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	token := fakeToken(t, map[string]any{"sub": "1", "exp": at.Unix()})

	exp, err := SessionExpiry(token)
	require.NoError(t, err)
	require.NotNil(t, exp)
	assert.True(t, exp.Equal(at))

	// the Bearer prefix is stripped before decoding
	exp, err = SessionExpiry("Bearer " + token)
	require.NoError(t, err)
	require.NotNil(t, exp)
	assert.True(t, exp.Equal(at))
}

func TestSessionExpiryWithoutExpClaim(t *testing.T) {
	token := fakeToken(t, map[string]any{"sub": "1"})
	exp, err := SessionExpiry(token)
	require.NoError(t, err)
	assert.Nil(t, exp)
}

func TestSessionExpiryRejectsOpaqueValues(t *testing.T) {
	_, err := SessionExpiry("sess=0123456789abcdef")
	assert.ErrorIs(t, err, ErrNotAToken)

	_, err = SessionExpiry("")
	assert.ErrorIs(t, err, ErrNotAToken)
}

func TestSessionExpired(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	past := fakeToken(t, map[string]any{"exp": now.Add(-time.Hour).Unix()})
	assert.True(t, SessionExpired(past, now))

	future := fakeToken(t, map[string]any{"exp": now.Add(time.Hour).Unix()})
	assert.False(t, SessionExpired(future, now))

	// unreadable or expiry-less material never counts as expired
	assert.False(t, SessionExpired("sess=0123456789abcdef", now))
	assert.False(t, SessionExpired(fakeToken(t, map[string]any{"sub": "1"}), now))
}
