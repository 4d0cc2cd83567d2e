package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifyBearer(t *testing.T) {
	p := NewProvider("secret", false)
	token, err := p.Sign(42, true, time.Hour)
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	a, err := p.Identify(r)
	require.NoError(t, err)
	assert.True(t, a.Authenticated)
	assert.True(t, a.Staff)
	assert.Equal(t, int64(42), a.UserID)
	assert.Equal(t, "user:42", a.ID)
}

func TestIdentifyAnonymous(t *testing.T) {
	p := NewProvider("secret", false)
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.7:5555"
	r.Header.Set("X-Forwarded-For", "203.0.113.9")

	a, err := p.Identify(r)
	require.NoError(t, err)
	assert.False(t, a.Authenticated)
	assert.Equal(t, "ip:192.0.2.7", a.ID)

	trusted := NewProvider("secret", true)
	a, err = trusted.Identify(r)
	require.NoError(t, err)
	assert.Equal(t, "ip:203.0.113.9", a.ID)
}

func TestIdentifyUnresolvableAddress(t *testing.T) {
	p := NewProvider("secret", false)
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = ""

	a, err := p.Identify(r)
	require.NoError(t, err)
	assert.Empty(t, a.ID)
}

func TestIdentifyRejectsBadTokens(t *testing.T) {
	p := NewProvider("secret", false)
	other := NewProvider("other", false)
	foreign, _ := other.Sign(1, false, time.Hour)
	expired, _ := p.Sign(1, false, -time.Minute)

	for name, header := range map[string]string{
		"garbage":   "Bearer nope",
		"scheme":    "Basic abc",
		"signature": "Bearer " + foreign,
	} {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.Header.Set("Authorization", header)
			_, err := p.Identify(r)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+expired)
	_, err := p.Identify(r)
	assert.ErrorIs(t, err, ErrExpiredToken)
}
