package crypto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "a-very-long-guest-cookie-secret-value-0123"

func TestCookieCodecRoundTrip(t *testing.T) {
	codec, err := NewCookieCodec(testSecret, time.Hour)
	require.NoError(t, err)

	encoded, err := codec.Encode("guest_id", "7b0c1f6e-5a1d-4c2b-9b51-0d6f7e8a9b10")
	require.NoError(t, err)
	assert.NotContains(t, encoded, "7b0c1f6e")

	var decoded string
	require.NoError(t, codec.Decode("guest_id", encoded, &decoded))
	assert.Equal(t, "7b0c1f6e-5a1d-4c2b-9b51-0d6f7e8a9b10", decoded)
}

func TestCookieCodecRejectsForeignSecret(t *testing.T) {
	a, err := NewCookieCodec(testSecret, time.Hour)
	require.NoError(t, err)
	b, err := NewCookieCodec(testSecret+"-other", time.Hour)
	require.NoError(t, err)

	encoded, err := a.Encode("guest_id", "guest")
	require.NoError(t, err)

	var decoded string
	assert.Error(t, b.Decode("guest_id", encoded, &decoded))
}

func TestCookieCodecBindsName(t *testing.T) {
	codec, err := NewCookieCodec(testSecret, time.Hour)
	require.NoError(t, err)

	encoded, err := codec.Encode("guest_id", "guest")
	require.NoError(t, err)

	var decoded string
	assert.Error(t, codec.Decode("session", encoded, &decoded))
}

func TestCookieKeys(t *testing.T) {
	_, _, err := CookieKeys("short")
	assert.ErrorIs(t, err, ErrShortSecret)

	hashKey, blockKey, err := CookieKeys(testSecret)
	require.NoError(t, err)
	assert.Len(t, hashKey, 64)
	assert.Len(t, blockKey, 32)
	assert.NotEqual(t, hashKey[:32], blockKey)
}
