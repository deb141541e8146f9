package crypto

import (
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"time"

	"github.com/gorilla/securecookie"
)

// MinSecretLength is the shortest cookie secret accepted.
const MinSecretLength = 32

var ErrShortSecret = errors.New("cookie secret must be at least 32 characters")

// CookieKeys derives the HMAC and AES keys for securecookie from a
// single configured secret. The two keys never share material.
func CookieKeys(secret string) (hashKey, blockKey []byte, err error) {
	if len(secret) < MinSecretLength {
		return nil, nil, ErrShortSecret
	}

	h := sha512.Sum512([]byte("qrguard-cookie-hash:" + secret))
	b := sha256.Sum256([]byte("qrguard-cookie-block:" + secret))
	return h[:], b[:], nil
}

// NewCookieCodec returns an authenticated, encrypted cookie codec
// whose values expire after maxAge.
func NewCookieCodec(secret string, maxAge time.Duration) (*securecookie.SecureCookie, error) {
	hashKey, blockKey, err := CookieKeys(secret)
	if err != nil {
		return nil, err
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(int(maxAge.Seconds()))
	return codec, nil
}
