package visitorid

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// TokenLength is the number of random bytes behind a visitor token.
const TokenLength = 16

const separator = "."

// Codec issues, signs and verifies visitor identifiers carried in a cookie.
// The cookie value is "<token>.<base64 HMAC-SHA256(secret, token)>".
type Codec struct {
	secret []byte
}

// New returns a codec bound to secret. The secret is copied.
func New(secret []byte) *Codec {
	s := make([]byte, len(secret))
	copy(s, secret)
	return &Codec{secret: s}
}

// Issue draws a fresh hex-encoded visitor token. The token is unsigned.
func (c *Codec) Issue() string {
	b := make([]byte, TokenLength)
	if _, err := rand.Read(b); err != nil {
		panic("visitorid: crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// Sign returns the cookie value for token.
func (c *Codec) Sign(token string) string {
	return token + separator + c.signature(token)
}

// Verify returns the token carried by value if its signature matches.
// Anything else, including legacy unsigned values, reports ok == false.
func (c *Codec) Verify(value string) (string, bool) {
	parts := strings.Split(value, separator)
	if len(parts) != 2 {
		return "", false
	}
	token, sig := parts[0], parts[1]
	if !hmac.Equal([]byte(sig), []byte(c.signature(token))) {
		return "", false
	}
	return token, true
}

func (c *Codec) signature(token string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(token))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
