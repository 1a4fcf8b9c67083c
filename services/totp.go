// ABOUTME: Steam Guard mobile authenticator code generation
// ABOUTME: Time-based codes derived from the account's shared secret

package services

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

const (
	authCodeStep     = 30 * time.Second
	authCodeLength   = 5
	authCodeAlphabet = "23456789BCDFGHJKMNPQRTVWXY"
)

// GenerateAuthCode returns the two-factor code valid at t for the given
// base64 shared secret. Codes change every 30 seconds, so callers must
// generate one at the moment it is sent.
func GenerateAuthCode(sharedSecret string, t time.Time) (string, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(sharedSecret))
	if err != nil {
		return "", fmt.Errorf("decode shared secret: %w", err)
	}

	var counter [8]byte
	binary.BigEndian.PutUint64(counter[:], uint64(t.Unix()/int64(authCodeStep/time.Second)))

	mac := hmac.New(sha1.New, key)
	mac.Write(counter[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	full := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	var code strings.Builder
	for i := 0; i < authCodeLength; i++ {
		code.WriteByte(authCodeAlphabet[full%uint32(len(authCodeAlphabet))])
		full /= uint32(len(authCodeAlphabet))
	}
	return code.String(), nil
}
