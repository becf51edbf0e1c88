package misc

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignSHA256 returns the hex HMAC-SHA256 of value under key.
func SignSHA256(value []byte, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(value)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySHA256 reports whether sig is the signature of value under key.
func VerifySHA256(value []byte, key, sig string) bool {
	want, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(value)
	return hmac.Equal(mac.Sum(nil), want)
}
