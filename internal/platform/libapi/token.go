package libapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"textbridge/internal/platform/secrets"
)

// Token computes a short-lived signed authentication token for one API
// call: HMAC-SHA256 over key + epoch + "=" + bot identity, keyed by the
// library secret. Tokens are generated per request and never cached.
func Token(c secrets.Credentials, user string) string {
	return tokenAt(c, user, time.Now())
}

func tokenAt(c secrets.Credentials, user string, now time.Time) string {
	epoch := fmt.Sprintf("%d", now.Unix())
	h := hmac.New(sha256.New, []byte(c.Secret))
	h.Write([]byte(c.Key + epoch + "=" + user))
	hash := hex.EncodeToString(h.Sum(nil))
	return fmt.Sprintf("%s_%s_%s_%s", c.Key, epoch, hash, user)
}
