package libapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"textbridge/internal/platform/secrets"
)

func TestTokenAt(t *testing.T) {
	c := secrets.Credentials{Key: "k123", Secret: "s456"}
	now := time.Unix(1700000000, 0)

	tok := tokenAt(c, "translation-bot", now)
	parts := strings.Split(tok, "_")
	if len(parts) != 4 {
		t.Fatalf("token %q has %d segments, want 4", tok, len(parts))
	}
	if parts[0] != "k123" || parts[1] != "1700000000" || parts[3] != "translation-bot" {
		t.Errorf("token segments = %v", parts)
	}

	h := hmac.New(sha256.New, []byte("s456"))
	h.Write([]byte("k123" + "1700000000" + "=" + "translation-bot"))
	if want := hex.EncodeToString(h.Sum(nil)); parts[2] != want {
		t.Errorf("token hash = %s, want %s", parts[2], want)
	}

	if again := tokenAt(c, "translation-bot", now.Add(time.Second)); again == tok {
		t.Error("tokens at different epochs should differ")
	}
}
