package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"textbridge/internal/logger"
)

// Service posts completion messages to the mailer endpoint. Delivery is
// fire-and-forget from the pipeline's point of view.
type Service struct {
	endpoint string
	secret   string
	httpc    *http.Client
	log      *logger.Logger
}

func New(endpoint, secret string) *Service {
	return &Service{endpoint: endpoint, secret: secret, httpc: &http.Client{Timeout: 10 * time.Second}, log: logger.New("Notify")}
}

type message struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

// SendCompletion notifies the captured addresses that the write finished.
func (s *Service) SendCompletion(ctx context.Context, addrs []string, subject, body string) error {
	if s.endpoint == "" || len(addrs) == 0 {
		s.log.LogDebugf("notification skipped (endpoint or addresses empty)")
		return nil
	}
	payload, err := json.Marshal(message{To: addrs, Subject: subject, Body: body})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.secret != "" {
		timestamp := strconv.FormatInt(time.Now().Unix(), 10)
		req.Header.Set("X-System-Timestamp", timestamp)
		req.Header.Set("X-System-Signature", s.sign(timestamp, payload))
	}
	resp, err := s.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mailer returned status %d", resp.StatusCode)
	}
	s.log.LogInfof("sent completion notice to %d recipients", len(addrs))
	return nil
}

func (s *Service) sign(timestamp string, payload []byte) string {
	h := hmac.New(sha256.New, []byte(s.secret))
	h.Write([]byte(timestamp + string(payload)))
	return hex.EncodeToString(h.Sum(nil))
}
