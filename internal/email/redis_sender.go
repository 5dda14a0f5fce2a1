package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/KHABI-TEQ/console-admin/internal/config"
)

// RedisSender implements the Sender interface by storing emails in Redis.
// Used under MOCK_SERVICES so integration tests can fetch what would have
// been sent via the service API.
type RedisSender struct {
	client *redis.Client
	cfg    *config.Config
}

// NewRedisSender creates a new RedisSender.
func NewRedisSender(client *redis.Client, cfg *config.Config) Sender {
	return &RedisSender{
		client: client,
		cfg:    cfg,
	}
}

// classifyNotification maps a subject line to the notification kind used in
// the mock-email Redis key. Heuristic, matched on the subjects the task
// processor composes.
func classifyNotification(subject string) string {
	switch {
	case strings.Contains(subject, "Inspection Request Approved"):
		return "inspection_approved"
	case strings.Contains(subject, "Inspection Request Rejected"):
		return "inspection_rejected"
	case strings.Contains(subject, "Awaiting Review"):
		return "pending_reminder"
	case strings.Contains(subject, "Brief Approved"):
		return "property_approved"
	case strings.Contains(subject, "Brief Rejected"):
		return "property_rejected"
	}
	return "unknown"
}

// Send stores a representation of the email in Redis instead of delivering it.
func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	kind := classifyNotification(subject)

	primaryTo := ""
	if len(to) > 0 {
		primaryTo = to[0]
	}

	emailData := map[string]interface{}{
		"to":      strings.Join(to, ", "),
		"from":    s.cfg.SmtpFromAddress,
		"subject": subject,
		"body":    string(rawMessage),
		"sent_at": time.Now().UTC().Format(time.RFC3339Nano),
		"kind":    kind,
	}

	jsonData, err := json.Marshal(emailData)
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	key := fmt.Sprintf("mockemail:%s:%s", primaryTo, kind)
	ttl := 5 * time.Minute

	if err := s.client.Set(ctx, key, jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
	}

	log.Printf("Mock email stored in Redis key '%s' (TTL: %v, To: %s, Subject: %s)", key, ttl, strings.Join(to, ", "), subject)
	return nil
}
