package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kjannette/signalforge-backend/internal/httputil"
)

const defaultBotName = "SignalForge"

// ChatPoster delivers operator messages to a chat (the Telegram log chat).
type ChatPoster interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// Publisher pushes events to dashboard subscribers.
type Publisher interface {
	Publish(msgType string, data any)
}

type Sender struct {
	webhookURL string
	botName    string
	httpClient *http.Client
	retry      httputil.RetryConfig

	chat      ChatPoster
	chatID    string
	publisher Publisher
}

func NewSender(webhookURL, botName string) *Sender {
	if botName == "" {
		botName = defaultBotName
	}
	return &Sender{
		webhookURL: webhookURL,
		botName:    botName,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    5 * time.Second,
		},
	}
}

// WithChat forwards every notification to chatID through poster.
func (s *Sender) WithChat(poster ChatPoster, chatID string) *Sender {
	if poster != nil && chatID != "" {
		s.chat = poster
		s.chatID = chatID
	}
	return s
}

func (s *Sender) WithPublisher(p Publisher) *Sender {
	s.publisher = p
	return s
}

// Send logs msg and fans it out to every configured target. Delivery
// failures are logged and never returned.
func (s *Sender) Send(msg string) {
	formatted := fmt.Sprintf("[%s] %s", s.botName, msg)
	fmt.Printf("[%s] %s\n", time.Now().UTC().Format(time.RFC3339), formatted)

	if s.publisher != nil {
		s.publisher.Publish("notification", map[string]string{"message": msg})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.chat != nil {
		if err := s.chat.SendMessage(ctx, s.chatID, msg); err != nil {
			fmt.Printf("[CHAT ERROR] Telegram delivery failed: %v\n", err)
		}
	}

	if s.webhookURL != "" {
		s.postWebhook(ctx, formatted)
	}
}

func (s *Sender) postWebhook(ctx context.Context, formatted string) {
	body, err := json.Marshal(s.formatPayload(formatted))
	if err != nil {
		fmt.Printf("[CHAT ERROR] marshal: %v\n", err)
		return
	}

	resp, err := httputil.Do(ctx, s.httpClient, s.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		fmt.Printf("[CHAT ERROR] Failed to send notification after retries: %v\n", err)
		return
	}
	resp.Body.Close()
}

func (s *Sender) formatPayload(msg string) map[string]string {
	if strings.Contains(s.webhookURL, "discord") {
		return map[string]string{
			"content":  msg,
			"username": s.botName,
		}
	}
	return map[string]string{
		"text":     fmt.Sprintf("`%s`", msg),
		"username": s.botName,
	}
}

func (s *Sender) Enabled() bool {
	return s.webhookURL != "" || s.chat != nil
}
