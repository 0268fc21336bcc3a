// Package telegram is the chat bot: a small Bot API client, the command
// router and the update poller that also feeds channel signals to the
// processor.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kjannette/signalforge-backend/internal/httputil"
)

const (
	DefaultAPIURL = "https://api.telegram.org"
	callTimeout   = 15 * time.Second
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retry      httputil.RetryConfig
}

func NewClient(token, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		// deadlines come from the per-call context; getUpdates long-polls
		httpClient: &http.Client{},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    10 * time.Second,
		},
	}
}

// call POSTs params as JSON to the named method and decodes result into out.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", method, err)
	}
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)

	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	var envelope struct {
		apiResponse
		Result json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("telegram %s: decode (HTTP %d): %w", method, resp.StatusCode, err)
	}
	if !envelope.OK {
		return fmt.Errorf("telegram %s: %d %s", method, envelope.ErrorCode, envelope.Description)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("telegram %s: decode result: %w", method, err)
		}
	}
	return nil
}

// GetUpdates long-polls for up to timeout seconds.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second+callTimeout)
	defer cancel()

	params := map[string]any{
		"offset":          offset,
		"timeout":         timeout,
		"allowed_updates": []string{"message", "channel_post", "callback_query"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage posts plain text. It satisfies notifications.ChatPoster.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return c.call(ctx, "sendMessage", map[string]any{
		"chat_id": chatID,
		"text":    text,
	}, nil)
}

// SendReply posts an HTML formatted reply with an optional inline keyboard.
func (c *Client) SendReply(ctx context.Context, chatID string, r Reply) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	params := replyParams(r)
	params["chat_id"] = chatID
	return c.call(ctx, "sendMessage", params, nil)
}

// EditReply replaces the text of a message the bot sent earlier.
func (c *Client) EditReply(ctx context.Context, chatID string, messageID int64, r Reply) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	params := replyParams(r)
	params["chat_id"] = chatID
	params["message_id"] = messageID
	return c.call(ctx, "editMessageText", params, nil)
}

func (c *Client) AnswerCallbackQuery(ctx context.Context, id, text string) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	params := map[string]any{"callback_query_id": id}
	if text != "" {
		params["text"] = text
	}
	return c.call(ctx, "answerCallbackQuery", params, nil)
}

func replyParams(r Reply) map[string]any {
	params := map[string]any{
		"text":                     r.Text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	if len(r.Keyboard) > 0 {
		params["reply_markup"] = inlineKeyboardMarkup{InlineKeyboard: r.Keyboard}
	}
	return params
}
