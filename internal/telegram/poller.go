package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kjannette/signalforge-backend/internal/bot"
)

const (
	DefaultPollTimeout = 25
	maxPollBackoff     = 30 * time.Second
)

// SignalHandler consumes the text of a signal channel post.
type SignalHandler interface {
	Handle(ctx context.Context, text string) bot.SignalResult
}

// Poller long-polls getUpdates. Posts from the signal channel go to the
// processor; commands and button presses go to the router.
type Poller struct {
	client    *Client
	router    *Router
	signals   SignalHandler
	channel   string
	adminChat string
	timeout   int
	offset    int64
}

// NewPoller builds a poller. When adminChat is set, commands from any other
// chat are ignored.
func NewPoller(client *Client, router *Router, signals SignalHandler, channel, adminChat string, timeoutSecs int) *Poller {
	if timeoutSecs <= 0 {
		timeoutSecs = DefaultPollTimeout
	}
	return &Poller{
		client:    client,
		router:    router,
		signals:   signals,
		channel:   channel,
		adminChat: adminChat,
		timeout:   timeoutSecs,
	}
}

// Run polls until ctx is cancelled. Poll failures back off exponentially.
func (p *Poller) Run(ctx context.Context) {
	fmt.Printf("[TELEGRAM] Polling for updates (channel %q)\n", p.channel)
	backoff := time.Second

	for {
		updates, err := p.client.GetUpdates(ctx, p.offset, p.timeout)
		if ctx.Err() != nil {
			fmt.Println("[TELEGRAM] Poller stopped")
			return
		}
		if err != nil {
			fmt.Printf("[TELEGRAM] getUpdates failed: %v, retrying in %s\n", err, backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxPollBackoff)
			continue
		}
		backoff = time.Second

		for _, u := range updates {
			p.offset = u.UpdateID + 1
			p.Dispatch(ctx, u)
		}
	}
}

// Dispatch routes a single update.
func (p *Poller) Dispatch(ctx context.Context, u Update) {
	switch {
	case u.CallbackQuery != nil:
		p.callback(ctx, u.CallbackQuery)
	case u.ChannelPost != nil:
		if p.isSignalChat(u.ChannelPost.Chat) {
			p.signals.Handle(ctx, u.ChannelPost.Body())
		}
	case u.Message != nil:
		m := u.Message
		if p.isSignalChat(m.Chat) {
			p.signals.Handle(ctx, m.Body())
			return
		}
		if strings.HasPrefix(m.Text, "/") {
			p.command(ctx, m)
		}
	}
}

func (p *Poller) command(ctx context.Context, m *Message) {
	if !p.isAdmin(m.Chat) {
		fmt.Printf("[TELEGRAM] Ignoring command from chat %d\n", m.Chat.ID)
		return
	}
	replies, ok := p.router.Command(ctx, m.Text)
	if !ok {
		return
	}
	chatID := strconv.FormatInt(m.Chat.ID, 10)
	for _, r := range replies {
		if err := p.client.SendReply(ctx, chatID, r); err != nil {
			fmt.Printf("[TELEGRAM] Reply failed: %v\n", err)
		}
	}
}

func (p *Poller) callback(ctx context.Context, cq *CallbackQuery) {
	if cq.Message == nil || !p.isAdmin(cq.Message.Chat) {
		p.answer(ctx, cq.ID, "")
		return
	}

	reply, edit, ok := p.router.Callback(ctx, cq.Data)
	if !ok {
		p.answer(ctx, cq.ID, "Unknown command")
		return
	}
	p.answer(ctx, cq.ID, "")

	chatID := strconv.FormatInt(cq.Message.Chat.ID, 10)
	var err error
	if edit {
		err = p.client.EditReply(ctx, chatID, cq.Message.MessageID, reply)
	} else {
		err = p.client.SendReply(ctx, chatID, reply)
	}
	if err != nil {
		fmt.Printf("[TELEGRAM] Callback reply failed: %v\n", err)
	}
}

func (p *Poller) answer(ctx context.Context, id, text string) {
	if err := p.client.AnswerCallbackQuery(ctx, id, text); err != nil {
		fmt.Printf("[TELEGRAM] answerCallbackQuery failed: %v\n", err)
	}
}

// isSignalChat matches "@username", "username" or a numeric chat id.
func (p *Poller) isSignalChat(c Chat) bool {
	if p.channel == "" {
		return false
	}
	if id, err := strconv.ParseInt(p.channel, 10, 64); err == nil {
		return c.ID == id
	}
	return c.Username != "" && strings.EqualFold(c.Username, strings.TrimPrefix(p.channel, "@"))
}

func (p *Poller) isAdmin(c Chat) bool {
	return p.adminChat == "" || strconv.FormatInt(c.ID, 10) == p.adminChat
}
