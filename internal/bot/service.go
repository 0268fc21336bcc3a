package bot

import (
	"fmt"
	"time"

	"github.com/kjannette/signalforge-backend/internal/metrics"
)

// Notifier is the operator channel (console, Telegram log chat, webhook).
type Notifier interface {
	Send(msg string)
}

// Publisher pushes events to dashboard subscribers.
type Publisher interface {
	Publish(msgType string, data any)
}

// Service is the control surface shared by the dashboard and the chat bot:
// start/stop and settings.
type Service struct {
	state     *RunState
	settings  *SettingsStore
	notify    Notifier
	publisher Publisher
}

func NewService(state *RunState, settings *SettingsStore, notify Notifier) *Service {
	metrics.SetBotRunning(state.Status() == StatusRunning)
	return &Service{state: state, settings: settings, notify: notify}
}

func (s *Service) SetPublisher(p Publisher) {
	s.publisher = p
}

// Start switches signal monitoring on. Starting a running bot is not an
// error; the returned message says so and nothing is notified.
func (s *Service) Start() string {
	if !s.state.transition(StatusRunning) {
		fmt.Println("[BOT] Already running")
		return "Bot is already running!"
	}
	fmt.Println("[BOT] Monitoring started")
	s.changed(StatusRunning, "🤖 Bot monitoring started! Now listening for signals.")
	return "✅ Bot monitoring started!"
}

func (s *Service) Stop() string {
	if !s.state.transition(StatusStopped) {
		fmt.Println("[BOT] Already stopped")
		return "Bot is already stopped!"
	}
	fmt.Println("[BOT] Monitoring stopped")
	s.changed(StatusStopped, "🛑 Bot monitoring stopped!")
	return "🛑 Bot monitoring stopped!"
}

// Halt stops the bot on behalf of a circuit breaker.
func (s *Service) Halt(reason string) {
	if !s.state.transition(StatusStopped) {
		return
	}
	fmt.Printf("[BOT] Halted: %s\n", reason)
	s.changed(StatusStopped, fmt.Sprintf("🚨 Bot halted: %s", reason))
}

func (s *Service) changed(to Status, msg string) {
	metrics.SetBotRunning(to == StatusRunning)
	if s.publisher != nil {
		s.publisher.Publish("bot_status", map[string]string{"status": string(to)})
	}
	s.notify.Send(msg)
}

func (s *Service) Running() bool {
	return s.state.Status() == StatusRunning
}

func (s *Service) Status() Status {
	return s.state.Status()
}

func (s *Service) StartedAt() time.Time {
	return s.state.StartedAt()
}

func (s *Service) Settings() Settings {
	return s.settings.Get()
}

// UpdateSettings validates and applies p; an invalid patch changes nothing.
// Operators are only notified when a value actually changed.
func (s *Service) UpdateSettings(p SettingsPatch) (Settings, error) {
	next, changed, err := s.settings.apply(p)
	if err != nil {
		return next, err
	}
	if !changed {
		fmt.Println("[BOT] Settings unchanged")
		return next, nil
	}
	s.notify.Send(fmt.Sprintf("⚙️ Settings updated:\nTrade amount: %s SOL\nTarget multiplier: %sx",
		next.TradeAmount, next.TargetMultiplier))
	return next, nil
}
