package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kjannette/signalforge-backend/internal/status"
)

const (
	DefaultPushInterval = 5 * time.Second
	snapshotTimeout     = 10 * time.Second
)

// SnapshotSource is satisfied by status.Reporter.
type SnapshotSource interface {
	Snapshot(ctx context.Context) status.Snapshot
}

type Publisher interface {
	Publish(msgType string, data any)
}

type Notifier interface {
	Send(msg string)
}

type StatusSchedulerConfig struct {
	PushInterval   time.Duration // dashboard status_update, e.g. 5*time.Second
	ReportInterval time.Duration // operator report; 0 disables
}

// StatusScheduler pushes status snapshots to the dashboard and, when
// configured, reports a summary line to the operator.
type StatusScheduler struct {
	source    SnapshotSource
	publisher Publisher
	notify    Notifier
	cfg       StatusSchedulerConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewStatusScheduler(source SnapshotSource, publisher Publisher, notify Notifier, cfg StatusSchedulerConfig) *StatusScheduler {
	if cfg.PushInterval <= 0 {
		cfg.PushInterval = DefaultPushInterval
	}
	return &StatusScheduler{
		source:    source,
		publisher: publisher,
		notify:    notify,
		cfg:       cfg,
	}
}

func (s *StatusScheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		fmt.Println("[SCHEDULER] Already running")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	s.loop(stopCh, s.cfg.PushInterval, s.push)
	if s.cfg.ReportInterval > 0 && s.notify != nil {
		s.loop(stopCh, s.cfg.ReportInterval, s.report)
	}

	fmt.Printf("[SCHEDULER] Started (status push every %s", s.cfg.PushInterval)
	if s.cfg.ReportInterval > 0 {
		fmt.Printf(", report every %s", s.cfg.ReportInterval)
	}
	fmt.Println(")")
}

func (s *StatusScheduler) loop(stopCh chan struct{}, every time.Duration, fn func(context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
				fn(ctx)
				cancel()
			}
		}
	}()
}

// Stop waits for in-flight ticks to finish.
func (s *StatusScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	fmt.Println("[SCHEDULER] Stopped")
}

func (s *StatusScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// PushNow publishes a snapshot outside the normal schedule.
func (s *StatusScheduler) PushNow(ctx context.Context) {
	s.push(ctx)
}

func (s *StatusScheduler) push(ctx context.Context) {
	s.publisher.Publish("status_update", s.source.Snapshot(ctx))
}

func (s *StatusScheduler) report(ctx context.Context) {
	s.notify.Send("📊 " + s.source.Snapshot(ctx).Line())
}
