// Package connectivity watches the host network and reports connected/disconnected
// transitions as events.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/bilgisen/newsfeed/internal/logger"
)

// Status is one connectivity observation.
type Status struct {
	Connected bool
	At        time.Time
}

// Monitor polls a Checker and emits a Status whenever the result changes.
// The first observation is always emitted.
type Monitor struct {
	checker  Checker
	interval time.Duration
	events   chan Status

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

func NewMonitor(checker Checker, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Monitor{
		checker:  checker,
		interval: interval,
		events:   make(chan Status, 8),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Events delivers connectivity changes. It is closed after Stop.
func (m *Monitor) Events() <-chan Status {
	return m.events
}

// Start begins polling until ctx is done or Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		go m.run(ctx)
	})
}

// Stop unregisters the monitor and waits for the poll loop to exit.
// It is safe to call more than once, and before Start.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	// A monitor that never started has no loop to close its channels.
	m.startOnce.Do(func() {
		close(m.events)
		close(m.done)
	})
	<-m.done
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)
	defer close(m.events)

	log := logger.Component("connectivity")
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	var last *bool
	check := func() bool {
		connected := m.checker.Connected(ctx)
		if last != nil && *last == connected {
			return true
		}
		last = &connected
		log.Info().Bool("connected", connected).Msg("Connectivity changed")

		select {
		case m.events <- Status{Connected: connected, At: time.Now()}:
			return true
		case <-ctx.Done():
			return false
		case <-m.stop:
			return false
		}
	}

	if !check() {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-ticker.C:
			if !check() {
				return
			}
		}
	}
}
