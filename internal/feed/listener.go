package feed

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Listener is a two-state machine: unsubscribed (initial) and
// subscribed. Start moves it to subscribed when an identity becomes
// available; Stop moves it back and is unconditional on every exit
// path so a live subscription is never leaked.
//
// While subscribed, every event unconditionally triggers a full board
// resync. Events are handled one at a time off the source channel, so
// at most one resync fetch is outstanding per listener. The feed does
// not carry event origin, so the client's own writes echo back and
// resync too; that breadth is intentional.
type Listener struct {
	logger   zerolog.Logger
	source   Source
	board    Resyncer
	notifier Notifier

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewListener(
	logger zerolog.Logger,
	source Source,
	board Resyncer,
	notifier Notifier,
) *Listener {
	return &Listener{
		logger:   logger,
		source:   source,
		board:    board,
		notifier: notifier,
	}
}

// Start subscribes. Calling Start on an already subscribed listener is
// a no-op.
func (l *Listener) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})

	go l.run(runCtx, l.done)
	l.logger.Info().Msg("change feed listener subscribed")
}

// Stop unsubscribes and waits until no more events are being handled.
// Safe to call repeatedly and on a listener that never started.
func (l *Listener) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	l.logger.Info().Msg("change feed listener unsubscribed")
}

func (l *Listener) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	backoff := initialBackoff
	for {
		events, err := l.source.Subscribe(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.logger.Error().
				Err(err).
				Dur("retry_in", backoff).
				Msg("change feed subscription failed")
			if !sleep(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = initialBackoff

		for event := range events {
			l.handle(ctx, event)
		}
		if ctx.Err() != nil {
			return
		}
		l.logger.Warn().Msg("change feed disconnected, resubscribing")
	}
}

func (l *Listener) handle(ctx context.Context, event Event) {
	if ctx.Err() != nil {
		return
	}

	l.notifier.Notify(event.Kind)

	err := l.board.Resync(ctx)
	if err != nil {
		l.logger.Error().
			Err(err).
			Str("event", string(event.Kind)).
			Msg("failed to resync after feed event")
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
