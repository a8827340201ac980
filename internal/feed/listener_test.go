package feed

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu       sync.Mutex
	channels []chan Event
	failures int
	attempts int
}

func (s *fakeSource) Subscribe(ctx context.Context) (<-chan Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.failures > 0 {
		s.failures--
		return nil, fmt.Errorf("connection refused")
	}

	ch := make(chan Event)
	s.channels = append(s.channels, ch)
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, c := range s.channels {
			if c == ch {
				close(c)
				s.channels = append(s.channels[:i], s.channels[i+1:]...)
				return
			}
		}
	}()
	return ch, nil
}

// emit pushes an event into the most recent live subscription.
func (s *fakeSource) emit(t *testing.T, event Event) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		s.mu.Lock()
		var ch chan Event
		if n := len(s.channels); n > 0 {
			ch = s.channels[n-1]
		}
		s.mu.Unlock()
		if ch != nil {
			select {
			case ch <- event:
				return
			case <-deadline:
				t.Fatal("no consumer on the feed channel")
			}
		}
		select {
		case <-deadline:
			t.Fatal("no live subscription to emit into")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// drop closes the most recent live subscription, simulating a transport
// failure while the context is still live.
func (s *fakeSource) drop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.channels); n > 0 {
		close(s.channels[n-1])
		s.channels = s.channels[:n-1]
	}
}

type fakeBoard struct {
	mu      sync.Mutex
	resyncs int
	err     error
	signal  chan struct{}
}

func newFakeBoard() *fakeBoard {
	return &fakeBoard{signal: make(chan struct{}, 16)}
}

func (b *fakeBoard) Resync(context.Context) error {
	b.mu.Lock()
	b.resyncs++
	err := b.err
	b.mu.Unlock()
	select {
	case b.signal <- struct{}{}:
	default:
	}
	return err
}

func (b *fakeBoard) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resyncs
}

func (b *fakeBoard) waitResync(t *testing.T) {
	t.Helper()
	select {
	case <-b.signal:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a resync")
	}
}

type captureNotifier struct {
	mu    sync.Mutex
	kinds []EventKind
}

func (n *captureNotifier) Notify(kind EventKind) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = append(n.kinds, kind)
}

func (n *captureNotifier) seen() []EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]EventKind, len(n.kinds))
	copy(out, n.kinds)
	return out
}

func TestListenerResyncsOnEveryEvent(t *testing.T) {
	source := &fakeSource{}
	board := newFakeBoard()
	notifier := &captureNotifier{}
	listener := NewListener(zerolog.Nop(), source, board, notifier)

	listener.Start(context.Background())
	defer listener.Stop()

	source.emit(t, Event{Kind: EventInsert})
	board.waitResync(t)
	source.emit(t, Event{Kind: EventUpdate})
	board.waitResync(t)
	source.emit(t, Event{Kind: EventDelete})
	board.waitResync(t)

	assert.Equal(t, 3, board.count())
	assert.Equal(t, []EventKind{EventInsert, EventUpdate, EventDelete}, notifier.seen())
}

func TestListenerSurvivesResyncFailure(t *testing.T) {
	source := &fakeSource{}
	board := newFakeBoard()
	board.err = fmt.Errorf("fetch failed")
	listener := NewListener(zerolog.Nop(), source, board, &captureNotifier{})

	listener.Start(context.Background())
	defer listener.Stop()

	source.emit(t, Event{Kind: EventUpdate})
	board.waitResync(t)
	source.emit(t, Event{Kind: EventUpdate})
	board.waitResync(t)

	assert.Equal(t, 2, board.count())
}

func TestListenerResubscribesAfterDisconnect(t *testing.T) {
	source := &fakeSource{}
	board := newFakeBoard()
	listener := NewListener(zerolog.Nop(), source, board, &captureNotifier{})

	listener.Start(context.Background())
	defer listener.Stop()

	source.emit(t, Event{Kind: EventInsert})
	board.waitResync(t)

	source.drop()

	// The next emit only succeeds once the listener has resubscribed.
	source.emit(t, Event{Kind: EventUpdate})
	board.waitResync(t)

	assert.Equal(t, 2, board.count())
	source.mu.Lock()
	attempts := source.attempts
	source.mu.Unlock()
	assert.GreaterOrEqual(t, attempts, 2)
}

func TestListenerRetriesFailedSubscription(t *testing.T) {
	source := &fakeSource{failures: 1}
	board := newFakeBoard()
	listener := NewListener(zerolog.Nop(), source, board, &captureNotifier{})

	listener.Start(context.Background())
	defer listener.Stop()

	// The first attempt fails; after the backoff the retry succeeds and
	// events flow again.
	source.emit(t, Event{Kind: EventInsert})
	board.waitResync(t)

	require.Equal(t, 1, board.count())
	source.mu.Lock()
	attempts := source.attempts
	source.mu.Unlock()
	assert.Equal(t, 2, attempts)
}

func TestListenerStopEndsHandling(t *testing.T) {
	source := &fakeSource{}
	board := newFakeBoard()
	listener := NewListener(zerolog.Nop(), source, board, &captureNotifier{})

	listener.Start(context.Background())
	source.emit(t, Event{Kind: EventInsert})
	board.waitResync(t)

	listener.Stop()
	before := board.count()

	// No live subscription remains to deliver into.
	source.mu.Lock()
	live := len(source.channels)
	source.mu.Unlock()
	assert.Zero(t, live)
	assert.Equal(t, before, board.count())
}

func TestListenerStopIsIdempotent(t *testing.T) {
	listener := NewListener(zerolog.Nop(), &fakeSource{}, newFakeBoard(), &captureNotifier{})

	listener.Stop()

	listener.Start(context.Background())
	listener.Stop()
	listener.Stop()
}

func TestListenerStartIsIdempotent(t *testing.T) {
	source := &fakeSource{}
	board := newFakeBoard()
	listener := NewListener(zerolog.Nop(), source, board, &captureNotifier{})

	ctx := context.Background()
	listener.Start(ctx)
	listener.Start(ctx)
	defer listener.Stop()

	source.emit(t, Event{Kind: EventInsert})
	board.waitResync(t)

	source.mu.Lock()
	live := len(source.channels)
	source.mu.Unlock()
	assert.Equal(t, 1, live, "a second Start must not open a second subscription")
}
