// Package call folds the event stream of a voice call into a transcript and
// hands the finished transcript to the report flow.
package call

import (
	"context"
	"errors"
	"sync"
)

// Kind enumerates voice call events.
type Kind int

const (
	KindStarted Kind = iota + 1
	KindEnded
	KindTranscriptPartial
	KindTranscriptFinal
)

func (k Kind) String() string {
	switch k {
	case KindStarted:
		return "started"
	case KindEnded:
		return "ended"
	case KindTranscriptPartial:
		return "transcript_partial"
	case KindTranscriptFinal:
		return "transcript_final"
	default:
		return "unknown"
	}
}

// Event is one notification from the voice agent. Role and Text are only
// set on transcript events.
type Event struct {
	Kind Kind
	Role string
	Text string
}

func Started() Event { return Event{Kind: KindStarted} }

func Ended() Event { return Event{Kind: KindEnded} }

func Partial(role, text string) Event {
	return Event{Kind: KindTranscriptPartial, Role: role, Text: text}
}

func Final(role, text string) Event {
	return Event{Kind: KindTranscriptFinal, Role: role, Text: text}
}

// Subscription delivers events in arrival order until it is closed or the
// source runs dry.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

// Source produces the events of one call.
type Source interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

var (
	ErrSourceClosed      = errors.New("call source closed")
	ErrAlreadySubscribed = errors.New("call source already has a subscriber")
)

// ChannelSource is an in-process Source fed by Publish. It supports a
// single subscriber.
type ChannelSource struct {
	events chan Event
	done   chan struct{}

	mu         sync.RWMutex
	finished   bool
	subscribed bool
	stopOnce   sync.Once
}

// NewChannelSource creates a source buffering up to buffer events.
func NewChannelSource(buffer int) *ChannelSource {
	if buffer < 0 {
		buffer = 0
	}
	return &ChannelSource{
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
	}
}

// Subscribe hands out the only subscription of the source.
func (s *ChannelSource) Subscribe(_ context.Context) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribed {
		return nil, ErrAlreadySubscribed
	}
	s.subscribed = true
	return &channelSubscription{src: s}, nil
}

// Publish delivers ev, blocking while the buffer is full.
func (s *ChannelSource) Publish(ctx context.Context, ev Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.finished {
		return ErrSourceClosed
	}

	select {
	case s.events <- ev:
		return nil
	case <-s.done:
		return ErrSourceClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Finish marks the end of the stream. Safe to call more than once.
func (s *ChannelSource) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finished {
		s.finished = true
		close(s.events)
	}
}

func (s *ChannelSource) stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

type channelSubscription struct {
	src *ChannelSource
}

func (c *channelSubscription) Events() <-chan Event {
	return c.src.events
}

func (c *channelSubscription) Close() error {
	c.src.stop()
	return nil
}
