// Package signals provides synchronous, ordered, interruptible
// publish/subscribe keyed by sender.
//
// Each Signal keeps an independent registry of sender -> receivers.
// Notifying a sender runs its receivers in connection order on the
// caller's goroutine; the first receiver to fail stops the rest and its
// error is returned unchanged.
package signals

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrUnregistered is returned when notifying or disconnecting a sender
// that was never registered with the signal.
var ErrUnregistered = errors.New("signal: sender not registered")

// Receiver handles a notification. The arguments are passed through from
// Notify unchanged.
type Receiver func(ctx context.Context, args ...any) error

// ID identifies a connected receiver.
type ID uuid.UUID

// String returns the canonical UUID form.
func (id ID) String() string { return uuid.UUID(id).String() }

type connection struct {
	id ID
	fn Receiver
}

// Signal is one signal kind. Senders must be comparable values, typically
// pointers.
type Signal struct {
	name string

	mu        sync.RWMutex
	receivers map[any][]connection
	logger    zerolog.Logger
}

// New creates a signal with no registered senders.
func New(name string) *Signal {
	return &Signal{
		name:      name,
		receivers: make(map[any][]connection),
		logger:    zerolog.Nop(),
	}
}

// Name returns the signal name.
func (s *Signal) Name() string { return s.name }

// SetLogger sets the logger used for dispatch tracing.
func (s *Signal) SetLogger(logger zerolog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// Register creates an empty receiver list for sender. Registering an
// already registered sender keeps its receivers.
func (s *Signal) Register(sender any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.receivers[sender]; !ok {
		s.receivers[sender] = nil
	}
}

// Connect appends a receiver for sender, registering the sender if
// needed. The returned ID disconnects it.
func (s *Signal) Connect(sender any, fn Receiver) ID {
	id := ID(uuid.New())

	s.mu.Lock()
	defer s.mu.Unlock()

	s.receivers[sender] = append(s.receivers[sender], connection{id: id, fn: fn})
	return id
}

// Notify calls every receiver of sender in connection order. It returns
// ErrUnregistered if sender was never registered, or the first receiver
// error as is.
func (s *Signal) Notify(ctx context.Context, sender any, args ...any) error {
	s.mu.RLock()
	conns, ok := s.receivers[sender]
	conns = append([]connection(nil), conns...)
	logger := s.logger
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s for %v", ErrUnregistered, s.name, sender)
	}

	logger.Debug().
		Str("signal", s.name).
		Str("sender", fmt.Sprint(sender)).
		Int("receivers", len(conns)).
		Msg("signal dispatched")

	for _, c := range conns {
		if err := c.fn(ctx, args...); err != nil {
			logger.Debug().
				Err(err).
				Str("signal", s.name).
				Str("receiver", c.id.String()).
				Msg("signal receiver aborted")
			return err
		}
	}

	return nil
}

// Disconnect removes the receiver with the given ID. It returns
// ErrUnregistered if sender was never registered; an unknown ID is
// ignored.
func (s *Signal) Disconnect(sender any, id ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conns, ok := s.receivers[sender]
	if !ok {
		return fmt.Errorf("%w: %s for %v", ErrUnregistered, s.name, sender)
	}

	for i, c := range conns {
		if c.id == id {
			s.receivers[sender] = append(conns[:i:i], conns[i+1:]...)
			break
		}
	}
	return nil
}

// Registered reports whether sender has an entry.
func (s *Signal) Registered(sender any) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.receivers[sender]
	return ok
}

// Receivers returns the number of receivers connected for sender.
func (s *Signal) Receivers(sender any) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.receivers[sender])
}

// Unregister drops sender and all its receivers.
func (s *Signal) Unregister(sender any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.receivers, sender)
}

// Reset drops every sender.
func (s *Signal) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receivers = make(map[any][]connection)
}
