// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

// Package events fans decode notifications out to subscribed listeners.
package events

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/MultiTechSystems/protocoler/schema"
)

var (
	ErrUnknownEvent = errors.New("events: event kind not registered")
	ErrNilListener  = errors.New("events: listener is nil")
)

// Listener handles one event.
type Listener func(schema.Event)

type subscription struct {
	id   uuid.UUID
	fn   Listener
	once bool
}

// Emitter is a schema.Sink that dispatches every notification to the listeners
// subscribed to its kind. Listeners run synchronously in subscription order.
type Emitter struct {
	mu        sync.RWMutex
	listeners map[schema.EventKind][]subscription
}

// NewEmitter returns an emitter with the decode event kinds registered.
func NewEmitter() *Emitter {
	e := &Emitter{listeners: make(map[schema.EventKind][]subscription)}
	for _, kind := range []schema.EventKind{schema.EventValue, schema.EventDescription, schema.EventError} {
		e.Register(kind)
	}
	return e
}

// Register makes kind available for subscriptions. Registering twice is a no-op.
func (e *Emitter) Register(kind schema.EventKind) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.listeners[kind]; ok {
		log.Debug().Str("kind", string(kind)).Msg("events: kind already registered")
		return
	}
	e.listeners[kind] = nil
}

// On subscribes fn to kind and returns the subscription ID used by Off.
func (e *Emitter) On(kind schema.EventKind, fn Listener) (uuid.UUID, error) {
	return e.subscribe(kind, fn, false)
}

// Once subscribes fn for the next event of kind only.
func (e *Emitter) Once(kind schema.EventKind, fn Listener) (uuid.UUID, error) {
	return e.subscribe(kind, fn, true)
}

func (e *Emitter) subscribe(kind schema.EventKind, fn Listener, once bool) (uuid.UUID, error) {
	if fn == nil {
		return uuid.Nil, ErrNilListener
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	subs, ok := e.listeners[kind]
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrUnknownEvent, kind)
	}
	id := uuid.New()
	e.listeners[kind] = append(subs, subscription{id: id, fn: fn, once: once})
	return id, nil
}

// Off removes the subscription id from kind and reports whether it existed.
func (e *Emitter) Off(kind schema.EventKind, id uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	subs := e.listeners[kind]
	for i, s := range subs {
		if s.id == id {
			e.listeners[kind] = append(subs[:i:i], subs[i+1:]...)
			return true
		}
	}
	return false
}

// Count returns the number of listeners subscribed to kind.
func (e *Emitter) Count(kind schema.EventKind) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners[kind])
}

// Emit delivers ev to the listeners of ev.Kind. A panicking listener is logged
// and skipped; the rest still run.
func (e *Emitter) Emit(ev schema.Event) error {
	e.mu.Lock()
	subs, ok := e.listeners[ev.Kind]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Kind)
	}
	// Listeners run outside the lock so they may subscribe or unsubscribe.
	run := append([]subscription(nil), subs...)
	kept := subs[:0:0]
	for _, s := range subs {
		if !s.once {
			kept = append(kept, s)
		}
	}
	e.listeners[ev.Kind] = kept
	e.mu.Unlock()

	for _, s := range run {
		e.call(s, ev)
	}
	return nil
}

func (e *Emitter) call(s subscription, ev schema.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().
				Str("kind", string(ev.Kind)).
				Str("listener", s.id.String()).
				Interface("panic", r).
				Msg("events: listener panicked")
		}
	}()
	s.fn(ev)
}

func (e *Emitter) OnValue(name, value string) {
	_ = e.Emit(schema.Event{Kind: schema.EventValue, Name: name, Value: value})
}

func (e *Emitter) OnDescription(description string) {
	_ = e.Emit(schema.Event{Kind: schema.EventDescription, Description: description})
}

func (e *Emitter) OnError(err error, trailing string) {
	_ = e.Emit(schema.Event{Kind: schema.EventError, Err: err, Trailing: trailing})
}

var _ schema.Sink = (*Emitter)(nil)
