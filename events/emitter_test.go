// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package events

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MultiTechSystems/protocoler/internal/testutil/testlog"
	"github.com/MultiTechSystems/protocoler/schema"
)

func TestEmitterUnregisteredKind(t *testing.T) {
	testlog.Start(t)
	e := NewEmitter()

	_, err := e.On("custom", func(schema.Event) {})
	assert.ErrorIs(t, err, ErrUnknownEvent)
	_, err = e.Once("custom", func(schema.Event) {})
	assert.ErrorIs(t, err, ErrUnknownEvent)
	assert.False(t, e.Off("custom", uuid.New()))
	assert.ErrorIs(t, e.Emit(schema.Event{Kind: "custom"}), ErrUnknownEvent)

	e.Register("custom")
	e.Register("custom")
	_, err = e.On("custom", func(schema.Event) {})
	require.NoError(t, err)
	assert.Equal(t, 1, e.Count("custom"))
}

func TestEmitterNilListener(t *testing.T) {
	testlog.Start(t)
	e := NewEmitter()

	id, err := e.On(schema.EventValue, nil)
	assert.ErrorIs(t, err, ErrNilListener)
	assert.Equal(t, uuid.Nil, id)
}

func TestEmitterOnOff(t *testing.T) {
	testlog.Start(t)
	e := NewEmitter()

	var got []schema.Event
	id, err := e.On(schema.EventValue, func(ev schema.Event) { got = append(got, ev) })
	require.NoError(t, err)

	e.OnValue("Payload", "1234")
	require.Len(t, got, 1)
	assert.Equal(t, schema.Event{Kind: schema.EventValue, Name: "Payload", Value: "1234"}, got[0])

	assert.True(t, e.Off(schema.EventValue, id))
	assert.False(t, e.Off(schema.EventValue, id))

	// Emitting with no listeners is not an error.
	require.NoError(t, e.Emit(schema.Event{Kind: schema.EventValue}))
	assert.Len(t, got, 1)
}

func TestEmitterOnce(t *testing.T) {
	testlog.Start(t)
	e := NewEmitter()

	calls := 0
	_, err := e.Once(schema.EventDescription, func(schema.Event) { calls++ })
	require.NoError(t, err)

	e.OnDescription("first")
	e.OnDescription("second")
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, e.Count(schema.EventDescription))
}

func TestEmitterListenerOrder(t *testing.T) {
	testlog.Start(t)
	e := NewEmitter()

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		_, err := e.On(schema.EventValue, func(schema.Event) { order = append(order, i) })
		require.NoError(t, err)
	}
	e.OnValue("a", "01")
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestEmitterRecoversPanic(t *testing.T) {
	testlog.Start(t)
	e := NewEmitter()

	_, err := e.On(schema.EventError, func(schema.Event) { panic("boom") })
	require.NoError(t, err)
	var trailing string
	_, err = e.On(schema.EventError, func(ev schema.Event) { trailing = ev.Trailing })
	require.NoError(t, err)

	assert.NotPanics(t, func() { e.OnError(errors.New("x"), "abcd") })
	assert.Equal(t, "abcd", trailing)
}

func TestEmitterListenerMayUnsubscribe(t *testing.T) {
	testlog.Start(t)
	e := NewEmitter()

	var id uuid.UUID
	calls := 0
	id, err := e.On(schema.EventValue, func(schema.Event) {
		calls++
		e.Off(schema.EventValue, id)
	})
	require.NoError(t, err)

	e.OnValue("a", "01")
	e.OnValue("a", "02")
	assert.Equal(t, 1, calls)
}

func TestEmitterAsSink(t *testing.T) {
	testlog.Start(t)
	p, err := schema.ParseProtocol(`{"specList": [
		{"name": "Kind", "size": 1, "values": {"01": {"description": "one"}}},
		{"name": "Body", "size": 1}
	]}`)
	require.NoError(t, err)

	e := NewEmitter()
	var rec schema.Recorder
	for _, kind := range []schema.EventKind{schema.EventValue, schema.EventDescription, schema.EventError} {
		_, err := e.On(kind, func(ev schema.Event) { ev.Deliver(&rec) })
		require.NoError(t, err)
	}

	out := p.Decode("01ff00", e)
	require.True(t, out.OK())
	assert.Equal(t, [][2]string{{"Kind", "01"}, {"Body", "ff"}}, rec.Values())
	require.Len(t, rec.Events, 4)
	assert.Equal(t, "one", rec.Events[1].Description)
	assert.ErrorIs(t, rec.Events[3].Err, schema.ErrTrailingData)
	assert.Equal(t, "00", rec.Events[3].Trailing)
}

func TestEmitterConcurrent(t *testing.T) {
	testlog.Start(t)
	e := NewEmitter()

	var mu sync.Mutex
	total := 0
	_, err := e.On(schema.EventValue, func(schema.Event) {
		mu.Lock()
		total++
		mu.Unlock()
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				e.OnValue("a", "01")
				id, err := e.On(schema.EventDescription, func(schema.Event) {})
				if err == nil {
					e.Off(schema.EventDescription, id)
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, total)
	assert.Equal(t, 0, e.Count(schema.EventDescription))
}
