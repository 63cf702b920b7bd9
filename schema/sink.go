// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

// Sink receives decode events in the order they happen.
// OnError is called at most once per decode, either for a failure or for trailing
// data after a successful decode. trailing is "" when no digits were left.
type Sink interface {
	OnValue(name, value string)
	OnDescription(description string)
	OnError(err error, trailing string)
}

// EventKind identifies the notification carried by an Event.
type EventKind string

const (
	EventValue       EventKind = "value"
	EventDescription EventKind = "description"
	EventError       EventKind = "error"
)

// Event is a recorded Sink notification.
type Event struct {
	Kind        EventKind `json:"kind"`
	Name        string    `json:"name,omitempty"`
	Value       string    `json:"value,omitempty"`
	Description string    `json:"description,omitempty"`
	Err         error     `json:"-"`
	Trailing    string    `json:"trailing,omitempty"`
}

// Deliver replays e on s.
func (e Event) Deliver(s Sink) {
	switch e.Kind {
	case EventValue:
		s.OnValue(e.Name, e.Value)
	case EventDescription:
		s.OnDescription(e.Description)
	case EventError:
		s.OnError(e.Err, e.Trailing)
	}
}

// Recorder is a Sink that keeps every event. It is not safe for concurrent use;
// give each decode its own Recorder.
type Recorder struct {
	Events []Event
}

func (r *Recorder) OnValue(name, value string) {
	r.Events = append(r.Events, Event{Kind: EventValue, Name: name, Value: value})
}

func (r *Recorder) OnDescription(description string) {
	r.Events = append(r.Events, Event{Kind: EventDescription, Description: description})
}

func (r *Recorder) OnError(err error, trailing string) {
	r.Events = append(r.Events, Event{Kind: EventError, Err: err, Trailing: trailing})
}

// Values returns the recorded value events as name/value pairs.
func (r *Recorder) Values() [][2]string {
	var out [][2]string
	for _, e := range r.Events {
		if e.Kind == EventValue {
			out = append(out, [2]string{e.Name, e.Value})
		}
	}
	return out
}

// Errors returns the errors passed to OnError.
func (r *Recorder) Errors() []error {
	var out []error
	for _, e := range r.Events {
		if e.Kind == EventError {
			out = append(out, e.Err)
		}
	}
	return out
}

// SinkFuncs adapts plain functions to a Sink. Nil functions are skipped.
type SinkFuncs struct {
	Value       func(name, value string)
	Description func(description string)
	Error       func(err error, trailing string)
}

func (f SinkFuncs) OnValue(name, value string) {
	if f.Value != nil {
		f.Value(name, value)
	}
}

func (f SinkFuncs) OnDescription(description string) {
	if f.Description != nil {
		f.Description(description)
	}
}

func (f SinkFuncs) OnError(err error, trailing string) {
	if f.Error != nil {
		f.Error(err, trailing)
	}
}

type discard struct{}

func (discard) OnValue(string, string) {}
func (discard) OnDescription(string) {}
func (discard) OnError(error, string) {}

// Discard is a Sink that drops every event.
var Discard Sink = discard{}
