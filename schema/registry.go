// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// Registry holds validated protocols by name and lets them be replaced while
// other goroutines decode with them.
type Registry struct {
	mu        sync.RWMutex
	protocols map[string]*Protocol
	versions  map[string]uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		protocols: make(map[string]*Protocol),
		versions:  make(map[string]uint64),
	}
}

// Register validates doc and stores it under name, replacing any previous
// protocol. It returns the new version number for name.
func (r *Registry) Register(name string, doc any) (uint64, error) {
	// Validate before taking the write lock.
	p, err := Validate(doc)
	if err != nil {
		return 0, fmt.Errorf("register %q: %w", name, err)
	}
	return r.Put(name, p), nil
}

// Put stores an already validated protocol.
func (r *Registry) Put(name string, p *Protocol) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.protocols[name] = p
	r.versions[name]++
	log.Debug().Str("name", name).Uint64("version", r.versions[name]).Msg("schema.Registry stored protocol")
	return r.versions[name]
}

// Get returns the protocol registered under name.
func (r *Registry) Get(name string) (*Protocol, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.protocols[name]
	return p, ok
}

// Version returns how many times name has been stored, 0 if never.
func (r *Registry) Version(name string) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.versions[name]
}

// Remove drops name. The version counter is kept so a later Register keeps counting.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.protocols[name]; !ok {
		return false
	}
	delete(r.protocols, name)
	return true
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.protocols))
	for name := range r.protocols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Decode decodes input with the protocol registered under name. The protocol
// may be swapped during the call; the decode keeps using the one it fetched.
func (r *Registry) Decode(name, input string, sink Sink) (Outcome, error) {
	p, ok := r.Get(name)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownProtocol, name)
	}
	return p.Decode(input, sink), nil
}
