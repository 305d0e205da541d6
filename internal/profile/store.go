// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package profile

import (
	"sync"
	"sync/atomic"
)

// Source produces the instruction string handed to the orchestrator.
type Source interface {
	Instruction() string
}

// Static is a fixed instruction string.
type Static string

// Instruction returns s.
func (s Static) Instruction() string { return string(s) }

// Store holds the current profile and its rendered instruction.
// Reads are lock-free; Set may be called concurrently with readers.
type Store struct {
	current atomic.Pointer[snapshot]
	mu      sync.Mutex // serialises writers
}

type snapshot struct {
	profile     *Profile
	instruction string
}

// NewStore creates a store holding p.
func NewStore(p *Profile) *Store {
	s := &Store{}
	s.Set(p)
	return s
}

// Set replaces the current profile.
func (s *Store) Set(p *Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Store(&snapshot{profile: p, instruction: p.Instruction()})
}

// Profile returns the current profile. Callers must not modify it.
func (s *Store) Profile() *Profile {
	return s.current.Load().profile
}

// Instruction returns the rendered instruction for the current profile.
func (s *Store) Instruction() string {
	return s.current.Load().instruction
}
