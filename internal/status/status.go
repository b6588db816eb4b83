// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package status keeps the last significant event of the monitor as a short
// human-readable line.
package status

import (
	"encoding/json"
	"sync"
	"time"
)

// Severity of a status line.
type Severity int

const (
	Info Severity = iota
	Warn
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

const (
	NoMessages    = "No messages received."
	AwaitingFrame = "Awaiting frame"
	NoZones       = "No zones loaded"
	OK            = "OK"
)

// Entry is one status line.
type Entry struct {
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
	At       time.Time `json:"at"`
}

// Board holds the latest entry. The zero value is not usable; use NewBoard.
type Board struct {
	mu    sync.RWMutex
	entry Entry
	subs  []chan<- Entry
	now   func() time.Time
}

// NewBoard starts with "No messages received.".
func NewBoard() *Board {
	b := &Board{now: time.Now}
	b.entry = Entry{Message: NoMessages, Severity: Info, At: b.now()}
	return b
}

// Set replaces the current entry. Setting the same message and severity
// again only refreshes the timestamp and does not notify watchers.
func (b *Board) Set(sev Severity, msg string) {
	b.mu.Lock()
	same := b.entry.Message == msg && b.entry.Severity == sev
	b.entry = Entry{Message: msg, Severity: sev, At: b.now()}
	e := b.entry
	subs := b.subs
	b.mu.Unlock()

	if same {
		return
	}
	for _, ch := range subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *Board) Info(msg string)  { b.Set(Info, msg) }
func (b *Board) Warn(msg string)  { b.Set(Warn, msg) }
func (b *Board) Error(msg string) { b.Set(Error, msg) }

// Current returns the latest entry.
func (b *Board) Current() Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.entry
}

// String is the current message.
func (b *Board) String() string {
	return b.Current().Message
}

// Watch registers ch for changes. Sends never block; a full channel misses
// the update.
func (b *Board) Watch(ch chan<- Entry) {
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
}

// MarshalJSON encodes the current entry.
func (b *Board) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Current())
}
