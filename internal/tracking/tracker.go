// Copyright 2025 The bspterm Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package tracking records the output a terminal session produces and lets
// independent consumers read it: cursor-based readers, named command
// captures, and time-range queries over an append-only segment log.
package tracking

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultMaxSegments  = 1000
	defaultMaxBytes     = 10 * 1024 * 1024
	defaultReaderExpiry = time.Hour
)

type segment struct {
	at      time.Duration // elapsed since tracker creation
	content string
	offset  int // cumulative byte offset of the first byte
}

type readerState struct {
	id         uuid.UUID
	lastReadAt time.Time
	cursor     int // byte offset of the next unread byte
}

type commandCapture struct {
	id          uuid.UUID
	command     string
	startedAt   time.Time
	completedAt time.Time
	startOffset int
	endOffset   int
	open        bool
}

// Tracker is the per-session output log. RecordOutput must be called by a
// single producer (the terminal's output pump); all other methods are safe
// for concurrent use.
type Tracker struct {
	mu          sync.RWMutex
	segments    []segment
	totalBytes  int
	readers     map[uuid.UUID]*readerState
	commands    map[uuid.UUID]*commandCapture
	maxSegments int
	maxBytes    int
	expiry      time.Duration
	start       time.Time
	now         func() time.Time // test hook
}

func NewTracker() *Tracker {
	return &Tracker{
		readers:     make(map[uuid.UUID]*readerState),
		commands:    make(map[uuid.UUID]*commandCapture),
		maxSegments: defaultMaxSegments,
		maxBytes:    defaultMaxBytes,
		expiry:      defaultReaderExpiry,
		start:       time.Now(),
		now:         time.Now,
	}
}

// RecordOutput appends one chunk tagged with elapsed time since tracker
// creation. Empty chunks are dropped.
func (t *Tracker) RecordOutput(content string) {
	if content == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.segments = append(t.segments, segment{
		at:      t.now().Sub(t.start),
		content: content,
		offset:  t.totalBytes,
	})
	t.totalBytes += len(content)
	t.enforceLimits()
}

// Old segments fall off the front; offsets are never reused, so cursors
// that point into evicted space simply skip ahead.
func (t *Tracker) enforceLimits() {
	for len(t.segments) > t.maxSegments {
		t.segments = t.segments[1:]
	}
	bytes := 0
	for _, s := range t.segments {
		bytes += len(s.content)
	}
	for bytes > t.maxBytes && len(t.segments) > 0 {
		bytes -= len(t.segments[0].content)
		t.segments = t.segments[1:]
	}
}

// CreateReader registers a cursor at the current end of the log: a new
// reader only ever sees future output.
func (t *Tracker) CreateReader() uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cleanupStaleReaders()

	r := &readerState{
		id:         uuid.New(),
		lastReadAt: t.now(),
		cursor:     t.totalBytes,
	}
	t.readers[r.id] = r
	return r.id
}

// ReadNew drains everything buffered past the reader's cursor and advances
// the cursor to the current end. hasMore is informational and always false:
// polling clients call again.
func (t *Tracker) ReadNew(readerID uuid.UUID) (content string, hasMore bool, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, found := t.readers[readerID]
	if !found {
		return "", false, false
	}
	r.lastReadAt = t.now()

	var b strings.Builder
	for _, s := range t.segments {
		end := s.offset + len(s.content)
		if end <= r.cursor {
			continue
		}
		if s.offset >= r.cursor {
			b.WriteString(s.content)
		} else if in := r.cursor - s.offset; in < len(s.content) {
			b.WriteString(s.content[in:])
		}
	}
	r.cursor = t.totalBytes
	return b.String(), false, true
}

// StopReader deregisters a cursor; false if the id was unknown.
func (t *Tracker) StopReader(readerID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, found := t.readers[readerID]
	delete(t.readers, readerID)
	return found
}

func (t *Tracker) cleanupStaleReaders() {
	now := t.now()
	for id, r := range t.readers {
		if now.Sub(r.lastReadAt) >= t.expiry {
			delete(t.readers, id)
		}
	}
}

// StartCommand opens a capture window beginning at the current end of the
// log.
func (t *Tracker) StartCommand(command string) uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := &commandCapture{
		id:          uuid.New(),
		command:     command,
		startedAt:   t.now(),
		startOffset: t.totalBytes,
		open:        true,
	}
	t.commands[c.id] = c
	return c.id
}

// CompleteCommand closes the capture at the current end of the log; false
// if the id is unknown or the capture was already completed.
func (t *Tracker) CompleteCommand(commandID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, found := t.commands[commandID]
	if !found || !c.open {
		return false
	}
	c.completedAt = t.now()
	c.endOffset = t.totalBytes
	c.open = false
	return true
}

// CommandOutput returns the captured slice. While the capture is still
// open it returns the output accumulated so far.
func (t *Tracker) CommandOutput(commandID uuid.UUID) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	c, found := t.commands[commandID]
	if !found {
		return "", false
	}
	end := c.endOffset
	if c.open {
		end = t.totalBytes
	}
	return t.sliceLocked(c.startOffset, end), true
}

func (t *Tracker) sliceLocked(start, end int) string {
	var b strings.Builder
	for _, s := range t.segments {
		segEnd := s.offset + len(s.content)
		if segEnd <= start {
			continue
		}
		if s.offset >= end {
			break
		}
		from := 0
		if s.offset < start {
			from = start - s.offset
		}
		to := len(s.content)
		if segEnd > end {
			to = end - s.offset
		}
		if from < to {
			b.WriteString(s.content[from:to])
		}
	}
	return b.String()
}

// ReadTimeRange concatenates all chunks whose elapsed-time tag falls in
// [startMs, endMs). Independent of any reader cursor; repeated calls with
// the same bounds return identical text.
func (t *Tracker) ReadTimeRange(startMs, endMs int64) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	lo := time.Duration(startMs) * time.Millisecond
	hi := time.Duration(endMs) * time.Millisecond

	var b strings.Builder
	for _, s := range t.segments {
		if s.at >= lo && s.at < hi {
			b.WriteString(s.content)
		}
	}
	return b.String()
}

// Content returns everything currently buffered. Used by the pattern
// waiter, which matches against the whole retained window.
func (t *Tracker) Content() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var b strings.Builder
	for _, s := range t.segments {
		b.WriteString(s.content)
	}
	return b.String()
}

func (t *Tracker) TotalBytes() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.totalBytes
}

// ElapsedMs reports time since tracker creation, for client-side
// time-range construction.
func (t *Tracker) ElapsedMs() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.now().Sub(t.start).Milliseconds()
}
