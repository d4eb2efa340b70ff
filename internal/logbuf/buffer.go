// Package logbuf provides the capacity-bounded log channel shared between a
// job worker (single producer) and concurrent status polls.
package logbuf

import (
	"sync"

	"github.com/bocklabs/bockscraper/internal/domain"
)

// Per-stage capacities. Insertion beyond capacity evicts the oldest entry;
// producers never block.
const (
	ScrapeCapacity    = 500
	ConvertCapacity   = 200
	SummarizeCapacity = 300
)

// CapacityFor returns the log capacity for a stage kind.
func CapacityFor(kind domain.StageKind) int {
	switch kind {
	case domain.StageConvert:
		return ConvertCapacity
	case domain.StageSummarize:
		return SummarizeCapacity
	default:
		return ScrapeCapacity
	}
}

// Buffer is an append-only ring of classified log entries with FIFO
// eviction. Safe for one producer and many concurrent readers.
type Buffer struct {
	mu       sync.Mutex
	capacity int
	entries  []domain.LogEntry
	start    int
	count    int
}

// New creates a Buffer with the given capacity.
func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		capacity: capacity,
		entries:  make([]domain.LogEntry, capacity),
	}
}

// Append classifies a raw line, stamps it, and appends it, evicting the
// oldest entry when full.
func (b *Buffer) Append(line string) {
	b.AppendEntry(domain.NewLogEntry(line, domain.ClassifyLine(line)))
}

// AppendEntry appends a pre-built entry.
func (b *Buffer) AppendEntry(entry domain.LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count < b.capacity {
		b.entries[(b.start+b.count)%b.capacity] = entry
		b.count++
		return
	}

	// Full: overwrite the oldest slot and advance the window.
	b.entries[b.start] = entry
	b.start = (b.start + 1) % b.capacity
}

// Snapshot returns the current entries in append order.
func (b *Buffer) Snapshot() []domain.LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]domain.LogEntry, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.entries[(b.start+i)%b.capacity]
	}
	return out
}

// Len returns the current number of entries.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Reset discards all entries, keeping the capacity.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.start = 0
	b.count = 0
}
