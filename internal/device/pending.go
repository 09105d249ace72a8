package device

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/muurk/lifxlan/internal/protocol"
)

// pendingEntry is one outstanding request awaiting its reply.
type pendingEntry struct {
	seq      uint8
	expected uint16
	// respCh holds at most one completed frame. A reply that lands between
	// two attempts stays buffered for the next wait.
	respCh chan *protocol.Frame
}

// pendingTable correlates replies to requests by sequence number. One table
// belongs to one Device, so sequence numbers are only unique per device.
type pendingTable struct {
	mu      sync.Mutex
	entries map[uint8]*pendingEntry
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[uint8]*pendingEntry)}
}

// has reports whether seq is outstanding.
func (p *pendingTable) has(seq uint8) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.entries[seq]
	return ok
}

// len returns the number of outstanding requests.
func (p *pendingTable) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// begin registers seq before its first send.
func (p *pendingTable) begin(seq uint8, expected uint16) *pendingEntry {
	e := &pendingEntry{
		seq:      seq,
		expected: expected,
		respCh:   make(chan *protocol.Frame, 1),
	}
	p.mu.Lock()
	p.entries[seq] = e
	p.mu.Unlock()
	return e
}

// rearm returns the live entry for seq ahead of another attempt. A missing
// entry means the request was torn down under us.
func (p *pendingTable) rearm(seq uint8) (*pendingEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[seq]
	if !ok {
		return nil, NewProtocolError("", "no pending request for sequence "+strconv.Itoa(int(seq)))
	}
	return e, nil
}

// complete hands f to the request waiting on its sequence number. It
// returns false only when no request owns the sequence; a frame whose type
// or source does not match the owner is swallowed.
func (p *pendingTable) complete(f *protocol.Frame, source uint32) bool {
	p.mu.Lock()
	e, ok := p.entries[f.Sequence]
	p.mu.Unlock()
	if !ok {
		return false
	}
	if f.Type != e.expected || f.Source != source {
		return true
	}
	select {
	case e.respCh <- f:
	default:
		// Duplicate reply, the first one wins
	}
	return true
}

// wait blocks for one attempt. It returns false on timeout or when ctx ends.
func (p *pendingTable) wait(ctx context.Context, e *pendingEntry, timeout time.Duration) (*protocol.Frame, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case f := <-e.respCh:
		return f, true
	case <-timer.C:
		return nil, false
	case <-ctx.Done():
		return nil, false
	}
}

// remove drops seq once its request finished either way.
func (p *pendingTable) remove(seq uint8) {
	p.mu.Lock()
	delete(p.entries, seq)
	p.mu.Unlock()
}
