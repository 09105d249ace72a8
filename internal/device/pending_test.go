package device

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/muurk/lifxlan/internal/protocol"
)

func newTestDevice() *Device {
	return New(protocol.MustParseMAC("d0:73:d5:01:02:03"), net.IPv4(192, 168, 1, 10), 0, Options{Source: 0xabcd})
}

func TestPendingTable_CompleteMatchesTypeAndSource(t *testing.T) {
	const source = 0xabcd

	tests := []struct {
		name      string
		seq       uint8
		typ       uint16
		source    uint32
		wantOwned bool
		wantDone  bool
	}{
		{name: "matching reply", seq: 5, typ: protocol.TypeAcknowledgement, source: source, wantOwned: true, wantDone: true},
		{name: "foreign source", seq: 5, typ: protocol.TypeAcknowledgement, source: 0x1234, wantOwned: true},
		{name: "wrong type", seq: 5, typ: protocol.TypeStatePower, source: source, wantOwned: true},
		{name: "unknown sequence", seq: 6, typ: protocol.TypeAcknowledgement, source: source},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPendingTable()
			e := p.begin(5, protocol.TypeAcknowledgement)

			f := protocol.NewFrame(protocol.BroadcastMAC, tt.source, tt.seq, &protocol.Acknowledgement{})
			f.Type = tt.typ

			if got := p.complete(f, source); got != tt.wantOwned {
				t.Errorf("complete() = %v, want %v", got, tt.wantOwned)
			}
			_, done := p.wait(context.Background(), e, 10*time.Millisecond)
			if done != tt.wantDone {
				t.Errorf("wait() done = %v, want %v", done, tt.wantDone)
			}
		})
	}
}

func TestPendingTable_ReplyBetweenAttemptsIsKept(t *testing.T) {
	p := newPendingTable()
	e := p.begin(9, protocol.TypeAcknowledgement)

	if _, done := p.wait(context.Background(), e, time.Millisecond); done {
		t.Fatal("wait() done before any reply")
	}
	p.complete(protocol.NewFrame(protocol.BroadcastMAC, 1, 9, &protocol.Acknowledgement{}), 1)

	e2, err := p.rearm(9)
	if err != nil {
		t.Fatalf("rearm() error = %v", err)
	}
	if _, done := p.wait(context.Background(), e2, time.Millisecond); !done {
		t.Error("reply that arrived after a timeout was lost")
	}
}

func TestPendingTable_RearmUnknownSequence(t *testing.T) {
	p := newPendingTable()
	p.begin(3, protocol.TypeAcknowledgement)
	p.remove(3)

	if _, err := p.rearm(3); !IsProtocolError(err) {
		t.Errorf("rearm() error = %v, want protocol error", err)
	}
}

func TestPendingTable_WaitHonoursContext(t *testing.T) {
	p := newPendingTable()
	e := p.begin(1, protocol.TypeAcknowledgement)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if _, done := p.wait(ctx, e, time.Second); done {
		t.Error("wait() done = true on cancelled context")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("wait() took %v with a cancelled context", elapsed)
	}
}

func TestAllocate_WrapsAfter128(t *testing.T) {
	d := newTestDevice()

	var got []uint8
	for i := 0; i < 129; i++ {
		e, err := d.allocate(protocol.TypeAcknowledgement)
		if err != nil {
			t.Fatalf("allocate() #%d error = %v", i, err)
		}
		got = append(got, e.seq)
		d.pending.remove(e.seq)
	}

	if got[0] != 1 || got[126] != 127 || got[127] != 0 || got[128] != 1 {
		t.Errorf("sequence run = %v..., want 1..127, 0, 1", got[:3])
	}
	if d.seq != 1 {
		t.Errorf("counter after 129 requests = %d, want 1", d.seq)
	}
}

func TestAllocate_SkipsOutstanding(t *testing.T) {
	d := newTestDevice()
	d.pending.begin(2, protocol.TypeAcknowledgement)

	first, err := d.allocate(protocol.TypeAcknowledgement)
	if err != nil {
		t.Fatalf("allocate() error = %v", err)
	}
	second, err := d.allocate(protocol.TypeAcknowledgement)
	if err != nil {
		t.Fatalf("allocate() error = %v", err)
	}
	if first.seq != 1 || second.seq != 3 {
		t.Errorf("allocated %d, %d, want 1, 3", first.seq, second.seq)
	}
}

func TestAllocate_AllOutstanding(t *testing.T) {
	d := newTestDevice()
	for i := 0; i <= protocol.MaxSequence; i++ {
		if _, err := d.allocate(protocol.TypeAcknowledgement); err != nil {
			t.Fatalf("allocate() #%d error = %v", i, err)
		}
	}
	if _, err := d.allocate(protocol.TypeAcknowledgement); !IsProtocolError(err) {
		t.Errorf("allocate() with 128 outstanding error = %v, want protocol error", err)
	}
	if n := d.pending.len(); n != 128 {
		t.Errorf("pending = %d, want 128", n)
	}
}
