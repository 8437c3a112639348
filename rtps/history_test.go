package rtps

import (
	"testing"

	"github.com/fathomdds/rtps/wire"
)

// TestHistorySequenceMonotonicity checks Add assigns strictly
// consecutive sequence numbers.
func TestHistorySequenceMonotonicity(t *testing.T) {
	h := NewHistory(10)
	var prev wire.SequenceNumber
	for i := 0; i < 5; i++ {
		c := h.Add(ChangeAlive, []byte("x"))
		if prev != 0 && c.SN != prev+1 {
			t.Fatalf("sn %d is not prev+1 (%d)", c.SN, prev)
		}
		prev = c.SN
	}
}

// TestHistoryOverflowEvicts fills a depth-4 history with 6 changes
// and expects the two oldest evicted with minAvailableSN advanced.
func TestHistoryOverflowEvicts(t *testing.T) {
	h := NewHistory(4)
	for i := 0; i < 6; i++ {
		h.Add(ChangeAlive, []byte{byte(i)})
	}
	if got, want := h.MinAvailableSN(), wire.SequenceNumber(3); got != want {
		t.Errorf("minAvailableSN = %d, want %d", got, want)
	}
	if got, want := h.LastSN(), wire.SequenceNumber(6); got != want {
		t.Errorf("lastSN = %d, want %d", got, want)
	}
	for sn := wire.SequenceNumber(3); sn <= 6; sn++ {
		if _, ok := h.GetChange(sn); !ok {
			t.Errorf("expected sn %d to be retained", sn)
		}
	}
	if _, ok := h.GetChange(1); ok {
		t.Errorf("expected sn 1 to have been evicted")
	}
}

func TestHistoryNextUnsentStateless(t *testing.T) {
	h := NewHistory(10)
	reader := wire.GUID{Entity: 1}
	h.Add(ChangeAlive, []byte("a"))
	h.Add(ChangeAlive, []byte("b"))

	c, ok := h.NextUnsentStateless(reader)
	if !ok || c.SN != 1 {
		t.Fatalf("expected lowest unsent sn 1, got %v ok=%v", c.SN, ok)
	}
	h.MarkSent(c.SN, reader)

	c, ok = h.NextUnsentStateless(reader)
	if !ok || c.SN != 2 {
		t.Fatalf("expected sn 2 next, got %v ok=%v", c.SN, ok)
	}
	h.MarkSent(c.SN, reader)

	if _, ok := h.NextUnsentStateless(reader); ok {
		t.Fatalf("expected no more unsent changes")
	}
}
