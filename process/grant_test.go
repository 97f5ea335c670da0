package process

import "testing"

func TestGrantAllocatorBumpsDownward(t *testing.T) {
	g := NewGrantAllocator(0x2000)

	a, err := g.Allocate(64, 4, 0x1000)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if a.Base != 0x2000-64 {
		t.Errorf("Base = %#x, want %#x", a.Base, 0x2000-64)
	}

	b, err := g.Allocate(32, 4, 0x1000)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if end := b.Base + b.Length; end > a.Base {
		t.Errorf("second grant %#x..%#x overlaps first at %#x", b.Base, end, a.Base)
	}
}

func TestGrantAllocatorRejectsCrossingBreak(t *testing.T) {
	g := NewGrantAllocator(0x1100)
	_, err := g.Allocate(0x200, 4, 0x1000)
	if err != ErrGrantExhausted {
		t.Fatalf("Allocate() error = %v, want ErrGrantExhausted", err)
	}
	if g.Floor() != 0x1100 {
		t.Errorf("Floor() = %#x, want unchanged 0x1100 after failed allocation", g.Floor())
	}
}

func TestGrantAllocatorResetBumpsEpoch(t *testing.T) {
	g := NewGrantAllocator(0x2000)
	grant, err := g.Allocate(16, 4, 0x1000)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if !g.Valid(grant) {
		t.Fatal("expected freshly allocated grant to be valid")
	}

	g.Reset()

	if g.Valid(grant) {
		t.Error("expected grant from prior epoch to be invalid after Reset")
	}
	if g.Floor() != 0x2000 {
		t.Errorf("Floor() after Reset = %#x, want 0x2000", g.Floor())
	}
	if g.Count() != 0 {
		t.Errorf("Count() after Reset = %d, want 0", g.Count())
	}
}
