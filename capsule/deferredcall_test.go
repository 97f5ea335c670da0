package capsule

import "testing"

func TestDeferredCallCoalesces(t *testing.T) {
	runs := 0
	d := NewDeferredCall(func() { runs++ })

	if !d.Schedule() {
		t.Fatal("expected first Schedule to transition to pending")
	}
	if d.Schedule() {
		t.Fatal("expected second Schedule before Run to coalesce (return false)")
	}
	if !d.Pending() {
		t.Fatal("expected Pending() true")
	}

	d.Run()
	if runs != 1 {
		t.Fatalf("runs = %d, want 1", runs)
	}
	if d.Pending() {
		t.Fatal("expected Pending() false after Run")
	}

	if !d.Schedule() {
		t.Fatal("expected Schedule after Run to transition to pending again")
	}
}
