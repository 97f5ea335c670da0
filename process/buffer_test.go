package process

import "testing"

func TestBufferTableAllowAndRevoke(t *testing.T) {
	tbl := NewBufferTable()
	key := BufferKey{Driver: 1, Buffer: 0}

	prev := tbl.Allow(key, BufferDescriptor{Base: 0x1000, Length: 64, Epoch: 1})
	if !prev.Empty() {
		t.Fatalf("expected no prior descriptor, got %+v", prev)
	}

	d, err := tbl.Check(key, 1)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if d.Base != 0x1000 || d.Length != 64 {
		t.Errorf("Check() = %+v, want base/length 0x1000/64", d)
	}

	// Allow(NULL, 0) revokes and returns the prior descriptor.
	prev = tbl.Allow(key, BufferDescriptor{})
	if prev.Base != 0x1000 || prev.Length != 64 {
		t.Errorf("revoke returned %+v, want the previous descriptor", prev)
	}
	if _, err := tbl.Check(key, 1); err != ErrNoSuchBuffer {
		t.Fatalf("Check() after revoke error = %v, want ErrNoSuchBuffer", err)
	}
}

func TestBufferTableRejectsStaleEpoch(t *testing.T) {
	tbl := NewBufferTable()
	key := BufferKey{Driver: 2, Buffer: 1}
	tbl.Allow(key, BufferDescriptor{Base: 0x2000, Length: 16, Epoch: 3})

	if _, err := tbl.Check(key, 4); err != ErrStaleDescriptor {
		t.Fatalf("Check() error = %v, want ErrStaleDescriptor", err)
	}
}

func TestBufferTableClear(t *testing.T) {
	tbl := NewBufferTable()
	tbl.Allow(BufferKey{Driver: 1, Buffer: 0}, BufferDescriptor{Base: 1, Length: 1, Epoch: 1})
	tbl.Clear()
	if tbl.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", tbl.Len())
	}
}
