package pool

import "testing"

func TestPoolReuse(t *testing.T) {
	p := New(
		func() []byte { return make([]byte, 0, 64) },
		func(b []byte) { _ = b[:0] },
	)

	buf := p.Get()
	if cap(buf) != 64 {
		t.Fatalf("expected cap 64, got %d", cap(buf))
	}
	p.Put(buf)

	allocated, inUse, hits := p.Stats()
	if allocated != 1 {
		t.Errorf("expected 1 allocation, got %d", allocated)
	}
	if inUse != 0 {
		t.Errorf("expected 0 in use, got %d", inUse)
	}
	if hits != 1 {
		t.Errorf("expected 1 hit, got %d", hits)
	}
}

func TestGetRowLengthAndZeroing(t *testing.T) {
	row := GetRow(5)
	if len(row) != 5 {
		t.Fatalf("expected length 5, got %d", len(row))
	}
	for i, v := range row {
		if v != nil {
			t.Errorf("cell %d not zeroed: %v", i, v)
		}
	}
	row[0] = "dirty"
	PutRow(row)

	again := GetRow(5)
	for i, v := range again {
		if v != nil {
			t.Errorf("recycled cell %d not zeroed: %v", i, v)
		}
	}
	PutRow(again)

	// Requests past the pooled capacity still come back sized.
	wide := GetRow(100)
	if len(wide) != 100 {
		t.Fatalf("expected length 100, got %d", len(wide))
	}
	PutRow(wide)
	PutRow(nil)
}

func TestGetStringRow(t *testing.T) {
	row := GetStringRow(3)
	if len(row) != 3 {
		t.Fatalf("expected length 3, got %d", len(row))
	}
	for i, s := range row {
		if s != "" {
			t.Errorf("cell %d not zeroed: %q", i, s)
		}
	}
	PutStringRow(row)
	PutStringRow(nil)
}
