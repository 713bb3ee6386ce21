package level

import "testing"

func newTestLevel(t *testing.T, setup func(fg, bg *Grid)) *Level {
	t.Helper()
	fg, err := NewGrid(Side, Side)
	if err != nil {
		t.Fatal(err)
	}
	bg, err := NewGrid(Side, Side)
	if err != nil {
		t.Fatal(err)
	}
	if setup != nil {
		setup(fg, bg)
	}

	lvl, err := New(fg, bg, make([]bool, Side*Side), nil, DefaultHeader())
	if err != nil {
		t.Fatal(err)
	}
	return lvl
}

func assertPanics(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Error("expected a panic")
		}
	}()
	fn()
}
