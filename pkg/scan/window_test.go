package scan

import "testing"

func TestNextWindow(t *testing.T) {
	win := NextWindow(100, 50)
	if win.First != 101 || win.Last != 150 {
		t.Errorf("NextWindow(100, 50) = [%d, %d], want [101, 150]", win.First, win.Last)
	}
	if win.Len() != 50 {
		t.Errorf("Len() = %d, want 50", win.Len())
	}
}

func TestNextWindowEmptyArchive(t *testing.T) {
	// Frontier 0 means an empty archive: the first run starts at ID 1.
	win := NextWindow(0, 10000)
	if win.First != 1 || win.Last != 10000 {
		t.Errorf("NextWindow(0, 10000) = [%d, %d], want [1, 10000]", win.First, win.Last)
	}
}

func TestWindowIDs(t *testing.T) {
	win := Window{First: 3, Last: 6}
	ids := win.IDs()
	want := []int64{3, 4, 5, 6}
	if len(ids) != len(want) {
		t.Fatalf("IDs() returned %d ids, want %d", len(ids), len(want))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("IDs()[%d] = %d, want %d", i, ids[i], want[i])
		}
	}
}

func TestWindowEmpty(t *testing.T) {
	win := Window{First: 10, Last: 9}
	if win.Len() != 0 {
		t.Errorf("Len() = %d, want 0", win.Len())
	}
	if len(win.IDs()) != 0 {
		t.Errorf("IDs() returned %d ids, want 0", len(win.IDs()))
	}
}
