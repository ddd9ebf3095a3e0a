package denovo

import (
	"math"
	"testing"
)

func TestNodeMapMerge(t *testing.T) {
	nm := newNodeMap(0.3)

	nm.add(100.0, 1.0, IonB)
	nm.add(250.0, 2.0, IonY)
	// Within the merge tolerance of the first node
	nm.add(100.2, 0.5, IonY)

	if nm.Len() != 2 {
		t.Fatalf("Len: %d, should be 2", nm.Len())
	}
	n := nm.Node(0)
	if math.Abs(n.Score-1.5) > 1e-9 {
		t.Errorf("Node: score %f, should be 1.5", n.Score)
	}
	if n.Evidence != 2 {
		t.Errorf("Node: evidence %d, should be 2", n.Evidence)
	}
	if n.Ions != IonB|IonY {
		t.Errorf("Node: ions %b, should be b|y", n.Ions)
	}

	// Outside the tolerance a new node is inserted, keeping mass order
	nm.add(99.0, 1.0, IonB)
	if nm.Len() != 3 {
		t.Fatalf("Len: %d, should be 3", nm.Len())
	}
	for i := 1; i < nm.Len(); i++ {
		if nm.Node(i-1).Mass >= nm.Node(i).Mass {
			t.Errorf("nodes out of order at %d: %f >= %f", i, nm.Node(i-1).Mass, nm.Node(i).Mass)
		}
	}
}

func TestNodeMapBoundary(t *testing.T) {
	nm := newNodeMap(0.3)
	nm.add(0.1, 1.0, IonB)
	nm.add(150.0, 1.0, IonY)

	// The node near 0 snaps onto the exact boundary coordinate
	nm.addBoundary(0.0, 10.0)
	nm.addBoundary(300.0, 10.0)

	if nm.Len() != 3 {
		t.Fatalf("Len: %d, should be 3", nm.Len())
	}
	first := nm.Node(0)
	if first.Mass != 0.0 {
		t.Errorf("boundary mass %f, should be exactly 0", first.Mass)
	}
	if first.Ions&IonBoundary == 0 {
		t.Errorf("first node not flagged as boundary")
	}
	if math.Abs(first.Score-11.0) > 1e-9 {
		t.Errorf("boundary score %f, should be 11", first.Score)
	}
	last := nm.Node(2)
	if last.Mass != 300.0 || last.Ions != IonBoundary {
		t.Errorf("last node (%f, %b), should be exact boundary at 300", last.Mass, last.Ions)
	}
}

func TestNodeMapWindow(t *testing.T) {
	nm := newNodeMap(0.01)
	for _, m := range []float64{50.0, 100.0, 100.5, 101.0, 200.0} {
		nm.add(m, 1.0, IonB)
	}
	lo, hi := nm.Window(100.5, 0.6)
	if lo != 1 || hi != 4 {
		t.Errorf("Window: [%d, %d), should be [1, 4)", lo, hi)
	}
	lo, hi = nm.Window(300.0, 1.0)
	if lo != hi {
		t.Errorf("Window: [%d, %d), should be empty", lo, hi)
	}
}
