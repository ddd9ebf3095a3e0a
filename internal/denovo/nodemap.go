package denovo

import "sort"

// IonType is a bitmask of the fragment interpretations that
// contributed to a node
type IonType uint8

const (
	IonB IonType = 1 << iota
	IonY
	IonC
	IonZ
	// IonBoundary marks the synthetic nodes at mass 0 and at the
	// residue sum
	IonBoundary
)

// Node is one hypothesized cumulative prefix mass with the evidence
// collected for it
type Node struct {
	Mass     float64
	Score    float64
	Evidence int
	Ions     IonType
}

// NodeMap holds the nodes of one spectrum sorted ascending by mass.
// Lookups are tolerance windows via binary search, never float
// equality. Contributions within the merge tolerance of an existing
// node merge into it.
type NodeMap struct {
	nodes    []Node
	mergeTol float64
}

func newNodeMap(mergeTol float64) *NodeMap {
	return &NodeMap{mergeTol: mergeTol}
}

// Len returns the number of nodes
func (nm *NodeMap) Len() int {
	return len(nm.nodes)
}

// Node returns the node at index i
func (nm *NodeMap) Node(i int) Node {
	return nm.nodes[i]
}

// add records a contribution for a prefix mass. If a node within the
// merge tolerance exists, scores and evidence add up and the ion flags
// are ORed; otherwise a new node is inserted.
func (nm *NodeMap) add(mass, score float64, ions IonType) {
	i := sort.Search(len(nm.nodes), func(i int) bool { return nm.nodes[i].Mass >= mass })
	// Merge into the nearest neighbor within the merge tolerance
	best := -1
	if i < len(nm.nodes) && nm.nodes[i].Mass-mass <= nm.mergeTol {
		best = i
	}
	if i > 0 && mass-nm.nodes[i-1].Mass <= nm.mergeTol {
		if best < 0 || mass-nm.nodes[i-1].Mass < nm.nodes[best].Mass-mass {
			best = i - 1
		}
	}
	if best >= 0 {
		nm.nodes[best].Score += score
		nm.nodes[best].Evidence++
		nm.nodes[best].Ions |= ions
		return
	}
	nm.nodes = append(nm.nodes, Node{})
	copy(nm.nodes[i+1:], nm.nodes[i:])
	nm.nodes[i] = Node{Mass: mass, Score: score, Evidence: 1, Ions: ions}
}

// addBoundary inserts a synthetic node at an exact mass. A node
// already within the merge tolerance is snapped to that mass instead,
// so the boundary coordinate stays exact.
func (nm *NodeMap) addBoundary(mass, score float64) {
	i := sort.Search(len(nm.nodes), func(i int) bool { return nm.nodes[i].Mass >= mass })
	best := -1
	if i < len(nm.nodes) && nm.nodes[i].Mass-mass <= nm.mergeTol {
		best = i
	}
	if i > 0 && mass-nm.nodes[i-1].Mass <= nm.mergeTol {
		if best < 0 || mass-nm.nodes[i-1].Mass < nm.nodes[best].Mass-mass {
			best = i - 1
		}
	}
	if best >= 0 {
		nm.nodes[best].Mass = mass
		nm.nodes[best].Score += score
		nm.nodes[best].Ions |= IonBoundary
		return
	}
	nm.nodes = append(nm.nodes, Node{})
	copy(nm.nodes[i+1:], nm.nodes[i:])
	nm.nodes[i] = Node{Mass: mass, Score: score, Evidence: 1, Ions: IonBoundary}
}

// Window returns the half-open index range of nodes with mass in
// [mass-tol, mass+tol]
func (nm *NodeMap) Window(mass, tol float64) (int, int) {
	lo := sort.Search(len(nm.nodes), func(i int) bool { return nm.nodes[i].Mass >= mass-tol })
	hi := sort.Search(len(nm.nodes), func(i int) bool { return nm.nodes[i].Mass > mass+tol })
	return lo, hi
}

// maxScore returns the highest node score, 0 for an empty map
func (nm *NodeMap) maxScore() float64 {
	max := 0.0
	for i := range nm.nodes {
		if nm.nodes[i].Score > max {
			max = nm.nodes[i].Score
		}
	}
	return max
}
