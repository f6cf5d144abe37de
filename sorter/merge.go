package sorter

import "iter"

// mergeTree is a tournament (loser) tree merging k ordered sources with
// O(log k) comparisons per element. The layout follows the classic array
// encoding: leaves occupy positions k..2k-1, internal nodes 1..k-1, and
// node 0 holds a copy of the current winner. Each internal node stores the
// loser of the contest between its subtrees; exhausted sources carry an
// ok=false flag and lose every contest.
type mergeTree[E any] struct {
	nodes []mergeNode[E]
	less  func(E, E) bool
}

type mergeNode[E any] struct {
	index int // losing source position, or the winner for node 0
	value E
	ok    bool             // false once the source is exhausted
	next  func() (E, bool) // only populated for leaf nodes
}

func newMergeTree[E any](sources []func() (E, bool), less func(E, E) bool) *mergeTree[E] {
	t := &mergeTree[E]{
		nodes: make([]mergeNode[E], len(sources)*2),
		less:  less,
	}
	for i, next := range sources {
		t.nodes[i+len(sources)].next = next
	}
	return t
}

func (t *mergeTree[E]) all() iter.Seq[E] {
	return func(yield func(E) bool) {
		if len(t.nodes) == 0 {
			return
		}
		for i := len(t.nodes) / 2; i < len(t.nodes); i++ {
			t.advance(i)
		}
		t.setWinner(t.playGame(1))
		for t.nodes[0].ok {
			if !yield(t.nodes[0].value) {
				return
			}
			t.advance(t.nodes[0].index)
			t.replayGames(t.nodes[0].index)
		}
	}
}

// advance pulls the next value into the leaf at pos.
func (t *mergeTree[E]) advance(pos int) {
	n := &t.nodes[pos]
	n.value, n.ok = n.next()
}

func (t *mergeTree[E]) setWinner(pos int) {
	t.nodes[0].index = pos
	t.nodes[0].value = t.nodes[pos].value
	t.nodes[0].ok = t.nodes[pos].ok
}

// playGame finds the winner of the subtree rooted at pos, storing losers in
// the internal nodes along the way. pos must be >= 1.
func (t *mergeTree[E]) playGame(pos int) int {
	if pos >= len(t.nodes)/2 {
		return pos
	}
	left := t.playGame(pos * 2)
	right := t.playGame(pos*2 + 1)

	winner, loser := left, right
	if t.beats(right, left) {
		winner, loser = right, left
	}

	t.nodes[pos].index = loser
	t.nodes[pos].value = t.nodes[loser].value
	t.nodes[pos].ok = t.nodes[loser].ok
	return winner
}

// beats reports whether the source at a wins the contest against the source
// at b. A live source always beats an exhausted one; ties keep b.
func (t *mergeTree[E]) beats(a, b int) bool {
	na, nb := &t.nodes[a], &t.nodes[b]
	if !na.ok {
		return false
	}
	if !nb.ok {
		return true
	}
	return t.less(na.value, nb.value)
}

// replayGames re-runs the contests from the leaf at pos up to the root
// after the leaf advanced to a new value.
func (t *mergeTree[E]) replayGames(pos int) {
	winVal := t.nodes[pos].value
	winOk := t.nodes[pos].ok

	for n := parent(pos); n != 0; n = parent(n) {
		node := &t.nodes[n]
		if node.ok && (!winOk || t.less(node.value, winVal)) {
			// The stored loser beats the incoming winner; swap them.
			node.index, pos = pos, node.index
			node.value, winVal = winVal, node.value
			node.ok, winOk = winOk, node.ok
		}
	}

	t.nodes[0].index = pos
	t.nodes[0].value = winVal
	t.nodes[0].ok = winOk
}

func parent(i int) int { return i >> 1 }
