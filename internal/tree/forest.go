package tree

import (
	"errors"
	"fmt"
	"slices"
)

// Forest is an arena of nodes keyed by id. Parent links are plain ids, so
// ancestor and descendant walks are loops over the map. A Forest is not safe
// for concurrent use.
type Forest struct {
	nodes  map[int64]*Node
	nextID int64
}

func NewForest() *Forest {
	return &Forest{nodes: map[int64]*Node{}, nextID: 1}
}

// Load builds a forest from stored nodes. It does not check invariants; call
// Validate for that.
func Load(nodes []Node) *Forest {
	f := NewForest()
	for _, n := range nodes {
		n := n
		f.nodes[n.ID] = &n
		if n.ID >= f.nextID {
			f.nextID = n.ID + 1
		}
	}
	return f
}

func (f *Forest) Len() int { return len(f.nodes) }

func (f *Forest) Get(id int64) (Node, bool) {
	n, ok := f.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// ParentOf is a ParentFunc over the arena.
func (f *Forest) ParentOf(id int64) (int64, bool, error) {
	n, ok := f.nodes[id]
	if !ok {
		return 0, false, fmt.Errorf("%w: node %d", ErrNotFound, id)
	}
	if n.ParentID == nil {
		return 0, false, nil
	}
	return *n.ParentID, true, nil
}

// Children returns the direct children of parent of the given kind ordered
// by (position, id). A nil parent selects the roots.
func (f *Forest) Children(parent *int64, kind Kind) []Node {
	var out []Node
	for _, n := range f.nodes {
		if n.Kind == kind && n.HasParent(parent) {
			out = append(out, *n)
		}
	}
	SortSiblings(out)
	return out
}

func (f *Forest) Roots() []Node { return f.Children(nil, KindList) }

func (f *Forest) nextPosition(parent *int64, kind Kind) int64 {
	next := int64(0)
	for _, n := range f.nodes {
		if n.Kind == kind && n.HasParent(parent) && n.Position >= next {
			next = n.Position + 1
		}
	}
	return next
}

func (f *Forest) list(id int64) (*Node, error) {
	n, ok := f.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: list %d", ErrNotFound, id)
	}
	if n.Kind != KindList {
		return nil, fmt.Errorf("%w: node %d is not a list", ErrInvalidTarget, id)
	}
	return n, nil
}

// Create appends a new node at the end of its container.
func (f *Forest) Create(parent *int64, kind Kind, name string) (Node, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return Node{}, err
	}
	if kind != KindList && kind != KindItem {
		return Node{}, fmt.Errorf("%w: unknown kind %q", ErrValidation, kind)
	}
	if parent == nil && kind == KindItem {
		return Node{}, fmt.Errorf("%w: items need a parent list", ErrValidation)
	}
	if parent != nil {
		if _, err := f.list(*parent); err != nil {
			return Node{}, err
		}
		parent = Ptr(*parent)
	}
	n := &Node{ID: f.nextID, Kind: kind, Name: name, ParentID: parent, Position: f.nextPosition(parent, kind)}
	f.nextID++
	f.nodes[n.ID] = n
	return *n, nil
}

// Delete removes id and all of its descendants. Remaining siblings keep their
// positions; the gap closes on the next Reorder.
func (f *Forest) Delete(id int64) ([]int64, error) {
	if _, ok := f.nodes[id]; !ok {
		return nil, fmt.Errorf("%w: node %d", ErrNotFound, id)
	}
	removed := append([]int64{id}, f.Descendants(id)...)
	for _, d := range removed {
		delete(f.nodes, d)
	}
	return removed, nil
}

// Descendants lists every node below id in ascending id order.
func (f *Forest) Descendants(id int64) []int64 {
	var out []int64
	queue := []int64{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range f.nodes {
			if n.ParentID != nil && *n.ParentID == cur {
				out = append(out, n.ID)
				queue = append(queue, n.ID)
			}
		}
	}
	slices.Sort(out)
	return out
}

// checkMove validates moving id under target and reports whether it is a
// no-op.
func (f *Forest) checkMove(id int64, target *int64) (*Node, bool, error) {
	n, ok := f.nodes[id]
	if !ok {
		return nil, false, fmt.Errorf("%w: node %d", ErrNotFound, id)
	}
	if target == nil {
		if n.Kind == KindItem {
			return nil, false, fmt.Errorf("%w: items need a parent list", ErrInvalidTarget)
		}
		return n, n.ParentID == nil, nil
	}
	if _, err := f.list(*target); err != nil {
		return nil, false, err
	}
	if n.Kind == KindList {
		if err := CheckReparent(id, *target, f.ParentOf); err != nil {
			return nil, false, err
		}
	}
	return n, n.HasParent(target), nil
}

// Move reparents id and appends it to the end of target's same-kind
// children. Moving to the current parent changes nothing.
func (f *Forest) Move(id int64, target *int64) (Node, error) {
	n, same, err := f.checkMove(id, target)
	if err != nil {
		return Node{}, err
	}
	if same {
		return *n, nil
	}
	if target != nil {
		target = Ptr(*target)
	}
	n.Position = f.nextPosition(target, n.Kind)
	n.ParentID = target
	return *n, nil
}

// Place moves id under target at index and renumbers both the source and the
// target container densely, in one step.
func (f *Forest) Place(id int64, target *int64, index int) (Node, error) {
	n, _, err := f.checkMove(id, target)
	if err != nil {
		return Node{}, err
	}
	source := n.ParentID
	if !n.HasParent(target) {
		f.renumber(Without(IDs(f.Children(source, n.Kind)), id))
	}
	if target != nil {
		target = Ptr(*target)
	}
	n.ParentID = target
	siblings := Without(IDs(f.Children(target, n.Kind)), id)
	f.renumber(InsertAt(siblings, id, index))
	return *n, nil
}

// Reorder rewrites the positions of parent's kind children to match ordered.
// Nothing changes when ordered is rejected.
func (f *Forest) Reorder(parent int64, kind Kind, ordered []int64) error {
	if kind != KindList && kind != KindItem {
		return fmt.Errorf("%w: unknown kind %q", ErrValidation, kind)
	}
	if _, err := f.list(parent); err != nil {
		return err
	}
	current := IDs(f.Children(&parent, kind))
	if err := ValidateOrder(current, ordered); err != nil {
		return err
	}
	f.renumber(ordered)
	return nil
}

func (f *Forest) renumber(ordered []int64) {
	for i, id := range ordered {
		f.nodes[id].Position = int64(i)
	}
}

// Validate checks the structural invariants: parents exist and are lists,
// items are never roots, no node is its own ancestor, and no two same-kind
// siblings share a position.
func (f *Forest) Validate() error {
	type slot struct {
		parent   int64
		root     bool
		kind     Kind
		position int64
	}
	taken := map[slot]int64{}
	for _, n := range f.nodes {
		if n.ParentID == nil {
			if n.Kind == KindItem {
				return fmt.Errorf("%w: item %d has no parent", ErrInvalidTarget, n.ID)
			}
		} else {
			p, ok := f.nodes[*n.ParentID]
			if !ok {
				return fmt.Errorf("%w: parent %d of node %d", ErrNotFound, *n.ParentID, n.ID)
			}
			if p.Kind != KindList {
				return fmt.Errorf("%w: parent %d of node %d is not a list", ErrInvalidTarget, p.ID, n.ID)
			}
			if _, err := Ancestors(n.ID, f.ParentOf); err != nil {
				if errors.Is(err, errDepth) {
					return fmt.Errorf("%w: node %d: %w", ErrCyclicMove, n.ID, err)
				}
				return err
			}
		}
		s := slot{kind: n.Kind, position: n.Position, root: n.ParentID == nil}
		if n.ParentID != nil {
			s.parent = *n.ParentID
		}
		if other, dup := taken[s]; dup {
			return fmt.Errorf("%w: nodes %d and %d share position %d", ErrInvalidOrder, other, n.ID, n.Position)
		}
		taken[s] = n.ID
	}
	return nil
}

// Dense reports whether parent's kind children occupy exactly 0..n-1.
func (f *Forest) Dense(parent *int64, kind Kind) bool {
	for i, n := range f.Children(parent, kind) {
		if n.Position != int64(i) {
			return false
		}
	}
	return true
}

// Branch is a list with its items and child lists, recursively.
type Branch struct {
	Node
	Items    []Node    `json:"items"`
	Children []*Branch `json:"children"`
}

// Subtree renders the list rooted at id as nested branches, siblings ordered
// by (position, id).
func (f *Forest) Subtree(id int64) (*Branch, error) {
	n, err := f.list(id)
	if err != nil {
		return nil, err
	}
	b := &Branch{Node: *n, Items: f.Children(&id, KindItem), Children: []*Branch{}}
	if b.Items == nil {
		b.Items = []Node{}
	}
	for _, c := range f.Children(&id, KindList) {
		child, err := f.Subtree(c.ID)
		if err != nil {
			return nil, err
		}
		b.Children = append(b.Children, child)
	}
	return b, nil
}
