// Package client keeps a local copy of the list tree in step with the
// server. Every mutation is applied locally first, sent in the background
// and reverted to the captured prior value when the server says no.
package client

import "nestlist/internal/tree"

// Roots is the registry key of the container holding the root lists.
const Roots int64 = 0

type Item struct {
	ID        int64
	Name      string
	IsChecked bool
	// Pending marks a temporary item the server has not confirmed.
	Pending bool
}

type List struct {
	ID             int64
	Name           string
	ItemCount      int64
	CompletedCount int64
	Pending        bool
}

func (i Item) NodeID() int64 { return i.ID }
func (l List) NodeID() int64 { return l.ID }

func ItemFromNode(n tree.Node) Item {
	return Item{ID: n.ID, Name: n.Name, IsChecked: n.IsChecked}
}

func ListFromSummary(s ListSummary) List {
	return List{ID: s.ID, Name: s.Name, ItemCount: s.ItemCount, CompletedCount: s.CompletedCount}
}

// IsTemp reports whether id was minted locally.
func IsTemp(id int64) bool { return id < 0 }

type entry interface {
	Item | List
	NodeID() int64
}

func idsOf[T entry](s []T) []int64 {
	out := make([]int64, len(s))
	for i, e := range s {
		out[i] = e.NodeID()
	}
	return out
}

func indexOf[T entry](s []T, id int64) int {
	for i, e := range s {
		if e.NodeID() == id {
			return i
		}
	}
	return -1
}

func anyTemp(ids []int64) bool {
	for _, id := range ids {
		if IsTemp(id) {
			return true
		}
	}
	return false
}

// arrayMove returns a copy of s with the element at from moved to to.
func arrayMove[T entry](s []T, from, to int) []T {
	out := make([]T, 0, len(s))
	out = append(out, s[:from]...)
	out = append(out, s[from+1:]...)
	return insertAt(out, s[from], to)
}

// insertAt returns a copy of s with e at index, clamped.
func insertAt[T entry](s []T, e T, index int) []T {
	index = max(0, min(index, len(s)))
	out := make([]T, 0, len(s)+1)
	out = append(out, s[:index]...)
	out = append(out, e)
	return append(out, s[index:]...)
}

func removeAt[T entry](s []T, index int) []T {
	out := make([]T, 0, len(s))
	out = append(out, s[:index]...)
	return append(out, s[index+1:]...)
}

// replaceID swaps the element with id for e, reporting whether it was found.
func replaceID[T entry](s []T, id int64, e T) ([]T, bool) {
	i := indexOf(s, id)
	if i < 0 {
		return s, false
	}
	out := append([]T(nil), s...)
	out[i] = e
	return out, true
}

// ContainerOps reads and writes one expanded container's state.
type ContainerOps struct {
	GetItems    func() []Item
	SetItems    func([]Item)
	GetChildren func() []List
	SetChildren func([]List)
}

// Container is plain in-memory container state.
type Container struct {
	ID       int64
	Items    []Item
	Children []List
}

func NewContainer(d ListDetail) *Container {
	c := &Container{ID: d.ID}
	for _, n := range d.Items {
		c.Items = append(c.Items, ItemFromNode(n))
	}
	for _, s := range d.Children {
		c.Children = append(c.Children, ListFromSummary(s))
	}
	return c
}

func (c *Container) Ops() *ContainerOps {
	return &ContainerOps{
		GetItems:    func() []Item { return c.Items },
		SetItems:    func(v []Item) { c.Items = v },
		GetChildren: func() []List { return c.Children },
		SetChildren: func(v []List) { c.Children = v },
	}
}

// Registry maps container ids to their ops. It is not safe for concurrent
// use; touch it only from the goroutine that owns client state.
type Registry struct {
	ops map[int64]*ContainerOps
}

func NewRegistry() *Registry { return &Registry{ops: map[int64]*ContainerOps{}} }

func (r *Registry) Register(id int64, ops *ContainerOps) { r.ops[id] = ops }

func (r *Registry) Unregister(id int64) { delete(r.ops, id) }

// UnregisterTree drops id and every registered container reachable from it
// through registered child lists. An expanded container always has its
// parent registered, so this reaches every expanded descendant.
func (r *Registry) UnregisterTree(id int64) {
	stack := []int64{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		ops, ok := r.ops[cur]
		if !ok {
			continue
		}
		delete(r.ops, cur)
		for _, c := range ops.GetChildren() {
			stack = append(stack, c.ID)
		}
	}
}

func (r *Registry) Lookup(id int64) (*ContainerOps, bool) {
	ops, ok := r.ops[id]
	return ops, ok
}

func (r *Registry) Len() int { return len(r.ops) }
