package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"nestlist/internal/tree"
)

var errOffline = errors.New("dial tcp 127.0.0.1:8080: connect: connection refused")

// fakeAPI records calls and fails the operations named in fail.
type fakeAPI struct {
	mu     sync.Mutex
	calls  []string
	fail   map[string]error
	nextID int64
}

func newFakeAPI() *fakeAPI { return &fakeAPI{fail: map[string]error{}, nextID: 100} }

func (f *fakeAPI) failOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = err
}

func (f *fakeAPI) record(op, format string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op+" "+fmt.Sprintf(format, args...))
	return f.fail[op]
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func fmtParent(p *int64) string {
	if p == nil {
		return "root"
	}
	return itoa(*p)
}

func (f *fakeAPI) CreateNode(_ context.Context, parent *int64, kind tree.Kind, name string) (tree.Node, error) {
	if err := f.record("create", "%s %s %s", fmtParent(parent), kind, name); err != nil {
		return tree.Node{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return tree.Node{ID: f.nextID, Kind: kind, Name: name, ParentID: parent}, nil
}

func (f *fakeAPI) RenameNode(_ context.Context, id int64, name string) (tree.Node, error) {
	return tree.Node{ID: id, Name: name}, f.record("rename", "%d %s", id, name)
}

func (f *fakeAPI) SetChecked(_ context.Context, id int64, checked bool) (tree.Node, error) {
	return tree.Node{ID: id, IsChecked: checked}, f.record("check", "%d %t", id, checked)
}

func (f *fakeAPI) DeleteNode(_ context.Context, id int64) error {
	return f.record("delete", "%d", id)
}

func (f *fakeAPI) MoveNode(_ context.Context, id int64, parent *int64) (tree.Node, error) {
	return tree.Node{ID: id, ParentID: parent}, f.record("move", "%d %s", id, fmtParent(parent))
}

func (f *fakeAPI) PlaceNode(_ context.Context, id int64, parent *int64, index int) (tree.Node, error) {
	return tree.Node{ID: id, ParentID: parent}, f.record("place", "%d %s %d", id, fmtParent(parent), index)
}

func (f *fakeAPI) Reorder(_ context.Context, container int64, kind tree.Kind, ids []int64) error {
	return f.record("reorder", "%d %s %v", container, kind, ids)
}

type harness struct {
	api   *fakeAPI
	reg   *Registry
	notes *Recorder
	coord *Coordinator
	boxes map[int64]*Container
	loop  *EventLoop
}

func newHarness(loop bool, atomic bool) *harness {
	h := &harness{api: newFakeAPI(), reg: NewRegistry(), notes: &Recorder{}, boxes: map[int64]*Container{}}
	opts := Options{Notifier: h.notes, Atomic: atomic}
	if loop {
		h.loop = NewEventLoop()
		opts.Scheduler = h.loop
	}
	h.coord = NewCoordinator(h.api, h.reg, opts)
	return h
}

// mount registers a container holding items and child lists named after
// their ids.
func (h *harness) mount(id int64, items []int64, lists []int64) *Container {
	c := &Container{ID: id}
	for _, i := range items {
		c.Items = append(c.Items, Item{ID: i, Name: "item " + itoa(i)})
	}
	for _, l := range lists {
		c.Children = append(c.Children, List{ID: l, Name: "list " + itoa(l)})
	}
	h.boxes[id] = c
	h.reg.Register(id, c.Ops())
	return c
}

// snapshot deep-copies every mounted container.
func (h *harness) snapshot() map[int64]Container {
	out := map[int64]Container{}
	for id, c := range h.boxes {
		out[id] = Container{
			ID:       c.ID,
			Items:    append([]Item(nil), c.Items...),
			Children: append([]List(nil), c.Children...),
		}
	}
	return out
}

func (h *harness) drain() {
	if h.loop != nil {
		h.loop.Drain()
	}
}
