package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"nestlist/internal/tree"
)

var (
	// ErrNotLoaded is returned for containers with no registered ops.
	ErrNotLoaded = errors.New("container not loaded")
	// ErrPending is returned for edits to a node the server has not
	// confirmed yet.
	ErrPending = errors.New("still saving, try again in a moment")
)

type Options struct {
	Scheduler Scheduler
	Notifier  Notifier
	Logger    *slog.Logger
	TempIDs   *TempIDs
	// Timeout bounds each network call. Zero means 15s.
	Timeout time.Duration
	// Atomic sends cross-container drops as one placement call instead of
	// a move followed by two reorders.
	Atomic bool
}

// Coordinator applies mutations to registered container state first and
// reconciles with the server in the background. All methods must be called
// from the goroutine that owns the state; completions arrive there through
// the Scheduler.
type Coordinator struct {
	api     API
	reg     *Registry
	sched   Scheduler
	notify  Notifier
	log     *slog.Logger
	temp    *TempIDs
	timeout time.Duration
	atomic  bool
}

func NewCoordinator(api API, reg *Registry, opts Options) *Coordinator {
	c := &Coordinator{api: api, reg: reg, sched: opts.Scheduler, notify: opts.Notifier,
		log: opts.Logger, temp: opts.TempIDs, timeout: opts.Timeout, atomic: opts.Atomic}
	if c.sched == nil {
		c.sched = Inline{}
	}
	if c.notify == nil {
		c.notify = NotifierFunc(func(string) {})
	}
	if c.log == nil {
		c.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.temp == nil {
		c.temp = NewTempIDs()
	}
	if c.timeout <= 0 {
		c.timeout = 15 * time.Second
	}
	return c
}

func (c *Coordinator) Registry() *Registry { return c.reg }

// call runs fn with a bounded context; it is handed to the scheduler as
// background work.
func (c *Coordinator) call(fn func(ctx context.Context) error) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		return fn(ctx)
	}
}

// failed logs err and shows exactly one notification for it.
func (c *Coordinator) failed(op string, err error) {
	if IsTransport(err) {
		c.log.Warn(op, "transport", true, "err", err)
		c.notify.Notify(fmt.Sprintf("%s failed: network error", op))
		return
	}
	c.log.Info(op, "err", err)
	c.notify.Notify(err.Error())
}

func (c *Coordinator) ops(container int64) (*ContainerOps, error) {
	ops, ok := c.reg.Lookup(container)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotLoaded, container)
	}
	return ops, nil
}

func parentOf(container int64) *int64 {
	if container == Roots {
		return nil
	}
	return tree.Ptr(container)
}

// CreateItem shows a pending item at the end of list and returns its
// temporary id. The server node replaces it on success; on failure it is
// removed again.
func (c *Coordinator) CreateItem(list int64, name string) (int64, error) {
	name, err := tree.NormalizeName(name)
	if err != nil {
		return 0, err
	}
	ops, err := c.ops(list)
	if err != nil {
		return 0, err
	}
	temp := c.temp.Next()
	ops.SetItems(append(append([]Item(nil), ops.GetItems()...), Item{ID: temp, Name: name, Pending: true}))

	var created tree.Node
	c.sched.Go(c.call(func(ctx context.Context) (err error) {
		created, err = c.api.CreateNode(ctx, tree.Ptr(list), tree.KindItem, name)
		return err
	}), func(err error) {
		ops, ok := c.reg.Lookup(list)
		if err != nil {
			if ok {
				if i := indexOf(ops.GetItems(), temp); i >= 0 {
					ops.SetItems(removeAt(ops.GetItems(), i))
				}
			}
			c.failed("create item", err)
			return
		}
		if ok {
			if items, found := replaceID(ops.GetItems(), temp, ItemFromNode(created)); found {
				ops.SetItems(items)
				return
			}
		}
		c.dropOrphan(created.ID)
	})
	return temp, nil
}

// CreateList is CreateItem for a child list of parent, or a root list when
// parent is Roots.
func (c *Coordinator) CreateList(parent int64, name string) (int64, error) {
	name, err := tree.NormalizeName(name)
	if err != nil {
		return 0, err
	}
	ops, err := c.ops(parent)
	if err != nil {
		return 0, err
	}
	temp := c.temp.Next()
	ops.SetChildren(append(append([]List(nil), ops.GetChildren()...), List{ID: temp, Name: name, Pending: true}))

	var created tree.Node
	c.sched.Go(c.call(func(ctx context.Context) (err error) {
		created, err = c.api.CreateNode(ctx, parentOf(parent), tree.KindList, name)
		return err
	}), func(err error) {
		ops, ok := c.reg.Lookup(parent)
		if err != nil {
			if ok {
				if i := indexOf(ops.GetChildren(), temp); i >= 0 {
					ops.SetChildren(removeAt(ops.GetChildren(), i))
				}
			}
			c.failed("create list", err)
			return
		}
		if ok {
			if lists, found := replaceID(ops.GetChildren(), temp, List{ID: created.ID, Name: created.Name}); found {
				ops.SetChildren(lists)
				return
			}
		}
		c.dropOrphan(created.ID)
	})
	return temp, nil
}

// dropOrphan deletes a node whose placeholder vanished while it was being
// created. Failures are only logged.
func (c *Coordinator) dropOrphan(id int64) {
	c.sched.Go(c.call(func(ctx context.Context) error {
		return c.api.DeleteNode(ctx, id)
	}), func(err error) {
		if err != nil {
			c.log.Warn("delete orphaned node", "node_id", id, "err", err)
		}
	})
}

// editItem applies edit to item id in list and sends it with send. On
// failure the item's captured prior value is put back.
func (c *Coordinator) editItem(op string, list, id int64, edit func(*Item), send func(ctx context.Context) error) error {
	if IsTemp(id) {
		return ErrPending
	}
	ops, err := c.ops(list)
	if err != nil {
		return err
	}
	i := indexOf(ops.GetItems(), id)
	if i < 0 {
		return fmt.Errorf("%w: item %d", tree.ErrNotFound, id)
	}
	prev := ops.GetItems()[i]
	next := prev
	edit(&next)
	items, _ := replaceID(ops.GetItems(), id, next)
	ops.SetItems(items)

	c.sched.Go(c.call(send), func(err error) {
		if err == nil {
			return
		}
		if ops, ok := c.reg.Lookup(list); ok {
			if items, found := replaceID(ops.GetItems(), id, prev); found {
				ops.SetItems(items)
			}
		}
		c.failed(op, err)
	})
	return nil
}

func (c *Coordinator) ToggleItem(list, id int64) error {
	var checked bool
	return c.editItem("toggle item", list, id, func(it *Item) {
		it.IsChecked = !it.IsChecked
		checked = it.IsChecked
	}, func(ctx context.Context) error {
		_, err := c.api.SetChecked(ctx, id, checked)
		return err
	})
}

func (c *Coordinator) RenameItem(list, id int64, name string) error {
	name, err := tree.NormalizeName(name)
	if err != nil {
		return err
	}
	return c.editItem("rename item", list, id, func(it *Item) { it.Name = name }, func(ctx context.Context) error {
		_, err := c.api.RenameNode(ctx, id, name)
		return err
	})
}

// RenameList renames child list id shown in container.
func (c *Coordinator) RenameList(container, id int64, name string) error {
	name, err := tree.NormalizeName(name)
	if err != nil {
		return err
	}
	if IsTemp(id) {
		return ErrPending
	}
	ops, err := c.ops(container)
	if err != nil {
		return err
	}
	i := indexOf(ops.GetChildren(), id)
	if i < 0 {
		return fmt.Errorf("%w: list %d", tree.ErrNotFound, id)
	}
	prev := ops.GetChildren()[i]
	next := prev
	next.Name = name
	lists, _ := replaceID(ops.GetChildren(), id, next)
	ops.SetChildren(lists)

	c.sched.Go(c.call(func(ctx context.Context) error {
		_, err := c.api.RenameNode(ctx, id, name)
		return err
	}), func(err error) {
		if err == nil {
			return
		}
		if ops, ok := c.reg.Lookup(container); ok {
			if lists, found := replaceID(ops.GetChildren(), id, prev); found {
				ops.SetChildren(lists)
			}
		}
		c.failed("rename list", err)
	})
	return nil
}

// DeleteItem removes the item locally and on the server. A pending item is
// only removed locally; its create completion then cleans up the server.
func (c *Coordinator) DeleteItem(list, id int64) error {
	ops, err := c.ops(list)
	if err != nil {
		return err
	}
	i := indexOf(ops.GetItems(), id)
	if i < 0 {
		return fmt.Errorf("%w: item %d", tree.ErrNotFound, id)
	}
	prev := ops.GetItems()[i]
	ops.SetItems(removeAt(ops.GetItems(), i))
	if IsTemp(id) {
		return nil
	}
	c.sched.Go(c.call(func(ctx context.Context) error {
		return c.api.DeleteNode(ctx, id)
	}), func(err error) {
		if err == nil {
			return
		}
		if ops, ok := c.reg.Lookup(list); ok && indexOf(ops.GetItems(), id) < 0 {
			ops.SetItems(insertAt(ops.GetItems(), prev, i))
		}
		c.failed("delete item", err)
	})
	return nil
}

// DeleteList removes child list id from container. Once the server confirms,
// the registrations of id and its expanded descendants go too.
func (c *Coordinator) DeleteList(container, id int64) error {
	ops, err := c.ops(container)
	if err != nil {
		return err
	}
	i := indexOf(ops.GetChildren(), id)
	if i < 0 {
		return fmt.Errorf("%w: list %d", tree.ErrNotFound, id)
	}
	prev := ops.GetChildren()[i]
	ops.SetChildren(removeAt(ops.GetChildren(), i))
	if IsTemp(id) {
		return nil
	}
	c.sched.Go(c.call(func(ctx context.Context) error {
		return c.api.DeleteNode(ctx, id)
	}), func(err error) {
		if err != nil {
			if ops, ok := c.reg.Lookup(container); ok && indexOf(ops.GetChildren(), id) < 0 {
				ops.SetChildren(insertAt(ops.GetChildren(), prev, i))
			}
			c.failed("delete list", err)
			return
		}
		c.reg.UnregisterTree(id)
	})
	return nil
}
