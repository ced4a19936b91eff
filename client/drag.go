package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"nestlist/internal/tree"
)

// Draggable keys are "item-<id>" and "sublist-<id>". Containers are keyed
// "list-<id>", and the root lists live in "roots".
const (
	itemPrefix      = "item-"
	sublistPrefix   = "sublist-"
	containerPrefix = "list-"
	rootsKey        = "roots"
)

func ItemKey(id int64) string { return itemPrefix + itoa(id) }

func SublistKey(id int64) string { return sublistPrefix + itoa(id) }

func ContainerKey(id int64) string {
	if id == Roots {
		return rootsKey
	}
	return containerPrefix + itoa(id)
}

// ParseKey splits a draggable key into its kind and node id.
func ParseKey(key string) (tree.Kind, int64, error) {
	var kind tree.Kind
	var rest string
	switch {
	case strings.HasPrefix(key, itemPrefix):
		kind, rest = tree.KindItem, key[len(itemPrefix):]
	case strings.HasPrefix(key, sublistPrefix):
		kind, rest = tree.KindList, key[len(sublistPrefix):]
	default:
		return "", 0, fmt.Errorf("%w: bad drag key %q", tree.ErrValidation, key)
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: bad drag key %q", tree.ErrValidation, key)
	}
	return kind, id, nil
}

func ParseContainerKey(key string) (int64, error) {
	if key == rootsKey {
		return Roots, nil
	}
	rest, ok := strings.CutPrefix(key, containerPrefix)
	if !ok {
		return 0, fmt.Errorf("%w: bad container key %q", tree.ErrValidation, key)
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad container key %q", tree.ErrValidation, key)
	}
	return id, nil
}

// DropEvent is one finished drag gesture. Over is either the key of the node
// dropped on or, for a drop on empty space, a container key. An empty Over
// means the gesture ended outside every target and is ignored.
type DropEvent struct {
	Active          string
	Over            string
	ActiveContainer string
	OverContainer   string
}

type DropKind int

const (
	DropIgnored DropKind = iota
	DropReorder
	DropMove
)

func (k DropKind) String() string {
	switch k {
	case DropReorder:
		return "reorder"
	case DropMove:
		return "move"
	}
	return "ignored"
}

type drop struct {
	kind     tree.Kind
	id       int64
	from, to int64
	// over is the node dropped on; onNode is false for a container drop.
	over   int64
	onNode bool
}

func parseDrop(ev DropEvent) (drop, error) {
	var d drop
	var err error
	if ev.Over == "" {
		return d, fmt.Errorf("%w: released outside any drop target", tree.ErrValidation)
	}
	if d.kind, d.id, err = ParseKey(ev.Active); err != nil {
		return d, err
	}
	if d.from, err = ParseContainerKey(ev.ActiveContainer); err != nil {
		return d, err
	}
	if d.to, err = ParseContainerKey(ev.OverContainer); err != nil {
		return d, err
	}
	overKind, over, err := ParseKey(ev.Over)
	if err != nil {
		if _, cerr := ParseContainerKey(ev.Over); cerr != nil {
			return d, err
		}
		return d, nil
	}
	if overKind != d.kind {
		return d, fmt.Errorf("%w: cannot drop %s on %s", tree.ErrInvalidTarget, d.kind, overKind)
	}
	d.over, d.onNode = over, true
	return d, nil
}

// slot reads and writes one kind's slice of a container.
type slot[T entry] struct {
	get func(*ContainerOps) []T
	set func(*ContainerOps, []T)
}

var (
	itemSlot = slot[Item]{
		get: func(o *ContainerOps) []Item { return o.GetItems() },
		set: func(o *ContainerOps, v []Item) { o.SetItems(v) },
	}
	listSlot = slot[List]{
		get: func(o *ContainerOps) []List { return o.GetChildren() },
		set: func(o *ContainerOps, v []List) { o.SetChildren(v) },
	}
)

// HandleDrop applies a drop optimistically and reconciles it with the
// server. Both touched containers return to their pre-drop state if any
// call fails.
func (c *Coordinator) HandleDrop(ev DropEvent) DropKind {
	d, err := parseDrop(ev)
	if err != nil {
		c.log.Debug("drop ignored", "err", err)
		return DropIgnored
	}
	if d.kind == tree.KindItem {
		return handleDrop(c, d, itemSlot)
	}
	return handleDrop(c, d, listSlot)
}

func handleDrop[T entry](c *Coordinator, d drop, s slot[T]) DropKind {
	if d.from == d.to {
		return reorderDrop(c, d, s)
	}
	return moveDrop(c, d, s)
}

func reorderDrop[T entry](c *Coordinator, d drop, s slot[T]) DropKind {
	// Root positions are per owner; there is nothing to reorder them against.
	if d.from == Roots {
		return DropIgnored
	}
	ops, ok := c.reg.Lookup(d.from)
	if !ok {
		return DropIgnored
	}
	before := s.get(ops)
	from := indexOf(before, d.id)
	to := len(before) - 1
	if d.onNode {
		to = indexOf(before, d.over)
	}
	if from < 0 || to < 0 || from == to {
		return DropIgnored
	}
	after := arrayMove(before, from, to)
	s.set(ops, after)

	ids := idsOf(after)
	if anyTemp(ids) {
		return DropReorder
	}
	c.sched.Go(c.call(func(ctx context.Context) error {
		return c.api.Reorder(ctx, d.from, d.kind, ids)
	}), func(err error) {
		if err == nil {
			return
		}
		if ops, ok := c.reg.Lookup(d.from); ok {
			s.set(ops, before)
		}
		c.failed("reorder", err)
	})
	return DropReorder
}

func moveDrop[T entry](c *Coordinator, d drop, s slot[T]) DropKind {
	if d.kind == tree.KindItem && d.to == Roots {
		return DropIgnored
	}
	if d.kind == tree.KindList && d.to == d.id {
		return DropIgnored
	}
	src, ok := c.reg.Lookup(d.from)
	if !ok {
		return DropIgnored
	}
	srcBefore := s.get(src)
	i := indexOf(srcBefore, d.id)
	if i < 0 {
		return DropIgnored
	}
	moved := srcBefore[i]
	srcAfter := removeAt(srcBefore, i)
	s.set(src, srcAfter)

	dst, ok := c.reg.Lookup(d.to)
	if !ok {
		s.set(src, srcBefore)
		c.log.Info("drop aborted", "reason", "target not loaded", "container", d.to)
		return DropIgnored
	}
	dstBefore := s.get(dst)
	index := len(dstBefore)
	if d.onNode && d.to != Roots {
		if k := indexOf(dstBefore, d.over); k >= 0 {
			index = k
		}
	}
	dstAfter := insertAt(dstBefore, moved, index)
	s.set(dst, dstAfter)

	if IsTemp(d.id) {
		return DropMove
	}

	revert := func(err error) {
		if ops, ok := c.reg.Lookup(d.from); ok {
			s.set(ops, srcBefore)
		}
		if ops, ok := c.reg.Lookup(d.to); ok {
			s.set(ops, dstBefore)
		}
		c.failed("move", err)
	}
	done := func(err error) {
		if err != nil {
			revert(err)
		}
	}
	target := parentOf(d.to)
	dstIDs, srcIDs := idsOf(dstAfter), idsOf(srcAfter)

	if c.atomic {
		at := serverIndex(dstIDs, d.id)
		c.sched.Go(c.call(func(ctx context.Context) error {
			_, err := c.api.PlaceNode(ctx, d.id, target, at)
			return err
		}), done)
		return DropMove
	}

	c.sched.Go(c.call(func(ctx context.Context) error {
		if _, err := c.api.MoveNode(ctx, d.id, target); err != nil {
			return err
		}
		if d.to != Roots && !anyTemp(dstIDs) {
			if err := c.api.Reorder(ctx, d.to, d.kind, dstIDs); err != nil {
				return err
			}
		}
		if d.from != Roots && !anyTemp(srcIDs) {
			if err := c.api.Reorder(ctx, d.from, d.kind, srcIDs); err != nil {
				return err
			}
		}
		return nil
	}), done)
	return DropMove
}

// serverIndex is id's index in ids once temporary ids are skipped.
func serverIndex(ids []int64, id int64) int {
	n := 0
	for _, v := range ids {
		if v == id {
			return n
		}
		if !IsTemp(v) {
			n++
		}
	}
	return n
}
