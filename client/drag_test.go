package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nestlist/internal/tree"
)

func TestParseKeys(t *testing.T) {
	kind, id, err := ParseKey("item-12")
	require.NoError(t, err)
	assert.Equal(t, tree.KindItem, kind)
	assert.Equal(t, int64(12), id)

	kind, id, err = ParseKey(SublistKey(7))
	require.NoError(t, err)
	assert.Equal(t, tree.KindList, kind)
	assert.Equal(t, int64(7), id)

	_, id, err = ParseKey(ItemKey(-1700000000123))
	require.NoError(t, err)
	assert.Equal(t, int64(-1700000000123), id)

	for _, bad := range []string{"", "list-3", "item-", "item-x", "sublist"} {
		_, _, err := ParseKey(bad)
		assert.ErrorIs(t, err, tree.ErrValidation, bad)
	}

	c, err := ParseContainerKey(ContainerKey(4))
	require.NoError(t, err)
	assert.Equal(t, int64(4), c)
	c, err = ParseContainerKey(ContainerKey(Roots))
	require.NoError(t, err)
	assert.Equal(t, Roots, c)
	for _, bad := range []string{"list-0", "list--2", "item-3", "lists"} {
		_, err := ParseContainerKey(bad)
		assert.ErrorIs(t, err, tree.ErrValidation, bad)
	}
}

func itemDrop(id, over int64, from, to int64) DropEvent {
	return DropEvent{Active: ItemKey(id), Over: ItemKey(over), ActiveContainer: ContainerKey(from), OverContainer: ContainerKey(to)}
}

func ids[T entry](s []T) []int64 { return idsOf(s) }

func TestDropReorder(t *testing.T) {
	h := newHarness(false, false)
	c := h.mount(1, []int64{1, 2, 3}, nil)

	assert.Equal(t, DropReorder, h.coord.HandleDrop(itemDrop(1, 3, 1, 1)))
	assert.Equal(t, []int64{2, 3, 1}, ids(c.Items))
	assert.Equal(t, DropReorder, h.coord.HandleDrop(itemDrop(1, 2, 1, 1)))
	assert.Equal(t, []int64{1, 2, 3}, ids(c.Items))
	assert.Equal(t, []string{"reorder 1 item [2 3 1]", "reorder 1 item [1 2 3]"}, h.api.Calls())
}

func TestDropReorderRollback(t *testing.T) {
	h := newHarness(true, false)
	c := h.mount(1, []int64{1, 2, 3}, nil)
	before := h.snapshot()
	h.api.failOn("reorder", &Error{Status: 400, Reason: "invalid_order", Message: "all 3 children must be included"})

	require.Equal(t, DropReorder, h.coord.HandleDrop(itemDrop(3, 1, 1, 1)))
	assert.Equal(t, []int64{3, 1, 2}, ids(c.Items))

	h.drain()
	assertUnchanged(t, before, h)
	assert.Equal(t, []string{"all 3 children must be included"}, h.notes.Messages())
}

func TestDropIgnored(t *testing.T) {
	tests := []struct {
		name string
		ev   DropEvent
	}{
		{"kinds differ", DropEvent{Active: ItemKey(2), Over: SublistKey(5), ActiveContainer: "list-1", OverContainer: "list-1"}},
		{"onto itself", itemDrop(2, 2, 1, 1)},
		{"bad key", DropEvent{Active: "card-2", Over: ItemKey(1), ActiveContainer: "list-1", OverContainer: "list-1"}},
		{"unknown node", itemDrop(99, 1, 1, 4)},
		{"source not loaded", itemDrop(2, 40, 8, 4)},
		{"target not loaded", itemDrop(2, 40, 1, 9)},
		{"item to roots", DropEvent{Active: ItemKey(2), Over: "roots", ActiveContainer: "list-1", OverContainer: "roots"}},
		{"no target", DropEvent{Active: ItemKey(1), ActiveContainer: "list-1", OverContainer: "list-1"}},
		{"no target across", DropEvent{Active: ItemKey(1), ActiveContainer: "list-1", OverContainer: "list-4"}},
		{"list into itself", DropEvent{Active: SublistKey(5), Over: "list-5", ActiveContainer: "list-1", OverContainer: "list-5"}},
		{"roots reorder", DropEvent{Active: SublistKey(1), Over: SublistKey(6), ActiveContainer: "roots", OverContainer: "roots"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(false, false)
			h.mount(Roots, nil, []int64{1, 6})
			h.mount(1, []int64{1, 2, 3}, []int64{5})
			h.mount(4, []int64{40, 41}, nil)
			h.mount(5, nil, nil)
			before := h.snapshot()

			assert.Equal(t, DropIgnored, h.coord.HandleDrop(tt.ev))
			assertUnchanged(t, before, h)
			assert.Empty(t, h.api.Calls())
			assert.Empty(t, h.notes.Messages())
		})
	}
}

func TestDropMoveAcrossContainers(t *testing.T) {
	h := newHarness(false, false)
	l1 := h.mount(1, []int64{1, 2, 3}, nil)
	l4 := h.mount(4, []int64{40, 41}, nil)

	assert.Equal(t, DropMove, h.coord.HandleDrop(itemDrop(2, 41, 1, 4)))
	assert.Equal(t, []int64{1, 3}, ids(l1.Items))
	assert.Equal(t, []int64{40, 2, 41}, ids(l4.Items))
	assert.Equal(t, []string{
		"move 2 4",
		"reorder 4 item [40 2 41]",
		"reorder 1 item [1 3]",
	}, h.api.Calls())
}

func TestDropMoveRollback(t *testing.T) {
	for _, op := range []string{"move", "reorder"} {
		t.Run(op, func(t *testing.T) {
			h := newHarness(true, false)
			l1 := h.mount(1, []int64{1, 2, 3}, nil)
			l4 := h.mount(4, []int64{40, 41}, nil)
			before := h.snapshot()
			h.api.failOn(op, errOffline)

			require.Equal(t, DropMove, h.coord.HandleDrop(itemDrop(2, 41, 1, 4)))
			assert.Len(t, l1.Items, 2)
			assert.Len(t, l4.Items, 3)

			h.drain()
			assert.Len(t, l1.Items, 3)
			assert.Len(t, l4.Items, 2)
			assertUnchanged(t, before, h)
			assert.Equal(t, []string{"move failed: network error"}, h.notes.Messages())
		})
	}
}

func TestDropOnEmptySpaceAppends(t *testing.T) {
	h := newHarness(false, false)
	h.mount(1, []int64{1, 2}, nil)
	l4 := h.mount(4, []int64{40, 41}, nil)

	ev := DropEvent{Active: ItemKey(1), Over: ContainerKey(4), ActiveContainer: "list-1", OverContainer: "list-4"}
	assert.Equal(t, DropMove, h.coord.HandleDrop(ev))
	assert.Equal(t, []int64{40, 41, 1}, ids(l4.Items))
}

func TestDropMoveAtomic(t *testing.T) {
	h := newHarness(false, true)
	h.mount(1, []int64{1, 2, 3}, nil)
	l4 := h.mount(4, []int64{40, -7, 41}, nil)

	assert.Equal(t, DropMove, h.coord.HandleDrop(itemDrop(2, 41, 1, 4)))
	assert.Equal(t, []int64{40, -7, 2, 41}, ids(l4.Items))
	assert.Equal(t, []string{"place 2 4 1"}, h.api.Calls())
}

func TestDropMoveSkipsTempOrderings(t *testing.T) {
	h := newHarness(false, false)
	h.mount(1, []int64{1, 2}, nil)
	h.mount(4, []int64{-7}, nil)

	assert.Equal(t, DropMove, h.coord.HandleDrop(itemDrop(2, -7, 1, 4)))
	assert.Equal(t, []string{"move 2 4", "reorder 1 item [1]"}, h.api.Calls())
}

func TestDropTempNodeStaysLocal(t *testing.T) {
	h := newHarness(false, false)
	l1 := h.mount(1, []int64{1, -5}, nil)
	l4 := h.mount(4, []int64{40}, nil)

	assert.Equal(t, DropReorder, h.coord.HandleDrop(itemDrop(-5, 1, 1, 1)))
	assert.Equal(t, []int64{-5, 1}, ids(l1.Items))
	assert.Equal(t, DropMove, h.coord.HandleDrop(itemDrop(-5, 40, 1, 4)))
	assert.Equal(t, []int64{-5, 40}, ids(l4.Items))
	assert.Empty(t, h.api.Calls())
}

func TestDropSublists(t *testing.T) {
	h := newHarness(false, false)
	roots := h.mount(Roots, nil, []int64{1})
	l1 := h.mount(1, nil, []int64{2, 3})
	l3 := h.mount(3, nil, nil)

	ev := DropEvent{Active: SublistKey(2), Over: ContainerKey(3), ActiveContainer: "list-1", OverContainer: "list-3"}
	require.Equal(t, DropMove, h.coord.HandleDrop(ev))
	assert.Equal(t, []int64{3}, ids(l1.Children))
	assert.Equal(t, []int64{2}, ids(l3.Children))

	ev = DropEvent{Active: SublistKey(2), Over: SublistKey(1), ActiveContainer: "list-3", OverContainer: "roots"}
	require.Equal(t, DropMove, h.coord.HandleDrop(ev))
	assert.Equal(t, []int64{1, 2}, ids(roots.Children))
	assert.Empty(t, l3.Children)

	assert.Equal(t, []string{
		"move 2 3", "reorder 3 list [2]", "reorder 1 list [3]",
		"move 2 root", "reorder 3 list []",
	}, h.api.Calls())
}

func TestDropKindString(t *testing.T) {
	assert.Equal(t, "ignored", DropIgnored.String())
	assert.Equal(t, "reorder", DropReorder.String())
	assert.Equal(t, "move", DropMove.String())
}
