package client

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nestlist/internal/tree"
)

var forbidden = &Error{Status: 403, Reason: "forbidden", Message: "you only have read access"}

func assertUnchanged(t *testing.T, want map[int64]Container, h *harness) {
	t.Helper()
	if diff := cmp.Diff(want, h.snapshot(), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("state not restored (-want +got):\n%s", diff)
	}
}

func TestCreateItemReplacesTemp(t *testing.T) {
	h := newHarness(false, false)
	c := h.mount(1, []int64{10}, nil)

	temp, err := h.coord.CreateItem(1, "  milk ")
	require.NoError(t, err)
	assert.True(t, IsTemp(temp))

	assert.Equal(t, []Item{{ID: 10, Name: "item 10"}, {ID: 101, Name: "milk"}}, c.Items)
	assert.Equal(t, []string{"create 1 item milk"}, h.api.Calls())
	assert.Empty(t, h.notes.Messages())
}

func TestCreateItemOffline(t *testing.T) {
	h := newHarness(true, false)
	c := h.mount(1, []int64{10, 11}, nil)
	before := h.snapshot()
	h.api.failOn("create", errOffline)

	temp, err := h.coord.CreateItem(1, "eggs")
	require.NoError(t, err)

	require.Len(t, c.Items, 3)
	assert.Equal(t, Item{ID: temp, Name: "eggs", Pending: true}, c.Items[2])
	assert.Less(t, temp, int64(0))

	h.drain()
	assertUnchanged(t, before, h)
	assert.Equal(t, []string{"create item failed: network error"}, h.notes.Messages())
}

func TestCreateItemDeletedWhilePending(t *testing.T) {
	h := newHarness(true, false)
	c := h.mount(1, nil, nil)

	temp, err := h.coord.CreateItem(1, "bread")
	require.NoError(t, err)
	require.NoError(t, h.coord.DeleteItem(1, temp))
	assert.Empty(t, c.Items)

	h.drain()
	assert.Empty(t, c.Items)
	assert.Equal(t, []string{"create 1 item bread", "delete 101"}, h.api.Calls())
	assert.Empty(t, h.notes.Messages())
}

func TestCreateItemAfterUnmount(t *testing.T) {
	h := newHarness(true, false)
	h.mount(1, nil, nil)

	_, err := h.coord.CreateItem(1, "bread")
	require.NoError(t, err)
	h.reg.Unregister(1)
	h.drain()

	assert.Equal(t, []string{"create 1 item bread", "delete 101"}, h.api.Calls())
}

func TestCreateListAtRoots(t *testing.T) {
	h := newHarness(false, false)
	roots := h.mount(Roots, nil, []int64{1})

	_, err := h.coord.CreateList(Roots, "groceries")
	require.NoError(t, err)
	assert.Equal(t, []List{{ID: 1, Name: "list 1"}, {ID: 101, Name: "groceries"}}, roots.Children)
	assert.Equal(t, []string{"create root list groceries"}, h.api.Calls())
}

func TestCreateListRejected(t *testing.T) {
	h := newHarness(false, false)
	h.mount(1, nil, []int64{2})
	before := h.snapshot()
	h.api.failOn("create", forbidden)

	_, err := h.coord.CreateList(1, "sub")
	require.NoError(t, err)
	assertUnchanged(t, before, h)
	assert.Equal(t, []string{"you only have read access"}, h.notes.Messages())
}

func TestCreateValidatesLocally(t *testing.T) {
	h := newHarness(false, false)
	h.mount(1, nil, nil)

	_, err := h.coord.CreateItem(1, "   ")
	assert.ErrorIs(t, err, tree.ErrValidation)
	_, err = h.coord.CreateItem(7, "x")
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.Empty(t, h.api.Calls())
}

func TestToggleItem(t *testing.T) {
	h := newHarness(false, false)
	c := h.mount(1, []int64{10, 11}, nil)

	require.NoError(t, h.coord.ToggleItem(1, 11))
	assert.True(t, c.Items[1].IsChecked)
	assert.Equal(t, []string{"check 11 true"}, h.api.Calls())
}

func TestOptimisticRollback(t *testing.T) {
	tests := []struct {
		name string
		op   string
		run  func(c *Coordinator) error
	}{
		{"toggle", "check", func(c *Coordinator) error { return c.ToggleItem(1, 11) }},
		{"rename item", "rename", func(c *Coordinator) error { return c.RenameItem(1, 10, "renamed") }},
		{"rename list", "rename", func(c *Coordinator) error { return c.RenameList(1, 2, "renamed") }},
		{"delete item", "delete", func(c *Coordinator) error { return c.DeleteItem(1, 11) }},
		{"delete list", "delete", func(c *Coordinator) error { return c.DeleteList(1, 3) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(true, false)
			c := h.mount(1, []int64{10, 11, 12}, []int64{2, 3, 4})
			c.Items[0].IsChecked = true
			before := h.snapshot()
			h.api.failOn(tt.op, forbidden)

			require.NoError(t, tt.run(h.coord))
			assert.NotEqual(t, before[1], *c, "optimistic change not applied")

			h.drain()
			assertUnchanged(t, before, h)
			assert.Equal(t, []string{"you only have read access"}, h.notes.Messages())
		})
	}
}

func TestEditPendingItem(t *testing.T) {
	h := newHarness(true, false)
	h.mount(1, nil, nil)
	temp, err := h.coord.CreateItem(1, "soon")
	require.NoError(t, err)

	assert.ErrorIs(t, h.coord.ToggleItem(1, temp), ErrPending)
	assert.ErrorIs(t, h.coord.RenameItem(1, temp, "later"), ErrPending)
	h.drain()
}

func TestDeleteListUnregistersDescendants(t *testing.T) {
	h := newHarness(false, false)
	h.mount(1, nil, []int64{5, 9})
	h.mount(5, []int64{50}, []int64{6})
	h.mount(6, []int64{60}, nil)
	h.mount(9, nil, nil)

	require.NoError(t, h.coord.DeleteList(1, 5))
	for _, id := range []int64{5, 6} {
		_, ok := h.reg.Lookup(id)
		assert.False(t, ok, "container %d still registered", id)
	}
	assert.Equal(t, 2, h.reg.Len())
	assert.Equal(t, []string{"delete 5"}, h.api.Calls())

	// the stale container no longer accepts drops
	assert.Equal(t, DropIgnored, h.coord.HandleDrop(DropEvent{
		Active: SublistKey(9), Over: ContainerKey(6), ActiveContainer: "list-1", OverContainer: "list-6",
	}))
	assert.Equal(t, []string{"delete 5"}, h.api.Calls())
}

func TestDeleteListFailureKeepsRegistrations(t *testing.T) {
	h := newHarness(false, false)
	h.mount(1, nil, []int64{5})
	h.mount(5, nil, []int64{6})
	h.mount(6, nil, nil)
	h.api.failOn("delete", forbidden)

	require.NoError(t, h.coord.DeleteList(1, 5))
	assert.Equal(t, 3, h.reg.Len())
}

func TestErrorMatchesSentinels(t *testing.T) {
	err := error(&Error{Status: 409, Reason: "cyclic_move", Message: "list 2 is an ancestor of 3"})
	assert.ErrorIs(t, err, tree.ErrCyclicMove)
	assert.NotErrorIs(t, err, tree.ErrInvalidTarget)
	assert.False(t, IsTransport(err))
	assert.True(t, IsTransport(errOffline))
	assert.False(t, IsTransport(nil))
	assert.True(t, errors.Is(forbidden, tree.ErrForbidden))
}
