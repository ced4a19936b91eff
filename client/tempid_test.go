package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTempIDsDecrease(t *testing.T) {
	clock := time.UnixMilli(1_700_000_000_000)
	g := &TempIDs{now: func() time.Time { return clock }, salt: func() int64 { return 0 }}

	a, b, c := g.Next(), g.Next(), g.Next()
	assert.Equal(t, int64(-1_700_000_000_000), a)
	assert.Equal(t, a-1, b)
	assert.Equal(t, b-1, c)

	clock = clock.Add(time.Second)
	assert.Less(t, g.Next(), c)
}

func TestTempIDsRealClock(t *testing.T) {
	g := NewTempIDs()
	seen := map[int64]bool{}
	last := int64(0)
	for range 1000 {
		id := g.Next()
		assert.True(t, IsTemp(id))
		assert.Less(t, id, last)
		assert.False(t, seen[id])
		seen[id] = true
		last = id
	}
}

func TestEventLoop(t *testing.T) {
	l := NewEventLoop()
	var order []string
	l.Go(func() error { return nil }, func(err error) {
		order = append(order, "first")
		l.Go(func() error { return errOffline }, func(err error) {
			assert.ErrorIs(t, err, errOffline)
			order = append(order, "nested")
		})
	})
	assert.Equal(t, 1, l.Pending())
	assert.Empty(t, order)

	l.Drain()
	assert.Equal(t, []string{"first", "nested"}, order)
	assert.Equal(t, 0, l.Pending())
	assert.False(t, l.Step())
}
