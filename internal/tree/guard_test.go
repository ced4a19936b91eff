package tree

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chain(parents map[int64]int64) ParentFunc {
	return func(id int64) (int64, bool, error) {
		p, ok := parents[id]
		return p, ok, nil
	}
}

func TestCheckReparent(t *testing.T) {
	// 1 <- 2 <- 3 <- 4, 5 is a separate root.
	parentOf := chain(map[int64]int64{2: 1, 3: 2, 4: 3})

	assert.NoError(t, CheckReparent(2, 5, parentOf))
	assert.NoError(t, CheckReparent(4, 1, parentOf))
	assert.NoError(t, CheckReparent(3, 2, parentOf))

	err := CheckReparent(2, 4, parentOf)
	assert.ErrorIs(t, err, ErrCyclicMove)
	assert.NotErrorIs(t, err, ErrInvalidTarget)

	err = CheckReparent(3, 3, parentOf)
	assert.ErrorIs(t, err, ErrCyclicMove)
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestCheckReparentPropagatesLookupErrors(t *testing.T) {
	boom := errors.New("boom")
	err := CheckReparent(1, 2, func(int64) (int64, bool, error) { return 0, false, boom })
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrCyclicMove)
}

func TestCheckReparentStopsOnCorruptChain(t *testing.T) {
	parentOf := chain(map[int64]int64{7: 8, 8: 7})
	err := CheckReparent(1, 7, parentOf)
	assert.ErrorIs(t, err, ErrCyclicMove)
}

func TestRootOfAndAncestors(t *testing.T) {
	parentOf := chain(map[int64]int64{2: 1, 3: 2, 4: 3})

	root, err := RootOf(4, parentOf)
	require.NoError(t, err)
	assert.Equal(t, int64(1), root)

	root, err = RootOf(1, parentOf)
	require.NoError(t, err)
	assert.Equal(t, int64(1), root)

	up, err := Ancestors(4, parentOf)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2, 1}, up)

	up, err = Ancestors(1, parentOf)
	require.NoError(t, err)
	assert.Empty(t, up)
}
