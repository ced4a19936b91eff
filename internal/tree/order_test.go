package tree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOrder(t *testing.T) {
	current := []int64{10, 11, 12}

	require.NoError(t, ValidateOrder(current, []int64{12, 10, 11}))
	require.NoError(t, ValidateOrder(nil, nil))

	tests := []struct {
		name    string
		ordered []int64
		msg     string
	}{
		{"duplicate", []int64{10, 10, 11}, "duplicate id 10"},
		{"short", []int64{10, 11}, "all 3 children must be included"},
		{"long", []int64{10, 11, 12, 13}, "all 3 children must be included"},
		{"foreign", []int64{10, 11, 99}, "id 99 does not belong"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOrder(current, tt.ordered)
			assert.ErrorIs(t, err, ErrInvalidOrder)
			assert.ErrorContains(t, err, tt.msg)
		})
	}
}

func TestInsertAt(t *testing.T) {
	ids := []int64{1, 2, 3}
	assert.Equal(t, []int64{9, 1, 2, 3}, InsertAt(ids, 9, 0))
	assert.Equal(t, []int64{1, 9, 2, 3}, InsertAt(ids, 9, 1))
	assert.Equal(t, []int64{1, 2, 3, 9}, InsertAt(ids, 9, 3))
	assert.Equal(t, []int64{1, 2, 3, 9}, InsertAt(ids, 9, 42))
	assert.Equal(t, []int64{9, 1, 2, 3}, InsertAt(ids, 9, -1))
	assert.Equal(t, []int64{1, 2, 3}, ids)
}

func TestWithoutAndPositions(t *testing.T) {
	assert.Equal(t, []int64{1, 3}, Without([]int64{1, 2, 3}, 2))
	assert.Equal(t, []int64{1, 2}, Without([]int64{1, 2}, 7))
	assert.Equal(t, map[int64]int64{5: 0, 3: 1}, Positions([]int64{5, 3}))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Sublist")
	require.NoError(t, err)
	assert.Equal(t, KindList, k)
	k, err = ParseKind(" item ")
	require.NoError(t, err)
	assert.Equal(t, KindItem, k)
	_, err = ParseKind("folder")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNormalizeName(t *testing.T) {
	name, err := NormalizeName("  Cafe\u0301 list ")
	require.NoError(t, err)
	assert.Equal(t, "Caf\u00e9 list", name)

	_, err = NormalizeName(" \t ")
	assert.ErrorIs(t, err, ErrValidation)

	long := strings.Repeat("ü", MaxNameLen)
	name, err = NormalizeName(long)
	require.NoError(t, err)
	assert.Equal(t, long, name)
	_, err = NormalizeName(long + "x")
	assert.ErrorIs(t, err, ErrValidation)
}
