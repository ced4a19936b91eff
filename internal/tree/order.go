package tree

import "fmt"

// ValidateOrder checks that ordered is a permutation of current: no
// duplicates, same size, and no id from another container.
func ValidateOrder(current, ordered []int64) error {
	seen := make(map[int64]struct{}, len(ordered))
	for _, id := range ordered {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate id %d", ErrInvalidOrder, id)
		}
		seen[id] = struct{}{}
	}
	if len(ordered) != len(current) {
		return fmt.Errorf("%w: all %d children must be included, got %d", ErrInvalidOrder, len(current), len(ordered))
	}
	for _, id := range current {
		if _, ok := seen[id]; !ok {
			return fmt.Errorf("%w: id %d does not belong to this container", ErrInvalidOrder, foreignID(ordered, current))
		}
	}
	return nil
}

// foreignID returns the first id of ordered missing from current. With equal
// sizes and no duplicates a missing current id implies one exists.
func foreignID(ordered, current []int64) int64 {
	in := make(map[int64]struct{}, len(current))
	for _, id := range current {
		in[id] = struct{}{}
	}
	for _, id := range ordered {
		if _, ok := in[id]; !ok {
			return id
		}
	}
	return 0
}

// Positions maps each id to its index in ordered.
func Positions(ordered []int64) map[int64]int64 {
	out := make(map[int64]int64, len(ordered))
	for i, id := range ordered {
		out[id] = int64(i)
	}
	return out
}

// InsertAt returns a copy of ids with id inserted at index, clamped to the
// valid range.
func InsertAt(ids []int64, id int64, index int) []int64 {
	if index < 0 {
		index = 0
	}
	if index > len(ids) {
		index = len(ids)
	}
	out := make([]int64, 0, len(ids)+1)
	out = append(out, ids[:index]...)
	out = append(out, id)
	return append(out, ids[index:]...)
}

// Without returns a copy of ids with every occurrence of id removed.
func Without(ids []int64, id int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
