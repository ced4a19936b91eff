package tree

import (
	"errors"
	"fmt"
)

// ParentFunc reports the parent list of id. ok is false when id is a root.
type ParentFunc func(id int64) (parent int64, ok bool, err error)

// maxDepth bounds ancestor walks. A well-formed forest never gets close; a
// longer chain means the stored parent pointers already loop.
const maxDepth = 1 << 16

var errDepth = errors.New("ancestor chain too deep")

// CheckReparent fails with ErrCyclicMove when making candidate the parent of
// node would put node on its own ancestor chain. It reads only.
func CheckReparent(node, candidate int64, parentOf ParentFunc) error {
	if candidate == node {
		return fmt.Errorf("%w: %w: list %d cannot contain itself", ErrCyclicMove, ErrInvalidTarget, node)
	}
	err := walk(candidate, parentOf, func(id int64) bool { return id == node })
	switch {
	case errors.Is(err, errStop):
		return fmt.Errorf("%w: list %d is an ancestor of %d", ErrCyclicMove, node, candidate)
	case errors.Is(err, errDepth):
		return fmt.Errorf("%w: %w", ErrCyclicMove, err)
	}
	return err
}

// RootOf follows parent pointers from id to its root.
func RootOf(id int64, parentOf ParentFunc) (int64, error) {
	root := id
	err := walk(id, parentOf, func(a int64) bool { root = a; return false })
	return root, err
}

// Ancestors lists id's ancestors nearest first.
func Ancestors(id int64, parentOf ParentFunc) ([]int64, error) {
	var out []int64
	err := walk(id, parentOf, func(a int64) bool { out = append(out, a); return false })
	return out, err
}

var errStop = errors.New("stop")

// walk calls visit for each strict ancestor of id until visit returns true
// (reported as errStop) or the root is reached.
func walk(id int64, parentOf ParentFunc, visit func(int64) bool) error {
	cur := id
	for range maxDepth {
		p, ok, err := parentOf(cur)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if visit(p) {
			return errStop
		}
		cur = p
	}
	return fmt.Errorf("%w from %d", errDepth, id)
}
