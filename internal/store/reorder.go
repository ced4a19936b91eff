package store

import (
	"context"
	"database/sql"
	"fmt"

	"nestlist/internal/tree"
)

// ReorderSiblings rewrites the positions of container's kind children to
// match ids exactly. Rejected orderings change nothing.
func (s *Store) ReorderSiblings(ctx context.Context, actor, container int64, kind tree.Kind, ids []int64) error {
	if kind != tree.KindList && kind != tree.KindItem {
		return fmt.Errorf("%w: unknown kind %q", tree.ErrValidation, kind)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.getList(ctx, tx, container); err != nil {
			return err
		}
		if _, _, err := s.access(ctx, tx, actor, container, PermWrite); err != nil {
			return err
		}
		current, err := s.siblingIDs(ctx, tx, &container, kind, 0)
		if err != nil {
			return err
		}
		if err := tree.ValidateOrder(current, ids); err != nil {
			return err
		}
		return s.renumber(ctx, tx, ids)
	})
}
