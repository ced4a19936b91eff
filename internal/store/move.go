package store

import (
	"context"
	"database/sql"
	"fmt"

	"nestlist/internal/tree"
)

// prepareMove runs every precondition of moving id under target: both roots
// writable, target a list, items never rooted, no cycles. same reports that
// target already is the parent.
func (s *Store) prepareMove(ctx context.Context, tx *sql.Tx, actor, id int64, target *int64) (n tree.Node, same bool, err error) {
	n, err = s.getNode(ctx, tx, id)
	if err != nil {
		return n, false, err
	}
	if _, _, err = s.access(ctx, tx, actor, id, PermWrite); err != nil {
		return n, false, err
	}
	if target == nil {
		if n.Kind == tree.KindItem {
			return n, false, fmt.Errorf("%w: items need a parent list", tree.ErrInvalidTarget)
		}
		return n, n.IsRoot(), nil
	}
	t, err := s.getNode(ctx, tx, *target)
	if err != nil {
		return n, false, err
	}
	if t.Kind != tree.KindList {
		return n, false, fmt.Errorf("%w: node %d is not a list", tree.ErrInvalidTarget, t.ID)
	}
	if n.Kind == tree.KindList {
		if err = tree.CheckReparent(id, t.ID, s.parentOf(ctx, tx)); err != nil {
			return n, false, err
		}
	}
	if _, _, err = s.access(ctx, tx, actor, t.ID, PermWrite); err != nil {
		return n, false, err
	}
	return n, n.HasParent(target), nil
}

// reparent points n at target. A list moved to the top becomes a root owned
// by actor with no shares; a root moved under a list drops its shares.
func (s *Store) reparent(ctx context.Context, tx *sql.Tx, actor int64, n *tree.Node, target *int64, pos int64) error {
	var owner *int64
	if target == nil {
		owner = tree.Ptr(actor)
	} else {
		target = tree.Ptr(*target)
	}
	if _, err := tx.ExecContext(ctx, s.q(`update nodes set parent_id=?, owner_id=?, pos=? where id=?`),
		target, owner, pos, n.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, s.q(`delete from shares where root_id=?`), n.ID); err != nil {
		return err
	}
	n.ParentID, n.OwnerID, n.Position = target, owner, pos
	return nil
}

// MoveNode reparents id under target and appends it after target's existing
// same-kind children. Moving to the current parent changes nothing.
func (s *Store) MoveNode(ctx context.Context, actor, id int64, target *int64) (tree.Node, error) {
	var out tree.Node
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		n, same, err := s.prepareMove(ctx, tx, actor, id, target)
		if err != nil {
			return err
		}
		if same {
			out = n
			return nil
		}
		pos, err := s.nextPosition(ctx, tx, target, n.Kind, actor)
		if err != nil {
			return err
		}
		if err := s.reparent(ctx, tx, actor, &n, target, pos); err != nil {
			return err
		}
		out = n
		return nil
	})
	return out, err
}

// PlaceNode moves id under target at index among target's same-kind
// children and renumbers the source and target containers densely, all in
// one transaction. index is clamped.
func (s *Store) PlaceNode(ctx context.Context, actor, id int64, target *int64, index int) (tree.Node, error) {
	var out tree.Node
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		n, same, err := s.prepareMove(ctx, tx, actor, id, target)
		if err != nil {
			return err
		}
		if !same {
			var sourceOwner int64
			if n.OwnerID != nil {
				sourceOwner = *n.OwnerID
			}
			rest, err := s.siblingIDs(ctx, tx, n.ParentID, n.Kind, sourceOwner)
			if err != nil {
				return err
			}
			if err := s.renumber(ctx, tx, tree.Without(rest, id)); err != nil {
				return err
			}
			if err := s.reparent(ctx, tx, actor, &n, target, 0); err != nil {
				return err
			}
		}
		owner := actor
		if n.OwnerID != nil {
			owner = *n.OwnerID
		}
		siblings, err := s.siblingIDs(ctx, tx, target, n.Kind, owner)
		if err != nil {
			return err
		}
		ordered := tree.InsertAt(tree.Without(siblings, id), id, index)
		if err := s.renumber(ctx, tx, ordered); err != nil {
			return err
		}
		n.Position = tree.Positions(ordered)[id]
		out = n
		return nil
	})
	return out, err
}
