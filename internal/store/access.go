package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"nestlist/internal/tree"
)

func (s *Store) parentOf(ctx context.Context, q querier) tree.ParentFunc {
	return func(id int64) (int64, bool, error) {
		var parent *int64
		err := q.QueryRowContext(ctx, s.q(`select parent_id from nodes where id=?`), id).Scan(&parent)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, fmt.Errorf("%w: node %d", tree.ErrNotFound, id)
		}
		if err != nil {
			return 0, false, err
		}
		if parent == nil {
			return 0, false, nil
		}
		return *parent, true, nil
	}
}

// RootOf returns the root list above id, or id itself for a root. It does not
// check access.
func (s *Store) RootOf(ctx context.Context, id int64) (int64, error) {
	return tree.RootOf(id, s.parentOf(ctx, s.db))
}

// permission resolves actor's access to root: the owner writes, share rows
// grant what they say, everyone else gets nothing.
func (s *Store) permission(ctx context.Context, q querier, actor, root int64) (Permission, error) {
	var owner *int64
	err := q.QueryRowContext(ctx, s.q(`select owner_id from nodes where id=?`), root).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return PermNone, fmt.Errorf("%w: list %d", tree.ErrNotFound, root)
	}
	if err != nil {
		return PermNone, err
	}
	if owner != nil && *owner == actor {
		return PermWrite, nil
	}
	var perm string
	err = q.QueryRowContext(ctx, s.q(`select permission from shares where root_id=? and user_id=?`), root, actor).Scan(&perm)
	if errors.Is(err, sql.ErrNoRows) {
		return PermNone, nil
	}
	if err != nil {
		return PermNone, err
	}
	return Permission(perm), nil
}

// access resolves node's root and actor's permission on it, failing with
// ErrForbidden when the permission is below need.
func (s *Store) access(ctx context.Context, q querier, actor, node int64, need Permission) (int64, Permission, error) {
	root, err := tree.RootOf(node, s.parentOf(ctx, q))
	if err != nil {
		return 0, PermNone, err
	}
	perm, err := s.permission(ctx, q, actor, root)
	if err != nil {
		return 0, PermNone, err
	}
	ok := perm.CanRead()
	if need == PermWrite {
		ok = perm.CanWrite()
	}
	if !ok {
		return 0, perm, fmt.Errorf("%w: no %s access to list %d", tree.ErrForbidden, need, root)
	}
	return root, perm, nil
}

// CanRead reports whether actor may read node.
func (s *Store) CanRead(ctx context.Context, actor, node int64) error {
	_, _, err := s.access(ctx, s.db, actor, node, PermRead)
	return err
}

// rootForShare loads root and checks that it is a root owned by actor.
func (s *Store) rootForShare(ctx context.Context, q querier, actor, root int64) error {
	n, err := s.getNode(ctx, q, root)
	if err != nil {
		return err
	}
	if n.Kind != tree.KindList || !n.IsRoot() {
		return fmt.Errorf("%w: only root lists can be shared", tree.ErrValidation)
	}
	if n.OwnerID == nil || *n.OwnerID != actor {
		return fmt.Errorf("%w: only the owner can manage sharing", tree.ErrForbidden)
	}
	return nil
}

// Share grants username perm on root, replacing an earlier grant.
func (s *Store) Share(ctx context.Context, actor, root int64, username string, perm Permission) (Member, error) {
	var m Member
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.rootForShare(ctx, tx, actor, root); err != nil {
			return err
		}
		u, err := s.userByUsername(ctx, tx, username)
		if err != nil {
			return err
		}
		if u.ID == actor {
			return fmt.Errorf("%w: cannot share a list with its owner", tree.ErrValidation)
		}
		_, err = tx.ExecContext(ctx, s.q(`insert into shares(root_id, user_id, permission) values(?,?,?)
			on conflict(root_id, user_id) do update set permission=excluded.permission`), root, u.ID, string(perm))
		if err != nil {
			return err
		}
		m = Member{UserID: u.ID, Username: u.Username, Permission: perm}
		return nil
	})
	return m, err
}

func (s *Store) Unshare(ctx context.Context, actor, root, userID int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.rootForShare(ctx, tx, actor, root); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, s.q(`delete from shares where root_id=? and user_id=?`), root, userID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: share for user %d", tree.ErrNotFound, userID)
		}
		return nil
	})
}

// Members lists the owner first, then shares by username. id may be any node
// under the root.
func (s *Store) Members(ctx context.Context, actor, id int64) ([]Member, error) {
	root, _, err := s.access(ctx, s.db, actor, id, PermRead)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.q(`
		select u.id, u.username, 'write', 1 from nodes n join users u on u.id = n.owner_id where n.id = ?
		union all
		select u.id, u.username, sh.permission, 0 from shares sh join users u on u.id = sh.user_id where sh.root_id = ?
		order by 4 desc, 2`), root, root)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Member
	for rows.Next() {
		var m Member
		var perm string
		var owner int
		if err := rows.Scan(&m.UserID, &m.Username, &perm, &owner); err != nil {
			return nil, err
		}
		m.Permission, m.Owner = Permission(perm), owner == 1
		out = append(out, m)
	}
	return out, rows.Err()
}
