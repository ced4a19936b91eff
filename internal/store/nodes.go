package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"nestlist/internal/tree"
)

const nodeCols = `id, kind, name, is_checked, parent_id, pos, owner_id`

const subtreeCTE = `with recursive sub(id) as (
	select id from nodes where id = ?
	union all
	select n.id from nodes n join sub on n.parent_id = sub.id
)`

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(sc scanner, extra ...any) (tree.Node, error) {
	var n tree.Node
	var kind string
	dest := append([]any{&n.ID, &kind, &n.Name, &n.IsChecked, &n.ParentID, &n.Position, &n.OwnerID}, extra...)
	if err := sc.Scan(dest...); err != nil {
		return tree.Node{}, err
	}
	n.Kind = tree.Kind(kind)
	return n, nil
}

func (s *Store) getNode(ctx context.Context, q querier, id int64) (tree.Node, error) {
	n, err := scanNode(q.QueryRowContext(ctx, s.q(`select `+nodeCols+` from nodes where id=?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return tree.Node{}, fmt.Errorf("%w: node %d", tree.ErrNotFound, id)
	}
	return n, err
}

func (s *Store) getList(ctx context.Context, q querier, id int64) (tree.Node, error) {
	n, err := s.getNode(ctx, q, id)
	if err != nil {
		return tree.Node{}, err
	}
	if n.Kind != tree.KindList {
		return tree.Node{}, fmt.Errorf("%w: list %d", tree.ErrNotFound, id)
	}
	return n, nil
}

func (s *Store) queryNodes(ctx context.Context, q querier, query string, args ...any) ([]tree.Node, error) {
	rows, err := q.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []tree.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// siblingIDs lists the kind children of parent ordered by (position, id).
// Root siblings are scoped to owner.
func (s *Store) siblingIDs(ctx context.Context, q querier, parent *int64, kind tree.Kind, owner int64) ([]int64, error) {
	query, arg := `select id from nodes where parent_id=? and kind=? order by pos, id`, any(nil)
	if parent != nil {
		arg = *parent
	} else {
		query, arg = `select id from nodes where parent_id is null and owner_id=? and kind=? order by pos, id`, owner
	}
	rows, err := q.QueryContext(ctx, s.q(query), arg, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) nextPosition(ctx context.Context, q querier, parent *int64, kind tree.Kind, owner int64) (int64, error) {
	var next int64
	var err error
	if parent != nil {
		err = q.QueryRowContext(ctx, s.q(`select coalesce(max(pos)+1, 0) from nodes where parent_id=? and kind=?`),
			*parent, string(kind)).Scan(&next)
	} else {
		err = q.QueryRowContext(ctx, s.q(`select coalesce(max(pos)+1, 0) from nodes where parent_id is null and owner_id=? and kind=?`),
			owner, string(kind)).Scan(&next)
	}
	return next, err
}

func (s *Store) renumber(ctx context.Context, tx *sql.Tx, ordered []int64) error {
	for i, id := range ordered {
		if _, err := tx.ExecContext(ctx, s.q(`update nodes set pos=? where id=?`), int64(i), id); err != nil {
			return err
		}
	}
	return nil
}

// CreateNode appends a list or item to parent. A nil parent creates a root
// list owned by actor.
func (s *Store) CreateNode(ctx context.Context, actor int64, parent *int64, kind tree.Kind, name string) (tree.Node, error) {
	name, err := tree.NormalizeName(name)
	if err != nil {
		return tree.Node{}, err
	}
	if kind != tree.KindList && kind != tree.KindItem {
		return tree.Node{}, fmt.Errorf("%w: unknown kind %q", tree.ErrValidation, kind)
	}
	if parent == nil && kind == tree.KindItem {
		return tree.Node{}, fmt.Errorf("%w: items need a parent list", tree.ErrValidation)
	}
	n := tree.Node{Kind: kind, Name: name}
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		var owner *int64
		if parent != nil {
			p, err := s.getNode(ctx, tx, *parent)
			if err != nil {
				return err
			}
			if p.Kind != tree.KindList {
				return fmt.Errorf("%w: node %d is not a list", tree.ErrInvalidTarget, p.ID)
			}
			if _, _, err := s.access(ctx, tx, actor, p.ID, PermWrite); err != nil {
				return err
			}
			n.ParentID = tree.Ptr(p.ID)
		} else {
			owner = tree.Ptr(actor)
		}
		pos, err := s.nextPosition(ctx, tx, n.ParentID, kind, actor)
		if err != nil {
			return err
		}
		n.Position, n.OwnerID = pos, owner
		return tx.QueryRowContext(ctx, s.q(`insert into nodes(kind, name, parent_id, owner_id, pos) values(?,?,?,?,?) returning id`),
			string(kind), name, n.ParentID, n.OwnerID, pos).Scan(&n.ID)
	})
	if err != nil {
		return tree.Node{}, err
	}
	return n, nil
}

func (s *Store) GetNode(ctx context.Context, actor, id int64) (tree.Node, error) {
	if _, _, err := s.access(ctx, s.db, actor, id, PermRead); err != nil {
		return tree.Node{}, err
	}
	return s.getNode(ctx, s.db, id)
}

const summaryCols = `
	(select count(*) from nodes c where c.parent_id = n.id and c.kind = 'item'),
	(select count(*) from nodes c where c.parent_id = n.id and c.kind = 'item' and c.is_checked)`

// Roots returns the root lists actor owns or has been shared, ordered by
// (position, id).
func (s *Store) Roots(ctx context.Context, actor int64) ([]ListSummary, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		select n.id, n.kind, n.name, n.is_checked, n.parent_id, n.pos, n.owner_id,`+summaryCols+`,
			case when n.owner_id = ? then 'write' else sh.permission end
		from nodes n left join shares sh on sh.root_id = n.id and sh.user_id = ?
		where n.parent_id is null and (n.owner_id = ? or sh.user_id is not null)
		order by n.pos, n.id`), actor, actor, actor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ListSummary{}
	for rows.Next() {
		var ls ListSummary
		var perm string
		ls.Node, err = scanNode(rows, &ls.ItemCount, &ls.CompletedCount, &perm)
		if err != nil {
			return nil, err
		}
		ls.Permission = Permission(perm)
		out = append(out, ls)
	}
	return out, rows.Err()
}

// ListDetail returns list id with its direct items and child lists.
func (s *Store) ListDetail(ctx context.Context, actor, id int64) (ListDetail, error) {
	l, err := s.getList(ctx, s.db, id)
	if err != nil {
		return ListDetail{}, err
	}
	_, perm, err := s.access(ctx, s.db, actor, id, PermRead)
	if err != nil {
		return ListDetail{}, err
	}
	d := ListDetail{Node: l, Permission: perm, Items: []tree.Node{}, Children: []ListSummary{}}
	items, err := s.queryNodes(ctx, s.db, `select `+nodeCols+` from nodes where parent_id=? and kind='item' order by pos, id`, id)
	if err != nil {
		return ListDetail{}, err
	}
	if items != nil {
		d.Items = items
	}
	rows, err := s.db.QueryContext(ctx, s.q(`
		select n.id, n.kind, n.name, n.is_checked, n.parent_id, n.pos, n.owner_id,`+summaryCols+`
		from nodes n where n.parent_id = ? and n.kind = 'list'
		order by n.pos, n.id`), id)
	if err != nil {
		return ListDetail{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var ls ListSummary
		ls.Node, err = scanNode(rows, &ls.ItemCount, &ls.CompletedCount)
		if err != nil {
			return ListDetail{}, err
		}
		d.Children = append(d.Children, ls)
	}
	return d, rows.Err()
}

// Forest loads the subtree under id into an arena.
func (s *Store) Forest(ctx context.Context, actor, id int64) (*tree.Forest, error) {
	if _, err := s.getList(ctx, s.db, id); err != nil {
		return nil, err
	}
	if _, _, err := s.access(ctx, s.db, actor, id, PermRead); err != nil {
		return nil, err
	}
	nodes, err := s.queryNodes(ctx, s.db, subtreeCTE+` select `+nodeCols+` from nodes where id in (select id from sub)`, id)
	if err != nil {
		return nil, err
	}
	return tree.Load(nodes), nil
}

// Subtree renders list id and everything below it.
func (s *Store) Subtree(ctx context.Context, actor, id int64) (*tree.Branch, error) {
	f, err := s.Forest(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return f.Subtree(id)
}

// UpdateNode renames a node or toggles an item.
func (s *Store) UpdateNode(ctx context.Context, actor, id int64, patch NodePatch) (tree.Node, error) {
	if patch.Name == nil && patch.IsChecked == nil {
		return tree.Node{}, fmt.Errorf("%w: nothing to update", tree.ErrValidation)
	}
	var name string
	if patch.Name != nil {
		var err error
		if name, err = tree.NormalizeName(*patch.Name); err != nil {
			return tree.Node{}, err
		}
	}
	var out tree.Node
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		n, err := s.getNode(ctx, tx, id)
		if err != nil {
			return err
		}
		if patch.IsChecked != nil && n.Kind != tree.KindItem {
			return fmt.Errorf("%w: only items can be checked", tree.ErrValidation)
		}
		if _, _, err := s.access(ctx, tx, actor, id, PermWrite); err != nil {
			return err
		}
		if patch.Name != nil {
			n.Name = name
		}
		if patch.IsChecked != nil {
			n.IsChecked = *patch.IsChecked
		}
		if _, err := tx.ExecContext(ctx, s.q(`update nodes set name=?, is_checked=? where id=?`), n.Name, n.IsChecked, id); err != nil {
			return err
		}
		out = n
		return nil
	})
	return out, err
}

// DeleteNode removes id and its descendants and returns the removed ids in
// ascending order. Remaining siblings keep their positions.
func (s *Store) DeleteNode(ctx context.Context, actor, id int64) ([]int64, error) {
	var removed []int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.getNode(ctx, tx, id); err != nil {
			return err
		}
		if _, _, err := s.access(ctx, tx, actor, id, PermWrite); err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx, s.q(subtreeCTE+` select id from sub`), id)
		if err != nil {
			return err
		}
		for rows.Next() {
			var d int64
			if err := rows.Scan(&d); err != nil {
				rows.Close()
				return err
			}
			removed = append(removed, d)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, s.q(subtreeCTE+` delete from nodes where id in (select id from sub)`), id)
		return err
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(removed)
	return removed, nil
}
