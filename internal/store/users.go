package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"nestlist/internal/auth"
	"nestlist/internal/tree"
)

var (
	ErrUserExists     = errors.New("username already taken")
	ErrBadCredentials = errors.New("invalid username or password")
)

func (s *Store) CreateUser(ctx context.Context, username, email, password string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return User{}, fmt.Errorf("%w: username is required", tree.ErrValidation)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return User{}, fmt.Errorf("%w: %w", tree.ErrValidation, err)
	}
	u := User{Username: username, Email: strings.TrimSpace(email)}
	err = s.db.QueryRowContext(ctx, s.q(`insert into users(username, email, password_hash) values(?,?,?) returning id`),
		u.Username, u.Email, hash).Scan(&u.ID)
	if isUniqueViolation(err) {
		return User{}, fmt.Errorf("%w: %s", ErrUserExists, username)
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// Authenticate checks the password and returns the user. Unknown users and
// wrong passwords both yield ErrBadCredentials.
func (s *Store) Authenticate(ctx context.Context, username, password string) (User, error) {
	var u User
	var hash string
	err := s.db.QueryRowContext(ctx, s.q(`select id, username, email, password_hash from users where username=?`),
		strings.TrimSpace(username)).Scan(&u.ID, &u.Username, &u.Email, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrBadCredentials
	}
	if err != nil {
		return User{}, err
	}
	if !auth.CheckPassword(hash, password) {
		return User{}, ErrBadCredentials
	}
	return u, nil
}

func (s *Store) UserByID(ctx context.Context, id int64) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, s.q(`select id, username, email from users where id=?`), id).
		Scan(&u.ID, &u.Username, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("%w: user %d", tree.ErrNotFound, id)
	}
	return u, err
}

func (s *Store) userByUsername(ctx context.Context, q querier, username string) (User, error) {
	var u User
	err := q.QueryRowContext(ctx, s.q(`select id, username, email from users where username=?`), strings.TrimSpace(username)).
		Scan(&u.ID, &u.Username, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("%w: user %q", tree.ErrNotFound, username)
	}
	return u, err
}

func (s *Store) UpdateEmail(ctx context.Context, id int64, email string) (User, error) {
	res, err := s.db.ExecContext(ctx, s.q(`update users set email=? where id=?`), strings.TrimSpace(email), id)
	if err != nil {
		return User{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return User{}, fmt.Errorf("%w: user %d", tree.ErrNotFound, id)
	}
	return s.UserByID(ctx, id)
}

// ChangePassword replaces the password after checking the current one.
func (s *Store) ChangePassword(ctx context.Context, id int64, current, next string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var hash string
		err := tx.QueryRowContext(ctx, s.q(`select password_hash from users where id=?`), id).Scan(&hash)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: user %d", tree.ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		if !auth.CheckPassword(hash, current) {
			return ErrBadCredentials
		}
		newHash, err := auth.HashPassword(next)
		if err != nil {
			return fmt.Errorf("%w: %w", tree.ErrValidation, err)
		}
		_, err = tx.ExecContext(ctx, s.q(`update users set password_hash=? where id=?`), newHash, id)
		return err
	})
}
