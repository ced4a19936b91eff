package store

import (
	"fmt"

	"nestlist/internal/tree"
)

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

type Permission string

const (
	PermNone  Permission = ""
	PermRead  Permission = "read"
	PermWrite Permission = "write"
)

func ParsePermission(s string) (Permission, error) {
	switch Permission(s) {
	case PermRead, PermWrite:
		return Permission(s), nil
	case "":
		return PermRead, nil
	}
	return PermNone, fmt.Errorf("%w: permission must be read or write", tree.ErrValidation)
}

func (p Permission) CanRead() bool  { return p == PermRead || p == PermWrite }
func (p Permission) CanWrite() bool { return p == PermWrite }

// Member is someone with access to a root list.
type Member struct {
	UserID     int64      `json:"userId"`
	Username   string     `json:"username"`
	Permission Permission `json:"permission"`
	Owner      bool       `json:"owner"`
}

// ListSummary is a list with counts over its direct items.
type ListSummary struct {
	tree.Node
	ItemCount      int64 `json:"itemCount"`
	CompletedCount int64 `json:"completedCount"`
	// Permission is the caller's access, set on roots only.
	Permission Permission `json:"permission,omitempty"`
}

// ListDetail is one list with its direct items and child lists.
type ListDetail struct {
	tree.Node
	Permission Permission    `json:"permission"`
	Items      []tree.Node   `json:"items"`
	Children   []ListSummary `json:"children"`
}

// NodePatch holds leaf edits. Nil fields are left alone.
type NodePatch struct {
	Name      *string `json:"name"`
	IsChecked *bool   `json:"isChecked"`
}
