package tree

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxNameLen is the longest accepted name, in characters.
const MaxNameLen = 255

type Kind string

const (
	KindList Kind = "list"
	KindItem Kind = "item"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindList, "sublist":
		return KindList, nil
	case KindItem:
		return KindItem, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", ErrValidation, s)
}

// Node is a list or an item. Lists and items share one id space.
type Node struct {
	ID        int64  `json:"id"`
	Kind      Kind   `json:"kind"`
	Name      string `json:"name"`
	IsChecked bool   `json:"isChecked"`
	ParentID  *int64 `json:"parentId"`
	Position  int64  `json:"position"`
	// OwnerID is set on roots only.
	OwnerID *int64 `json:"ownerId,omitempty"`
}

func (n Node) IsRoot() bool { return n.ParentID == nil }

// HasParent reports whether n's parent is p; nil p means root.
func (n Node) HasParent(p *int64) bool {
	if n.ParentID == nil || p == nil {
		return n.ParentID == nil && p == nil
	}
	return *n.ParentID == *p
}

// NormalizeName trims s to its NFC form and rejects empty or overlong
// results.
func NormalizeName(s string) (string, error) {
	name := strings.TrimSpace(norm.NFC.String(s))
	if name == "" {
		return "", fmt.Errorf("%w: name cannot be empty", ErrValidation)
	}
	if utf8.RuneCountInString(name) > MaxNameLen {
		return "", fmt.Errorf("%w: name is longer than %d characters", ErrValidation, MaxNameLen)
	}
	return name, nil
}

// SortSiblings orders nodes by (position, id) in place. Ties on position are
// possible after concurrent writes and gaps after deletes; the id keeps the
// order deterministic either way.
func SortSiblings(nodes []Node) {
	slices.SortFunc(nodes, func(a, b Node) int {
		if c := cmp.Compare(a.Position, b.Position); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func IDs(nodes []Node) []int64 {
	out := make([]int64, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func Ptr(id int64) *int64 { return &id }
