package client

import (
	"math/rand/v2"
	"time"
)

const saltRange = 1_000_000

// TempIDs mints negative placeholder ids from the wall clock in
// milliseconds plus a random salt. Ids from one generator strictly decrease.
type TempIDs struct {
	last int64
	now  func() time.Time
	salt func() int64
}

func NewTempIDs() *TempIDs {
	return &TempIDs{now: time.Now, salt: func() int64 { return rand.Int64N(saltRange) }}
}

func (g *TempIDs) Next() int64 {
	id := -(g.now().UnixMilli() + g.salt())
	if id >= g.last {
		id = g.last - 1
	}
	g.last = id
	return id
}
