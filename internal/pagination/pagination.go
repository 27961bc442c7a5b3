// Package pagination implements keyset pagination over (created_at, id)
// with an opaque base64 cursor. Every paginated listing in the service
// goes through this one implementation.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/evomaxseipio/evotrack-backend/internal"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Cursor marks the last row of a page. Rows strictly before it in
// (created_at DESC, id DESC) order belong to the next page.
type Cursor struct {
	TS time.Time `json:"ts"`
	ID string    `json:"id"`
}

func (c Cursor) Encode() string {
	raw, _ := json.Marshal(c)
	return base64.URLEncoding.EncodeToString(raw)
}

func DecodeCursor(encoded string) (*Cursor, error) {
	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, internal.NewValidationError("Invalid pagination cursor", internal.ErrCodeInvalidCursor).WithCause(err)
	}

	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, internal.NewValidationError("Invalid pagination cursor", internal.ErrCodeInvalidCursor).WithCause(err)
	}
	if c.TS.IsZero() || c.ID == "" {
		return nil, internal.NewValidationError("Invalid pagination cursor", internal.ErrCodeInvalidCursor)
	}
	return &c, nil
}

// Params carries the decoded cursor and requested page size.
type Params struct {
	Cursor *Cursor
	Limit  int
}

// ParseParams decodes the raw cursor string and clamps the limit to
// [1, MaxLimit], defaulting to DefaultLimit when unset.
func ParseParams(rawCursor string, limit int) (Params, error) {
	p := Params{Limit: ClampLimit(limit)}

	if rawCursor != "" {
		cursor, err := DecodeCursor(rawCursor)
		if err != nil {
			return Params{}, err
		}
		p.Cursor = cursor
	}
	return p, nil
}

func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// FetchLimit is the number of rows to query: one extra row tells us
// whether another page exists.
func (p Params) FetchLimit() int {
	return p.Limit + 1
}

// Info is the pagination block of a list response.
type Info struct {
	Count      int     `json:"count"`
	Limit      int     `json:"limit"`
	HasMore    bool    `json:"hasMore"`
	NextCursor *string `json:"nextCursor"`
}

// BuildPage trims an overfetched row slice down to the page and derives
// hasMore/nextCursor. cursorOf extracts the (created_at, id) pair from a row.
func BuildPage[T any](rows []T, limit int, cursorOf func(T) Cursor) ([]T, Info) {
	info := Info{Limit: limit}

	if len(rows) > limit {
		rows = rows[:limit]
		info.HasMore = true
	}
	info.Count = len(rows)

	if info.HasMore && len(rows) > 0 {
		next := cursorOf(rows[len(rows)-1]).Encode()
		info.NextCursor = &next
	}
	return rows, info
}
