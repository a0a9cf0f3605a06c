// Package pagination implements keyset pagination over (sort column, id).
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ErrInvalidCursor is returned for cursors that were not produced by EncodeCursor.
var ErrInvalidCursor = errors.New("invalid cursor")

// Params holds the page request parsed from the query string.
type Params struct {
	Limit  int
	Cursor string
}

// Sort names the keyset column. Column is interpolated into SQL and must come
// from a fixed allow-list. Rows with equal keys are ordered by id in the same
// direction.
type Sort struct {
	Column  string
	Desc    bool
	Numeric bool
}

// NewestFirst is the default ordering.
var NewestFirst = Sort{Column: "created_at", Desc: true}

// Cursor points at the last row of the previous page. At carries the key of
// time sorts and Amount the key of numeric sorts.
type Cursor struct {
	At      time.Time
	Amount  decimal.Decimal
	Numeric bool
	ID      uuid.UUID
}

// NormalizeLimit clamps limit into [1, MaxLimit], defaulting when unset.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// LimitWithBuffer fetches one extra row so the caller can tell whether a next page exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// Trim cuts rows fetched with LimitWithBuffer down to the page size and
// returns the cursor for the following page, or "" on the last page.
func Trim[T any](rows []T, limit int, cursorOf func(T) Cursor) ([]T, string) {
	size := NormalizeLimit(limit)
	if len(rows) <= size {
		return rows, ""
	}
	rows = rows[:size]
	return rows, EncodeCursor(cursorOf(rows[size-1]))
}

// Seek scopes q to the page after params.Cursor in sort order, fetching one
// row beyond the page size for Trim. Tables must carry an id column.
func Seek(q *gorm.DB, params Params, sort Sort) (*gorm.DB, error) {
	cursor, err := ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	cmp, dir := ">", "ASC"
	if sort.Desc {
		cmp, dir = "<", "DESC"
	}
	if cursor != nil {
		if cursor.Numeric != sort.Numeric {
			return nil, fmt.Errorf("%w: cursor does not match ordering", ErrInvalidCursor)
		}
		var key any = cursor.At
		if sort.Numeric {
			key = cursor.Amount
		}
		cond := fmt.Sprintf("((%[1]s %[2]s ?) OR (%[1]s = ? AND id %[2]s ?))", sort.Column, cmp)
		q = q.Where(cond, key, key, cursor.ID)
	}
	return q.Order(sort.Column + " " + dir).Order("id " + dir).Limit(LimitWithBuffer(params.Limit)), nil
}

// EncodeCursor renders the cursor as URL-safe base64.
func EncodeCursor(cursor Cursor) string {
	key := cursor.At.UTC().Format(time.RFC3339Nano)
	if cursor.Numeric {
		key = "n:" + cursor.Amount.String()
	}
	payload := key + "|" + cursor.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// ParseCursor decodes a cursor. An empty value means the first page.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	key, rawID, ok := strings.Cut(string(decoded), "|")
	if !ok {
		return nil, ErrInvalidCursor
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("%w: id: %v", ErrInvalidCursor, err)
	}
	if amount, ok := strings.CutPrefix(key, "n:"); ok {
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("%w: amount: %v", ErrInvalidCursor, err)
		}
		return &Cursor{Amount: d, Numeric: true, ID: id}, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, key)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp: %v", ErrInvalidCursor, err)
	}
	return &Cursor{At: ts.UTC(), ID: id}, nil
}
