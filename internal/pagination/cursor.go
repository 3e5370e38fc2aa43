package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidCursor is returned when a cursor string cannot be decoded.
var ErrInvalidCursor = errors.New("invalid cursor format")

// Cursor marks the position after the last item of a served page. LastID
// drives the keyset scan; Timestamp records the coverage of that item at
// encode time.
type Cursor struct {
	LastID    string
	Timestamp time.Time
}

// PageResult is one page of items plus the cursor that resumes the scan.
type PageResult[T any] struct {
	Items   []T    `json:"items"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"has_more"`
}

// String renders the cursor in its opaque wire form. The alphabet is
// URL-safe so cursors survive query strings without escaping.
func (c Cursor) String() string {
	raw := fmt.Sprintf("%s|%s", c.LastID, c.Timestamp.UTC().Format(time.RFC3339Nano))
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// EncodeCursor builds the cursor for the item that closed a page. An empty
// lastID yields an empty cursor.
func EncodeCursor(lastID string, timestamp time.Time) string {
	if lastID == "" {
		return ""
	}
	return Cursor{LastID: lastID, Timestamp: timestamp}.String()
}

// DecodeCursor parses a cursor produced by EncodeCursor. An empty string
// decodes to nil, meaning the first page.
func DecodeCursor(cursor string) (*Cursor, error) {
	if cursor == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	id, stamp, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}

	ts, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return nil, fmt.Errorf("%w: bad timestamp", ErrInvalidCursor)
	}

	return &Cursor{LastID: id, Timestamp: ts}, nil
}
