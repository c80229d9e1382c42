package dto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// DefaultLimit is the default number of quotes per page.
const DefaultLimit = 50

// MaxLimit is the maximum allowed quotes per page.
const MaxLimit = 500

// ErrInvalidCursor is returned when cursor decoding fails.
var ErrInvalidCursor = errors.New("invalid cursor")

// PaginationRequest carries paging query parameters.
type PaginationRequest struct {
	// Cursor is an opaque string from a previous response's NextCursor.
	Cursor string `form:"cursor"`

	// Limit is the maximum number of items to return.
	Limit int `form:"limit" validate:"omitempty,gte=1,lte=500"`
}

// GetLimit returns the limit with defaults applied.
func (p *PaginationRequest) GetLimit() int {
	if p.Limit <= 0 {
		return DefaultLimit
	}

	return min(p.Limit, MaxLimit)
}

// Offset decodes the cursor into a position. An empty cursor is the first page.
func (p *PaginationRequest) Offset() (int, error) {
	if p.Cursor == "" {
		return 0, nil
	}

	data, err := DecodeCursor(p.Cursor)
	if err != nil {
		return 0, err
	}

	return data.Offset, nil
}

// Page is one slice of an ordered list. Quotes have no identity, so the
// cursor is a position in the list at the time of the request.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
	Total      int    `json:"total"`
}

// Paginate cuts items[offset:offset+limit] and builds the next cursor.
func Paginate[T any](items []T, offset, limit int) Page[T] {
	total := len(items)
	start := min(max(offset, 0), total)
	end := min(start+limit, total)

	page := Page[T]{
		Items:   append(make([]T, 0, end-start), items[start:end]...),
		HasMore: end < total,
		Total:   total,
	}

	if page.HasMore {
		page.NextCursor = EncodeCursor(&CursorData{Offset: end})
	}

	return page
}

// CursorData is the payload of a pagination cursor.
type CursorData struct {
	Offset int `json:"o"`
}

// EncodeCursor encodes cursor data to a base64 string.
func EncodeCursor(data *CursorData) string {
	if data == nil {
		return ""
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return ""
	}

	return base64.URLEncoding.EncodeToString(jsonBytes)
}

// DecodeCursor decodes a base64 cursor string.
func DecodeCursor(encoded string) (*CursorData, error) {
	jsonBytes, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	var data CursorData
	if err := json.Unmarshal(jsonBytes, &data); err != nil {
		return nil, ErrInvalidCursor
	}

	if data.Offset < 0 {
		return nil, ErrInvalidCursor
	}

	return &data, nil
}
