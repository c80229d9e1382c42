// Package domain contains core business entities and rules.
package domain

import "strings"

// CategoryAll is the sentinel category meaning "no filter".
const CategoryAll = "all"

// ServerCategory is the category assigned to quotes mapped from the remote source.
const ServerCategory = "Server"

// Quote is a piece of text filed under a category.
// Quotes carry no identifier; two quotes are the same quote when their Text matches exactly.
type Quote struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// NewQuote trims both fields and rejects empty values.
func NewQuote(text, category string) (Quote, error) {
	q := Quote{
		Text:     strings.TrimSpace(text),
		Category: strings.TrimSpace(category),
	}

	if err := q.Validate(); err != nil {
		return Quote{}, err
	}

	return q, nil
}

// Validate reports a ValidationError naming the first empty field.
func (q Quote) Validate() error {
	if q.Text == "" {
		return NewValidationError("text", "must not be empty")
	}

	if q.Category == "" {
		return NewValidationError("category", "must not be empty")
	}

	return nil
}

// DefaultQuotes returns the seed list used when nothing has been persisted yet.
// A fresh slice is returned on every call.
func DefaultQuotes() []Quote {
	return []Quote{
		{Text: "The only way to do great work is to love what you do.", Category: "Inspiration"},
		{Text: "Don't watch the clock; do what it does. Keep going.", Category: "Motivation"},
		{Text: "First, solve the problem. Then, write the code.", Category: "Programming"},
	}
}
