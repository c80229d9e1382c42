package dto

import (
	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/domain"
)

// QuoteResponse is the wire shape of a quote, matching the import/export format.
type QuoteResponse struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// NewQuoteResponse converts a domain quote.
func NewQuoteResponse(q domain.Quote) QuoteResponse {
	return QuoteResponse{Text: q.Text, Category: q.Category}
}

// NewQuoteResponses converts a list, never returning nil.
func NewQuoteResponses(quotes []domain.Quote) []QuoteResponse {
	out := make([]QuoteResponse, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, NewQuoteResponse(q))
	}

	return out
}

// ListQuotesRequest is the query of GET /quotes. An empty category means the
// persisted selection.
type ListQuotesRequest struct {
	PaginationRequest

	Category string `form:"category"`
}

// QuoteListResponse is one page of quotes plus the category it was filtered by.
type QuoteListResponse struct {
	Page[QuoteResponse]

	Category string `json:"category"`
}

// AddQuoteRequest is the body of POST /quotes.
type AddQuoteRequest struct {
	Text     string `json:"text"     validate:"notblank"`
	Category string `json:"category" validate:"notblank"`
}

// ImportResponse reports how many quotes an import added.
type ImportResponse struct {
	Imported int `json:"imported"`
	Total    int `json:"total"`
}

// CategoriesResponse lists categories and the effective selection.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
	Selected   string   `json:"selected"`
}

// SelectCategoryRequest is the body of PUT /categories/selected.
type SelectCategoryRequest struct {
	Category string `json:"category" validate:"required"`
}

// SelectCategoryResponse reports what was stored, which is "all" for an
// unknown category.
type SelectCategoryResponse struct {
	Selected string `json:"selected"`
}

// SyncResponse summarizes one sync cycle.
type SyncResponse struct {
	Fetched int    `json:"fetched"`
	Added   int    `json:"added"`
	Total   int    `json:"total"`
	Policy  string `json:"policy"`
	State   string `json:"state"`
}

// NewSyncResponse converts a sync result.
func NewSyncResponse(result app.SyncResult, state app.SyncState) SyncResponse {
	return SyncResponse{
		Fetched: result.Fetched,
		Added:   result.Added,
		Total:   result.Total,
		Policy:  string(result.Policy),
		State:   state.String(),
	}
}
