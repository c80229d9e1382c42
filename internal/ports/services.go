// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter for cancellation and deadlines
//   - Return domain types, never external DTOs or infrastructure types
//   - Error returns use domain error types (ErrNotFound, ErrNetwork, etc.)
//   - Keep interfaces small and focused
package ports

import (
	"context"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

// Storage keys shared by every KeyValueStore backend.
const (
	KeyQuotes           = "quotes"
	KeySelectedCategory = "selectedCategory"
	KeyLastViewedQuote  = "lastViewedQuote"
)

// KeyValueStore is a string-keyed blob store. It stands in for both the
// persistent store (quotes, selected category) and the per-process session store.
//
// Example usage in application layer:
//
//	raw, err := kv.Get(ctx, ports.KeyQuotes)
//	if domain.IsNotFound(err) {
//	    return domain.DefaultQuotes(), nil
//	}
type KeyValueStore interface {
	// Get returns the value stored under key.
	// Returns domain.ErrNotFound if the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set overwrites the value stored under key. Writes are all-or-nothing.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// QuoteSource is the remote endpoint the Sync Agent reconciles against.
type QuoteSource interface {
	// FetchQuotes returns the server's current snapshot mapped to domain quotes.
	// Returns domain.ErrNetwork when the server cannot be reached and
	// domain.ErrParse when the payload is malformed.
	FetchQuotes(ctx context.Context) ([]domain.Quote, error)

	// PostQuote sends one locally created quote upstream. The response body is ignored.
	PostQuote(ctx context.Context, quote domain.Quote) error
}

// NodeKind identifies one element of a rendered View.
type NodeKind string

// View node kinds.
const (
	NodeText      NodeKind = "text"
	NodeCategory  NodeKind = "category"
	NodeSeparator NodeKind = "separator"
	NodeMessage   NodeKind = "message"
)

// Node is one drawable element.
type Node struct {
	Kind    NodeKind `json:"kind"`
	Content string   `json:"content,omitempty"`
}

// View is the complete content of a display surface, in draw order.
type View struct {
	Nodes []Node `json:"nodes"`
}

// Surface is where the Renderer draws. Draw replaces whatever was shown before.
type Surface interface {
	Draw(ctx context.Context, view View) error
}

// Notifier delivers a short user-facing notice (desktop popup, log line, status bar).
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}
