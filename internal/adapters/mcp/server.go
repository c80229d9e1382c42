// Package mcp exposes the quote store as Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/domain"
)

// QuoteResult is a quote in tool output.
type QuoteResult struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// CategoriesResult is the list_categories output.
type CategoriesResult struct {
	Categories []string `json:"categories"`
	Selected   string   `json:"selected"`
}

// SyncResult is the sync_now output.
type SyncResult struct {
	Fetched int    `json:"fetched"`
	Added   int    `json:"added"`
	Total   int    `json:"total"`
	Policy  string `json:"policy"`
}

// NewServer creates an MCP server whose tools call svc.
func NewServer(svc *app.QuoteService, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"quotesync",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("list_quotes",
			mcp.WithDescription("List quotes in a category. Without a category the saved selection is used; 'all' lists everything."),
			mcp.WithString("category",
				mcp.Description("Category name, or 'all'"),
			),
		),
		handleListQuotes(svc),
	)

	s.AddTool(
		mcp.NewTool("random_quote",
			mcp.WithDescription("Pick one random quote from the selected category."),
		),
		handleRandomQuote(svc),
	)

	s.AddTool(
		mcp.NewTool("add_quote",
			mcp.WithDescription("Add a quote. It is saved locally and sent to the quote server when sync is configured."),
			mcp.WithString("text",
				mcp.Required(),
				mcp.Description("Quote text"),
			),
			mcp.WithString("category",
				mcp.Required(),
				mcp.Description("Category name (e.g. 'Motivation')"),
			),
		),
		handleAddQuote(svc),
	)

	s.AddTool(
		mcp.NewTool("list_categories",
			mcp.WithDescription("List the categories, starting with 'all', and the current selection."),
		),
		handleListCategories(svc),
	)

	s.AddTool(
		mcp.NewTool("select_category",
			mcp.WithDescription("Save the category selection. Unknown categories select 'all'."),
			mcp.WithString("category",
				mcp.Required(),
				mcp.Description("Category name, or 'all'"),
			),
		),
		handleSelectCategory(svc),
	)

	s.AddTool(
		mcp.NewTool("import_quotes",
			mcp.WithDescription("Append quotes from a JSON array of {text, category} objects. The whole batch is rejected if any element is invalid."),
			mcp.WithString("json",
				mcp.Required(),
				mcp.Description(`JSON array, e.g. [{"text":"Ship it.","category":"Work"}]`),
			),
		),
		handleImportQuotes(svc),
	)

	s.AddTool(
		mcp.NewTool("export_quotes",
			mcp.WithDescription("Export every quote as an indented JSON array."),
		),
		handleExportQuotes(svc),
	)

	s.AddTool(
		mcp.NewTool("sync_now",
			mcp.WithDescription("Reconcile with the quote server immediately."),
		),
		handleSyncNow(svc),
	)

	return s
}

// ServeStdio serves s on in and out until ctx is cancelled or in closes.
func ServeStdio(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s).Listen(ctx, in, out)
}

func handleListQuotes(svc *app.QuoteService) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		quotes := svc.Quotes(ctx, req.GetString("category", ""))

		return jsonResult(toResults(quotes))
	}
}

func handleRandomQuote(svc *app.QuoteService) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		quote, err := svc.ShowRandom(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to show quote: %v", err)), nil
		}

		if quote == nil {
			return mcp.NewToolResultText(app.NoQuotesMessage), nil
		}

		return jsonResult(QuoteResult{Text: quote.Text, Category: quote.Category})
	}
}

func handleAddQuote(svc *app.QuoteService) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text := req.GetString("text", "")
		category := req.GetString("category", "")

		quote, err := svc.Add(ctx, text, category)
		if err != nil {
			if domain.IsValidation(err) {
				return mcp.NewToolResultError("Please enter both a quote and a category."), nil
			}

			return mcp.NewToolResultError(fmt.Sprintf("failed to add quote: %v", err)), nil
		}

		return jsonResult(QuoteResult{Text: quote.Text, Category: quote.Category})
	}
}

func handleListCategories(svc *app.QuoteService) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(CategoriesResult{
			Categories: svc.Categories(),
			Selected:   svc.Selected(ctx),
		})
	}
}

func handleSelectCategory(svc *app.QuoteService) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		category, err := req.RequireString("category")
		if err != nil {
			return mcp.NewToolResultError("category is required"), nil
		}

		stored, err := svc.Select(ctx, category)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to select category: %v", err)), nil
		}

		return mcp.NewToolResultText(stored), nil
	}
}

func handleImportQuotes(svc *app.QuoteService) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := req.RequireString("json")
		if err != nil {
			return mcp.NewToolResultError("json is required"), nil
		}

		n, err := svc.Import(ctx, []byte(raw))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to import quotes: %v", err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Quotes imported successfully! (%d added)", n)), nil
	}
}

func handleExportQuotes(svc *app.QuoteService) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(string(svc.Export(ctx))), nil
	}
}

func handleSyncNow(svc *app.QuoteService) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := svc.SyncNow(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("sync failed: %v", err)), nil
		}

		return jsonResult(SyncResult{
			Fetched: result.Fetched,
			Added:   result.Added,
			Total:   result.Total,
			Policy:  string(result.Policy),
		})
	}
}

func toResults(quotes []domain.Quote) []QuoteResult {
	results := make([]QuoteResult, len(quotes))
	for i, q := range quotes {
		results[i] = QuoteResult{Text: q.Text, Category: q.Category}
	}

	return results
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding tool result: %w", err)
	}

	return mcp.NewToolResultText(string(data)), nil
}
