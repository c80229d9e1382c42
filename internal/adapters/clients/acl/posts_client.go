package acl

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients"
	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
)

const postsPath = "/posts"

// PostsClientConfig contains configuration for the posts client.
type PostsClientConfig struct {
	// Client is the HTTP client; its BaseURL points at the posts API.
	Client *clients.Client

	// ServiceName names the remote in errors and health output.
	ServiceName string

	Logger *slog.Logger
}

// PostsClient implements ports.QuoteSource against a jsonplaceholder-style
// /posts resource.
type PostsClient struct {
	BaseAdapter

	logger *slog.Logger
}

// NewPostsClient creates a PostsClient. Panics if Client is nil.
func NewPostsClient(cfg PostsClientConfig) *PostsClient {
	if cfg.Client == nil {
		panic("PostsClient: Client is required")
	}

	name := cfg.ServiceName
	if name == "" {
		name = "quote-server"
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &PostsClient{
		BaseAdapter: NewBaseAdapter(cfg.Client, name),
		logger:      logger.With(slog.String("component", "posts_client")),
	}
}

// postDTO is the remote post. Title is a pointer so a missing title can be skipped.
type postDTO struct {
	UserID int     `json:"userId"`
	ID     int     `json:"id"`
	Title  *string `json:"title"`
	Body   string  `json:"body"`
}

// newPostDTO is the body sent when creating a post.
type newPostDTO struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// FetchQuotes implements ports.QuoteSource. Posts without a title are dropped;
// every kept post becomes a quote in the Server category.
func (c *PostsClient) FetchQuotes(ctx context.Context) ([]domain.Quote, error) {
	c.logger.Log(ctx, logging.LevelTrace, "starting request", slog.String("path", postsPath))

	body, err := c.Get(ctx, postsPath, "fetch posts")
	if err != nil {
		return nil, err
	}

	posts, err := DecodeResponse[[]postDTO](body)
	if err != nil {
		return nil, err
	}

	quotes := TranslateSlice(posts, translatePost)

	c.logger.DebugContext(ctx, "fetched posts",
		slog.Int("posts", len(posts)),
		slog.Int("quotes", len(quotes)),
	)

	return quotes, nil
}

// PostQuote implements ports.QuoteSource. The response body is ignored.
func (c *PostsClient) PostQuote(ctx context.Context, quote domain.Quote) error {
	payload, err := json.Marshal(newPostDTO{Text: quote.Text, Category: quote.Category})
	if err != nil {
		return fmt.Errorf("encoding quote: %w", err)
	}

	body, err := c.PostJSON(ctx, postsPath, payload, "create post")
	if err != nil {
		return err
	}

	_ = body.Close()

	c.logger.Log(ctx, logging.LevelTrace, "post created", slog.String("category", quote.Category))

	return nil
}

// Name implements ports.HealthChecker.
func (c *PostsClient) Name() string {
	return c.ServiceName()
}

// Check implements ports.HealthChecker by fetching a single post. An open
// circuit fails the check without a request.
func (c *PostsClient) Check(ctx context.Context) error {
	if state := c.CircuitState(); state == clients.StateOpen {
		return domain.NewNetworkError(c.ServiceName(), "circuit breaker "+state.String())
	}

	body, err := c.Get(ctx, postsPath+"/1", "health check")
	if err != nil {
		return err
	}

	return body.Close()
}

func translatePost(p postDTO) (domain.Quote, bool) {
	if p.Title == nil {
		return domain.Quote{}, false
	}

	title := strings.TrimSpace(*p.Title)
	if title == "" {
		return domain.Quote{}, false
	}

	return domain.Quote{Text: title, Category: domain.ServerCategory}, true
}
