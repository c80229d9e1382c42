package benchmark

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotesync/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotesync/internal/adapters/render"
	"github.com/jsamuelsen/quotesync/internal/adapters/storage"
	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

func init() {
	// Set Gin to release mode for accurate benchmarks
	gin.SetMode(gin.ReleaseMode)
}

func createGinContext(w http.ResponseWriter, r *http.Request) *gin.Context {
	c, _ := gin.CreateTestContext(w)
	c.Request = r
	return c
}

// newService returns an in-memory service holding the defaults plus n
// quotes spread over ten categories.
func newService(b *testing.B, n int) *app.QuoteService {
	b.Helper()

	svc := app.NewQuoteService(app.QuoteServiceConfig{
		KV:      storage.NewMemoryStore(),
		Session: storage.NewMemoryStore(),
		Surface: render.NewMemorySurface(),
		Sync:    app.SyncSettings{Interval: time.Hour},
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	if err := svc.Init(context.Background()); err != nil {
		b.Fatal(err)
	}

	if n == 0 {
		return svc
	}

	var batch strings.Builder
	batch.WriteByte('[')

	for i := range n {
		if i > 0 {
			batch.WriteByte(',')
		}

		fmt.Fprintf(&batch, `{"text":"quote %d","category":"cat-%d"}`, i, i%10)
	}

	batch.WriteByte(']')

	if _, err := svc.Import(context.Background(), []byte(batch.String())); err != nil {
		b.Fatal(err)
	}

	return svc
}

// BenchmarkLivenessHandler measures the liveness endpoint, which probes hit
// far more often than anything else.
func BenchmarkLivenessHandler(b *testing.B) {
	handler := handlers.NewHealthHandler(handlers.HealthHandlerConfig{
		Registry:  ports.NewHealthRegistry(),
		BuildInfo: handlers.NewBuildInfo("1.0.0", "abc123", "2024-01-01T00:00:00Z"),
	})
	req := httptest.NewRequest(http.MethodGet, "/-/live", http.NoBody)

	b.ResetTimer()
	b.ReportAllocs()

	for b.Loop() {
		handler.Liveness(createGinContext(httptest.NewRecorder(), req))
	}
}

// BenchmarkReadinessHandler_WithStorage includes the storage health check.
func BenchmarkReadinessHandler_WithStorage(b *testing.B) {
	registry := ports.NewHealthRegistry()
	_ = registry.Register(storage.NewMemoryStore())

	handler := handlers.NewHealthHandler(handlers.HealthHandlerConfig{
		Registry:  registry,
		BuildInfo: handlers.NewBuildInfo("1.0.0", "abc123", "2024-01-01T00:00:00Z"),
	})
	req := httptest.NewRequest(http.MethodGet, "/-/ready", http.NoBody)

	b.ResetTimer()
	b.ReportAllocs()

	for b.Loop() {
		handler.Readiness(createGinContext(httptest.NewRecorder(), req))
	}
}

// BenchmarkListQuotes measures one page of a filtered listing at several
// store sizes.
func BenchmarkListQuotes(b *testing.B) {
	for _, size := range []int{0, 100, 1000, 10000} {
		b.Run(fmt.Sprintf("quotes=%d", size), func(b *testing.B) {
			handler := handlers.NewQuoteHandler(newService(b, size), nil)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/quotes?category=cat-3&limit=50", http.NoBody)

			b.ResetTimer()
			b.ReportAllocs()

			for b.Loop() {
				handler.ListQuotes(createGinContext(httptest.NewRecorder(), req))
			}
		})
	}
}

// BenchmarkRandomQuote includes persisting the last viewed quote.
func BenchmarkRandomQuote(b *testing.B) {
	handler := handlers.NewQuoteHandler(newService(b, 1000), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/quotes/random", http.NoBody)

	b.ResetTimer()
	b.ReportAllocs()

	for b.Loop() {
		handler.RandomQuote(createGinContext(httptest.NewRecorder(), req))
	}
}

func BenchmarkExportQuotes(b *testing.B) {
	handler := handlers.NewQuoteHandler(newService(b, 1000), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/quotes/export", http.NoBody)

	b.ResetTimer()
	b.ReportAllocs()

	for b.Loop() {
		handler.ExportQuotes(createGinContext(httptest.NewRecorder(), req))
	}
}

// BenchmarkView_HTML measures rendering the full list as a page.
func BenchmarkView_HTML(b *testing.B) {
	handler := handlers.NewQuoteHandler(newService(b, 1000), render.NewHTMLRenderer("quotesync"))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/view", http.NoBody)

	b.ResetTimer()
	b.ReportAllocs()

	for b.Loop() {
		handler.View(createGinContext(httptest.NewRecorder(), req))
	}
}

// BenchmarkLivenessHandler_Parallel measures liveness under concurrent load.
func BenchmarkLivenessHandler_Parallel(b *testing.B) {
	handler := handlers.NewHealthHandler(handlers.HealthHandlerConfig{
		Registry:  ports.NewHealthRegistry(),
		BuildInfo: handlers.NewBuildInfo("1.0.0", "abc123", "2024-01-01T00:00:00Z"),
	})

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		req := httptest.NewRequest(http.MethodGet, "/-/live", http.NoBody)
		for pb.Next() {
			handler.Liveness(createGinContext(httptest.NewRecorder(), req))
		}
	})
}
