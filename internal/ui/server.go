// Package ui serves the recipe editor: full pages for extraction and
// editing, plus the HTMX fragment endpoints that mutate list sections and
// refresh the review diff. The server is stateless; every request carries
// the complete draft and original snapshot as form fields.
package ui

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mealdraft/mealdraft/internal/debug"
	"github.com/mealdraft/mealdraft/internal/recipe"
	"github.com/mealdraft/mealdraft/internal/store"
	"github.com/mealdraft/mealdraft/internal/telemetry"
	"github.com/mealdraft/mealdraft/internal/ui/templates"
)

// RecipeAI is the language-model surface the handlers need.
type RecipeAI interface {
	ExtractRecipe(ctx context.Context, text string) (*recipe.Recipe, error)
	ModifyRecipe(ctx context.Context, current *recipe.Recipe, request string) (*recipe.Recipe, error)
}

// RecipeStore is the persistence surface the handlers need.
type RecipeStore interface {
	Save(ctx context.Context, r *recipe.Recipe) (int64, error)
	Get(ctx context.Context, id int64) (*store.Saved, error)
	List(ctx context.Context) ([]*store.Saved, error)
	Delete(ctx context.Context, id int64) error
}

// TextFetcher retrieves cleaned text for a URL.
type TextFetcher func(ctx context.Context, url string) (string, error)

// Server holds the handler dependencies. AI and Store may be nil, in
// which case the corresponding endpoints report the feature unavailable;
// the form-state and diff endpoints never need either.
type Server struct {
	AI    RecipeAI
	Store RecipeStore
	Fetch TextFetcher
}

// NewServer wires a server with the default web page fetcher.
func NewServer(ai RecipeAI, st RecipeStore, fetch TextFetcher) *Server {
	return &Server{AI: ai, Store: st, Fetch: fetch}
}

// Handler builds the route table. Method constraints are enforced inside
// each handler so unknown methods get 405 rather than 404.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/healthz", s.handleHealth)

	mux.HandleFunc("/recipes", s.handleRecipeList)
	mux.HandleFunc("/recipes/edit", s.handleRecipeEdit)
	mux.HandleFunc("/recipes/fetch-text", s.handleFetchText)
	mux.HandleFunc("/recipes/extract", s.handleExtract)
	mux.HandleFunc("/recipes/modify", s.handleModify)
	mux.HandleFunc("/recipes/save", s.handleSave)
	mux.HandleFunc("/recipes/delete", s.handleDelete)

	mux.HandleFunc("/fragments/list/insert", s.handleListInsert)
	mux.HandleFunc("/fragments/list/delete", s.handleListDelete)
	mux.HandleFunc("/fragments/list/reorder", s.handleListReorder)
	mux.HandleFunc("/fragments/diff", s.handleDiff)

	return withRequestMetrics(mux)
}

var httpMetrics struct {
	duration metric.Float64Histogram
}

var httpMetricsOnce sync.Once

func initHTTPMetrics() {
	m := telemetry.Meter("mealdraft/ui")
	var err error
	httpMetrics.duration, err = m.Float64Histogram("mealdraft.http.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"))
	if err != nil {
		debug.Logf("http metrics init: %v\n", err)
	}
}

func withRequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpMetricsOnce.Do(initHTTPMetrics)
		t0 := time.Now()
		next.ServeHTTP(w, r)
		if httpMetrics.duration != nil {
			httpMetrics.duration.Record(r.Context(),
				float64(time.Since(t0).Milliseconds()),
				metric.WithAttributes(
					attribute.String("http.route", r.URL.Path),
					attribute.String("http.method", r.Method),
				))
		}
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// requireMethod rejects requests with the wrong method. Returns false
// after writing the 405 so callers can bail out with a bare return.
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func renderHTML(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Render(w, name, data); err != nil {
		debug.Logf("render %s: %v\n", name, err)
	}
}
