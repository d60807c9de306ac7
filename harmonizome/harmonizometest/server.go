// Package harmonizometest runs a fake Harmonizome API for tests.
package harmonizometest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// BasePath mirrors the public host layout, https://maayanlab.cloud/Harmonizome
const BasePath = "/Harmonizome"

// Gene is one association of the fake gene set. A non-zero Status makes the
// gene detail endpoint answer with that status instead of the document.
type Gene struct {
	Symbol   string
	Synonyms []string
	Status   int
}

// Server is a fake Harmonizome host serving a single gene set
type Server struct {
	*httptest.Server

	// GeneSetStatus, when non-zero, replaces the gene set response
	GeneSetStatus int

	mu       sync.Mutex
	genes    []Gene
	requests []string
}

// NewServer starts a fake host closed automatically at test cleanup
func NewServer(t testing.TB, genes ...Gene) *Server {
	t.Helper()

	s := &Server{genes: genes}

	router := chi.NewRouter()
	router.Use(s.record)
	router.Route(BasePath+"/api/1.0", func(r chi.Router) {
		r.Get("/gene_set/{name}/{library}", s.serveGeneSet)
		r.Get("/gene/{symbol}", s.serveGene)
	})

	s.Server = httptest.NewServer(router)
	t.Cleanup(s.Close)
	return s
}

// BaseURL is what a harmonizome.Client should be pointed at
func (s *Server) BaseURL() string {
	return s.URL + BasePath
}

// Requests returns the escaped request paths seen so far, in order
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.URL.EscapedPath())
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) serveGeneSet(w http.ResponseWriter, r *http.Request) {
	if s.GeneSetStatus != 0 {
		w.WriteHeader(s.GeneSetStatus)
		return
	}

	type geneRef struct {
		Symbol string `json:"symbol"`
		Href   string `json:"href"`
	}
	type association struct {
		Gene              geneRef `json:"gene"`
		StandardizedValue float64 `json:"standardizedValue"`
	}

	associations := make([]association, 0, len(s.genes))
	for _, g := range s.genes {
		associations = append(associations, association{
			Gene:              geneRef{Symbol: g.Symbol, Href: "/api/1.0/gene/" + g.Symbol},
			StandardizedValue: 1,
		})
	}

	writeJSON(w, map[string]any{
		"name":         chi.URLParam(r, "name") + "/" + chi.URLParam(r, "library"),
		"associations": associations,
	})
}

func (s *Server) serveGene(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	for _, g := range s.genes {
		if g.Symbol != symbol {
			continue
		}
		if g.Status != 0 {
			w.WriteHeader(g.Status)
			return
		}
		synonyms := g.Synonyms
		if synonyms == nil {
			synonyms = []string{}
		}
		writeJSON(w, map[string]any{
			"symbol":   g.Symbol,
			"name":     g.Symbol + " protein",
			"synonyms": synonyms,
		})
		return
	}
	http.NotFound(w, r)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
