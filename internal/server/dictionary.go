package server

import (
	"net/http"

	"github.com/mvonrenteln/FlowScribe-sub009/internal/dictionary"
)

func (s *Server) handleListTerms(w http.ResponseWriter, r *http.Request) {
	terms, err := s.dict.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, terms)
}

func (s *Server) handleCreateTerm(w http.ResponseWriter, r *http.Request) {
	var term dictionary.Term
	if err := decode(r, &term); err != nil {
		s.badRequest(w, r, "invalid term body: "+err.Error())
		return
	}
	if term.Canonical == "" {
		s.badRequest(w, r, "canonical spelling is required")
		return
	}

	created, err := s.dict.Put(r.Context(), term)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, created)
}

func (s *Server) handleGetTerm(w http.ResponseWriter, r *http.Request) {
	term, err := s.dict.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, term)
}

func (s *Server) handleUpdateTerm(w http.ResponseWriter, r *http.Request) {
	var term dictionary.Term
	if err := decode(r, &term); err != nil {
		s.badRequest(w, r, "invalid term body: "+err.Error())
		return
	}
	term.ID = r.PathValue("id")
	if term.Canonical == "" {
		s.badRequest(w, r, "canonical spelling is required")
		return
	}

	if err := s.dict.Update(r.Context(), term); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, term)
}

func (s *Server) handleDeleteTerm(w http.ResponseWriter, r *http.Request) {
	if err := s.dict.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type suggestResponse struct {
	// Canonical is the suggested spelling; empty when nothing matched.
	Canonical string `json:"canonical,omitempty"`

	// Confidence is the match score in [0,1].
	Confidence float64 `json:"confidence,omitempty"`

	// Match reports whether a suggestion was found.
	Match bool `json:"match"`
}

// handleSuggest matches ?word= against the dictionary by phonetic and
// fuzzy similarity.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	word := r.URL.Query().Get("word")
	if word == "" {
		s.badRequest(w, r, "query parameter word is required")
		return
	}

	terms, err := s.dict.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var resp suggestResponse
	if canonical, conf, ok := s.suggester.Suggest(word, terms); ok {
		resp = suggestResponse{Canonical: canonical, Confidence: conf, Match: true}
	}
	s.writeJSON(w, r, http.StatusOK, resp)
}
