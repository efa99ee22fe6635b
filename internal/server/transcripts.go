package server

import (
	"net/http"
	"time"

	"github.com/mvonrenteln/FlowScribe-sub009/internal/observe"
	"github.com/mvonrenteln/FlowScribe-sub009/internal/rewrite"
	"github.com/mvonrenteln/FlowScribe-sub009/internal/transcript"
	"github.com/mvonrenteln/FlowScribe-sub009/internal/transcript/confidence"
	"github.com/mvonrenteln/FlowScribe-sub009/internal/transcript/scope"
)

func (s *Server) handleListTranscripts(w http.ResponseWriter, r *http.Request) {
	metas, err := s.transcripts.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, metas)
}

func (s *Server) handleSaveTranscript(w http.ResponseWriter, r *http.Request) {
	var t transcript.Transcript
	if err := decode(r, &t); err != nil {
		s.badRequest(w, r, "invalid transcript body: "+err.Error())
		return
	}
	// The path is authoritative for the id.
	t.ID = r.PathValue("id")

	if err := s.transcripts.Save(r.Context(), &t); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, saveResponse{
		ID:       t.ID,
		Revision: transcript.Revision(&t),
	})
}

type saveResponse struct {
	ID       string `json:"id"`
	Revision string `json:"revision"`
}

func (s *Server) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	t, err := s.transcripts.Load(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, t)
}

func (s *Server) handleDeleteTranscript(w http.ResponseWriter, r *http.Request) {
	if err := s.transcripts.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type confirmRequest struct {
	Confirmed bool `json:"confirmed"`
}

func (s *Server) handleConfirmSegment(w http.ResponseWriter, r *http.Request) {
	req := confirmRequest{Confirmed: true}
	if r.ContentLength > 0 {
		if err := decode(r, &req); err != nil {
			s.badRequest(w, r, "invalid confirm body: "+err.Error())
			return
		}
	}
	err := s.transcripts.SetConfirmed(r.Context(),
		r.PathValue("id"), r.PathValue("segmentID"), req.Confirmed)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type thresholdRequest struct {
	// Percentile overrides the configured selection percentile when non-nil.
	Percentile *float64 `json:"percentile"`

	// MaxThreshold overrides the configured cap when non-nil.
	MaxThreshold *float64 `json:"max_threshold"`
}

type thresholdResponse struct {
	// Threshold is nil when the transcript has no scored words.
	Threshold *float64 `json:"threshold"`
}

func (s *Server) handleAutoThreshold(w http.ResponseWriter, r *http.Request) {
	var req thresholdRequest
	if r.ContentLength > 0 {
		if err := decode(r, &req); err != nil {
			s.badRequest(w, r, "invalid threshold body: "+err.Error())
			return
		}
	}

	t, err := s.transcripts.Load(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	opts := append([]confidence.Option(nil), s.thresholdOpts...)
	if req.Percentile != nil {
		opts = append(opts, confidence.WithPercentile(*req.Percentile))
	}
	if req.MaxThreshold != nil {
		opts = append(opts, confidence.WithMaxThreshold(*req.MaxThreshold))
	}

	var resp thresholdResponse
	start := time.Now()
	if threshold, ok := confidence.AutoThreshold(t.Segments, opts...); ok {
		resp.Threshold = &threshold
	}
	observe.DefaultMetrics().ThresholdDuration.Record(r.Context(), time.Since(start).Seconds())
	s.writeJSON(w, r, http.StatusOK, resp)
}

type scopeRequest struct {
	// SegmentIDs is the selection to resolve, in selection order.
	SegmentIDs []string `json:"segment_ids"`

	// IncludeConfirmed keeps confirmed segments in the scope.
	IncludeConfirmed bool `json:"include_confirmed"`
}

type scopeResponse struct {
	SegmentIDs []string `json:"segment_ids"`
	Filtered   bool     `json:"filtered"`
}

// handleScope resolves a selection against the current transcript without
// running any action, so clients can preview what a bulk edit would touch.
func (s *Server) handleScope(w http.ResponseWriter, r *http.Request) {
	var req scopeRequest
	if err := decode(r, &req); err != nil {
		s.badRequest(w, r, "invalid scope body: "+err.Error())
		return
	}

	t, err := s.transcripts.Load(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	idx := scope.BuildIndex(t.Segments)
	ids := scope.ScopedIDs(idx, req.SegmentIDs, !req.IncludeConfirmed)
	s.writeJSON(w, r, http.StatusOK, scopeResponse{
		SegmentIDs: ids,
		Filtered:   scope.IsFiltered(t.Segments, ids),
	})
}

type rewriteRequest struct {
	SegmentIDs       []string `json:"segment_ids"`
	Instruction      string   `json:"instruction"`
	IncludeConfirmed bool     `json:"include_confirmed"`
}

func (s *Server) handleRewrite(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		s.writeJSON(w, r, http.StatusServiceUnavailable,
			errorBody{Error: "no language model provider configured"})
		return
	}

	var req rewriteRequest
	if err := decode(r, &req); err != nil {
		s.badRequest(w, r, "invalid rewrite body: "+err.Error())
		return
	}
	if req.Instruction == "" {
		s.badRequest(w, r, "instruction is required")
		return
	}

	t, err := s.transcripts.Load(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.engine.Run(r.Context(), rewrite.Request{
		Transcript:       t,
		SegmentIDs:       req.SegmentIDs,
		Instruction:      req.Instruction,
		IncludeConfirmed: req.IncludeConfirmed,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, result)
}
