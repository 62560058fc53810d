package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/matzehuels/pkgcheck/pkg/buildinfo"
	"github.com/matzehuels/pkgcheck/pkg/errors"
	"github.com/matzehuels/pkgcheck/pkg/fmri"
	"github.com/matzehuels/pkgcheck/pkg/graph"
	"github.com/matzehuels/pkgcheck/pkg/observability"
	"github.com/matzehuels/pkgcheck/pkg/problem"
	"github.com/matzehuels/pkgcheck/pkg/render"
)

type stateKey struct{}

// requireSnapshot pins the current state for the request, so a concurrent
// reload cannot mix two snapshots in one answer.
func (s *Server) requireSnapshot(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := s.current.Load()
		if st == nil {
			writeError(w, http.StatusServiceUnavailable, ErrNoSnapshot.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), stateKey{}, st)))
	})
}

func stateFrom(r *http.Request) *state {
	return r.Context().Value(stateKey{}).(*state)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeErrorFor answers with the status implied by err's code, or with
// fallback for errors that carry none.
func writeErrorFor(w http.ResponseWriter, err error, fallback int) {
	status := errors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		status = fallback
	}
	writeError(w, status, errors.UserMessage(err))
}

// fmriParam parses the fmri query parameter, writing a 400 when it is
// missing or malformed.
func fmriParam(w http.ResponseWriter, r *http.Request) (fmri.FMRI, bool) {
	raw := r.URL.Query().Get("fmri")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing fmri parameter")
		return fmri.FMRI{}, false
	}
	f, err := fmri.Parse(raw)
	if err != nil {
		writeErrorFor(w, err, http.StatusBadRequest)
		return fmri.FMRI{}, false
	}
	return f.Normalize(), true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := buildinfo.Get()
	resp := map[string]string{"status": "ok", "version": info.Version, "commit": info.Commit}
	if snap := s.Snapshot(); snap != nil {
		resp["snapshot"] = snap.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stateFrom(r).snap.Summary())
}

func (s *Server) handleProblems(w http.ResponseWriter, r *http.Request) {
	ps := stateFrom(r).snap.Problems
	if raw := r.URL.Query().Get("kind"); raw != "" {
		var kinds []problem.Kind
		for _, name := range strings.Split(raw, ",") {
			k, err := problem.ParseKind(strings.TrimSpace(name))
			if err != nil {
				writeErrorFor(w, err, http.StatusBadRequest)
				return
			}
			kinds = append(kinds, k)
		}
		ps = problem.Filter(ps, kinds...)
	}
	if ps == nil {
		ps = []problem.Problem{}
	}
	writeJSON(w, http.StatusOK, problem.NewDocument(ps))
}

type cycleResponse struct {
	Route []problem.Hop `json:"route"`
	Text  string        `json:"text"`
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	cs := stateFrom(r).snap.Cycles
	out := make([]cycleResponse, len(cs))
	for i, c := range cs {
		out[i] = cycleResponse{Route: c.Hops(), Text: c.String()}
	}
	writeJSON(w, http.StatusOK, out)
}

type dependentsResponse struct {
	FMRI       string               `json:"fmri"`
	Dependents []graph.DependentRef `json:"dependents"`
}

func (s *Server) handleDependents(w http.ResponseWriter, r *http.Request) {
	f, ok := fmriParam(w, r)
	if !ok {
		return
	}
	st := stateFrom(r)

	key := st.snap.ID + "\x00" + f.Name
	if refs, ok := s.dependents.Get(key); ok {
		observability.Cache().OnCacheHit(r.Context(), "dependents")
		writeJSON(w, http.StatusOK, dependentsResponse{FMRI: f.Name, Dependents: refs})
		return
	}
	observability.Cache().OnCacheMiss(r.Context(), "dependents")

	refs, err := st.graph.DependentsOf(f)
	if err != nil {
		writeErrorFor(w, err, http.StatusNotFound)
		return
	}
	s.dependents.Add(key, refs)
	observability.Cache().OnCacheSet(r.Context(), "dependents", len(refs))
	writeJSON(w, http.StatusOK, dependentsResponse{FMRI: f.Name, Dependents: refs})
}

func (s *Server) handleKnown(w http.ResponseWriter, r *http.Request) {
	f, ok := fmriParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fmri": f.Name, "known": stateFrom(r).graph.IsKnownPackage(f)})
}

func (s *Server) handleObsoleted(w http.ResponseWriter, r *http.Request) {
	f, ok := fmriParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fmri": f.Name, "obsoleted": stateFrom(r).graph.IsObsoleted(f)})
}

func (s *Server) handleOwner(w http.ResponseWriter, r *http.Request) {
	f, ok := fmriParam(w, r)
	if !ok {
		return
	}
	owner, found := stateFrom(r).graph.OwnerOf(f)
	writeJSON(w, http.StatusOK, map[string]any{"fmri": f.Name, "owner": owner, "found": found})
}

func (s *Server) handleRenderCycles(w http.ResponseWriter, r *http.Request) {
	s.writeRendered(w, r, render.CyclesDOT(stateFrom(r).snap.Cycles))
}

func (s *Server) handleRenderDependents(w http.ResponseWriter, r *http.Request) {
	f, ok := fmriParam(w, r)
	if !ok {
		return
	}
	depth := 1
	if raw := r.URL.Query().Get("depth"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d < 1 || d > 10 {
			writeError(w, http.StatusBadRequest, "depth must be between 1 and 10")
			return
		}
		depth = d
	}
	dot, err := render.DependentsDOT(stateFrom(r).graph, f, depth)
	if err != nil {
		writeErrorFor(w, err, http.StatusNotFound)
		return
	}
	s.writeRendered(w, r, dot)
}

var contentTypes = map[string]string{
	render.FormatDOT: "text/vnd.graphviz",
	render.FormatSVG: "image/svg+xml",
}

// writeRendered answers with dot or svg; pdf and png need an external tool
// and are left to the CLI.
func (s *Server) writeRendered(w http.ResponseWriter, r *http.Request, dot string) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = render.FormatSVG
	}
	ct, ok := contentTypes[format]
	if !ok {
		writeError(w, http.StatusBadRequest, "format must be dot or svg")
		return
	}
	out, err := render.Render(r.Context(), dot, format)
	if err != nil {
		writeErrorFor(w, err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", ct)
	w.Write(out)
}
