package api

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/viastitch/pkg/board"
	"github.com/matzehuels/viastitch/pkg/buildinfo"
	"github.com/matzehuels/viastitch/pkg/errors"
	"github.com/matzehuels/viastitch/pkg/history"
	"github.com/matzehuels/viastitch/pkg/pipeline"
	"github.com/matzehuels/viastitch/pkg/preview"
	"github.com/matzehuels/viastitch/pkg/stitch"
)

type errorBody struct {
	Code  errors.Code `json:"code"`
	Error string      `json:"error"`
}

// StitchResponse summarizes one run.
type StitchResponse struct {
	RunID          string        `json:"run_id,omitempty"`
	Net            string        `json:"net"`
	Outcome        string        `json:"outcome"`
	Candidates     int           `json:"candidates"`
	Created        []board.Via   `json:"created"`
	Skipped        []stitch.Skip `json:"skipped,omitempty"`
	CommitError    string        `json:"commit_error,omitempty"`
	SelectionError string        `json:"selection_error,omitempty"`
	RefillError    string        `json:"refill_error,omitempty"`
	SaveError      string        `json:"save_error,omitempty"`
	Refilled       bool          `json:"refilled"`
	Saved          bool          `json:"saved"`
	DryRun         bool          `json:"dry_run,omitempty"`
	PlanCached     bool          `json:"plan_cached"`
	Fingerprint    string        `json:"fingerprint"`
	Stats          stitch.Stats  `json:"stats"`
	DurationMS     int64         `json:"duration_ms"`

	// Positions lists candidate positions for dry runs.
	Positions []stitch.Candidate `json:"positions,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
}

func (s *Server) handleNets(w http.ResponseWriter, r *http.Request) {
	nets, err := s.runner.Nets(r.Context(), s.board)
	if err != nil {
		writeError(w, err)
		return
	}
	if nets == nil {
		nets = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"nets": nets})
}

func (s *Server) handleZones(w http.ResponseWriter, r *http.Request) {
	net := chi.URLParam(r, "net")
	if err := errors.ValidateNetName(net); err != nil {
		writeError(w, err)
		return
	}
	zones, err := s.runner.Zones(r.Context(), s.board, net)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"net": net, "zones": zones})
}

func (s *Server) handleStitch(w http.ResponseWriter, r *http.Request) {
	opts, err := s.decodeOptions(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.lock(); err != nil {
		writeError(w, err)
		return
	}
	defer s.mu.Unlock()

	start := time.Now()
	res, err := s.runner.Execute(r.Context(), s.board, opts, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := Summarize(res)
	if !res.DryRun && len(res.Stitch.Created) > 0 && s.save != nil {
		if err := s.save(r.Context()); err != nil {
			s.logger.Error("failed to save board", "err", err)
			resp.SaveError = err.Error()
		} else {
			resp.Saved = true
		}
	}
	resp.DurationMS = time.Since(start).Milliseconds()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	opts := s.defaults
	q := r.URL.Query()
	if net := q.Get("net"); net != "" {
		opts.Net = net
	}
	opts.Refresh = q.Get("refresh") == "true"
	popts := preview.Options{}
	var err error
	if popts.WidthMM, err = floatParam(q.Get("width_mm")); err != nil {
		writeError(w, err)
		return
	}
	if popts.HeightMM, err = floatParam(q.Get("height_mm")); err != nil {
		writeError(w, err)
		return
	}

	if err := s.lock(); err != nil {
		writeError(w, err)
		return
	}
	defer s.mu.Unlock()

	data, res, err := s.runner.Preview(r.Context(), s.board, opts, popts)
	if err != nil {
		writeError(w, err)
		return
	}
	if data == nil {
		// Nothing to draw; report the outcome instead.
		writeJSON(w, http.StatusUnprocessableEntity, Summarize(res))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := history.ListOptions{Net: q.Get("net")}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "limit must be a non-negative integer, got %q", v))
			return
		}
		opts.Limit = n
	}
	runs, err := s.runner.History.List(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []history.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	rec, err := s.runner.History.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// decodeOptions decodes the request body over the server defaults. An
// empty body runs with the defaults.
func (s *Server) decodeOptions(w http.ResponseWriter, r *http.Request) (pipeline.Options, error) {
	opts := s.defaults
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "read request body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return opts, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&opts); err != nil {
		return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body")
	}
	return opts, nil
}

// Summarize converts a pipeline result to its JSON response form.
func Summarize(res *pipeline.Result) StitchResponse {
	sr := res.Stitch
	resp := StitchResponse{
		RunID:       res.RunID,
		Net:         sr.Net,
		Outcome:     string(sr.Outcome),
		Candidates:  len(sr.Candidates),
		Created:     sr.Created,
		Skipped:     sr.Skipped,
		Refilled:    sr.Refilled,
		DryRun:      res.DryRun,
		PlanCached:  res.CacheInfo.PlanHit,
		Fingerprint: res.Fingerprint,
		Stats:       sr.Stats,
	}
	if resp.Created == nil {
		resp.Created = []board.Via{}
	}
	if res.DryRun {
		resp.Positions = sr.Candidates
	}
	if sr.CommitErr != nil {
		resp.CommitError = errors.UserMessage(sr.CommitErr)
	}
	if sr.SelectionErr != nil {
		resp.SelectionError = sr.SelectionErr.Error()
	}
	if sr.RefillErr != nil {
		resp.RefillError = sr.RefillErr.Error()
	}
	return resp
}

func floatParam(v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "expected a non-negative number, got %q", v)
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	var maxErr *http.MaxBytesError
	if stderrors.As(err, &maxErr) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Code: errors.ErrCodeInvalidInput, Error: err.Error()})
		return
	}
	writeJSON(w, errors.HTTPStatus(err), errorBody{Code: code, Error: errors.UserMessage(err)})
}
