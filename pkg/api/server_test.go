package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/viastitch/pkg/board"
	"github.com/matzehuels/viastitch/pkg/board/memory"
	"github.com/matzehuels/viastitch/pkg/buildinfo"
	"github.com/matzehuels/viastitch/pkg/cache"
	"github.com/matzehuels/viastitch/pkg/errors"
	"github.com/matzehuels/viastitch/pkg/geom"
	"github.com/matzehuels/viastitch/pkg/history"
	"github.com/matzehuels/viastitch/pkg/history/sqlite"
	"github.com/matzehuels/viastitch/pkg/pipeline"
)

func mm(v float64) int64 { return geom.DefaultScale.FromMM(v) }

func testDoc() *board.Document {
	ring := geom.Rect(0, 0, mm(10), mm(10))
	zone := func(id string, l board.Layer) board.Zone {
		return board.Zone{
			ID: id, Net: "GND", Layers: []board.Layer{l}, Filled: true, Outline: ring,
			Fills: map[board.Layer][]geom.Polygon{l: {{Outline: ring}}},
		}
	}
	return &board.Document{
		Nets:  []board.Net{{Name: "GND"}, {Name: "VCC"}},
		Zones: []board.Zone{zone("top", "F.Cu"), zone("bottom", "B.Cu")},
	}
}

type fixture struct {
	srv   *Server
	board *memory.Board
	store history.Store
	saves int
}

func newFixture(t *testing.T, opts ...memory.Option) *fixture {
	t.Helper()
	b, err := memory.New(testDoc(), opts...)
	require.NoError(t, err)
	store, err := sqlite.Open(t.TempDir()+"/history.db", nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f := &fixture{board: b, store: store}
	runner := pipeline.NewRunner(cache.NewNullCache(), nil, store, nil)
	f.srv = New(runner, b, WithSave(func(context.Context) error {
		f.saves++
		return nil
	}))
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","version":"`+buildinfo.Version+`"}`, rec.Body.String())
}

func TestNets(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/v1/nets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"nets":["GND"]}`, rec.Body.String())
}

func TestZones(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/v1/nets/VCC/zones", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Net   string `json:"net"`
		Zones []struct {
			ID  string `json:"id"`
			Net string `json:"net"`
		} `json:"zones"`
	}](t, rec)
	assert.Equal(t, "VCC", body.Net)
	assert.Len(t, body.Zones, 2)

	rec = f.do(t, http.MethodGet, "/api/v1/nets/GND/zones", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"net":"GND","zones":[]}`, rec.Body.String())
}

func TestStitch(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/v1/stitch", `{"net":"GND"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[StitchResponse](t, rec)
	assert.Equal(t, "ok", resp.Outcome)
	assert.Equal(t, 9, resp.Candidates)
	assert.Len(t, resp.Created, 9)
	assert.True(t, resp.Refilled)
	assert.True(t, resp.Saved)
	assert.Equal(t, 1, f.saves)
	assert.NotEmpty(t, resp.RunID)
	assert.Len(t, f.board.Document().Vias, 9)

	rec = f.do(t, http.MethodGet, "/api/v1/runs/"+resp.RunID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	run := decode[history.Record](t, rec)
	assert.Equal(t, 9, run.Created)

	rec = f.do(t, http.MethodGet, "/api/v1/runs?net=GND&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decode[struct {
		Runs []history.Record `json:"runs"`
	}](t, rec)
	assert.Len(t, runs.Runs, 1)
}

func TestStitchDryRun(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/v1/stitch", `{"dry_run":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[StitchResponse](t, rec)
	assert.True(t, resp.DryRun)
	assert.Len(t, resp.Positions, 9)
	assert.Empty(t, resp.Created)
	assert.Zero(t, f.saves)
	assert.Empty(t, f.board.Calls())
}

// keyCache is an in-memory cache.
type keyCache struct {
	data map[string][]byte
}

func (c *keyCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *keyCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.data[key] = data
	return nil
}

func (c *keyCache) Delete(_ context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func (c *keyCache) Close() error { return nil }

func TestCacheScope(t *testing.T) {
	b, err := memory.New(testDoc())
	require.NoError(t, err)
	kc := &keyCache{data: map[string][]byte{}}
	srv := New(pipeline.NewRunner(kc, nil, history.Nop{}, nil), b, WithCacheScope("board:main:"))
	f := &fixture{srv: srv, board: b}

	rec := f.do(t, http.MethodPost, "/api/v1/stitch", `{"dry_run":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, kc.data, 1)
	for key := range kc.data {
		assert.True(t, strings.HasPrefix(key, "board:main:plan:"), key)
	}

	// The second run finds the scoped plan.
	rec = f.do(t, http.MethodPost, "/api/v1/stitch", `{"dry_run":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[StitchResponse](t, rec).PlanCached)
	assert.Len(t, kc.data, 1)
}

func TestStitchOutcomeIsNotAnError(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/v1/stitch", `{"net":"VCC"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[StitchResponse](t, rec)
	assert.Equal(t, "no-filled-zones", resp.Outcome)
	assert.Zero(t, f.saves)
}

func TestStitchCommitFailure(t *testing.T) {
	f := newFixture(t, memory.WithCommitError(stderrors.New("host refused")))
	rec := f.do(t, http.MethodPost, "/api/v1/stitch", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[StitchResponse](t, rec)
	assert.Equal(t, "commit-failed", resp.Outcome)
	assert.NotEmpty(t, resp.CommitError)
	assert.Equal(t, 9, resp.Candidates)
	assert.Empty(t, resp.Created)
	assert.False(t, resp.Saved)
}

func TestStitchErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   errors.Code
	}{
		{"malformed", `{"net":`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"unknown field", `{"netname":"GND"}`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"bad resolution", `{"resolution":0}`, http.StatusBadRequest, errors.ErrCodeInvalidGrid},
		{"bad via", `{"via_drill":2}`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.do(t, http.MethodPost, "/api/v1/stitch", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			body := decode[errorBody](t, rec)
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestStitchBusy(t *testing.T) {
	f := newFixture(t)
	f.srv.mu.Lock()
	defer f.srv.mu.Unlock()
	rec := f.do(t, http.MethodPost, "/api/v1/stitch", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, errors.ErrCodeBusy, decode[errorBody](t, rec).Code)
}

func TestBoardUnavailable(t *testing.T) {
	f := newFixture(t, memory.WithEnumerateError(stderrors.New("socket closed")))
	rec := f.do(t, http.MethodGet, "/api/v1/nets", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, errors.ErrCodeBoardUnavailable, decode[errorBody](t, rec).Code)
}

func TestPreview(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/v1/preview?net=GND&width_mm=60&height_mm=40", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG"))

	rec = f.do(t, http.MethodGet, "/api/v1/preview?net=VCC", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/preview?width_mm=wide", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunNotFound(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/v1/runs/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, errors.ErrCodeRunNotFound, decode[errorBody](t, rec).Code)

	rec = f.do(t, http.MethodGet, "/api/v1/runs?limit=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/v2/nets", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodDelete, "/api/v1/nets", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
