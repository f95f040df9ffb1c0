package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/backgrid/internal/bgestimate"
	"github.com/banshee-data/backgrid/internal/testutil"
)

func TestCreateBackground(t *testing.T) {
	s := newTestServer(t)
	summary := createFixture(t, s, "cam-1")

	require.NotEmpty(t, summary.UID)
	assert.Equal(t, "cam-1", summary.SourceID)
	assert.Equal(t, 5, summary.TilesX)
	assert.Equal(t, 4, summary.TilesY)
	assert.Equal(t, 40, summary.BBox.Width)
	assert.Equal(t, 30, summary.BBox.Height)
	assert.Contains(t, string(summary.Control), `"interp":"linear"`)
}

func TestCreateBackgroundRejectsBadParams(t *testing.T) {
	s := newTestServer(t)
	mux := s.ServeMux()

	cases := []struct {
		name  string
		query string
	}{
		{"missing tile_x", "tile_y=8"},
		{"missing tile_y", "tile_x=8"},
		{"zero tile size", "tile_x=0&tile_y=8"},
		{"bad statistic", "tile_x=8&tile_y=8&stat=mode"},
		{"bad interp", "tile_x=8&tile_y=8&interp=cubic"},
		{"bad undersample", "tile_x=8&tile_y=8&undersample=ignore"},
		{"bad clip sigma", "tile_x=8&tile_y=8&clip_sigma=lots"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/backgrounds?"+tc.query, testutil.GradientPNG(t, 40, 30))
			rec := testutil.NewTestRecorder()
			mux.ServeHTTP(rec, req)
			testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
		})
	}
}

func TestCreateBackgroundRejectsBadPayload(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/backgrounds?tile_x=8&tile_y=8",
		bytes.NewBufferString("this is not a png"))
	rec := testutil.NewTestRecorder()
	s.ServeMux().ServeHTTP(rec, req)
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
}

func TestListBackgrounds(t *testing.T) {
	s := newTestServer(t)
	createFixture(t, s, "cam-1")
	createFixture(t, s, "cam-2")
	createFixture(t, s, "cam-3")

	rec := testutil.NewTestRecorder()
	s.ServeMux().ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/api/backgrounds?limit=2"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var resp summariesResponse
	testutil.DecodeJSON(t, rec, &resp)
	require.Len(t, resp.Snapshots, 2)
	// Newest first
	assert.Equal(t, "cam-3", resp.Snapshots[0].SourceID)
}

func TestListBackgroundsBadLimit(t *testing.T) {
	s := newTestServer(t)
	for _, limit := range []string{"0", "-1", "1001", "many"} {
		rec := testutil.NewTestRecorder()
		s.ServeMux().ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/api/backgrounds?limit="+limit))
		testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
	}
}

func TestGetBackground(t *testing.T) {
	s := newTestServer(t)
	created := createFixture(t, s, "cam-1")

	rec := testutil.NewTestRecorder()
	s.ServeMux().ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/api/background?uid="+created.UID))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var got snapshotSummary
	testutil.DecodeJSON(t, rec, &got)
	assert.Equal(t, created.UID, got.UID)
	assert.Equal(t, created.TilesX, got.TilesX)
}

func TestGetBackgroundLatestForSource(t *testing.T) {
	s := newTestServer(t)
	createFixture(t, s, "cam-1")
	latest := createFixture(t, s, "cam-1")

	rec := testutil.NewTestRecorder()
	s.ServeMux().ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/api/background?source_id=cam-1"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var got snapshotSummary
	testutil.DecodeJSON(t, rec, &got)
	assert.Equal(t, latest.UID, got.UID)
}

func TestGetBackgroundNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := testutil.NewTestRecorder()
	s.ServeMux().ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/api/background?uid=no-such-uid"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
}

func TestGetBackgroundMissingParams(t *testing.T) {
	s := newTestServer(t)
	rec := testutil.NewTestRecorder()
	s.ServeMux().ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/api/background"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
}

func TestDeleteBackground(t *testing.T) {
	s := newTestServer(t)
	created := createFixture(t, s, "cam-1")
	mux := s.ServeMux()

	rec := testutil.NewTestRecorder()
	mux.ServeHTTP(rec, testutil.NewTestRequest(http.MethodDelete, "/api/background?uid="+created.UID))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	rec = testutil.NewTestRecorder()
	mux.ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/api/background?uid="+created.UID))
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
}

func TestControlFromQuery(t *testing.T) {
	t.Parallel()

	q, err := url.ParseQuery("tile_x=16&tile_y=12&stat=median&interp=akima&undersample=reduce&clip_sigma=2.5&clip_iters=5")
	require.NoError(t, err)

	ctrl, err := controlFromQuery(q)
	require.NoError(t, err)
	assert.Equal(t, 16, ctrl.TileSizeX)
	assert.Equal(t, 12, ctrl.TileSizeY)
	assert.Equal(t, bgestimate.StatMedian, ctrl.Statistic)
	assert.Equal(t, bgestimate.InterpAkima, ctrl.Interp)
	assert.Equal(t, bgestimate.UndersampleReduce, ctrl.Undersample)
	assert.Equal(t, 2.5, ctrl.ClipSigma)
	assert.Equal(t, 5, ctrl.ClipIters)
}

func TestControlFromQueryDefaults(t *testing.T) {
	t.Parallel()

	q, err := url.ParseQuery("tile_x=16&tile_y=12")
	require.NoError(t, err)

	ctrl, err := controlFromQuery(q)
	require.NoError(t, err)
	assert.Equal(t, bgestimate.DefaultControl(16, 12), ctrl)
}
