package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PhilippVn/ZHS-Scraper/config"
	"github.com/PhilippVn/ZHS-Scraper/internal/model"
)

type fakeStatus struct {
	courses     []model.Course
	lastChecked time.Time
	lastCycle   time.Time
}

func (f *fakeStatus) Courses() []model.Course { return f.courses }
func (f *fakeStatus) LastChecked() time.Time  { return f.lastChecked }
func (f *fakeStatus) LastCycleAt() time.Time  { return f.lastCycle }

type fakeHistory struct {
	records  []model.ChangeRecord
	err      error
	gotLimit int
}

func (f *fakeHistory) SaveChanges(context.Context, time.Time, []model.Change, model.KeySpec) error {
	return nil
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]model.ChangeRecord, error) {
	f.gotLimit = limit
	return f.records, f.err
}

func newTestRouter(status StatusProvider, history *fakeHistory) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := config.ServerConfig{RateLimitPerSec: 1000, CacheTTLSeconds: 1}
	if history == nil {
		return NewRouter(cfg, status, nil)
	}
	return NewRouter(cfg, status, history)
}

func TestGetCourses(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	status := &fakeStatus{
		courses: []model.Course{
			{SourceName: "schwimmen", TableName: "Anfaenger", Status: model.StatusBookable,
				Fields: model.Fields{{Label: "Nr.", Value: "101"}}},
		},
		lastChecked: now,
	}
	r := newTestRouter(status, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/courses", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		LastChecked time.Time      `json:"lastChecked"`
		Count       int            `json:"count"`
		Courses     []model.Course `json:"courses"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.True(t, resp.LastChecked.Equal(now))
	require.Len(t, resp.Courses, 1)
	assert.Equal(t, "schwimmen", resp.Courses[0].SourceName)
}

func TestGetCoursesEmptyBeforeFirstCycle(t *testing.T) {
	r := newTestRouter(&fakeStatus{}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/courses", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"courses":[]`)
}

func TestGetChanges(t *testing.T) {
	history := &fakeHistory{records: []model.ChangeRecord{
		{SourceName: "schwimmen", Kind: "added", NewStatus: "bookable"},
	}}
	r := newTestRouter(&fakeStatus{}, history)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/changes?limit=5", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, history.gotLimit)
	var records []model.ChangeRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "added", records[0].Kind)
}

func TestGetChangesInvalidLimit(t *testing.T) {
	r := newTestRouter(&fakeStatus{}, &fakeHistory{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/changes?limit=abc", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetChangesWithoutArchive(t *testing.T) {
	r := newTestRouter(&fakeStatus{}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/changes", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetChangesQueryError(t *testing.T) {
	r := newTestRouter(&fakeStatus{}, &fakeHistory{err: errors.New("db down")})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/changes", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetHealth(t *testing.T) {
	cycle := time.Now().UTC()
	r := newTestRouter(&fakeStatus{lastCycle: cycle}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.Contains(t, w.Body.String(), `"lastCycleAt"`)
}
