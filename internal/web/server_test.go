package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"daily-todo/internal/logger"
	"daily-todo/internal/model"
	"daily-todo/internal/repository"
	"daily-todo/internal/service"
	"daily-todo/internal/sheet"
)

var testNow = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, table sheet.Table, opts Options) (*Server, *service.TaskService) {
	t.Helper()
	tasks := service.NewTaskService(table, logger.Nop(),
		service.WithClock(func() time.Time { return testNow }),
		service.WithLocation(time.UTC))
	srv, err := New(tasks, opts, logger.Nop())
	require.NoError(t, err)
	return srv, tasks
}

func setupCellTable(t *testing.T) *repository.CellTable {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.NewDB(fmt.Sprintf("file:web_%s?mode=memory&cache=shared", name), nil)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	table := repository.NewCellTable(db, "Blad1")
	require.NoError(t, table.EnsureHeader(context.Background(), model.Columns))
	return table
}

func do(srv http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func postForm(srv http.Handler, target string, values url.Values) *httptest.ResponseRecorder {
	return do(srv, http.MethodPost, target, "application/x-www-form-urlencoded", values.Encode())
}

type brokenTable struct{ err error }

func (b brokenTable) ReadAllRows(context.Context) ([]sheet.Row, error) { return nil, b.err }

func (b brokenTable) ReadHeaderRow(context.Context) ([]string, error) { return nil, b.err }

func (b brokenTable) AppendRow(context.Context, []string) error { return b.err }

func (b brokenTable) WriteCell(context.Context, int, int, string) error { return b.err }

func TestIndexPage_Empty(t *testing.T) {
	srv, _ := newTestServer(t, setupCellTable(t), Options{})

	rec := do(srv, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Dagelijkse To-Do Lijst")
	assert.Contains(t, body, "2026-10-17")
	assert.Contains(t, body, "Je hebt nog geen taken voor vandaag.")
}

func TestFormFlow(t *testing.T) {
	srv, tasks := newTestServer(t, setupCellTable(t), Options{})
	ctx := context.Background()

	rec := postForm(srv, "/tasks", url.Values{"title": {"Boodschappen"}, "link": {"https://example.com/list"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = do(srv, http.MethodGet, "/", "", "")
	body := rec.Body.String()
	assert.Contains(t, body, `<a href="https://example.com/list"`)
	assert.Contains(t, body, "Boodschappen")
	assert.Contains(t, body, "Gewijzigd: 2026-10-17")

	rec = postForm(srv, "/tasks/1/complete", url.Values{"completed": {"true"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	list, err := tasks.FetchToday(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Completed)

	rec = postForm(srv, "/tasks/1/delete", url.Values{})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	list, err = tasks.FetchToday(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateFromForm_Invalid(t *testing.T) {
	srv, tasks := newTestServer(t, setupCellTable(t), Options{})

	rec := postForm(srv, "/tasks", url.Values{"title": {"   "}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), flashTitleRequired)

	rec = postForm(srv, "/tasks", url.Values{"title": {""}, "link": {"https://x.nl"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), flashTitleRequired)
	assert.Contains(t, rec.Body.String(), `value="https://x.nl"`)

	list, err := tasks.FetchToday(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreate_FreeTextLink(t *testing.T) {
	srv, tasks := newTestServer(t, setupCellTable(t), Options{})

	rec := postForm(srv, "/tasks", url.Values{"title": {"Boek"}, "link": {"www.bol.com/boek"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = do(srv, http.MethodPost, "/api/tasks", "application/json", `{"title":"Boek","link":"zie mail"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created TaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "zie mail", created.Link)

	list, err := tasks.FetchToday(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "www.bol.com/boek", list[0].Link)
	assert.Equal(t, "zie mail", list[1].Link)
}

func TestCompleteFromForm_BadInput(t *testing.T) {
	srv, _ := newTestServer(t, setupCellTable(t), Options{})

	assert.Equal(t, http.StatusBadRequest, postForm(srv, "/tasks/abc/complete", url.Values{"completed": {"true"}}).Code)
	assert.Equal(t, http.StatusBadRequest, postForm(srv, "/tasks/1/complete", url.Values{"completed": {"maybe"}}).Code)
}

func TestAPI_Flow(t *testing.T) {
	srv, _ := newTestServer(t, setupCellTable(t), Options{})

	rec := do(srv, http.MethodPost, "/api/tasks", "application/json", `{"title":"  Write report ","link":""}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created TaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, 1, created.ID)
	assert.Equal(t, "Write report", created.Title)
	assert.Equal(t, "2026-10-17", created.Date)
	assert.Equal(t, "2026-10-17T09:00:00.000000", created.LastModified)

	rec = do(srv, http.MethodPost, "/api/tasks", "application/json", `{"title":"Second"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(srv, http.MethodPatch, "/api/tasks/2", "application/json", `{"completed":true}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(srv, http.MethodDelete, "/api/tasks/1", "", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(srv, http.MethodGet, "/api/tasks", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []TaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].ID)
	assert.True(t, list[0].Completed)
}

func TestAPI_EmptyListIsArray(t *testing.T) {
	srv, _ := newTestServer(t, setupCellTable(t), Options{})

	rec := do(srv, http.MethodGet, "/api/tasks", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestAPI_BadRequests(t *testing.T) {
	srv, _ := newTestServer(t, setupCellTable(t), Options{})

	tests := []struct {
		name, method, target, body string
	}{
		{name: "missing title", method: http.MethodPost, target: "/api/tasks", body: `{"link":"https://x.nl"}`},
		{name: "blank title", method: http.MethodPost, target: "/api/tasks", body: `{"title":"  "}`},
		{name: "missing completed", method: http.MethodPatch, target: "/api/tasks/1", body: `{}`},
		{name: "bad id", method: http.MethodPatch, target: "/api/tasks/x", body: `{"completed":true}`},
		{name: "bad json", method: http.MethodPost, target: "/api/tasks", body: `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(srv, tt.method, tt.target, "application/json", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAPI_ValidationMessages(t *testing.T) {
	srv, _ := newTestServer(t, setupCellTable(t), Options{})

	rec := do(srv, http.MethodPost, "/api/tasks", "application/json", `{"link":"https://x.nl"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"title is required"}`, rec.Body.String())

	rec = do(srv, http.MethodPatch, "/api/tasks/1", "application/json", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"completed is required"}`, rec.Body.String())
}

func TestAPI_UnknownIDIsNoop(t *testing.T) {
	srv, _ := newTestServer(t, setupCellTable(t), Options{})

	rec := do(srv, http.MethodPatch, "/api/tasks/99", "application/json", `{"completed":true}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(srv, http.MethodDelete, "/api/tasks/99", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestStoreDown(t *testing.T) {
	srv, _ := newTestServer(t, brokenTable{err: errors.New("sheets: 503 backend error")}, Options{})

	rec := do(srv, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), errorStoreDown)
	assert.NotContains(t, rec.Body.String(), "503 backend error")

	rec = do(srv, http.MethodGet, "/api/tasks", "", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"message":"task store unavailable"}`, rec.Body.String())

	rec = postForm(srv, "/tasks", url.Values{"title": {"x"}})
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = do(srv, http.MethodDelete, "/api/tasks/1", "", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, setupCellTable(t), Options{RateLimit: 1})

	first := do(srv, http.MethodPost, "/api/tasks", "application/json", `{"title":"one"}`)
	require.Equal(t, http.StatusCreated, first.Code)
	second := do(srv, http.MethodPost, "/api/tasks", "application/json", `{"title":"two"}`)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// reads are not limited
	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/api/tasks", "", "").Code)
}

func TestHealthAndMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	srv, _ := newTestServer(t, setupCellTable(t), Options{Registry: registry})

	rec := do(srv, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	do(srv, http.MethodGet, "/api/tasks", "", "")

	rec = do(srv, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",path="/api/tasks",status="200"} 1`)
}

func TestMetricsDisabled(t *testing.T) {
	srv, _ := newTestServer(t, setupCellTable(t), Options{})

	rec := do(srv, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFailedRequestsAreLoggedAndCounted(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}
	registry := prometheus.NewRegistry()

	tasks := service.NewTaskService(brokenTable{err: errors.New("sheets: 503 backend error")}, logger.Nop(),
		service.WithClock(func() time.Time { return testNow }),
		service.WithLocation(time.UTC))
	srv, err := New(tasks, Options{Registry: registry}, log)
	require.NoError(t, err)

	rec := do(srv, http.MethodGet, "/api/tasks", "", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)

	failed := logs.FilterMessage("HTTP request failed").All()
	require.Len(t, failed, 1)
	fields := failed[0].ContextMap()
	assert.EqualValues(t, http.StatusBadGateway, fields["status"])
	assert.Contains(t, fields["error"], "503 backend error")

	rec = do(srv, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",path="/api/tasks",status="502"} 1`)
}
