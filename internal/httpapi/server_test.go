package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"family-tasks/internal/metrics"
	"family-tasks/internal/repository"
	"family-tasks/internal/service"
)

// Monday.
var testNow = time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

type testServer struct {
	server  *Server
	metrics *metrics.Metrics
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := repository.NewDB(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	log := zap.NewNop()
	m := metrics.New()
	parents := repository.NewParentRepository(db)
	children := repository.NewChildRepository(db)
	tasks := repository.NewTaskRepository(db)
	sprints := repository.NewSprintRepository(db)
	links := repository.NewTelegramRepository(db)

	telegram := service.NewTelegramService(links, parents, log)
	svc := Services{
		Family:   service.NewFamilyService(parents, children, tasks, sprints, telegram, log),
		Tasks:    service.NewTaskService(tasks, children, sprints, log, m).WithClock(clock),
		Sprints:  service.NewSprintService(sprints, children, log).WithClock(clock),
		Telegram: telegram,
	}
	server, err := NewServer(svc, m, log)
	require.NoError(t, err)
	server.WithClock(clock)
	return &testServer{server: server, metrics: m}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.server.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

// family registers a parent with one child and returns both codes and the
// child id.
func (ts *testServer) family(t *testing.T) (parentCode, childCode, childID string) {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/v1/parents", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var parent map[string]string
	decode(t, rec, &parent)

	rec = ts.do(t, http.MethodPost, "/api/v1/parents/"+parent["access_code"]+"/children", AddChildRequest{Name: "Петя"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var child ChildDTO
	decode(t, rec, &child)
	return parent["access_code"], child.AccessCode, child.ID
}

func TestNewServer(t *testing.T) {
	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, err := NewServer(Services{}, nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})

	t.Run("returns error when services are missing", func(t *testing.T) {
		_, err := NewServer(Services{}, nil, zap.NewNop())
		assert.Error(t, err)
	})
}

func TestHandleHealth(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	decode(t, rec, &resp)
	assert.Equal(t, "ok", resp.Status)
}

func TestMetricsEndpointCountsRequests(t *testing.T) {
	ts := setupTestServer(t)
	ts.do(t, http.MethodGet, "/health", nil)

	rec := ts.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `familytasks_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestUnknownCodes(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/parents/NOPE0000", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var resp ErrorResponse
	decode(t, rec, &resp)
	assert.Contains(t, resp.Error, "not found")

	rec = ts.do(t, http.MethodGet, "/api/v1/children/NOPE0000", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateTemplateAndToggle(t *testing.T) {
	ts := setupTestServer(t)
	parentCode, childCode, childID := ts.family(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/parents/"+parentCode+"/tasks", CreateTaskRequest{
		ChildID: childID, Title: "Заправить кровать", Points: 2, Pattern: "daily", StartTime: "08:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created CreatedDTO
	decode(t, rec, &created)
	assert.Equal(t, "template", created.Task.Kind)
	assert.Equal(t, "каждый день", created.Task.Recurrence)
	require.NotNil(t, created.FirstInstance)
	assert.Equal(t, "2024-06-10", created.FirstInstance.Date)

	rec = ts.do(t, http.MethodPost, "/api/v1/children/"+childCode+"/tasks/"+created.FirstInstance.ID+"/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var toggled ToggleDTO
	decode(t, rec, &toggled)
	assert.True(t, toggled.Completed)
	assert.Equal(t, 2, toggled.PointsDelta)
	assert.Equal(t, 2, toggled.TotalPoints)
	require.NotNil(t, toggled.Spawned)
	assert.Equal(t, "2024-06-11", toggled.Spawned.Date)

	rec = ts.do(t, http.MethodPost, "/api/v1/children/"+childCode+"/tasks/"+created.Task.ID+"/toggle", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/children/"+childCode, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view ChildViewDTO
	decode(t, rec, &view)
	assert.Equal(t, 2, view.Child.TotalPoints)
	assert.Empty(t, view.Child.AccessCode)
	assert.Len(t, view.OtherTasks, 1, "tomorrow's instance stays hidden")
	assert.Len(t, view.Achievements, 6)
	assert.True(t, view.Achievements[0].Unlocked)
}

func TestCreateTaskValidation(t *testing.T) {
	ts := setupTestServer(t)
	parentCode, _, childID := ts.family(t)
	path := "/api/v1/parents/" + parentCode + "/tasks"

	rec := ts.do(t, http.MethodPost, path, CreateTaskRequest{ChildID: childID, Title: "x", Date: "10.06.2024"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, path, CreateTaskRequest{ChildID: childID, Title: "x", StartTime: "25:00"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, path, CreateTaskRequest{ChildID: childID, Title: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, path, CreateTaskRequest{ChildID: "missing", Title: "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	otherCode, _, _ := ts.family(t)
	rec = ts.do(t, http.MethodPost, "/api/v1/parents/"+otherCode+"/tasks", CreateTaskRequest{ChildID: childID, Title: "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRescheduleAndCalendar(t *testing.T) {
	ts := setupTestServer(t)
	parentCode, childCode, childID := ts.family(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/parents/"+parentCode+"/tasks", CreateTaskRequest{
		ChildID: childID, Title: "Бассейн", Points: 4, Date: "2024-06-10",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created CreatedDTO
	decode(t, rec, &created)

	rec = ts.do(t, http.MethodPut, "/api/v1/children/"+childCode+"/tasks/"+created.Task.ID+"/schedule",
		RescheduleRequest{Date: "2024-06-12", StartTime: "18:30"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var moved TaskDTO
	decode(t, rec, &moved)
	assert.Equal(t, "2024-06-12", moved.Date)
	require.NotNil(t, moved.OriginalDate)
	assert.Equal(t, "2024-06-10", *moved.OriginalDate)
	require.NotNil(t, moved.StartTime)
	assert.Equal(t, "18:30", *moved.StartTime)
	assert.True(t, moved.Rescheduled)

	rec = ts.do(t, http.MethodGet, "/api/v1/children/"+childCode+"/calendar/2024-06-12", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cal CalendarDTO
	decode(t, rec, &cal)
	require.Len(t, cal.Day, 1)
	assert.Equal(t, created.Task.ID, cal.Day[0].ID)
	require.Len(t, cal.Week, 7)
	assert.Equal(t, "2024-06-10", cal.Week[0].Date)
	assert.Empty(t, cal.Week[0].Tasks)
	assert.Len(t, cal.Week[2].Tasks, 1)

	rec = ts.do(t, http.MethodGet, "/api/v1/children/"+childCode+"/calendar/tomorrow", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSprintRoutes(t *testing.T) {
	ts := setupTestServer(t)
	parentCode, childCode, childID := ts.family(t)
	base := "/api/v1/parents/" + parentCode

	rec := ts.do(t, http.MethodPost, base+"/children/"+childID+"/sprints", SprintRequest{Name: "Июнь", Goal: "Читать"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sprint SprintDTO
	decode(t, rec, &sprint)
	assert.True(t, sprint.IsActive)
	assert.Equal(t, 7, sprint.DaysRemaining)

	rec = ts.do(t, http.MethodPost, base+"/tasks", CreateTaskRequest{ChildID: childID, Title: "Глава 1", Points: 3})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/children/"+childCode, nil)
	var view ChildViewDTO
	decode(t, rec, &view)
	require.NotNil(t, view.Sprint)
	assert.Len(t, view.SprintTasks, 1)
	assert.Empty(t, view.OtherTasks)
	assert.Len(t, view.Achievements, 9)

	rec = ts.do(t, http.MethodPut, base+"/sprints/"+sprint.ID, SprintRequest{Name: "Июнь+"})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated SprintDTO
	decode(t, rec, &updated)
	assert.Equal(t, "Июнь+", updated.Name)
	assert.Nil(t, updated.Goal)

	rec = ts.do(t, http.MethodPost, base+"/sprints/"+sprint.ID+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var done SprintDTO
	decode(t, rec, &done)
	assert.False(t, done.IsActive)
	assert.Equal(t, 0, done.DaysRemaining)
}

func TestDashboardAndDeletes(t *testing.T) {
	ts := setupTestServer(t)
	parentCode, childCode, childID := ts.family(t)
	base := "/api/v1/parents/" + parentCode

	rec := ts.do(t, http.MethodPost, base+"/tasks", CreateTaskRequest{ChildID: childID, Title: "Уроки", Pattern: "weekdays"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created CreatedDTO
	decode(t, rec, &created)

	rec = ts.do(t, http.MethodPut, base+"/templates/"+created.Task.ID+"/pattern", PatternRequest{Pattern: "mon,wed"})
	require.Equal(t, http.StatusOK, rec.Code)
	var tmpl TaskDTO
	decode(t, rec, &tmpl)
	assert.Equal(t, "mon,wed", *tmpl.RecurrencePattern)

	rec = ts.do(t, http.MethodPut, base+"/templates/"+created.FirstInstance.ID+"/pattern", PatternRequest{Pattern: "daily"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dash DashboardDTO
	decode(t, rec, &dash)
	require.Len(t, dash.Children, 1)
	assert.Equal(t, childCode, dash.Children[0].AccessCode)
	assert.Len(t, dash.Tasks, 2)
	assert.False(t, dash.Telegram.Linked)

	rec = ts.do(t, http.MethodDelete, base+"/tasks/"+created.FirstInstance.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodDelete, base+"/telegram", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var unlinked map[string]bool
	decode(t, rec, &unlinked)
	assert.False(t, unlinked["removed"])

	rec = ts.do(t, http.MethodDelete, base+"/children/"+childID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/v1/children/"+childCode, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAvatar(t *testing.T) {
	ts := setupTestServer(t)
	_, childCode, _ := ts.family(t)

	rec := ts.do(t, http.MethodPut, "/api/v1/children/"+childCode+"/avatar", AvatarRequest{Emoji: "🐼"})
	require.Equal(t, http.StatusOK, rec.Code)
	var child ChildDTO
	decode(t, rec, &child)
	require.NotNil(t, child.AvatarEmoji)
	assert.Equal(t, "🐼", *child.AvatarEmoji)

	rec = ts.do(t, http.MethodPut, "/api/v1/children/"+childCode+"/avatar", AvatarRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(service.ErrNotFound))
	assert.Equal(t, http.StatusConflict, statusFor(service.ErrNotInstance))
	assert.Equal(t, http.StatusConflict, statusFor(service.ErrNotTemplate))
	assert.Equal(t, http.StatusForbidden, statusFor(service.ErrForbidden))
	assert.Equal(t, http.StatusBadRequest, statusFor(service.ErrInvalidInput))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
