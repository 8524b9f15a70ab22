package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"taskmanager/internal/dashboard"
	"taskmanager/internal/handler"
	"taskmanager/internal/middleware"
	"taskmanager/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is a minimal in-memory TaskStore for driving the handlers.
type memStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]model.Task
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[uuid.UUID]model.Task)}
}

func (s *memStore) ListByOwner(ctx context.Context, userID uuid.UUID) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Task
	for _, t := range s.rows {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (s *memStore) Create(ctx context.Context, task *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task.ID = uuid.New()
	s.rows[task.ID] = *task
	return nil
}

func (s *memStore) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return errors.New("task not found")
	}
	for key, value := range fields {
		switch key {
		case "title":
			row.Title = value.(string)
		case "description":
			row.Description = value.(string)
		case "ai_suggestions":
			row.AISuggestions = value.(string)
		case "is_generating":
			row.IsGenerating = value.(bool)
		}
	}
	s.rows[id] = row
	return nil
}

func (s *memStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return errors.New("task not found")
	}
	delete(s.rows, id)
	return nil
}

type staticSuggester struct{}

func (staticSuggester) Breakdown(ctx context.Context, description string) string {
	return "steps for: " + description
}

func setupTaskRouter(userID uuid.UUID) (*gin.Engine, *memStore) {
	gin.SetMode(gin.TestMode)
	r := gin.Default()

	store := newMemStore()
	hub := dashboard.NewHub(store, staticSuggester{})
	taskHandler := handler.NewTaskHandler(hub)

	// Stand-in for the JWT middleware.
	r.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
	})

	r.GET("/tasks", taskHandler.List)
	r.POST("/tasks", taskHandler.Create)
	r.PUT("/tasks/:id", taskHandler.Update)
	r.DELETE("/tasks/:id", taskHandler.Delete)
	r.POST("/tasks/:id/toggle", taskHandler.Toggle)
	r.GET("/tasks/refresh", taskHandler.Refresh)
	r.GET("/tasks/summary", taskHandler.Summary)

	return r, store
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func createTask(t *testing.T, r *gin.Engine, title string, due time.Time) handler.TaskResponse {
	t.Helper()
	resp := doJSON(r, "POST", "/tasks", handler.TaskCreateRequest{
		Title:       title,
		Description: "description of " + title,
		DueDate:     due,
		Priority:    "medium",
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	var created handler.TaskResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	return created
}

func TestTaskCreate_Success(t *testing.T) {
	router, store := setupTaskRouter(uuid.New())

	created := createTask(t, router, "Write report", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	assert.NotEmpty(t, created.ID)
	assert.True(t, created.IsGenerating)

	id, err := uuid.Parse(created.ID)
	require.NoError(t, err)
	store.mu.Lock()
	_, ok := store.rows[id]
	store.mu.Unlock()
	assert.True(t, ok)
}

func TestTaskCreate_InvalidPriority(t *testing.T) {
	router, _ := setupTaskRouter(uuid.New())

	resp := doJSON(router, "POST", "/tasks", map[string]interface{}{
		"title":       "t",
		"description": "d",
		"due_date":    "2024-05-01T00:00:00Z",
		"priority":    "urgent",
	})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestTaskCreate_MissingFields(t *testing.T) {
	router, _ := setupTaskRouter(uuid.New())

	resp := doJSON(router, "POST", "/tasks", map[string]interface{}{
		"title": "only a title",
	})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestTaskList_OrderedByDueDate(t *testing.T) {
	router, _ := setupTaskRouter(uuid.New())

	createTask(t, router, "Later", time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC))
	createTask(t, router, "Sooner", time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC))

	resp := doJSON(router, "GET", "/tasks", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var tasks []handler.TaskResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &tasks))
	require.Len(t, tasks, 2)
	assert.Equal(t, "Sooner", tasks[0].Title)
	assert.Equal(t, "Later", tasks[1].Title)
}

func TestTaskUpdate_Success(t *testing.T) {
	router, _ := setupTaskRouter(uuid.New())
	created := createTask(t, router, "Before", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	resp := doJSON(router, "PUT", "/tasks/"+created.ID, handler.TaskEditRequest{
		Title:       "After",
		Description: "new description",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	assert.Eventually(t, func() bool {
		list := doJSON(router, "GET", "/tasks", nil)
		var tasks []handler.TaskResponse
		json.Unmarshal(list.Body.Bytes(), &tasks)
		return len(tasks) == 1 && tasks[0].Title == "After" && !tasks[0].IsGenerating
	}, time.Second, 5*time.Millisecond)
}

func TestTaskUpdate_NotFound(t *testing.T) {
	router, _ := setupTaskRouter(uuid.New())

	resp := doJSON(router, "PUT", "/tasks/"+uuid.New().String(), handler.TaskEditRequest{
		Title:       "t",
		Description: "d",
	})

	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestTaskUpdate_BadID(t *testing.T) {
	router, _ := setupTaskRouter(uuid.New())

	resp := doJSON(router, "PUT", "/tasks/not-a-uuid", handler.TaskEditRequest{
		Title:       "t",
		Description: "d",
	})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestTaskDelete_Success(t *testing.T) {
	router, _ := setupTaskRouter(uuid.New())
	created := createTask(t, router, "Doomed", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	resp := doJSON(router, "DELETE", "/tasks/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	list := doJSON(router, "GET", "/tasks", nil)
	var tasks []handler.TaskResponse
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &tasks))
	assert.Empty(t, tasks)
}

func TestTaskDelete_NotFound(t *testing.T) {
	router, _ := setupTaskRouter(uuid.New())

	resp := doJSON(router, "DELETE", "/tasks/"+uuid.New().String(), nil)

	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestTaskToggle_FlipsExpansion(t *testing.T) {
	router, _ := setupTaskRouter(uuid.New())
	created := createTask(t, router, "Expandable", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	resp := doJSON(router, "POST", fmt.Sprintf("/tasks/%s/toggle", created.ID), nil)
	require.Equal(t, http.StatusOK, resp.Code)

	list := doJSON(router, "GET", "/tasks", nil)
	var tasks []handler.TaskResponse
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &tasks))
	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].IsExpanded)
}

func TestTaskSummary_CountsPerDay(t *testing.T) {
	router, _ := setupTaskRouter(uuid.New())
	createTask(t, router, "a", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	createTask(t, router, "b", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	createTask(t, router, "c", time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC))

	resp := doJSON(router, "GET", "/tasks/summary", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var summary []dashboard.DaySummary
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &summary))
	require.Len(t, summary, 2)
	assert.Equal(t, 2, summary[0].Tasks)
	assert.Equal(t, 1, summary[1].Tasks)
}

func TestTaskRefresh_PicksUpExternalRows(t *testing.T) {
	userID := uuid.New()
	router, store := setupTaskRouter(userID)

	// A row written behind the board's back appears after a refresh.
	store.mu.Lock()
	id := uuid.New()
	store.rows[id] = model.Task{
		ID: id, UserID: userID, Title: "From elsewhere",
		Description: "imported", DueDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Priority: model.PriorityLow,
	}
	store.mu.Unlock()

	resp := doJSON(router, "GET", "/tasks/refresh", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var tasks []handler.TaskResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, "From elsewhere", tasks[0].Title)
}

func TestTaskList_Unauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.Default()
	hub := dashboard.NewHub(newMemStore(), staticSuggester{})
	taskHandler := handler.NewTaskHandler(hub)
	r.GET("/tasks", taskHandler.List) // no user ID in context

	resp := doJSON(r, "GET", "/tasks", nil)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
