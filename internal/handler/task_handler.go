package handler

import (
	"errors"
	"net/http"
	"time"

	"taskmanager/internal/dashboard"
	"taskmanager/internal/middleware"
	"taskmanager/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TaskHandler struct {
	hub *dashboard.Hub
}

func NewTaskHandler(hub *dashboard.Hub) *TaskHandler {
	return &TaskHandler{hub: hub}
}

// TaskCreateRequest carries the four fields of a new task.
type TaskCreateRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description" binding:"required"`
	DueDate     time.Time `json:"due_date" binding:"required"`
	Priority    string    `json:"priority" binding:"required,oneof=low medium high"`
}

// TaskEditRequest carries the editable fields of an existing task.
type TaskEditRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
}

// TaskResponse is one task as presented on the dashboard.
type TaskResponse struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	DueDate       string `json:"due_date"`
	Priority      string `json:"priority"`
	AISuggestions string `json:"ai_suggestions,omitempty"`
	IsGenerating  bool   `json:"is_generating"`
	IsExpanded    bool   `json:"is_expanded"`
}

func toTaskResponse(t model.Task) TaskResponse {
	return TaskResponse{
		ID:            t.ID.String(),
		Title:         t.Title,
		Description:   t.Description,
		DueDate:       t.DueDate.Format(time.RFC3339),
		Priority:      string(t.Priority),
		AISuggestions: t.AISuggestions,
		IsGenerating:  t.IsGenerating,
		IsExpanded:    t.IsExpanded,
	}
}

func (h *TaskHandler) board(c *gin.Context) (*dashboard.Board, bool) {
	userID, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return nil, false
	}

	authenticatedUserID, ok := userID.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID format"})
		return nil, false
	}

	return h.hub.Board(c.Request.Context(), authenticatedUserID), true
}

// List returns the user's tasks ordered by due date.
func (h *TaskHandler) List(c *gin.Context) {
	board, ok := h.board(c)
	if !ok {
		return
	}

	tasks := board.Tasks()
	resp := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		resp[i] = toTaskResponse(t)
	}
	c.JSON(http.StatusOK, resp)
}

// Create adds a task and starts its AI breakdown in the background.
// The response carries the stored task before the breakdown settles.
func (h *TaskHandler) Create(c *gin.Context) {
	board, ok := h.board(c)
	if !ok {
		return
	}

	var req TaskCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	task, err := board.Add(c.Request.Context(), dashboard.AddInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Priority:    model.Priority(req.Priority),
	})
	if err != nil {
		switch {
		case errors.Is(err, dashboard.ErrInvalidTask):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, dashboard.ErrAddInFlight):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
		}
		return
	}

	c.JSON(http.StatusCreated, toTaskResponse(*task))
}

// Update edits a task's title and description and re-runs the breakdown.
func (h *TaskHandler) Update(c *gin.Context) {
	board, ok := h.board(c)
	if !ok {
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return
	}

	var req TaskEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := board.Edit(c.Request.Context(), taskID, req.Title, req.Description); err != nil {
		switch {
		case errors.Is(err, dashboard.ErrTaskNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		case errors.Is(err, dashboard.ErrInvalidTask):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, dashboard.ErrEditInFlight):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task updated"})
}

// Delete removes a task.
func (h *TaskHandler) Delete(c *gin.Context) {
	board, ok := h.board(c)
	if !ok {
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return
	}

	if err := board.Delete(c.Request.Context(), taskID); err != nil {
		if errors.Is(err, dashboard.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete task"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
}

// Toggle flips the expanded flag of a task's suggestions panel.
func (h *TaskHandler) Toggle(c *gin.Context) {
	board, ok := h.board(c)
	if !ok {
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return
	}

	if err := board.ToggleExpansion(taskID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task toggled"})
}

// Refresh reloads the user's tasks from the store.
func (h *TaskHandler) Refresh(c *gin.Context) {
	board, ok := h.board(c)
	if !ok {
		return
	}

	board.Refresh(c.Request.Context())

	tasks := board.Tasks()
	resp := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		resp[i] = toTaskResponse(t)
	}
	c.JSON(http.StatusOK, resp)
}

// Summary returns task counts per due date for the progress chart.
func (h *TaskHandler) Summary(c *gin.Context) {
	board, ok := h.board(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, board.Summary())
}
