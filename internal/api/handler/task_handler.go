package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/bountyloop/marketplace-be/internal/api/dto"
	"github.com/bountyloop/marketplace-be/internal/marketplace/domain"
	"github.com/bountyloop/marketplace-be/internal/marketplace/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateTask handles POST /api/v1/tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	deadline, err := time.Parse(time.RFC3339, req.Deadline)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "deadline must be RFC 3339"})
		return
	}
	if !deadline.After(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "deadline must be in the future"})
		return
	}

	now := time.Now().UTC()
	task := domain.Task{
		TaskID:         uuid.NewString(),
		EmployerID:     req.EmployerID,
		Title:          req.Title,
		Description:    req.Description,
		Reward:         domain.Amount(req.RewardMicro),
		SlotsAvailable: req.SlotsAvailable,
		SlotsRemaining: req.SlotsAvailable,
		Status:         domain.TaskStatusAvailable,
		Deadline:       deadline,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := h.tasks.Create(c.Request.Context(), &task); err != nil {
		h.logger.Error("Failed to create task", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	h.logger.Info("Task created",
		slog.String("task_id", task.TaskID),
		slog.String("employer_id", task.EmployerID),
		slog.Int("slots", task.SlotsAvailable),
	)
	c.JSON(http.StatusCreated, taskToDTO(&task))
}

// GetTask handles GET /api/v1/tasks/:task_id
func (h *TaskHandler) GetTask(c *gin.Context) {
	taskID := c.Param("task_id")
	if _, err := uuid.Parse(taskID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task_id must be a valid UUID"})
		return
	}

	task, err := h.tasks.GetByID(c.Request.Context(), taskID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, taskToDTO(task))
}

// ListTasks handles GET /api/v1/tasks
// Workers browse open tasks here; supports keyset pagination.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	var req dto.ListTasksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeTaskCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cursor"})
		return
	}

	tasks, err := h.tasks.List(c.Request.Context(), storage.TaskFilter{
		EmployerID: req.EmployerID,
		Status:     req.Status,
		PageSize:   req.PageSize,
		Cursor:     cursor,
	})
	if err != nil {
		h.logger.Error("Failed to list tasks", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	hasMore := len(tasks) > req.PageSize
	if hasMore {
		tasks = tasks[:req.PageSize]
	}

	resp := dto.ListTasksResponse{Tasks: make([]dto.TaskDTO, len(tasks))}
	for i := range tasks {
		resp.Tasks[i] = taskToDTO(&tasks[i])
	}

	if hasMore {
		last := tasks[len(tasks)-1]
		resp.NextCursor = EncodeTaskCursor(&storage.TaskCursor{
			CreatedAt: last.CreatedAt,
			TaskID:    last.TaskID,
		})
	}

	c.JSON(http.StatusOK, resp)
}

func taskToDTO(task *domain.Task) dto.TaskDTO {
	return dto.TaskDTO{
		TaskID:         task.TaskID,
		EmployerID:     task.EmployerID,
		Title:          task.Title,
		Description:    task.Description,
		RewardMicro:    int64(task.Reward),
		Reward:         task.Reward.String(),
		SlotsAvailable: task.SlotsAvailable,
		SlotsRemaining: task.SlotsRemaining,
		Status:         string(task.Status),
		Deadline:       task.Deadline.Format(time.RFC3339),
		CreatedAt:      task.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      task.UpdatedAt.Format(time.RFC3339),
	}
}
