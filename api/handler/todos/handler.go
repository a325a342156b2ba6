package todos

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zimablue/zima-blue/api/common"
	"github.com/zimablue/zima-blue/api/middleware"
	"github.com/zimablue/zima-blue/database/models"
	todorepo "github.com/zimablue/zima-blue/database/repo/todos"
)

// Handler 任务接口处理器
type Handler struct {
	repo *todorepo.Repository
}

// NewHandler 创建任务处理器
func NewHandler(repo *todorepo.Repository) *Handler {
	return &Handler{repo: repo}
}

type todoRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
}

// ListTodos 列出任务，可按状态过滤
func (h *Handler) ListTodos(c *gin.Context) {
	status := c.Query("status")
	if status != "" && !models.IsValidTodoStatus(status) {
		common.RespondError(c, http.StatusBadRequest, "Invalid status filter")
		return
	}

	list, err := h.repo.List(status)
	if err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	common.RespondSuccess(c, list)
}

// CreateTodo 创建任务
func (h *Handler) CreateTodo(c *gin.Context) {
	var req todoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, "title is required")
		return
	}

	status := req.Status
	if status == "" {
		status = models.TodoStatusPending
	}
	priority := req.Priority
	if priority == "" {
		priority = models.TodoPriorityMedium
	}
	if !models.IsValidTodoStatus(status) || !models.IsValidTodoPriority(priority) {
		common.RespondError(c, http.StatusBadRequest, "Invalid status or priority")
		return
	}

	todo := &models.Todo{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Status:      status,
		Priority:    priority,
		UserID:      c.GetUint(middleware.ContextUserIDKey),
	}
	if err := h.repo.Create(todo); err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	common.RespondSuccess(c, todo)
}

// UpdateTodo 更新任务
func (h *Handler) UpdateTodo(c *gin.Context) {
	todo, ok := h.lookup(c)
	if !ok {
		return
	}

	var req todoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	todo.Title = req.Title
	todo.Description = req.Description
	todo.DueDate = req.DueDate
	if req.Status != "" {
		if !models.IsValidTodoStatus(req.Status) {
			common.RespondError(c, http.StatusBadRequest, "Invalid status")
			return
		}
		todo.Status = req.Status
	}
	if req.Priority != "" {
		if !models.IsValidTodoPriority(req.Priority) {
			common.RespondError(c, http.StatusBadRequest, "Invalid priority")
			return
		}
		todo.Priority = req.Priority
	}

	if err := h.repo.Update(todo); err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	common.RespondSuccess(c, todo)
}

// DeleteTodo 删除任务
func (h *Handler) DeleteTodo(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid todo id")
		return
	}

	if err := h.repo.Delete(uint(id)); err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	common.RespondSuccessMessage(c, "Todo deleted", nil)
}

func (h *Handler) lookup(c *gin.Context) (*models.Todo, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid todo id")
		return nil, false
	}

	todo, err := h.repo.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.RespondError(c, http.StatusNotFound, "Todo not found")
			return nil, false
		}
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return todo, true
}
