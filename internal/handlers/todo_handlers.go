package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/taskbox/taskbox/internal/middleware"
	"github.com/taskbox/taskbox/internal/models"
	"github.com/taskbox/taskbox/internal/repository"
)

// TodoService is the domain surface the handlers call into. Satisfied by
// service.TodoService.
type TodoService interface {
	GetTodo(ctx context.Context, userID, todoID string) (*models.TodoItem, error)
	GetTodos(ctx context.Context, userID string) ([]models.TodoItem, error)
	CreateTodo(ctx context.Context, req models.CreateTodoRequest, userID string) (*models.TodoItem, error)
	UpdateTodo(ctx context.Context, req models.UpdateTodoRequest, userID, todoID string) error
	DeleteTodo(ctx context.Context, userID, todoID string) error
	GenerateUploadURL(ctx context.Context, userID, todoID string) (string, error)
}

type TodoHandlers struct {
	todoService TodoService
	logger      *logrus.Logger
}

func NewTodoHandlers(todoService TodoService, logger *logrus.Logger) *TodoHandlers {
	return &TodoHandlers{
		todoService: todoService,
		logger:      logger,
	}
}

type ListTodosResponse struct {
	Items []models.TodoItem `json:"items"`
}

type UploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *TodoHandlers) ListTodos(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	items, err := h.todoService.GetTodos(r.Context(), userID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list todo items")
		h.respondWithError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to list todo items")
		return
	}

	if items == nil {
		items = []models.TodoItem{}
	}

	h.respondWithJSON(w, http.StatusOK, ListTodosResponse{Items: items})
}

func (h *TodoHandlers) GetTodo(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	todoID := mux.Vars(r)["todoId"]

	item, err := h.todoService.GetTodo(r.Context(), userID, todoID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get todo item")
		h.respondWithError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to get todo item")
		return
	}

	if item == nil {
		h.respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Todo item does not exist")
		return
	}

	h.respondWithJSON(w, http.StatusOK, item)
}

func (h *TodoHandlers) CreateTodo(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req models.CreateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_NAME", "Name must not be empty")
		return
	}

	item, err := h.todoService.CreateTodo(r.Context(), req, userID)
	if err != nil {
		if errors.Is(err, repository.ErrTodoAlreadyExists) {
			h.respondWithError(w, http.StatusConflict, "ALREADY_EXISTS", "Todo item already exists")
			return
		}
		h.logger.WithError(err).Error("Failed to create todo item")
		h.respondWithError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to create todo item")
		return
	}

	h.respondWithJSON(w, http.StatusCreated, item)
}

func (h *TodoHandlers) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	todoID := mux.Vars(r)["todoId"]

	var req models.UpdateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_NAME", "Name must not be empty")
		return
	}

	item, err := h.todoService.GetTodo(r.Context(), userID, todoID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get todo item before update")
		h.respondWithError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to update todo item")
		return
	}
	if item == nil {
		h.respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Todo item does not exist")
		return
	}

	if err := h.todoService.UpdateTodo(r.Context(), req, userID, todoID); err != nil {
		if errors.Is(err, repository.ErrTodoNotFound) {
			h.respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Todo item does not exist")
			return
		}
		h.logger.WithError(err).Error("Failed to update todo item")
		h.respondWithError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to update todo item")
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *TodoHandlers) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	todoID := mux.Vars(r)["todoId"]

	if err := h.todoService.DeleteTodo(r.Context(), userID, todoID); err != nil {
		h.logger.WithError(err).Error("Failed to delete todo item")
		h.respondWithError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to delete todo item")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TodoHandlers) GenerateUploadURL(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	todoID := mux.Vars(r)["todoId"]

	item, err := h.todoService.GetTodo(r.Context(), userID, todoID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get todo item before upload authorization")
		h.respondWithError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to generate upload URL")
		return
	}
	if item == nil {
		h.respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Todo item does not exist")
		return
	}

	uploadURL, err := h.todoService.GenerateUploadURL(r.Context(), userID, todoID)
	if err != nil {
		if errors.Is(err, repository.ErrTodoNotFound) {
			h.respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Todo item does not exist")
			return
		}
		h.logger.WithError(err).Error("Failed to generate upload URL")
		h.respondWithError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to generate upload URL")
		return
	}

	h.respondWithJSON(w, http.StatusCreated, UploadURLResponse{UploadURL: uploadURL})
}

func (h *TodoHandlers) respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.WithError(err).Error("Failed to encode response")
	}
}

func (h *TodoHandlers) respondWithError(w http.ResponseWriter, status int, code, message string) {
	h.respondWithJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
