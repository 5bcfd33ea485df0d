package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/taskbox/taskbox/internal/models"
)

// TodoStore is the persistence seam the service talks through. Lookups report
// absence as a nil item with a nil error; targeted writes fail with the
// repository's sentinel errors. It is satisfied by repository.TodoRepository
// and by in-memory fakes in tests.
type TodoStore interface {
	GetTodo(ctx context.Context, userID, todoID string) (*models.TodoItem, error)
	ListTodos(ctx context.Context, userID string) ([]models.TodoItem, error)
	CreateTodo(ctx context.Context, item *models.TodoItem) error
	UpdateTodo(ctx context.Context, userID, todoID string, update models.TodoUpdate) error
	DeleteTodo(ctx context.Context, userID, todoID string) error
	GenerateUploadURL(ctx context.Context, userID, todoID string) (string, error)
}

// ListCache caches per-user todo lists. May be nil, in which case every list
// goes to the store.
type ListCache interface {
	GetList(ctx context.Context, userID string) ([]models.TodoItem, bool)
	SetList(ctx context.Context, userID string, items []models.TodoItem)
	Invalidate(ctx context.Context, userID string)
}

// TodoService exposes the domain operations: it scopes everything to the
// caller-supplied userId, generates identifiers and creation timestamps, and
// otherwise passes results through from the store unchanged.
type TodoService struct {
	store  TodoStore
	cache  ListCache
	logger *logrus.Logger
	now    func() time.Time
}

func NewTodoService(store TodoStore, cache ListCache, logger *logrus.Logger) *TodoService {
	return &TodoService{
		store:  store,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// GetTodo returns the item at (userID, todoID), or nil when absent.
func (s *TodoService) GetTodo(ctx context.Context, userID, todoID string) (*models.TodoItem, error) {
	return s.store.GetTodo(ctx, userID, todoID)
}

// GetTodos returns all of the user's items, most recently created first.
func (s *TodoService) GetTodos(ctx context.Context, userID string) ([]models.TodoItem, error) {
	if s.cache != nil {
		if items, ok := s.cache.GetList(ctx, userID); ok {
			return items, nil
		}
	}

	items, err := s.store.ListTodos(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.SetList(ctx, userID, items)
	}

	return items, nil
}

// CreateTodo assigns a fresh todoId and creation timestamp, persists the item
// and returns it exactly as persisted.
func (s *TodoService) CreateTodo(ctx context.Context, req models.CreateTodoRequest, userID string) (*models.TodoItem, error) {
	item := &models.TodoItem{
		UserID:    userID,
		TodoID:    uuid.New().String(),
		Name:      req.Name,
		DueDate:   req.DueDate,
		CreatedAt: models.FormatCreatedAt(s.now()),
		Done:      false,
	}

	if err := s.store.CreateTodo(ctx, item); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"userId": userID,
		"todoId": item.TodoID,
	}).Info("Created todo item")

	s.invalidate(ctx, userID)
	return item, nil
}

// UpdateTodo overwrites the item's name, due date and done flag. Existence is
// not pre-checked here; a missing key surfaces as the store's not-found error.
func (s *TodoService) UpdateTodo(ctx context.Context, req models.UpdateTodoRequest, userID, todoID string) error {
	update := models.TodoUpdate{
		Name:    req.Name,
		DueDate: req.DueDate,
		Done:    req.Done,
	}

	if err := s.store.UpdateTodo(ctx, userID, todoID, update); err != nil {
		return err
	}

	s.invalidate(ctx, userID)
	return nil
}

// DeleteTodo removes the item. Deleting an item that is already gone succeeds.
func (s *TodoService) DeleteTodo(ctx context.Context, userID, todoID string) error {
	if err := s.store.DeleteTodo(ctx, userID, todoID); err != nil {
		return err
	}

	s.invalidate(ctx, userID)
	return nil
}

// GenerateUploadURL records the attachment location on the item and returns a
// time-limited URL authorizing one upload to it.
func (s *TodoService) GenerateUploadURL(ctx context.Context, userID, todoID string) (string, error) {
	url, err := s.store.GenerateUploadURL(ctx, userID, todoID)
	if err != nil {
		return "", err
	}

	s.invalidate(ctx, userID)
	return url, nil
}

func (s *TodoService) invalidate(ctx context.Context, userID string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, userID)
	}
}
