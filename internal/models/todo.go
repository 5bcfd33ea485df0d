package models

import "time"

// CreatedAtLayout is the wire encoding of TodoItem.CreatedAt: UTC ISO-8601
// with fixed-width millisecond precision. The fixed width matters because the
// secondary index sorts createdAt as a string.
const CreatedAtLayout = "2006-01-02T15:04:05.000Z"

// TodoItem is a single todo record, keyed by (userId, todoId).
type TodoItem struct {
	UserID        string `json:"userId" dynamodbav:"userId"`
	TodoID        string `json:"todoId" dynamodbav:"todoId"`
	Name          string `json:"name" dynamodbav:"name"`
	DueDate       string `json:"dueDate,omitempty" dynamodbav:"dueDate,omitempty"`
	CreatedAt     string `json:"createdAt" dynamodbav:"createdAt"`
	Done          bool   `json:"done" dynamodbav:"done"`
	AttachmentURL string `json:"attachmentUrl,omitempty" dynamodbav:"attachmentUrl,omitempty"`
}

// TodoUpdate carries the caller-mutable subset of a TodoItem. The target item
// is addressed separately by (userId, todoId).
type TodoUpdate struct {
	Name    string `json:"name" dynamodbav:"name"`
	DueDate string `json:"dueDate" dynamodbav:"dueDate"`
	Done    bool   `json:"done" dynamodbav:"done"`
}

// CreateTodoRequest is the caller-supplied seed for a new item; every other
// TodoItem field is server-generated.
type CreateTodoRequest struct {
	Name    string `json:"name"`
	DueDate string `json:"dueDate,omitempty"`
}

// UpdateTodoRequest overwrites the mutable fields of an existing item.
type UpdateTodoRequest struct {
	Name    string `json:"name"`
	DueDate string `json:"dueDate,omitempty"`
	Done    bool   `json:"done"`
}

// FormatCreatedAt encodes a timestamp in the CreatedAtLayout.
func FormatCreatedAt(t time.Time) string {
	return t.UTC().Format(CreatedAtLayout)
}
