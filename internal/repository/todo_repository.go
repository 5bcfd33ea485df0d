package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/sirupsen/logrus"
	"github.com/taskbox/taskbox/internal/models"
)

// TodoRepository owns all access to the todos table, its createdAt index and
// the attachments bucket. Every operation is scoped by an explicit userId.
type TodoRepository struct {
	client         *dynamodb.Client
	presigner      *s3.PresignClient
	tableName      string
	createdAtIndex string
	bucketName     string
	urlExpiry      time.Duration
	logger         *logrus.Logger
}

func NewTodoRepository(
	client *dynamodb.Client,
	presigner *s3.PresignClient,
	tableName string,
	createdAtIndex string,
	bucketName string,
	urlExpiry time.Duration,
	logger *logrus.Logger,
) *TodoRepository {
	return &TodoRepository{
		client:         client,
		presigner:      presigner,
		tableName:      tableName,
		createdAtIndex: createdAtIndex,
		bucketName:     bucketName,
		urlExpiry:      urlExpiry,
		logger:         logger,
	}
}

// GetTodo looks up a single item by exact key. A missing item is reported as
// (nil, nil), never as an error.
func (r *TodoRepository) GetTodo(ctx context.Context, userID, todoID string) (*models.TodoItem, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       todoKey(userID, todoID),
	})

	if err != nil {
		r.logStoreError(err, "Failed to get todo item from DynamoDB")
		return nil, fmt.Errorf("failed to get todo item: %w", err)
	}

	if result.Item == nil {
		return nil, nil // Item not found
	}

	var item models.TodoItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		r.logger.WithError(err).Error("Failed to unmarshal todo item from DynamoDB")
		return nil, fmt.Errorf("failed to unmarshal todo item: %w", err)
	}

	return &item, nil
}

// ListTodos returns every item owned by userID, most recently created first.
// The ordering comes from querying the createdAt index backwards; the primary
// key sorts by todoId and cannot provide it.
func (r *TodoRepository) ListTodos(ctx context.Context, userID string) ([]models.TodoItem, error) {
	paginator := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(r.createdAtIndex),
		KeyConditionExpression: aws.String("userId = :userId"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":userId": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false),
	})

	var items []models.TodoItem
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			r.logStoreError(err, "Failed to query todo items from DynamoDB")
			return nil, fmt.Errorf("failed to query todo items: %w", err)
		}

		var pageItems []models.TodoItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &pageItems); err != nil {
			r.logger.WithError(err).Error("Failed to unmarshal todo items from DynamoDB")
			return nil, fmt.Errorf("failed to unmarshal todo items: %w", err)
		}
		items = append(items, pageItems...)
	}

	return items, nil
}

// CreateTodo writes a new item. The condition surfaces a key collision as
// ErrTodoAlreadyExists instead of silently overwriting.
func (r *TodoRepository) CreateTodo(ctx context.Context, item *models.TodoItem) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		r.logger.WithError(err).Error("Failed to marshal todo item for DynamoDB")
		return fmt.Errorf("failed to marshal todo item: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(userId) AND attribute_not_exists(todoId)"),
	})

	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return ErrTodoAlreadyExists
		}
		r.logStoreError(err, "Failed to create todo item in DynamoDB")
		return fmt.Errorf("failed to create todo item: %w", err)
	}

	return nil
}

// UpdateTodo overwrites exactly {name, dueDate, done} on the addressed item.
// Without the existence condition DynamoDB would upsert a partial record for
// an unknown key; here that case becomes ErrTodoNotFound.
func (r *TodoRepository) UpdateTodo(ctx context.Context, userID, todoID string, update models.TodoUpdate) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 todoKey(userID, todoID),
		UpdateExpression:    aws.String("SET #name = :name, dueDate = :dueDate, done = :done"),
		ConditionExpression: aws.String("attribute_exists(todoId)"),
		ExpressionAttributeNames: map[string]string{
			"#name": "name",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":name":    &types.AttributeValueMemberS{Value: update.Name},
			":dueDate": &types.AttributeValueMemberS{Value: update.DueDate},
			":done":    &types.AttributeValueMemberBOOL{Value: update.Done},
		},
	})

	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return ErrTodoNotFound
		}
		r.logStoreError(err, "Failed to update todo item in DynamoDB")
		return fmt.Errorf("failed to update todo item: %w", err)
	}

	return nil
}

// DeleteTodo removes the addressed item. Deleting an absent item succeeds.
func (r *TodoRepository) DeleteTodo(ctx context.Context, userID, todoID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       todoKey(userID, todoID),
	})

	if err != nil {
		r.logStoreError(err, "Failed to delete todo item from DynamoDB")
		return fmt.Errorf("failed to delete todo item: %w", err)
	}

	return nil
}

// GenerateUploadURL records the item's attachment location, then mints a
// presigned PUT URL for it. The two steps are not coupled: if presigning
// fails after the write, the item points at an object that does not exist
// yet. The same holds until the client finishes its upload.
func (r *TodoRepository) GenerateUploadURL(ctx context.Context, userID, todoID string) (string, error) {
	attachmentURL := AttachmentURL(r.bucketName, todoID)

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 todoKey(userID, todoID),
		UpdateExpression:    aws.String("SET attachmentUrl = :attachmentUrl"),
		ConditionExpression: aws.String("attribute_exists(todoId)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":attachmentUrl": &types.AttributeValueMemberS{Value: attachmentURL},
		},
	})

	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return "", ErrTodoNotFound
		}
		r.logStoreError(err, "Failed to record attachment URL in DynamoDB")
		return "", fmt.Errorf("failed to record attachment URL: %w", err)
	}

	presigned, err := r.presigner.PresignPutObject(ctx,
		&s3.PutObjectInput{
			Bucket: aws.String(r.bucketName),
			Key:    aws.String(todoID),
		},
		s3.WithPresignExpires(r.urlExpiry),
	)
	if err != nil {
		r.logStoreError(err, "Failed to presign attachment upload")
		return "", fmt.Errorf("failed to presign attachment upload: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"userId": userID,
		"todoId": todoID,
	}).Info("Generated attachment upload URL")

	return presigned.URL, nil
}

// AttachmentURL derives the public object location for a todo's attachment.
// It depends only on the todoId, so it is stable and re-derivable.
func AttachmentURL(bucketName, todoID string) string {
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucketName, todoID)
}

// logStoreError logs a store failure with its service error code when the
// failure carries one.
func (r *TodoRepository) logStoreError(err error, msg string) {
	entry := r.logger.WithError(err)
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		entry = entry.WithField("errorCode", apiErr.ErrorCode())
	}
	entry.Error(msg)
}

func todoKey(userID, todoID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
		"todoId": &types.AttributeValueMemberS{Value: todoID},
	}
}
