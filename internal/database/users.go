package database

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dszwed/wp-blueprints/internal/models"
)

// UserOperations handles the users table
type UserOperations struct {
	client    *Client
	tableName string
}

// NewUserOperations creates a new UserOperations instance
func NewUserOperations(client *Client) *UserOperations {
	return &UserOperations{
		client:    client,
		tableName: client.Config.UsersTable,
	}
}

// PutUser creates or replaces a user
func (ops *UserOperations) PutUser(ctx context.Context, user *models.User) error {
	av, err := attributevalue.MarshalMap(toUserRecord(user))
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	_, err = ops.client.DynamoDB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(ops.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID
func (ops *UserOperations) GetUser(ctx context.Context, id string) (*models.User, error) {
	result, err := ops.client.DynamoDB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(ops.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}

	var rec userRecord
	if err := attributevalue.UnmarshalMap(result.Item, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return rec.toModel(), nil
}
