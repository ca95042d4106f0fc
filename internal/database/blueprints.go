package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dszwed/wp-blueprints/internal/logger"
	"github.com/dszwed/wp-blueprints/internal/models"
)

// maxUpdateAttempts bounds the read-modify-write retries of Update
const maxUpdateAttempts = 3

// BlueprintOperations handles all DynamoDB operations for blueprints
type BlueprintOperations struct {
	client    *Client
	tableName string
}

// NewBlueprintOperations creates a new BlueprintOperations instance
func NewBlueprintOperations(client *Client) *BlueprintOperations {
	return &BlueprintOperations{
		client:    client,
		tableName: client.Config.BlueprintsTable,
	}
}

// CreateBlueprint stores a new blueprint, failing if the id is taken
func (ops *BlueprintOperations) CreateBlueprint(ctx context.Context, bp *models.Blueprint) error {
	// Marshal the blueprint into a DynamoDB attribute value map
	av, err := ops.marshalBlueprint(bp)
	if err != nil {
		return err
	}

	logger.ForBlueprint(bp.Id).Debug("Creating blueprint in DynamoDB")

	// Put only if no item has this id yet
	_, err = ops.client.DynamoDB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(ops.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create blueprint: %w", err)
	}

	return nil
}

// GetBlueprint retrieves a blueprint by ID, soft deleted ones included
func (ops *BlueprintOperations) GetBlueprint(ctx context.Context, id string) (*models.Blueprint, error) {
	// Get the item from DynamoDB
	result, err := ops.client.DynamoDB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(ops.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		logger.ForBlueprint(id).WithError(err).Error("Failed to get blueprint from DynamoDB")
		return nil, fmt.Errorf("failed to get blueprint: %w", err)
	}

	if result.Item == nil {
		return nil, ErrNotFound
	}

	// Unmarshal the item into the Blueprint domain model
	bp, err := ops.unmarshalBlueprint(result.Item)
	if err != nil {
		logger.ForBlueprint(id).WithError(err).Error("Failed to unmarshal blueprint")
		return nil, err
	}

	return bp, nil
}

// UpdateBlueprint runs mutate against the stored blueprint and saves the
// result only if nobody else wrote the item in between. Lost races are
// retried a bounded number of times before ErrConflict.
func (ops *BlueprintOperations) UpdateBlueprint(ctx context.Context, id string, mutate MutateFunc) (*models.Blueprint, error) {
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		current, err := ops.GetBlueprint(ctx, id)
		if err != nil {
			return nil, err
		}

		next, err := mutate(current.Clone())
		if err != nil {
			return nil, err
		}
		// Identity is fixed, the version moves forward by one
		next.Id = current.Id
		next.Version = current.Version + 1

		av, err := ops.marshalBlueprint(next)
		if err != nil {
			return nil, err
		}

		// Write back only if the stored version is still the one we read
		_, err = ops.client.DynamoDB.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(ops.tableName),
			Item:                av,
			ConditionExpression: aws.String("#version = :expected"),
			ExpressionAttributeNames: map[string]string{
				"#version": "Version",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(current.Version, 10)},
			},
		})
		if err == nil {
			return next, nil
		}

		var ccf *types.ConditionalCheckFailedException
		if !errors.As(err, &ccf) {
			return nil, fmt.Errorf("failed to update blueprint: %w", err)
		}

		logger.WithFields(logger.Fields{
			"blueprint_id": id,
			"attempt":      attempt,
		}).Warn("Blueprint changed during update, retrying")
	}

	return nil, ErrConflict
}

// ListBlueprints scans the table for live blueprints matching filter and
// returns the requested page, newest first
func (ops *BlueprintOperations) ListBlueprints(ctx context.Context, filter models.BlueprintFilter, page, perPage int) (*models.BlueprintPage, error) {
	input := &dynamodb.ScanInput{
		TableName:      aws.String(ops.tableName),
		ConsistentRead: aws.Bool(true),
	}
	expr, names, values := buildFilterExpression(filter)
	input.FilterExpression = aws.String(expr)
	input.ExpressionAttributeNames = names
	if len(values) > 0 {
		input.ExpressionAttributeValues = values
	}

	// Scan every page; paging happens after sorting
	var matches []*models.Blueprint
	paginator := dynamodb.NewScanPaginator(ops.client.DynamoDB, input)
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan blueprints: %w", err)
		}
		for _, item := range out.Items {
			bp, err := ops.unmarshalBlueprint(item)
			if err != nil {
				return nil, err
			}
			// The filter expression already applied these, this keeps both
			// backends on one definition of a match.
			if filter.Matches(bp) {
				matches = append(matches, bp)
			}
		}
	}

	return pageOf(matches, page, perPage), nil
}

// buildFilterExpression turns filter into a Scan filter expression. Soft
// deleted items are always excluded.
func buildFilterExpression(filter models.BlueprintFilter) (string, map[string]string, map[string]types.AttributeValue) {
	clauses := []string{"attribute_not_exists(#deletedAt)"}
	names := map[string]string{"#deletedAt": "DeletedAt"}
	values := map[string]types.AttributeValue{}

	add := func(placeholder, attribute, value string) {
		if value == "" {
			return
		}
		clauses = append(clauses, fmt.Sprintf("#%s = :%s", placeholder, placeholder))
		names["#"+placeholder] = attribute
		values[":"+placeholder] = &types.AttributeValueMemberS{Value: value}
	}
	add("status", "Status", string(filter.Status))
	add("php", "PHPVersion", filter.PHPVersion)
	add("wp", "WordPressVersion", filter.WordPressVersion)
	add("owner", "OwnerId", filter.OwnerId)

	return strings.Join(clauses, " AND "), names, values
}

func (ops *BlueprintOperations) marshalBlueprint(bp *models.Blueprint) (map[string]types.AttributeValue, error) {
	rec, err := toBlueprintRecord(bp)
	if err != nil {
		return nil, err
	}
	av, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal blueprint: %w", err)
	}
	return av, nil
}

// unmarshalBlueprint converts a DynamoDB item to the Blueprint domain model
func (ops *BlueprintOperations) unmarshalBlueprint(item map[string]types.AttributeValue) (*models.Blueprint, error) {
	var rec blueprintRecord
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal blueprint: %w", err)
	}
	return rec.toModel()
}
