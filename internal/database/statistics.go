package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dszwed/wp-blueprints/internal/models"
)

// StatisticsOperations handles the blueprint statistics table
type StatisticsOperations struct {
	client    *Client
	tableName string
}

// NewStatisticsOperations creates a new StatisticsOperations instance
func NewStatisticsOperations(client *Client) *StatisticsOperations {
	return &StatisticsOperations{
		client:    client,
		tableName: client.Config.StatisticsTable,
	}
}

// GetStatistics returns the counters of a blueprint. A blueprint without any
// recorded event has zero counters.
func (ops *StatisticsOperations) GetStatistics(ctx context.Context, blueprintId string) (*models.BlueprintStatistics, error) {
	result, err := ops.client.DynamoDB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(ops.tableName),
		Key: map[string]types.AttributeValue{
			"blueprint_id": &types.AttributeValueMemberS{Value: blueprintId},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}
	if result.Item == nil {
		return &models.BlueprintStatistics{BlueprintId: blueprintId}, nil
	}

	var rec statisticsRecord
	if err := attributevalue.UnmarshalMap(result.Item, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal statistics: %w", err)
	}
	return rec.toModel(), nil
}

// RecordEvent atomically bumps the counter of kind and stamps its time
func (ops *StatisticsOperations) RecordEvent(ctx context.Context, blueprintId string, kind models.StatisticKind, at time.Time) error {
	counter, stamp, err := statisticAttributes(kind)
	if err != nil {
		return err
	}

	_, err = ops.client.DynamoDB.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(ops.tableName),
		Key: map[string]types.AttributeValue{
			"blueprint_id": &types.AttributeValueMemberS{Value: blueprintId},
		},
		UpdateExpression: aws.String("ADD #counter :one SET #stamp = :at"),
		ExpressionAttributeNames: map[string]string{
			"#counter": counter,
			"#stamp":   stamp,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
			":at":  &types.AttributeValueMemberN{Value: strconv.FormatInt(at.UnixMilli(), 10)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to record %s event: %w", kind, err)
	}
	return nil
}

func statisticAttributes(kind models.StatisticKind) (string, string, error) {
	switch kind {
	case models.StatisticView:
		return "ViewsCount", "LastViewedAt", nil
	case models.StatisticRun:
		return "RunsCount", "LastRunAt", nil
	}
	return "", "", fmt.Errorf("unknown statistic kind %q", kind)
}
