package database

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	appConfig "github.com/dszwed/wp-blueprints/internal/config"
	"github.com/dszwed/wp-blueprints/internal/logger"
)

// Config holds the DynamoDB configuration
type Config struct {
	Region          string
	BlueprintsTable string
	StatisticsTable string
	UsersTable      string
}

// DynamoAPI is the subset of the DynamoDB client the operations use
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Client wraps the DynamoDB client
type Client struct {
	DynamoDB DynamoAPI
	Config   *Config
}

// NewConfig creates a new database configuration from the application config
func NewConfig(appCfg *appConfig.Config) *Config {
	return &Config{
		Region:          appCfg.AWSRegion,
		BlueprintsTable: appCfg.BlueprintsTableName,
		StatisticsTable: appCfg.StatisticsTableName,
		UsersTable:      appCfg.UsersTableName,
	}
}

// NewClient creates a new DynamoDB client
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	// Load AWS SDK config
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	// Create DynamoDB client
	client := &Client{
		DynamoDB: dynamodb.NewFromConfig(awsCfg),
		Config:   cfg,
	}

	// Verify every table; a missing one is logged, not fatal
	for _, table := range []string{cfg.BlueprintsTable, cfg.StatisticsTable, cfg.UsersTable} {
		if err := client.ensureTableExists(ctx, table); err != nil {
			logger.WithError(err).Warnf("Could not verify table %s", table)
		}
	}

	return client, nil
}

// ensureTableExists checks if the DynamoDB table exists
func (c *Client) ensureTableExists(ctx context.Context, tableName string) error {
	_, err := c.DynamoDB.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	})
	if err != nil {
		return fmt.Errorf("table %s does not exist or cannot be accessed: %w", tableName, err)
	}

	logger.Debugf("DynamoDB table '%s' verified successfully", tableName)
	return nil
}
