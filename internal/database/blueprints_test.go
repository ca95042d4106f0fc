package database

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dszwed/wp-blueprints/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockDynamoDB is an in-memory stand-in for the DynamoDB client. It honors
// the two condition expressions the blueprint operations issue and serves
// scans one item per page.
type MockDynamoDB struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue

	beforePut   func(input *dynamodb.PutItemInput)
	updateCalls []*dynamodb.UpdateItemInput
	scanCalls   []*dynamodb.ScanInput
}

func NewMockDynamoDB() *MockDynamoDB {
	return &MockDynamoDB{items: map[string]map[string]types.AttributeValue{}}
}

func itemKey(key map[string]types.AttributeValue) string {
	for _, name := range []string{"id", "blueprint_id"} {
		if v, ok := key[name].(*types.AttributeValueMemberS); ok {
			return v.Value
		}
	}
	return ""
}

func (m *MockDynamoDB) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: m.items[itemKey(params.Key)]}, nil
}

func (m *MockDynamoDB) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if m.beforePut != nil {
		m.beforePut(params)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := itemKey(params.Item)
	existing, exists := m.items[key]
	if params.ConditionExpression != nil {
		switch cond := *params.ConditionExpression; {
		case cond == "attribute_not_exists(id)":
			if exists {
				return nil, &types.ConditionalCheckFailedException{}
			}
		case strings.Contains(cond, ":expected"):
			want := params.ExpressionAttributeValues[":expected"].(*types.AttributeValueMemberN).Value
			have, _ := existing["Version"].(*types.AttributeValueMemberN)
			if !exists || have == nil || have.Value != want {
				return nil, &types.ConditionalCheckFailedException{}
			}
		}
	}
	m.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *MockDynamoDB) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls = append(m.updateCalls, params)
	return &dynamodb.UpdateItemOutput{}, nil
}

func (m *MockDynamoDB) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanCalls = append(m.scanCalls, params)

	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	// deterministic page order
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}

	start := 0
	if params.ExclusiveStartKey != nil {
		after := itemKey(params.ExclusiveStartKey)
		for start < len(keys) && keys[start] <= after {
			start++
		}
	}
	out := &dynamodb.ScanOutput{}
	if start < len(keys) {
		out.Items = []map[string]types.AttributeValue{m.items[keys[start]]}
		if start+1 < len(keys) {
			out.LastEvaluatedKey = map[string]types.AttributeValue{
				"id": &types.AttributeValueMemberS{Value: keys[start]},
			}
		}
	}
	return out, nil
}

func (m *MockDynamoDB) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return &dynamodb.DescribeTableOutput{}, nil
}

func newMockClient() (*Client, *MockDynamoDB) {
	mock := NewMockDynamoDB()
	return &Client{
		DynamoDB: mock,
		Config: &Config{
			BlueprintsTable: "Blueprints",
			StatisticsTable: "BlueprintStatistics",
			UsersTable:      "Users",
		},
	}, mock
}

func TestDynamoCreateAndGetBlueprint(t *testing.T) {
	client, _ := newMockClient()
	ops := NewBlueprintOperations(client)
	ctx := context.Background()

	bp := testBlueprint("a", 0)
	bp.IsAnonymous = false
	bp.OwnerId = "auth0|1"
	require.NoError(t, ops.CreateBlueprint(ctx, bp))

	got, err := ops.GetBlueprint(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, bp, got)

	assert.ErrorIs(t, ops.CreateBlueprint(ctx, bp), ErrAlreadyExists)

	_, err = ops.GetBlueprint(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDynamoUpdateBlueprint(t *testing.T) {
	client, _ := newMockClient()
	ops := NewBlueprintOperations(client)
	ctx := context.Background()
	require.NoError(t, ops.CreateBlueprint(ctx, testBlueprint("a", 0)))

	saved, err := ops.UpdateBlueprint(ctx, "a", func(current *models.Blueprint) (*models.Blueprint, error) {
		current.Status = models.StatusPrivate
		return current, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), saved.Version)

	got, err := ops.GetBlueprint(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPrivate, got.Status)
}

func TestDynamoUpdateRetriesLostRace(t *testing.T) {
	client, mock := newMockClient()
	ops := NewBlueprintOperations(client)
	ctx := context.Background()
	require.NoError(t, ops.CreateBlueprint(ctx, testBlueprint("a", 0)))

	// A competing writer bumps the version right before our first save
	raced := false
	mock.beforePut = func(input *dynamodb.PutItemInput) {
		if raced || input.ConditionExpression == nil || !strings.Contains(*input.ConditionExpression, ":expected") {
			return
		}
		raced = true
		mock.mu.Lock()
		mock.items["a"]["Version"] = &types.AttributeValueMemberN{Value: "7"}
		mock.mu.Unlock()
	}

	calls := 0
	saved, err := ops.UpdateBlueprint(ctx, "a", func(current *models.Blueprint) (*models.Blueprint, error) {
		calls++
		current.Name = "mine"
		return current, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, int64(8), saved.Version)
}

func TestDynamoUpdateGivesUpWithConflict(t *testing.T) {
	client, mock := newMockClient()
	ops := NewBlueprintOperations(client)
	ctx := context.Background()
	require.NoError(t, ops.CreateBlueprint(ctx, testBlueprint("a", 0)))

	version := 100
	mock.beforePut = func(input *dynamodb.PutItemInput) {
		mock.mu.Lock()
		defer mock.mu.Unlock()
		version++
		mock.items["a"]["Version"] = &types.AttributeValueMemberN{Value: strconv.Itoa(version)}
	}

	_, err := ops.UpdateBlueprint(ctx, "a", func(current *models.Blueprint) (*models.Blueprint, error) {
		return current, nil
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestDynamoUpdatePassesMutateErrorThrough(t *testing.T) {
	client, _ := newMockClient()
	ops := NewBlueprintOperations(client)
	ctx := context.Background()
	require.NoError(t, ops.CreateBlueprint(ctx, testBlueprint("a", 0)))

	denied := errors.New("denied")
	_, err := ops.UpdateBlueprint(ctx, "a", func(current *models.Blueprint) (*models.Blueprint, error) {
		return nil, denied
	})
	assert.ErrorIs(t, err, denied)
}

func TestDynamoListBlueprintsWalksAllPages(t *testing.T) {
	client, mock := newMockClient()
	ops := NewBlueprintOperations(client)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c", "d"} {
		bp := testBlueprint(id, time.Duration(i)*time.Second)
		if id == "c" {
			bp.PHPVersion = "7.4"
		}
		require.NoError(t, ops.CreateBlueprint(ctx, bp))
	}

	page, err := ops.ListBlueprints(ctx, models.BlueprintFilter{PHPVersion: "8.2"}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "d", page.Items[0].Id)
	assert.Equal(t, "b", page.Items[1].Id)

	assert.Len(t, mock.scanCalls, 4)
	assert.Equal(t, "attribute_not_exists(#deletedAt) AND #php = :php", *mock.scanCalls[0].FilterExpression)
}

func TestBuildFilterExpression(t *testing.T) {
	expr, names, values := buildFilterExpression(models.BlueprintFilter{})
	assert.Equal(t, "attribute_not_exists(#deletedAt)", expr)
	assert.Equal(t, map[string]string{"#deletedAt": "DeletedAt"}, names)
	assert.Empty(t, values)

	expr, names, values = buildFilterExpression(models.BlueprintFilter{
		Status:           models.StatusPublic,
		PHPVersion:       "8.1",
		WordPressVersion: "6.5",
		OwnerId:          "auth0|1",
	})
	assert.Equal(t,
		"attribute_not_exists(#deletedAt) AND #status = :status AND #php = :php AND #wp = :wp AND #owner = :owner",
		expr)
	assert.Equal(t, "Status", names["#status"])
	assert.Equal(t, "OwnerId", names["#owner"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "6.5"}, values[":wp"])
	assert.Len(t, values, 4)
}

func TestDynamoRecordEvent(t *testing.T) {
	client, mock := newMockClient()
	ops := NewStatisticsOperations(client)

	require.NoError(t, ops.RecordEvent(context.Background(), "a", models.StatisticRun, baseTime))
	require.Len(t, mock.updateCalls, 1)

	call := mock.updateCalls[0]
	assert.Equal(t, "BlueprintStatistics", *call.TableName)
	assert.Equal(t, "ADD #counter :one SET #stamp = :at", *call.UpdateExpression)
	assert.Equal(t, "RunsCount", call.ExpressionAttributeNames["#counter"])
	assert.Equal(t, "LastRunAt", call.ExpressionAttributeNames["#stamp"])

	assert.Error(t, ops.RecordEvent(context.Background(), "a", models.StatisticKind("share"), baseTime))
}

func TestDynamoStatisticsDefaultToZero(t *testing.T) {
	client, _ := newMockClient()
	ops := NewStatisticsOperations(client)

	stats, err := ops.GetStatistics(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, &models.BlueprintStatistics{BlueprintId: "a"}, stats)
}

func TestDynamoUsers(t *testing.T) {
	client, _ := newMockClient()
	ops := NewUserOperations(client)
	ctx := context.Background()

	_, err := ops.GetUser(ctx, "auth0|1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, ops.PutUser(ctx, &models.User{Id: "auth0|1", Name: "Dana", UpdatedAt: baseTime}))
	u, err := ops.GetUser(ctx, "auth0|1")
	require.NoError(t, err)
	assert.Equal(t, &models.User{Id: "auth0|1", Name: "Dana", UpdatedAt: baseTime}, u)
}
