package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/rzpsarthak13/stagekeeper/internal/core"
)

// DynamoDBStore implements the core.DefinitionStore contract on DynamoDB.
// Definitions live in one table keyed by physical name; samples live in a
// second table keyed by definition ID with the sample timestamp as sort key.
// Records are stored as JSON blobs beside a few filterable attributes.
type DynamoDBStore struct {
	client           *dynamodb.Client
	definitionsTable string
	samplesTable     string
	closed           bool
}

// DynamoDBStoreConfig holds the connection settings for the DynamoDB backend.
type DynamoDBStoreConfig struct {
	Region           string
	DefinitionsTable string
	SamplesTable     string
	Endpoint         string // optional, for LocalStack
	AccessKeyID      string // optional, can use IAM role instead
	SecretAccessKey  string // optional, can use IAM role instead
}

// NewDynamoDBStore creates a DynamoDB-backed definition store.
// Both tables are described up front to verify connectivity.
func NewDynamoDBStore(cfg DynamoDBStoreConfig) (*DynamoDBStore, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("region is required")
	}
	if cfg.DefinitionsTable == "" || cfg.SamplesTable == "" {
		return nil, fmt.Errorf("definitions and samples table names are required")
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	clientOptions := []func(*dynamodb.Options){}
	if cfg.Endpoint != "" {
		clientOptions = append(clientOptions, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	client := dynamodb.NewFromConfig(awsCfg, clientOptions...)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, table := range []string{cfg.DefinitionsTable, cfg.SamplesTable} {
		if _, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(table),
		}); err != nil {
			return nil, fmt.Errorf("failed to connect to DynamoDB table %s: %w", table, err)
		}
	}

	return &DynamoDBStore{
		client:           client,
		definitionsTable: cfg.DefinitionsTable,
		samplesTable:     cfg.SamplesTable,
	}, nil
}

// SaveDefinition inserts or overwrites a definition record.
func (d *DynamoDBStore) SaveDefinition(ctx context.Context, def *core.ResourceDefinition) error {
	if d.closed {
		return fmt.Errorf("store is closed")
	}
	payload, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to marshal definition: %w", err)
	}

	item := map[string]types.AttributeValue{
		"physical_name": &types.AttributeValueMemberS{Value: def.PhysicalName},
		"payload":       &types.AttributeValueMemberB{Value: payload},
		"active":        &types.AttributeValueMemberBOOL{Value: def.IsActive()},
		"expires_at":    &types.AttributeValueMemberN{Value: strconv.FormatInt(def.ExpiresAt().Unix(), 10)},
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.definitionsTable),
		Item:      item,
	})
	if err != nil {
		log.Printf("[DYNAMODB] ERROR: Failed to save definition %s: %v", def.PhysicalName, err)
		return fmt.Errorf("failed to save definition %s: %w", def.PhysicalName, err)
	}
	log.Printf("[DYNAMODB] Saved definition %s (active: %v)", def.PhysicalName, def.IsActive())
	return nil
}

// FindDefinitionByName retrieves a definition by physical name.
func (d *DynamoDBStore) FindDefinitionByName(ctx context.Context, physicalName string) (*core.ResourceDefinition, error) {
	if d.closed {
		return nil, fmt.Errorf("store is closed")
	}
	result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.definitionsTable),
		Key: map[string]types.AttributeValue{
			"physical_name": &types.AttributeValueMemberS{Value: physicalName},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get definition %s: %w", physicalName, err)
	}
	if result.Item == nil {
		return nil, core.NotFoundError(physicalName)
	}
	return unmarshalDefinitionItem(result.Item)
}

// FindActiveDefinitions scans for definitions with no dropped timestamp.
func (d *DynamoDBStore) FindActiveDefinitions(ctx context.Context) ([]*core.ResourceDefinition, error) {
	if d.closed {
		return nil, fmt.Errorf("store is closed")
	}
	return d.scanDefinitions(ctx, "active = :active", map[string]types.AttributeValue{
		":active": &types.AttributeValueMemberBOOL{Value: true},
	})
}

// FindExpiredDefinitions scans for active definitions whose TTL elapsed before asOf.
func (d *DynamoDBStore) FindExpiredDefinitions(ctx context.Context, asOf time.Time) ([]*core.ResourceDefinition, error) {
	if d.closed {
		return nil, fmt.Errorf("store is closed")
	}
	return d.scanDefinitions(ctx, "active = :active AND expires_at <= :as_of", map[string]types.AttributeValue{
		":active": &types.AttributeValueMemberBOOL{Value: true},
		":as_of":  &types.AttributeValueMemberN{Value: strconv.FormatInt(asOf.Unix(), 10)},
	})
}

// SavePerformanceSample appends a sample item keyed by definition and timestamp.
func (d *DynamoDBStore) SavePerformanceSample(ctx context.Context, sample *core.PerformanceSample) error {
	if d.closed {
		return fmt.Errorf("store is closed")
	}
	payload, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("failed to marshal sample: %w", err)
	}
	item := map[string]types.AttributeValue{
		"definition_id": &types.AttributeValueMemberS{Value: sample.DefinitionID},
		"sampled_at":    &types.AttributeValueMemberN{Value: strconv.FormatInt(sample.Timestamp.UnixNano(), 10)},
		"payload":       &types.AttributeValueMemberB{Value: payload},
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.samplesTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save performance sample: %w", err)
	}
	return nil
}

// FindRecentSamples queries the newest samples for a definition, newest first.
func (d *DynamoDBStore) FindRecentSamples(ctx context.Context, definitionID string, window int) ([]*core.PerformanceSample, error) {
	if d.closed {
		return nil, fmt.Errorf("store is closed")
	}
	result, err := d.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(d.samplesTable),
		KeyConditionExpression: aws.String("definition_id = :id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: definitionID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(window)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query recent samples: %w", err)
	}
	return unmarshalSampleItems(result.Items)
}

// FindSamplesInRange queries samples within [start, end], oldest first.
func (d *DynamoDBStore) FindSamplesInRange(ctx context.Context, definitionID string, start, end time.Time) ([]*core.PerformanceSample, error) {
	if d.closed {
		return nil, fmt.Errorf("store is closed")
	}
	result, err := d.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(d.samplesTable),
		KeyConditionExpression: aws.String("definition_id = :id AND sampled_at BETWEEN :start AND :end"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id":    &types.AttributeValueMemberS{Value: definitionID},
			":start": &types.AttributeValueMemberN{Value: strconv.FormatInt(start.UnixNano(), 10)},
			":end":   &types.AttributeValueMemberN{Value: strconv.FormatInt(end.UnixNano(), 10)},
		},
		ScanIndexForward: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query samples in range: %w", err)
	}
	return unmarshalSampleItems(result.Items)
}

// Close marks the store closed. The SDK client holds no persistent connections.
func (d *DynamoDBStore) Close() error {
	d.closed = true
	return nil
}

func (d *DynamoDBStore) scanDefinitions(ctx context.Context, filter string, values map[string]types.AttributeValue) ([]*core.ResourceDefinition, error) {
	var defs []*core.ResourceDefinition
	var startKey map[string]types.AttributeValue

	for {
		result, err := d.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(d.definitionsTable),
			FilterExpression:          aws.String(filter),
			ExpressionAttributeValues: values,
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan definitions: %w", err)
		}
		for _, item := range result.Items {
			def, err := unmarshalDefinitionItem(item)
			if err != nil {
				log.Printf("[DYNAMODB] Skipping unreadable definition item: %v", err)
				continue
			}
			defs = append(defs, def)
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		startKey = result.LastEvaluatedKey
	}
	return defs, nil
}

func unmarshalDefinitionItem(item map[string]types.AttributeValue) (*core.ResourceDefinition, error) {
	payload, ok := item["payload"].(*types.AttributeValueMemberB)
	if !ok {
		return nil, fmt.Errorf("definition item missing payload attribute")
	}
	var def core.ResourceDefinition
	if err := json.Unmarshal(payload.Value, &def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal definition: %w", err)
	}
	return &def, nil
}

func unmarshalSampleItems(items []map[string]types.AttributeValue) ([]*core.PerformanceSample, error) {
	samples := make([]*core.PerformanceSample, 0, len(items))
	for _, item := range items {
		payload, ok := item["payload"].(*types.AttributeValueMemberB)
		if !ok {
			continue
		}
		var sample core.PerformanceSample
		if err := json.Unmarshal(payload.Value, &sample); err != nil {
			log.Printf("[DYNAMODB] Skipping unreadable sample item: %v", err)
			continue
		}
		samples = append(samples, &sample)
	}
	return samples, nil
}
