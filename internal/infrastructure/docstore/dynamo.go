package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// dynamoAPI is the slice of the DynamoDB client the store uses.
type dynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoStore keeps documents in a single DynamoDB table with the
// collection name as partition key and the document id as sort key.
type DynamoStore struct {
	client    dynamoAPI
	tableName string
}

// dynamoDocument represents the DynamoDB item structure
type dynamoDocument struct {
	Collection string `dynamodbav:"collection"`
	ID         string `dynamodbav:"id"`
	Data       string `dynamodbav:"data"`
	CreatedAt  string `dynamodbav:"created_at"`
}

func NewDynamoStore(client *dynamodb.Client, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName}
}

// ConnectDynamo builds a DynamoDB client from the default AWS config chain.
func ConnectDynamo(ctx context.Context) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg), nil
}

func (s *DynamoStore) Create(ctx context.Context, collection string, doc any) (string, error) {
	m, err := encodeDoc(doc)
	if err != nil {
		return "", err
	}
	id := uuid.New().String()
	m["id"] = id
	if err := s.put(ctx, collection, id, m); err != nil {
		return "", err
	}
	return id, nil
}

func (s *DynamoStore) Set(ctx context.Context, collection, id string, doc any) error {
	m, err := encodeDoc(doc)
	if err != nil {
		return err
	}
	m["id"] = id
	return s.put(ctx, collection, id, m)
}

func (s *DynamoStore) put(ctx context.Context, collection, id string, m map[string]any) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	item := dynamoDocument{
		Collection: collection,
		ID:         id,
		Data:       string(data),
		CreatedAt:  time.Now().Format(time.RFC3339Nano),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to put document: %w", err)
	}
	return nil
}

func (s *DynamoStore) Get(ctx context.Context, collection, id string, out any) error {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"collection": &types.AttributeValueMemberS{Value: collection},
			"id":         &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	if result.Item == nil {
		return ErrNotFound
	}

	var item dynamoDocument
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return json.Unmarshal([]byte(item.Data), out)
}

// Query fetches the whole collection partition and filters/orders client
// side. Collections here are small and user-scoped; a filter pushdown per
// field would need an index per field.
func (s *DynamoStore) Query(ctx context.Context, collection string, q Query, out any) error {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("#c = :collection"),
		ExpressionAttributeNames: map[string]string{
			"#c": "collection",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":collection": &types.AttributeValueMemberS{Value: collection},
		},
	}

	var docs []map[string]any
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to query documents: %w", err)
		}
		for _, raw := range result.Items {
			var item dynamoDocument
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				continue
			}
			var m map[string]any
			if err := json.Unmarshal([]byte(item.Data), &m); err != nil {
				continue
			}
			if matchesFilters(m, q.Filters) {
				docs = append(docs, m)
			}
		}
		// Partitions past the 1 MB response cap come back in pages.
		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	sortDocs(docs, q.OrderBy, q.Descending)
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return decodeSlice(docs, out)
}

func (s *DynamoStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	var m map[string]any
	if err := s.Get(ctx, collection, id, &m); err != nil {
		return err
	}
	for k, v := range fields {
		m[k] = v
	}
	return s.put(ctx, collection, id, m)
}

func (s *DynamoStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"collection": &types.AttributeValueMemberS{Value: collection},
			"id":         &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
