package store

import (
	"context"
	"fmt"
	"log"
	"reflect"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/jun/gophboard/internal/model"
)

// DefaultPollInterval is how often the DynamoDB watcher re-reads the canvas.
const DefaultPollInterval = 1 * time.Second

// objectItem is the DynamoDB item shape: the object record plus the table's
// partition key.
type objectItem struct {
	PK string `dynamodbav:"pk"`
	model.CanvasObject
}

// DynamoStore implements ObjectStore on a single DynamoDB table keyed by
// object id. The change feed is a polling loop: DynamoDB has no push feed
// short of Streams infrastructure, and the system tolerates feed latency by
// design, so a scan on an interval is enough (inefficient but fine at canvas
// scale).
type DynamoStore struct {
	client       *dynamodb.Client
	tableName    string
	pollInterval time.Duration
}

// NewDynamoStore returns an ObjectStore backed by the given table.
func NewDynamoStore(client *dynamodb.Client, tableName string) *DynamoStore {
	return &DynamoStore{
		client:       client,
		tableName:    tableName,
		pollInterval: DefaultPollInterval,
	}
}

func (s *DynamoStore) ListObjects(ctx context.Context, canvasID string) ([]model.CanvasObject, error) {
	out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:        aws.String(s.tableName),
		FilterExpression: aws.String("canvas_id = :cid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cid": &types.AttributeValueMemberS{Value: canvasID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects for canvas %s: %w", canvasID, err)
	}

	objects := make([]model.CanvasObject, 0, len(out.Items))
	for _, raw := range out.Items {
		var item objectItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			// One malformed record must not poison the whole snapshot.
			log.Printf("store: skipping undecodable item: %v", err)
			continue
		}
		objects = append(objects, item.CanvasObject)
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].ID < objects[j].ID })
	return objects, nil
}

func (s *DynamoStore) CreateObject(ctx context.Context, obj *model.CanvasObject) error {
	item, err := attributevalue.MarshalMap(objectItem{PK: obj.ID, CanvasObject: *obj})
	if err != nil {
		return fmt.Errorf("failed to marshal object %s: %w", obj.ID, err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to create object %s: %w", obj.ID, err)
	}
	return nil
}

// UpdateObject is a full-record upsert; last writer wins.
func (s *DynamoStore) UpdateObject(ctx context.Context, obj *model.CanvasObject) error {
	item, err := attributevalue.MarshalMap(objectItem{PK: obj.ID, CanvasObject: *obj})
	if err != nil {
		return fmt.Errorf("failed to marshal object %s: %w", obj.ID, err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to update object %s: %w", obj.ID, err)
	}
	return nil
}

func (s *DynamoStore) DeleteObject(ctx context.Context, objectID string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: objectID},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", objectID, err)
	}
	return nil
}

// Watch polls the canvas and delivers the full set whenever it differs from
// the previously delivered one.
func (s *DynamoStore) Watch(ctx context.Context, canvasID string, onChange func([]model.CanvasObject), onError func(error)) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		var last []model.CanvasObject
		delivered := false
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				objects, err := s.ListObjects(ctx, canvasID)
				if err != nil {
					if ctx.Err() == nil && onError != nil {
						onError(err)
					}
					continue
				}
				if delivered && reflect.DeepEqual(objects, last) {
					continue
				}
				last = objects
				delivered = true
				onChange(objects)
			}
		}
	}()

	return cancel
}
