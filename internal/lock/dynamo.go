package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/jun/gophboard/internal/model"
)

// DefaultTimeout is the lease duration written on acquire.
const DefaultTimeout = 30 * time.Second

// DynamoStore implements Store against the lock-triple attributes of the
// objects table. A lock is the locked_by/locked_at/lock_timeout_ms
// attributes on the object item itself; releasing removes them.
type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
	timeout   time.Duration
	now       func() time.Time
}

// NewDynamoStore returns a Store backed by the given objects table.
func NewDynamoStore(client *dynamodb.Client, tableName string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		timeout:   DefaultTimeout,
		now:       time.Now,
	}
}

// TryAcquire performs a conditional update on the object item.
// Condition: no holder, or the holder's lease went stale, or the holder is
// already us. DynamoDB cannot add attributes inside a ConditionExpression,
// so staleness compares locked_at against now minus the store's configured
// timeout rather than the per-record one.
func (s *DynamoStore) TryAcquire(ctx context.Context, objectID, userID string) (*model.Lease, bool, error) {
	nowMs := s.now().UnixMilli()
	timeoutMs := s.timeout.Milliseconds()

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: objectID},
		},
		UpdateExpression: aws.String(
			"SET locked_by = :uid, locked_at = :now, lock_timeout_ms = :timeout",
		),
		ConditionExpression: aws.String(
			"attribute_exists(pk) AND (attribute_not_exists(locked_by) OR locked_at < :stale OR locked_by = :uid)",
		),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid":     &types.AttributeValueMemberS{Value: userID},
			":now":     &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", nowMs)},
			":timeout": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", timeoutMs)},
			":stale":   &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", nowMs-timeoutMs)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to acquire lock on %s: %w", objectID, err)
	}

	return &model.Lease{
		ObjectID:   objectID,
		UserID:     userID,
		AcquiredAt: nowMs,
		TimeoutMs:  timeoutMs,
	}, true, nil
}

// Renew re-stamps locked_at for a self-held lease.
func (s *DynamoStore) Renew(ctx context.Context, objectID, userID string) (*model.Lease, bool, error) {
	nowMs := s.now().UnixMilli()

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: objectID},
		},
		UpdateExpression:    aws.String("SET locked_at = :now"),
		ConditionExpression: aws.String("locked_by = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
			":now": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", nowMs)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			// Reassigned to someone else after an unnoticed expiration.
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to renew lock on %s: %w", objectID, err)
	}

	return &model.Lease{
		ObjectID:   objectID,
		UserID:     userID,
		AcquiredAt: nowMs,
		TimeoutMs:  s.timeout.Milliseconds(),
	}, true, nil
}

// Release removes the lock attributes if userID holds the lease.
func (s *DynamoStore) Release(ctx context.Context, objectID, userID string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: objectID},
		},
		UpdateExpression:    aws.String("REMOVE locked_by, locked_at"),
		ConditionExpression: aws.String("locked_by = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			// Not ours (or already gone): idempotent no-op.
			return nil
		}
		return fmt.Errorf("failed to release lock on %s: %w", objectID, err)
	}
	return nil
}

// Get reads the lock attributes off the object item. Expired leases read as
// nil; nothing is deleted here, expiry is lazy.
func (s *DynamoStore) Get(ctx context.Context, objectID string) (*model.Lease, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: objectID},
		},
		ProjectionExpression: aws.String("locked_by, locked_at, lock_timeout_ms"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get lock on %s: %w", objectID, err)
	}
	if out.Item == nil {
		return nil, nil
	}

	holder, ok := out.Item["locked_by"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, nil // unlocked
	}
	lease := &model.Lease{ObjectID: objectID, UserID: holder.Value, TimeoutMs: s.timeout.Milliseconds()}
	if at, ok := out.Item["locked_at"].(*types.AttributeValueMemberN); ok {
		fmt.Sscanf(at.Value, "%d", &lease.AcquiredAt)
	}
	if tm, ok := out.Item["lock_timeout_ms"].(*types.AttributeValueMemberN); ok {
		fmt.Sscanf(tm.Value, "%d", &lease.TimeoutMs)
	}

	if lease.Expired(s.now()) {
		return nil, nil
	}
	return lease, nil
}
