package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/presswire-api/internal/kv"
)

// API is the subset of *dynamodb.Client the store uses.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

type item struct {
	Key       string `dynamodbav:"pk"`
	Value     []byte `dynamodbav:"v"`
	ExpiresAt int64  `dynamodbav:"expires_at,omitempty"`
}

// Store is a kv.Store on a single DynamoDB table (PK: pk). Compare-and-swap
// uses conditional writes, so it is safe across replicas. TTL deletion in
// DynamoDB is lazy, so reads also check expires_at.
type Store struct {
	client    API
	tableName string
	now       func() time.Time
}

// NewStore returns a Store over tableName.
func NewStore(client API, tableName string) *Store {
	return &Store{client: client, tableName: tableName, now: time.Now}
}

func (s *Store) expiry(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return s.now().Add(ttl).Unix()
}

func (s *Store) expired(it *item) bool {
	return it.ExpiresAt > 0 && it.ExpiresAt <= s.now().Unix()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            strKey(fieldKey, key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo get %s: %w", key, err)
	}
	if out.Item == nil {
		return nil, kv.ErrNotFound
	}
	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	if s.expired(&it) {
		return nil, kv.ErrNotFound
	}
	return it.Value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	av, err := attributevalue.MarshalMap(item{Key: key, Value: value, ExpiresAt: s.expiry(ttl)})
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("dynamo put %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       strKey(fieldKey, key),
	})
	if err != nil {
		return fmt.Errorf("dynamo delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) CompareAndSwap(ctx context.Context, key string, prev, next []byte, ttl time.Duration) (bool, error) {
	var err error
	if prev == nil {
		err = s.create(ctx, key, next, ttl)
	} else {
		err = s.swap(ctx, key, prev, next, ttl)
	}
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dynamo cas %s: %w", key, err)
	}
	return true, nil
}

// create writes only if the key is absent or holds an expired item not yet reaped.
func (s *Store) create(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	av, err := attributevalue.MarshalMap(item{Key: key, Value: value, ExpiresAt: s.expiry(ttl)})
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(#pk) OR (#exp > :zero AND #exp <= :now)"),
		ExpressionAttributeNames: map[string]string{
			"#pk":  fieldKey,
			"#exp": fieldExpiresAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":zero": &types.AttributeValueMemberN{Value: "0"},
			":now":  &types.AttributeValueMemberN{Value: strconv.FormatInt(s.now().Unix(), 10)},
		},
	})
	return err
}

func (s *Store) swap(ctx context.Context, key string, prev, next []byte, ttl time.Duration) error {
	updates := map[string]interface{}{fieldValue: next}
	exp := s.expiry(ttl)
	if exp > 0 {
		updates[fieldExpiresAt] = exp
	}
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	expr := ue.Expr
	if exp == 0 {
		expr += " REMOVE #exp"
		ue.Names["#exp"] = fieldExpiresAt
	}
	ue.Names["#cur"] = fieldValue
	ue.Values[":prev"] = &types.AttributeValueMemberB{Value: prev}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       strKey(fieldKey, key),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("#cur = :prev"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

func (s *Store) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	p := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                aws.String(s.tableName),
		FilterExpression:         aws.String("begins_with(#pk, :prefix)"),
		ExpressionAttributeNames: map[string]string{"#pk": fieldKey},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":prefix": &types.AttributeValueMemberS{Value: prefix},
		},
		ConsistentRead: aws.Bool(true),
	})
	out := make(map[string][]byte)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("dynamo scan %s: %w", prefix, err)
		}
		var items []item
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal items: %w", err)
		}
		for i := range items {
			if !s.expired(&items[i]) {
				out[items[i].Key] = items[i].Value
			}
		}
	}
	return out, nil
}

var _ kv.Store = (*Store)(nil)
