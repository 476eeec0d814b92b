package store

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
	"github.com/example/order-orchestrator/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoOrderStore
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoOrderStore keeps each order, items included, as a single DynamoDB item.
// Changes reach Kinesis through the table's Kinesis streaming destination.
type DynamoOrderStore struct {
	client    DynamoAPI
	tableName string
}

// DynamoOrder is the stored shape of an order; stream images use the same attribute names
type DynamoOrder struct {
	ID        string       `dynamodbav:"id"`
	ClientID  int64        `dynamodbav:"client_id"`
	Total     string       `dynamodbav:"total"`
	Status    string       `dynamodbav:"status"`
	Items     []DynamoItem `dynamodbav:"items"`
	Version   int          `dynamodbav:"version"`
	CreatedAt string       `dynamodbav:"created_at"`
	UpdatedAt string       `dynamodbav:"updated_at"`
}

type DynamoItem struct {
	ID         string `dynamodbav:"id"`
	ProductSKU string `dynamodbav:"product_sku"`
	Quantity   int    `dynamodbav:"quantity"`
	Price      string `dynamodbav:"price"`
}

func NewDynamoOrderStore(client DynamoAPI, tableName string) *DynamoOrderStore {
	return &DynamoOrderStore{
		client:    client,
		tableName: tableName,
	}
}

// Save writes the whole order with a conditional put guarding the version
func (s *DynamoOrderStore) Save(ctx context.Context, o *order.Order) error {
	id := o.ID
	isNew := id == ""
	if isNew {
		id = uuid.New().String()
	}

	snapshot := *o
	snapshot.ID = id
	snapshot.Items = assignItemIDs(id, o.Items)
	snapshot.Version = o.Version + 1
	if isNew {
		snapshot.Version = 1
	}

	av, err := attributevalue.MarshalMap(ToDynamoOrder(&snapshot))
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	}
	if isNew {
		input.ConditionExpression = aws.String("attribute_not_exists(id)")
	} else {
		input.ConditionExpression = aws.String("attribute_exists(id) AND version = :version")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":version": &types.AttributeValueMemberN{Value: strconv.Itoa(o.Version)},
		}
	}

	if _, err := s.client.PutItem(ctx, input); err != nil {
		var condErr *types.ConditionalCheckFailedException
		if !errors.As(err, &condErr) {
			return fmt.Errorf("failed to put order: %w", err)
		}
		if isNew {
			return fmt.Errorf("%w: %s", order.ErrVersionConflict, id)
		}
		exists, existsErr := s.ExistsByID(ctx, id)
		if existsErr != nil {
			return existsErr
		}
		if !exists {
			return fmt.Errorf("%w: %s", order.ErrOrderNotFound, id)
		}
		return fmt.Errorf("%w: %s", order.ErrVersionConflict, id)
	}

	o.ID = snapshot.ID
	o.Items = snapshot.Items
	o.Version = snapshot.Version
	return nil
}

func (s *DynamoOrderStore) FindByID(ctx context.Context, id string) (*order.Order, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            orderKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if result.Item == nil {
		return nil, fmt.Errorf("%w: %s", order.ErrOrderNotFound, id)
	}

	var do DynamoOrder
	if err := attributevalue.UnmarshalMap(result.Item, &do); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order: %w", err)
	}
	return do.ToOrder()
}

// FindAll scans the whole table
func (s *DynamoOrderStore) FindAll(ctx context.Context) ([]*order.Order, error) {
	orders := make([]*order.Order, 0)
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:      aws.String(s.tableName),
		ConsistentRead: aws.Bool(true),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan orders: %w", err)
		}
		for _, item := range page.Items {
			var do DynamoOrder
			if err := attributevalue.UnmarshalMap(item, &do); err != nil {
				return nil, fmt.Errorf("failed to unmarshal order: %w", err)
			}
			o, err := do.ToOrder()
			if err != nil {
				return nil, err
			}
			orders = append(orders, o)
		}
	}
	return orders, nil
}

func (s *DynamoOrderStore) ExistsByID(ctx context.Context, id string) (bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(s.tableName),
		Key:                  orderKey(id),
		ProjectionExpression: aws.String("id"),
		ConsistentRead:       aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("failed to get order: %w", err)
	}
	return result.Item != nil, nil
}

func (s *DynamoOrderStore) DeleteByID(ctx context.Context, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 orderKey(id),
		ConditionExpression: aws.String("attribute_exists(id)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return fmt.Errorf("%w: %s", order.ErrOrderNotFound, id)
		}
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return nil
}

// FindItemByID scans orders for the item; items are not indexed on their own
func (s *DynamoOrderStore) FindItemByID(ctx context.Context, itemID string) (*order.Item, error) {
	items, err := s.FindAllItems(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == itemID {
			return &items[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", order.ErrItemNotFound, itemID)
}

func (s *DynamoOrderStore) FindAllItems(ctx context.Context) ([]order.Item, error) {
	orders, err := s.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]order.Item, 0)
	for _, o := range orders {
		items = append(items, o.Items...)
	}
	return items, nil
}

func orderKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}

// ToDynamoOrder converts an order to its stored shape
func ToDynamoOrder(o *order.Order) DynamoOrder {
	items := make([]DynamoItem, len(o.Items))
	for i, item := range o.Items {
		items[i] = DynamoItem{
			ID:         item.ID,
			ProductSKU: item.ProductSKU,
			Quantity:   item.Quantity,
			Price:      item.Price.String(),
		}
	}
	return DynamoOrder{
		ID:        o.ID,
		ClientID:  o.ClientID,
		Total:     o.Total.String(),
		Status:    string(o.Status),
		Items:     items,
		Version:   o.Version,
		CreatedAt: o.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: o.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// ToOrder converts the stored shape back to an order
func (d DynamoOrder) ToOrder() (*order.Order, error) {
	total, err := decimal.NewFromString(d.Total)
	if err != nil {
		return nil, fmt.Errorf("order %s: invalid total %q: %w", d.ID, d.Total, err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("order %s: invalid created_at: %w", d.ID, err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, d.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("order %s: invalid updated_at: %w", d.ID, err)
	}

	items := make([]order.Item, len(d.Items))
	for i, di := range d.Items {
		price, err := decimal.NewFromString(di.Price)
		if err != nil {
			return nil, fmt.Errorf("order %s item %s: invalid price %q: %w", d.ID, di.ID, di.Price, err)
		}
		items[i] = order.Item{
			ID:         di.ID,
			OrderID:    d.ID,
			ProductSKU: di.ProductSKU,
			Quantity:   di.Quantity,
			Price:      price,
		}
	}

	return &order.Order{
		ID:        d.ID,
		ClientID:  d.ClientID,
		Total:     total,
		Status:    order.Status(d.Status),
		Items:     items,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Version:   d.Version,
	}, nil
}
