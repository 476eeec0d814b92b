package kinesis

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/example/order-orchestrator/internal/domain/order"
	"github.com/shopspring/decimal"
)

// ConvertFromKinesisRecord converts a Kinesis record (DynamoDB Streams format) of the
// orders table to an order event. It returns nil, nil for changes that announce nothing.
func ConvertFromKinesisRecord(record events.KinesisEventRecord) (*order.Event, error) {
	var dynamoDBRecord events.DynamoDBEventRecord
	if err := json.Unmarshal(record.Kinesis.Data, &dynamoDBRecord); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DynamoDB record: %w", err)
	}

	return ConvertFromDynamoDBStreamRecord(dynamoDBRecord)
}

// ConvertFromDynamoDBStreamRecord converts a DynamoDB Stream record to an order event.
//
//	INSERT                    -> OrderCreated
//	MODIFY with a new status  -> OrderPaid, OrderPaymentFailed or OrderUpdated
//	MODIFY with a new version -> OrderUpdated
//	REMOVE                    -> OrderDeleted
func ConvertFromDynamoDBStreamRecord(record events.DynamoDBEventRecord) (*order.Event, error) {
	var (
		eventType string
		image     map[string]events.DynamoDBAttributeValue
	)

	switch record.EventName {
	case "INSERT":
		eventType = order.EventOrderCreated
		image = record.Change.NewImage
	case "MODIFY":
		newSnap, err := convertDynamoDBImage(record.Change.NewImage)
		if err != nil {
			return nil, err
		}
		// Without the old image (KEYS_ONLY/NEW_IMAGE view) every change is reported
		oldSnap, err := convertDynamoDBImage(record.Change.OldImage)
		switch {
		case err != nil:
			eventType = order.EventOrderUpdated
		case oldSnap.Status != newSnap.Status:
			eventType = order.EventForStatus(newSnap.Status)
		case oldSnap.Version != newSnap.Version:
			eventType = order.EventOrderUpdated
		default:
			return nil, nil
		}
		image = record.Change.NewImage
	case "REMOVE":
		eventType = order.EventOrderDeleted
		image = record.Change.OldImage
	default:
		return nil, nil
	}

	snap, err := convertDynamoDBImage(image)
	if err != nil {
		return nil, err
	}

	event := order.NewEvent(eventType, snap.Order(), snap.UpdatedAt)
	if record.EventID != "" {
		// stream ids stay the same across Lambda retries
		event.ID = record.EventID
	}
	if eventType == order.EventOrderDeleted || event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	return &event, nil
}

type orderSnapshot struct {
	ID        string
	ClientID  int64
	Status    order.Status
	Total     decimal.Decimal
	Version   int
	UpdatedAt time.Time
}

func (s orderSnapshot) Order() *order.Order {
	return &order.Order{
		ID:        s.ID,
		ClientID:  s.ClientID,
		Status:    s.Status,
		Total:     s.Total,
		Version:   s.Version,
		UpdatedAt: s.UpdatedAt,
	}
}

// convertDynamoDBImage extracts the order header from DynamoDB attribute values.
func convertDynamoDBImage(image map[string]events.DynamoDBAttributeValue) (*orderSnapshot, error) {
	if image == nil {
		return nil, fmt.Errorf("DynamoDB image is nil")
	}

	snap := &orderSnapshot{}
	var err error

	if snap.ID, err = stringAttr(image, "id"); err != nil {
		return nil, err
	}
	status, err := stringAttr(image, "status")
	if err != nil {
		return nil, err
	}
	snap.Status = order.Status(status)

	if snap.ClientID, err = numberAttr(image, "client_id"); err != nil {
		return nil, err
	}
	version, err := numberAttr(image, "version")
	if err != nil {
		return nil, err
	}
	snap.Version = int(version)

	if total, err := stringAttr(image, "total"); err != nil {
		return nil, err
	} else if total != "" {
		if snap.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("failed to parse total: %w", err)
		}
	}
	if updatedAt, err := stringAttr(image, "updated_at"); err != nil {
		return nil, err
	} else if updatedAt != "" {
		if snap.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}
	}

	if snap.ID == "" || snap.Status == "" {
		return nil, fmt.Errorf("missing required fields: id=%s, status=%s", snap.ID, snap.Status)
	}

	return snap, nil
}

// stringAttr returns "" for a missing attribute. The accessors on
// DynamoDBAttributeValue panic on a type mismatch.
func stringAttr(image map[string]events.DynamoDBAttributeValue, name string) (string, error) {
	v, ok := image[name]
	if !ok || v.IsNull() {
		return "", nil
	}
	if v.DataType() != events.DataTypeString {
		return "", fmt.Errorf("attribute %s: expected string", name)
	}
	return v.String(), nil
}

func numberAttr(image map[string]events.DynamoDBAttributeValue, name string) (int64, error) {
	v, ok := image[name]
	if !ok || v.IsNull() {
		return 0, nil
	}
	if v.DataType() != events.DataTypeNumber {
		return 0, fmt.Errorf("attribute %s: expected number", name)
	}
	n, err := v.Integer()
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return n, nil
}

// BatchConvertFromKinesisEvent converts all records from a Kinesis event to order events.
// Returns successfully converted events and any errors encountered.
func BatchConvertFromKinesisEvent(kinesisEvent events.KinesisEvent) ([]*order.Event, []error) {
	var eventList []*order.Event
	var errs []error

	for _, record := range kinesisEvent.Records {
		event, err := ConvertFromKinesisRecord(record)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %s: %w", record.EventID, err))
			continue
		}
		if event != nil {
			eventList = append(eventList, event)
		}
	}

	return eventList, errs
}
