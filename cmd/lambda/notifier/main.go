package main

import (
	"context"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/example/order-orchestrator/internal/config"
	"github.com/example/order-orchestrator/internal/email"
	"github.com/example/order-orchestrator/internal/infrastructure/gateway"
	"github.com/example/order-orchestrator/internal/infrastructure/kinesis"
	"github.com/example/order-orchestrator/internal/notification"
)

var notificationHandler *notification.Handler

func init() {
	cfg := config.Load()

	emailSvc := email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	clients := gateway.NewClientGateway(cfg.ClientsURL, &http.Client{Timeout: cfg.GatewayTimeout})
	notificationHandler = notification.NewHandler(emailSvc, clients, cfg.Payment.Currency)

	log.Printf("[Lambda Notifier] Initialized successfully (SMTP: %s:%s)", cfg.SMTPHost, cfg.SMTPPort)
}

// handler reads order-table changes forwarded from the DynamoDB stream and
// reports every record it could not process, so only those are retried.
func handler(ctx context.Context, kinesisEvent events.KinesisEvent) (events.KinesisEventResponse, error) {
	log.Printf("[Lambda Notifier] Received %d records", len(kinesisEvent.Records))

	var batchItemFailures []events.KinesisBatchItemFailure
	fail := func(record events.KinesisEventRecord) {
		batchItemFailures = append(batchItemFailures, events.KinesisBatchItemFailure{
			ItemIdentifier: record.Kinesis.SequenceNumber,
		})
	}

	for _, record := range kinesisEvent.Records {
		event, err := kinesis.ConvertFromKinesisRecord(record)
		if err != nil {
			log.Printf("[Lambda Notifier] Failed to convert record %s: %v", record.EventID, err)
			fail(record)
			continue
		}
		if event == nil {
			continue
		}

		log.Printf("[Lambda Notifier] Processing event: %s (type: %s)", event.ID, event.EventType)

		if err := notificationHandler.HandleEvent(ctx, *event); err != nil {
			log.Printf("[Lambda Notifier] Failed to process event %s: %v", event.ID, err)
			fail(record)
		}
	}

	successCount := len(kinesisEvent.Records) - len(batchItemFailures)
	log.Printf("[Lambda Notifier] Processed %d/%d records successfully", successCount, len(kinesisEvent.Records))

	return events.KinesisEventResponse{
		BatchItemFailures: batchItemFailures,
	}, nil
}

func main() {
	lambda.Start(handler)
}
