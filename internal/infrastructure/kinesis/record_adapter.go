package kinesis

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"github.com/example/material-stock/internal/message"
)

// DecodeRecord reads the message envelope carried in a Kinesis record's data.
func DecodeRecord(record events.KinesisEventRecord) (*message.Envelope, error) {
	env, err := message.Decode(record.Kinesis.Data)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", record.EventID, err)
	}
	return env, nil
}

type Router interface {
	Route(ctx context.Context, env *message.Envelope) error
}

// Process routes each record and reports the records the Lambda runtime
// should retry. Undecodable records and fatal handler errors are passed to
// onError and not retried.
func Process(ctx context.Context, router Router, kinesisEvent events.KinesisEvent, onError func(events.KinesisEventRecord, error)) events.KinesisEventResponse {
	var resp events.KinesisEventResponse
	for _, record := range kinesisEvent.Records {
		env, err := DecodeRecord(record)
		if err == nil {
			err = router.Route(ctx, env)
		}
		if err == nil {
			continue
		}
		if onError != nil {
			onError(record, err)
		}
		if env == nil || message.IsFatal(err) {
			continue
		}
		resp.BatchItemFailures = append(resp.BatchItemFailures, events.KinesisBatchItemFailure{
			ItemIdentifier: record.Kinesis.SequenceNumber,
		})
	}
	return resp
}
