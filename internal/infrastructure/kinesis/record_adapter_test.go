package kinesis

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/material-stock/internal/domain/ledger"
	"github.com/example/material-stock/internal/message"
)

func recordOf(t *testing.T, seq string, msg message.Message) events.KinesisEventRecord {
	t.Helper()
	data, err := message.Encode(msg)
	require.NoError(t, err)
	return events.KinesisEventRecord{
		EventID: "shard-0:" + seq,
		Kinesis: events.KinesisRecord{Data: data, SequenceNumber: seq},
	}
}

func rawRecord(seq string, data string) events.KinesisEventRecord {
	return events.KinesisEventRecord{
		EventID: "shard-0:" + seq,
		Kinesis: events.KinesisRecord{Data: []byte(data), SequenceNumber: seq},
	}
}

type routerFunc func(ctx context.Context, env *message.Envelope) error

func (f routerFunc) Route(ctx context.Context, env *message.Envelope) error { return f(ctx, env) }

func TestDecodeRecord(t *testing.T) {
	tests := []struct {
		name     string
		record   func(t *testing.T) events.KinesisEventRecord
		wantType string
		wantErr  bool
	}{
		{
			name: "recalculate envelope",
			record: func(t *testing.T) events.KinesisEventRecord {
				return recordOf(t, "1", message.Recalculate{SKU: ledger.SKU{Material: "M"}})
			},
			wantType: message.TypeRecalculate,
		},
		{
			name:    "invalid json",
			record:  func(*testing.T) events.KinesisEventRecord { return rawRecord("2", "not json") },
			wantErr: true,
		},
		{
			name:    "missing type",
			record:  func(*testing.T) events.KinesisEventRecord { return rawRecord("3", `{"id":"x"}`) },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := DecodeRecord(tt.record(t))
			if tt.wantErr {
				assert.ErrorIs(t, err, message.ErrMalformedEnvelope)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, env.Type)
		})
	}
}

func TestProcess_ReportsOnlyRetryableFailures(t *testing.T) {
	evt := events.KinesisEvent{Records: []events.KinesisEventRecord{
		recordOf(t, "1", message.Recalculate{SKU: ledger.SKU{Material: "ok"}}),
		recordOf(t, "2", message.Recalculate{SKU: ledger.SKU{Material: "transient"}}),
		recordOf(t, "3", message.Recalculate{SKU: ledger.SKU{Material: "fatal"}}),
		rawRecord("4", "garbage"),
	}}

	router := routerFunc(func(_ context.Context, env *message.Envelope) error {
		var msg message.Recalculate
		require.NoError(t, env.Unmarshal(&msg))
		switch msg.Material {
		case "transient":
			return errors.New("db timeout")
		case "fatal":
			return message.Fatal(errors.New("bad payload"))
		}
		return nil
	})

	var failed []string
	resp := Process(context.Background(), router, evt, func(r events.KinesisEventRecord, _ error) {
		failed = append(failed, r.Kinesis.SequenceNumber)
	})

	require.Len(t, resp.BatchItemFailures, 1)
	assert.Equal(t, "2", resp.BatchItemFailures[0].ItemIdentifier)
	assert.Equal(t, []string{"2", "3", "4"}, failed)
}
