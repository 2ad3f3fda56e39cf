package worker

import (
	"context"

	"github.com/ajayykmr/sms-dispatch-service/internal/kafka/consumer"
)

// Acker acknowledges a consumed record. *consumer.Consumer satisfies it.
type Acker interface {
	Commit(ctx context.Context, rec *consumer.Record) error
}

// KafkaHandler feeds consumed records into the engine. Each record is
// acknowledged through acks once the engine is done with it; a nil acks turns
// acknowledgement into a no-op.
//
// The handler never returns an error: failures are reported on the response
// topic, and returning an error would stop the consumer group session.
func KafkaHandler(engine *Engine, acks Acker) consumer.Handler {
	return func(ctx context.Context, rec *consumer.Record) error {
		if engine == nil || rec == nil {
			return nil
		}
		engine.HandleRecord(ctx, NewRecordFromConsumer(rec, bindAck(acks, rec)))
		return nil
	}
}

func bindAck(acks Acker, rec *consumer.Record) func(context.Context) error {
	if acks == nil {
		return func(context.Context) error { return nil }
	}
	return func(ctx context.Context) error { return acks.Commit(ctx, rec) }
}
