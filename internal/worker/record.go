package worker

import (
	"context"
	"errors"
	"time"

	"github.com/ajayykmr/sms-dispatch-service/internal/kafka/consumer"
)

// Record is a queue message handed to the engine, decoupled from the concrete
// consumer.
type Record struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
	Headers   map[string][]byte

	commit func(context.Context) error
}

// NewRecordFromConsumer copies rec and binds commit as its acknowledgement.
func NewRecordFromConsumer(rec *consumer.Record, commit func(context.Context) error) *Record {
	if rec == nil {
		return nil
	}
	return &Record{
		Topic:     rec.Topic,
		Partition: rec.Partition,
		Offset:    rec.Offset,
		Key:       cloneBytes(rec.Key),
		Value:     cloneBytes(rec.Value),
		Timestamp: rec.Timestamp,
		Headers:   cloneHeaders(rec.Headers),
		commit:    commit,
	}
}

// CommitFunc is a Committer that invokes the commit function bound to each
// record.
type CommitFunc struct{}

func (CommitFunc) Commit(ctx context.Context, record *Record) error {
	if record == nil || record.commit == nil {
		return errors.New("worker: record has no commit function")
	}
	return record.commit(ctx)
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	clone := make([]byte, len(b))
	copy(clone, b)
	return clone
}

func cloneHeaders(headers map[string][]byte) map[string][]byte {
	if len(headers) == 0 {
		return nil
	}
	clone := make(map[string][]byte, len(headers))
	for k, v := range headers {
		clone[k] = cloneBytes(v)
	}
	return clone
}
