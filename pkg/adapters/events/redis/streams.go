package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aescanero/kvarea/pkg/ports"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultStream is the stream ChangeSets are relayed to
const DefaultStream = "kvarea:changes"

// Relay outcomes recorded in metrics
const (
	RelayStatusSent    = "sent"
	RelayStatusFailed  = "failed"
	RelayStatusDropped = "dropped"
)

// ErrorKind labels relay failures in the error counter
const ErrorKind = "relay"

// Submitter runs jobs in the background
type Submitter interface {
	Submit(job func(ctx context.Context) error) error
}

// Record is one relayed ChangeSet as stored in the stream
type Record struct {
	ID        string          `json:"id"`
	StreamID  string          `json:"stream_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Changes   ports.ChangeSet `json:"changes"`
}

// StreamsRelay mirrors published ChangeSets to a Redis Stream so other
// processes can follow changes. It is attached to the event bus as an
// ordinary listener.
type StreamsRelay struct {
	client  *redis.Client
	stream  string
	maxLen  int64
	pool    Submitter
	sink    ports.ErrorSink
	metrics ports.MetricsCollector
	logger  *zap.Logger
}

// StreamsConfig holds relay settings
type StreamsConfig struct {
	Stream string
	// MaxLen caps the stream length approximately; 0 means unbounded
	MaxLen int64
}

// NewStreamsRelay creates a new Redis Streams relay
func NewStreamsRelay(
	client *redis.Client,
	cfg StreamsConfig,
	pool Submitter,
	sink ports.ErrorSink,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
) *StreamsRelay {
	if cfg.Stream == "" {
		cfg.Stream = DefaultStream
	}
	if sink == nil {
		sink = ports.ErrorSinkFunc(func(error) {})
	}
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &StreamsRelay{
		client:  client,
		stream:  cfg.Stream,
		maxLen:  cfg.MaxLen,
		pool:    pool,
		sink:    sink,
		metrics: metrics,
		logger:  logger,
	}
}

// Listener returns a bus listener that hands every ChangeSet to the worker
// pool. The ChangeSet is encoded before the listener returns; the Redis write
// happens on a worker. A full queue drops the ChangeSet and reports it.
// Every failure is reported to the sink exactly once.
func (r *StreamsRelay) Listener() ports.Listener {
	return func(changes ports.ChangeSet, _ string) {
		record := newRecord(changes)
		data, err := json.Marshal(record)
		if err != nil {
			r.metrics.RecordRelayed(RelayStatusFailed)
			r.report(fmt.Errorf("failed to marshal change record: %w", err))
			return
		}

		err = r.pool.Submit(func(ctx context.Context) error {
			if err := r.send(ctx, record.ID, data); err != nil {
				r.report(err)
			}
			return nil
		})
		if err != nil {
			r.metrics.RecordRelayed(RelayStatusDropped)
			r.report(fmt.Errorf("change relay dropped record %s: %w", record.ID, err))
		}
	}
}

// Read returns up to count records following the stream entry after
// (exclusive). An empty after reads from the beginning.
func (r *StreamsRelay) Read(ctx context.Context, after string, count int64) ([]Record, error) {
	start, limit := "-", count
	if after != "" {
		// XRANGE is inclusive; fetch one extra entry and skip after itself
		start = after
		limit++
	}

	messages, err := r.client.XRangeN(ctx, r.stream, start, "+", limit).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read stream: %w", err)
	}

	records := make([]Record, 0, len(messages))
	for _, message := range messages {
		if message.ID == after {
			continue
		}

		data, ok := message.Values["data"].(string)
		if !ok {
			r.logger.Warn("invalid message format",
				zap.String("stream", r.stream),
				zap.String("message_id", message.ID))
			continue
		}

		var record Record
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			r.logger.Warn("failed to unmarshal change record",
				zap.String("stream", r.stream),
				zap.String("message_id", message.ID),
				zap.Error(err))
			continue
		}
		record.StreamID = message.ID
		records = append(records, record)
		if int64(len(records)) == count {
			break
		}
	}

	return records, nil
}

// send appends an encoded record to the stream
func (r *StreamsRelay) send(ctx context.Context, id string, data []byte) error {
	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]interface{}{
			"id":   id,
			"data": string(data),
		},
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}

	streamID, err := r.client.XAdd(ctx, args).Result()
	if err != nil {
		r.metrics.RecordRelayed(RelayStatusFailed)
		return fmt.Errorf("failed to add record %s to stream: %w", id, err)
	}

	r.metrics.RecordRelayed(RelayStatusSent)
	r.logger.Debug("change set relayed",
		zap.String("record_id", id),
		zap.String("stream", r.stream),
		zap.String("stream_id", streamID))

	return nil
}

// report counts err and forwards it to the sink
func (r *StreamsRelay) report(err error) {
	r.metrics.IncErrors(ErrorKind)
	r.sink.ReportError(err)
}

func newRecord(changes ports.ChangeSet) Record {
	return Record{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Changes:   changes,
	}
}
