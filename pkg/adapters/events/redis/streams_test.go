package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aescanero/kvarea/pkg/adapters/errorsink"
	"github.com/aescanero/kvarea/pkg/ports"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inlineSubmitter runs jobs on the caller's goroutine
type inlineSubmitter struct{}

func (inlineSubmitter) Submit(job func(ctx context.Context) error) error {
	_ = job(context.Background())
	return nil
}

type fullSubmitter struct{}

func (fullSubmitter) Submit(func(ctx context.Context) error) error {
	return errors.New("queue full")
}

func newTestClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestStreamsRelay_ListenerWritesRecords(t *testing.T) {
	client, _ := newTestClient(t)
	sink := errorsink.NewRecorder()
	relay := NewStreamsRelay(client, StreamsConfig{}, inlineSubmitter{}, sink, nil, nil)

	listener := relay.Listener()
	listener(ports.ChangeSet{"x": {NewValue: float64(10)}}, ports.AreaUnspecified)
	listener(ports.ChangeSet{"x": {OldValue: float64(10)}}, ports.AreaUnspecified)

	records, err := relay.Read(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, ports.ChangeSet{"x": {NewValue: float64(10)}}, records[0].Changes)
	assert.Equal(t, ports.ChangeSet{"x": {OldValue: float64(10)}}, records[1].Changes)
	assert.NotEmpty(t, records[0].ID)
	assert.NotEqual(t, records[0].ID, records[1].ID)

	rest, err := relay.Read(context.Background(), records[0].StreamID, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, records[1].ID, rest[0].ID)

	assert.Zero(t, sink.Len())
}

func TestStreamsRelay_DroppedWhenQueueFull(t *testing.T) {
	client, _ := newTestClient(t)
	sink := errorsink.NewRecorder()
	relay := NewStreamsRelay(client, StreamsConfig{}, fullSubmitter{}, sink, nil, nil)

	relay.Listener()(ports.ChangeSet{"a": {}}, ports.AreaUnspecified)

	assert.Equal(t, 1, sink.Len())
	records, err := relay.Read(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStreamsRelay_MaxLenStream(t *testing.T) {
	client, mr := newTestClient(t)
	relay := NewStreamsRelay(client, StreamsConfig{Stream: "test:changes", MaxLen: 100}, inlineSubmitter{}, nil, nil, nil)

	relay.Listener()(ports.ChangeSet{"k": {NewValue: "v"}}, ports.AreaUnspecified)

	assert.True(t, mr.Exists("test:changes"))
	records, err := relay.Read(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.NotEmpty(t, records[0].StreamID)
}

type jobResults struct {
	errs []error
}

func (j *jobResults) Submit(job func(ctx context.Context) error) error {
	j.errs = append(j.errs, job(context.Background()))
	return nil
}

type errorCounter struct {
	ports.NoopMetrics
	kinds []string
}

func (e *errorCounter) IncErrors(kind string) {
	e.kinds = append(e.kinds, kind)
}

func TestStreamsRelay_SendFailureReportedOnce(t *testing.T) {
	client, mr := newTestClient(t)
	sink := errorsink.NewRecorder()
	metrics := &errorCounter{}
	jobs := &jobResults{}
	relay := NewStreamsRelay(client, StreamsConfig{}, jobs, sink, metrics, nil)
	mr.Close()

	relay.Listener()(ports.ChangeSet{"a": {}}, ports.AreaUnspecified)

	assert.Equal(t, 1, sink.Len())
	assert.Equal(t, []string{ErrorKind}, metrics.kinds)
	require.Len(t, jobs.errs, 1)
	assert.NoError(t, jobs.errs[0], "the worker must not report the failure again")
}

func TestStreamsRelay_DroppedCounted(t *testing.T) {
	client, _ := newTestClient(t)
	metrics := &errorCounter{}
	relay := NewStreamsRelay(client, StreamsConfig{}, fullSubmitter{}, nil, metrics, nil)

	relay.Listener()(ports.ChangeSet{"a": {}}, ports.AreaUnspecified)

	assert.Equal(t, []string{ErrorKind}, metrics.kinds)
}
