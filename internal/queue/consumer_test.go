package queue

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_ingest/internal/domain"
	"news_ingest/internal/job"
)

type recordedDelivery struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (d *recordedDelivery) Ack(bool) error {
	d.acked = true
	return nil
}

func (d *recordedDelivery) Nack(_, requeue bool) error {
	d.nacked = true
	d.requeue = requeue
	return nil
}

type handlerFunc func(ctx context.Context, j job.Job) job.Outcome

func (f handlerFunc) Run(ctx context.Context, j job.Job) job.Outcome {
	return f(ctx, j)
}

func newTestBroker() *RabbitMQ {
	return &RabbitMQ{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func encodedJob(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(job.Job{
		SessionID:   "session-1",
		Provider:    domain.ProviderNYTimes,
		BatchNumber: 4,
		Items:       []domain.NewsItem{{UniqueID: "nytimes_1", Title: "A", SourceURL: "http://x/1", Provider: domain.ProviderNYTimes}},
	})
	require.NoError(t, err)
	return body
}

func TestQueueName(t *testing.T) {
	assert.Equal(t, "sync_newsapi", QueueName("sync_", domain.ProviderNewsAPI))
	assert.Equal(t, "sync_guardian", QueueName("sync_", domain.ProviderGuardian))
}

func TestHandle_AcksFinishedJobs(t *testing.T) {
	for _, state := range []domain.SyncState{domain.SyncCompleted, domain.SyncFailedPermanently} {
		var got job.Job
		d := &recordedDelivery{}

		newTestBroker().handle(context.Background(), encodedJob(t), d, handlerFunc(func(_ context.Context, j job.Job) job.Outcome {
			got = j
			return job.Outcome{State: state}
		}))

		assert.True(t, d.acked, state)
		assert.False(t, d.nacked, state)
		assert.Equal(t, "session-1", got.SessionID)
		assert.Equal(t, 4, got.BatchNumber)
		require.Len(t, got.Items, 1)
		assert.Equal(t, "nytimes_1", got.Items[0].UniqueID)
	}
}

func TestHandle_RequeuesInterruptedJobs(t *testing.T) {
	d := &recordedDelivery{}

	newTestBroker().handle(context.Background(), encodedJob(t), d, handlerFunc(func(context.Context, job.Job) job.Outcome {
		return job.Outcome{State: domain.SyncFailed, Err: context.Canceled}
	}))

	assert.False(t, d.acked)
	assert.True(t, d.nacked)
	assert.True(t, d.requeue)
}

func TestHandle_DropsUndecodableMessages(t *testing.T) {
	d := &recordedDelivery{}
	called := false

	newTestBroker().handle(context.Background(), []byte("not json"), d, handlerFunc(func(context.Context, job.Job) job.Outcome {
		called = true
		return job.Outcome{}
	}))

	assert.False(t, called)
	assert.True(t, d.nacked)
	assert.False(t, d.requeue)
}
