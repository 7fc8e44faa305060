package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mrlokans/storyshelf/internal/entities"
	"github.com/mrlokans/storyshelf/internal/progress"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(filepath.Join(t.TempDir(), "tasks.db"), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNewClient(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "tasks.db")

	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(dbPath, cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, client)

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "tasks database should be created")

	err = client.Close()
	assert.NoError(t, err)
}

func TestClientStartStop(t *testing.T) {
	client := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go client.Start(ctx)

	// Give it time to start
	time.Sleep(50 * time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()

	success := client.Stop(stopCtx)
	assert.True(t, success, "stop should succeed gracefully")
}

// fakeImporter records the imports it was asked for.
type fakeImporter struct {
	mu    sync.Mutex
	calls []ImportStoryTask
	done  chan struct{}
	err   error
}

func (f *fakeImporter) Import(ctx context.Context, url, luid string, pg *progress.Progress) (*entities.MetaData, error) {
	defer pg.Done()
	f.mu.Lock()
	f.calls = append(f.calls, ImportStoryTask{URL: url, LUID: luid})
	f.mu.Unlock()
	defer close(f.done)
	if f.err != nil {
		return nil, f.err
	}
	return &entities.MetaData{LUID: "0001", Title: "Imported"}, nil
}

func TestImportStoryQueue(t *testing.T) {
	client := newTestClient(t)

	importer := &fakeImporter{done: make(chan struct{})}
	client.Register(NewImportStoryQueue(importer, DefaultConfig(), zap.NewNop()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	id, err := client.EnqueueImport("https://example.org/story.txt", "0007")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	select {
	case <-importer.done:
	case <-time.After(5 * time.Second):
		t.Fatal("task was not executed within timeout")
	}

	importer.mu.Lock()
	defer importer.mu.Unlock()
	assert.Equal(t, []ImportStoryTask{{URL: "https://example.org/story.txt", LUID: "0007"}}, importer.calls)
}

func TestImportStoryProcessor(t *testing.T) {
	ctx := context.Background()

	t.Run("wraps import errors", func(t *testing.T) {
		boom := errors.New("unreachable")
		process := ImportStoryProcessor(&fakeImporter{done: make(chan struct{}), err: boom}, nil)

		err := process(ctx, ImportStoryTask{URL: "x.txt"})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("needs an importer", func(t *testing.T) {
		process := ImportStoryProcessor(nil, nil)
		assert.Error(t, process(ctx, ImportStoryTask{URL: "x.txt"}))
	})
}

// TestTask is a simple task for testing
type TestTask struct {
	Value string `json:"value"`
}

func (t TestTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "test_task",
		MaxAttempts: 1,
		Backoff:     time.Second,
		Timeout:     5 * time.Second,
	}
}

func TestTaskEnqueue(t *testing.T) {
	client := newTestClient(t)

	executed := make(chan string, 1)
	queue := backlite.NewQueue(func(ctx context.Context, task TestTask) error {
		executed <- task.Value
		return nil
	})
	client.Register(queue)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	ids, err := client.Add(TestTask{Value: "hello"}).Save()
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	select {
	case val := <-executed:
		assert.Equal(t, "hello", val)
	case <-time.After(5 * time.Second):
		t.Fatal("task was not executed within timeout")
	}
}

func TestImportStoryTaskConfig(t *testing.T) {
	cfg := ImportStoryTask{URL: "a.txt"}.Config()

	assert.Equal(t, "import_story", cfg.Name)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, time.Minute, cfg.Backoff)
	assert.Equal(t, 10*time.Minute, cfg.Timeout)
	assert.NotNil(t, cfg.Retention)
}

func TestImportStoryQueueUsesConfig(t *testing.T) {
	cfg := Config{MaxRetries: 7, RetryDelay: 5 * time.Second, TaskTimeout: time.Minute}

	queue := NewImportStoryQueue(&fakeImporter{}, cfg, nil)
	qc := queue.Config()

	assert.Equal(t, "import_story", qc.Name)
	assert.Equal(t, 7, qc.MaxAttempts)
	assert.Equal(t, 5*time.Second, qc.Backoff)
	assert.Equal(t, time.Minute, qc.Timeout)
	require.NotNil(t, qc.Retention)
	assert.Equal(t, 24*time.Hour, qc.Retention.Duration, "zero fields fall back to defaults")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Minute, cfg.RetryDelay)
	assert.Equal(t, 10*time.Minute, cfg.TaskTimeout)
	assert.Equal(t, 15*time.Minute, cfg.ReleaseAfter)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
	assert.Equal(t, 24*time.Hour, cfg.RetentionDuration)
}
