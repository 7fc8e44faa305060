package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"go.uber.org/zap"

	"github.com/mrlokans/storyshelf/internal/entities"
	"github.com/mrlokans/storyshelf/internal/progress"
)

// StoryImporter is the part of a library an import task needs.
type StoryImporter interface {
	Import(ctx context.Context, url, luid string, pg *progress.Progress) (*entities.MetaData, error)
}

// ImportStoryTask imports the story at URL, under LUID when it is set.
type ImportStoryTask struct {
	URL  string `json:"url"`
	LUID string `json:"luid,omitempty"`
}

const importQueueName = "import_story"

// Config returns the default queue configuration for import tasks. The
// registered queue uses the client's settings instead, see
// NewImportStoryQueue.
func (t ImportStoryTask) Config() backlite.QueueConfig {
	return DefaultConfig().queueConfig(importQueueName)
}

// ImportStoryProcessor creates a processor function for ImportStoryTask.
func ImportStoryProcessor(importer StoryImporter, logger *zap.Logger) backlite.QueueProcessor[ImportStoryTask] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, task ImportStoryTask) error {
		if importer == nil {
			return fmt.Errorf("importer not configured")
		}

		start := time.Now()
		meta, err := importer.Import(ctx, task.URL, task.LUID, nil)
		if err != nil {
			return fmt.Errorf("import %s: %w", task.URL, err)
		}

		logger.Info("story imported",
			zap.String("url", task.URL),
			zap.String("luid", meta.LUID),
			zap.String("title", meta.Title),
			zap.Duration("took", time.Since(start)))
		return nil
	}
}

// NewImportStoryQueue creates a backlite queue for import tasks with the
// retry policy of cfg.
func NewImportStoryQueue(importer StoryImporter, cfg Config, logger *zap.Logger) backlite.Queue {
	return &configuredQueue{
		Queue: backlite.NewQueue(ImportStoryProcessor(importer, logger)),
		cfg:   cfg.queueConfig(importQueueName),
	}
}

// EnqueueImport schedules the import of url and returns the task ID.
func (c *Client) EnqueueImport(url, luid string) (string, error) {
	ids, err := c.Add(ImportStoryTask{URL: url, LUID: luid}).Save()
	if err != nil {
		return "", fmt.Errorf("enqueue import of %s: %w", url, err)
	}
	return ids[0], nil
}
