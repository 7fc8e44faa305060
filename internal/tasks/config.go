package tasks

import (
	"time"

	"github.com/mikestefanello/backlite"
)

// Config holds the worker pool settings and the retry policy applied to
// every queue registered through this package.
type Config struct {
	Workers      int
	ReleaseAfter time.Duration // stuck tasks go back to the queue after this

	MaxRetries  int           // attempts of a task, the first one included
	RetryDelay  time.Duration // backoff between attempts
	TaskTimeout time.Duration // bound of a single attempt

	CleanupInterval   time.Duration
	RetentionDuration time.Duration // how long finished tasks are kept
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Workers:           2,
		ReleaseAfter:      15 * time.Minute,
		MaxRetries:        3,
		RetryDelay:        time.Minute,
		TaskTimeout:       10 * time.Minute,
		CleanupInterval:   time.Hour,
		RetentionDuration: 24 * time.Hour,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.ReleaseAfter <= 0 {
		c.ReleaseAfter = def.ReleaseAfter
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = def.RetryDelay
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = def.TaskTimeout
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = def.CleanupInterval
	}
	if c.RetentionDuration <= 0 {
		c.RetentionDuration = def.RetentionDuration
	}
	return c
}

// queueConfig is the backlite configuration of the queue called name.
// Failed tasks keep their payload so a broken import URL can be looked up.
func (c Config) queueConfig(name string) backlite.QueueConfig {
	c = c.withDefaults()
	return backlite.QueueConfig{
		Name:        name,
		MaxAttempts: c.MaxRetries,
		Backoff:     c.RetryDelay,
		Timeout:     c.TaskTimeout,
		Retention: &backlite.Retention{
			Duration: c.RetentionDuration,
			Data:     &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// configuredQueue overrides the static configuration backlite reads from
// the task type.
type configuredQueue struct {
	backlite.Queue
	cfg backlite.QueueConfig
}

func (q *configuredQueue) Config() *backlite.QueueConfig {
	return &q.cfg
}
