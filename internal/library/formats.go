package library

import (
	"context"

	"github.com/mrlokans/storyshelf/internal/entities"
	"github.com/mrlokans/storyshelf/internal/progress"
)

// InputFormat turns a source (file path or URL) into a Story.
type InputFormat interface {
	// Name identifies the format. It is stored in MetaData.Type so the
	// same format can reread the story later.
	Name() string
	Supports(url string) bool
	Process(ctx context.Context, url string, pg *progress.Progress) (*entities.Story, error)
}

// OutputFormat writes a Story to target and returns the written path.
type OutputFormat interface {
	Name() string
	Extension() string
	Process(story *entities.Story, target string) (string, error)
}
