package importers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mrlokans/storyshelf/internal/entities"
	"github.com/mrlokans/storyshelf/internal/library"
	"github.com/mrlokans/storyshelf/internal/progress"
)

// JSONInput reads stories serialized as JSON, which is also how the local
// library stores them.
type JSONInput struct{}

var _ library.InputFormat = (*JSONInput)(nil)

func NewJSONInput() *JSONInput {
	return &JSONInput{}
}

func (in *JSONInput) Name() string { return "json" }

func (in *JSONInput) Supports(url string) bool {
	return hasExtension(url, ".json")
}

func (in *JSONInput) Process(ctx context.Context, url string, pg *progress.Progress) (*entities.Story, error) {
	defer pg.Done()
	pg.SetMinMax(0, 2)

	data, err := readSource(ctx, url)
	if err != nil {
		return nil, err
	}
	pg.Add(1)

	story, err := ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	pg.Add(1)

	return story, nil
}

// ParseJSON decodes a story and renumbers its chapters.
func ParseJSON(data []byte) (*entities.Story, error) {
	var story entities.Story
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&story); err != nil {
		return nil, err
	}
	if story.Meta == nil {
		return nil, errors.New("story has no metadata")
	}
	story.Renumber()
	return &story, nil
}
