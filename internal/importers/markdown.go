package importers

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mrlokans/storyshelf/internal/entities"
	"github.com/mrlokans/storyshelf/internal/library"
	"github.com/mrlokans/storyshelf/internal/parsers"
	"github.com/mrlokans/storyshelf/internal/progress"
)

// MarkdownInput reads the files written by the markdown exporter, and
// plain "# Title" documents with "## Chapter N" sections.
type MarkdownInput struct{}

var _ library.InputFormat = (*MarkdownInput)(nil)

func NewMarkdownInput() *MarkdownInput {
	return &MarkdownInput{}
}

func (in *MarkdownInput) Name() string { return "markdown" }

func (in *MarkdownInput) Supports(url string) bool {
	return hasExtension(url, ".md") || hasExtension(url, ".markdown")
}

func (in *MarkdownInput) Process(ctx context.Context, url string, pg *progress.Progress) (*entities.Story, error) {
	defer pg.Done()
	pg.SetMinMax(0, 2)

	data, err := readSource(ctx, url)
	if err != nil {
		return nil, err
	}
	pg.Add(1)

	story, err := parsers.ParseMarkdown(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	pg.Add(1)

	return story, nil
}
