package exporters

import (
	"encoding/json"

	"github.com/mrlokans/storyshelf/internal/entities"
	"github.com/mrlokans/storyshelf/internal/library"
)

// JSONOutput writes the whole story, cover included, as indented JSON. The
// result can be imported again.
type JSONOutput struct{}

var _ library.OutputFormat = (*JSONOutput)(nil)

func NewJSONOutput() *JSONOutput {
	return &JSONOutput{}
}

func (o *JSONOutput) Name() string      { return "json" }
func (o *JSONOutput) Extension() string { return ".json" }

func (o *JSONOutput) Process(story *entities.Story, target string) (string, error) {
	data, err := json.MarshalIndent(story, "", "  ")
	if err != nil {
		return "", err
	}
	return writeOutput(story, target, o.Extension(), data)
}
