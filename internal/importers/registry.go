package importers

import (
	"github.com/mrlokans/storyshelf/internal/covers"
	"github.com/mrlokans/storyshelf/internal/library"
)

// Default returns every input format, the storage format first.
func Default(fetcher *covers.Fetcher) []library.InputFormat {
	return []library.InputFormat{
		NewJSONInput(),
		NewMarkdownInput(),
		NewTextInput(fetcher),
	}
}
