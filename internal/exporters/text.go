package exporters

import (
	"fmt"
	"strings"

	"github.com/mrlokans/storyshelf/internal/entities"
	"github.com/mrlokans/storyshelf/internal/library"
)

// TextOutput writes the plain text format read by importers.TextInput.
// Images are replaced by a placeholder.
type TextOutput struct{}

var _ library.OutputFormat = (*TextOutput)(nil)

func NewTextOutput() *TextOutput {
	return &TextOutput{}
}

func (o *TextOutput) Name() string      { return "text" }
func (o *TextOutput) Extension() string { return ".txt" }

func (o *TextOutput) Process(story *entities.Story, target string) (string, error) {
	return writeOutput(story, target, o.Extension(), []byte(GenerateText(story)))
}

func GenerateText(story *entities.Story) string {
	var builder strings.Builder
	meta := story.Meta

	fmt.Fprintf(&builder, "%s\n", meta.Title)
	header := func(key, value string) {
		if value != "" {
			fmt.Fprintf(&builder, "%s: %s\n", key, value)
		}
	}
	header("Author", meta.Author)
	header("Source", meta.Source)
	header("Lang", meta.Lang)
	header("Date", meta.Date)
	header("Publisher", meta.Publisher)
	header("Subject", meta.Subject)
	header("Tags", strings.Join(meta.Tags, ", "))
	builder.WriteString("\n")

	for _, chap := range story.Chapters {
		if chap.Name != "" {
			fmt.Fprintf(&builder, "Chapter %d: %s\n\n", chap.Number, chap.Name)
		} else {
			fmt.Fprintf(&builder, "Chapter %d\n\n", chap.Number)
		}
		for _, para := range chap.Paragraphs {
			switch para.Type {
			case entities.ParagraphQuote:
				fmt.Fprintf(&builder, "> %s\n\n", para.Content)
			case entities.ParagraphBreak:
				builder.WriteString("* * *\n\n")
			case entities.ParagraphBlank:
			case entities.ParagraphImage:
				builder.WriteString("[image]\n\n")
			default:
				fmt.Fprintf(&builder, "%s\n\n", para.Content)
			}
		}
	}

	return builder.String()
}
