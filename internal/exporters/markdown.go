package exporters

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/mrlokans/storyshelf/internal/entities"
	"github.com/mrlokans/storyshelf/internal/library"
)

type MarkdownOutput struct{}

var _ library.OutputFormat = (*MarkdownOutput)(nil)

func NewMarkdownOutput() *MarkdownOutput {
	return &MarkdownOutput{}
}

func (o *MarkdownOutput) Name() string      { return "markdown" }
func (o *MarkdownOutput) Extension() string { return ".md" }

func (o *MarkdownOutput) Process(story *entities.Story, target string) (string, error) {
	return writeOutput(story, target, o.Extension(), []byte(GenerateMarkdown(story)))
}

func GenerateMarkdown(story *entities.Story) string {
	var builder strings.Builder
	meta := story.Meta

	source := "unknown"
	if meta.Source != "" {
		source = meta.Source
	}

	fmt.Fprintf(&builder, "---\n")
	fmt.Fprintf(&builder, "luid: \"%s\"\n", meta.LUID)
	fmt.Fprintf(&builder, "title: \"%s\"\n", escapeQuotes(meta.Title))
	fmt.Fprintf(&builder, "author: \"%s\"\n", escapeQuotes(meta.Author))
	fmt.Fprintf(&builder, "content_source: %s\n", source)
	fmt.Fprintf(&builder, "content_type: story\n")
	if meta.Lang != "" {
		fmt.Fprintf(&builder, "lang: %s\n", meta.Lang)
	}
	if meta.Date != "" {
		fmt.Fprintf(&builder, "published: %s\n", meta.Date)
	}
	if meta.URL != "" {
		fmt.Fprintf(&builder, "url: %s\n", meta.URL)
	}
	fmt.Fprintf(&builder, "words: %d\n", meta.Words)
	fmt.Fprintf(&builder, "exported_at: %s\n", time.Now().Format("2006-01-02"))
	fmt.Fprintf(&builder, "tags: [%s]\n", strings.Join(meta.Tags, ", "))
	fmt.Fprintf(&builder, "---\n\n")
	fmt.Fprintf(&builder, "# %s\n\n", meta.Title)

	if meta.Resume != nil && len(meta.Resume.Paragraphs) > 0 {
		fmt.Fprintf(&builder, "## Summary\n\n")
		writeParagraphs(&builder, meta.Resume.Paragraphs)
	}

	for _, chap := range story.Chapters {
		if chap.Name != "" {
			fmt.Fprintf(&builder, "## Chapter %d: %s\n\n", chap.Number, chap.Name)
		} else {
			fmt.Fprintf(&builder, "## Chapter %d\n\n", chap.Number)
		}
		writeParagraphs(&builder, chap.Paragraphs)
	}

	return builder.String()
}

func writeParagraphs(builder *strings.Builder, paragraphs []*entities.Paragraph) {
	for _, para := range paragraphs {
		switch para.Type {
		case entities.ParagraphQuote:
			fmt.Fprintf(builder, "> %s\n\n", strings.ReplaceAll(para.Content, "\n", "\n> "))
		case entities.ParagraphBreak:
			fmt.Fprintf(builder, "* * *\n\n")
		case entities.ParagraphBlank:
			fmt.Fprintf(builder, "&nbsp;\n\n")
		case entities.ParagraphImage:
			if para.ContentImage != nil {
				fmt.Fprintf(builder, "![image](data:%s;base64,%s)\n\n",
					para.ContentImage.ContentType(),
					base64.StdEncoding.EncodeToString(para.ContentImage.Data))
			}
		default:
			fmt.Fprintf(builder, "%s\n\n", para.Content)
		}
	}
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, "\"", "\\\"")
}
