package importers

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/mrlokans/storyshelf/internal/covers"
	"github.com/mrlokans/storyshelf/internal/entities"
	"github.com/mrlokans/storyshelf/internal/library"
	"github.com/mrlokans/storyshelf/internal/progress"
)

var (
	chapterLine = regexp.MustCompile(`^(?i)chapter\s+(\d+)\s*(?::\s*(.*))?$`)
	headerLine  = regexp.MustCompile(`^([A-Za-z]+):\s*(.*)$`)
)

const sceneBreak = "* * *"

// TextInput reads plain text stories:
//
//	Title
//	Author: Jane Doe
//	Tags: one, two
//
//	Chapter 1: The beginning
//
//	First paragraph,
//	still the first paragraph.
//
//	* * *
//
//	> A quoted paragraph.
//
// The header block after the title is optional. Text before the first
// chapter line ends up in an unnamed first chapter.
type TextInput struct {
	covers *covers.Fetcher
}

var _ library.InputFormat = (*TextInput)(nil)

// NewTextInput creates a TextInput. fetcher may be nil, in which case
// "Cover:" headers are ignored.
func NewTextInput(fetcher *covers.Fetcher) *TextInput {
	return &TextInput{covers: fetcher}
}

func (in *TextInput) Name() string { return "text" }

func (in *TextInput) Supports(url string) bool {
	return hasExtension(url, ".txt") ||
		(isHTTP(url) && !hasExtension(url, ".json") && !hasExtension(url, ".md") && !hasExtension(url, ".markdown"))
}

func (in *TextInput) Process(ctx context.Context, url string, pg *progress.Progress) (*entities.Story, error) {
	defer pg.Done()
	pg.SetMinMax(0, 3)

	data, err := readSource(ctx, url)
	if err != nil {
		return nil, err
	}
	pg.Add(1)

	story, coverURL, err := ParseText(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	pg.Add(1)

	if coverURL != "" && in.covers != nil {
		cover, err := in.covers.Fetch(ctx, coverURL)
		if err != nil {
			return nil, fmt.Errorf("fetch cover of %s: %w", url, err)
		}
		story.Meta.Cover = cover
	}
	pg.Add(1)

	return story, nil
}

// ParseText parses the plain text format. It also returns the value of the
// "Cover:" header, if any.
func ParseText(data []byte) (*entities.Story, string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), " \t\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, "", err
	}

	// Title
	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i == len(lines) {
		return nil, "", errors.New("empty document")
	}
	meta := &entities.MetaData{Title: strings.TrimSpace(lines[i])}
	i++

	// Header block
	var coverURL string
headers:
	for ; i < len(lines); i++ {
		m := headerLine.FindStringSubmatch(lines[i])
		if m == nil {
			break
		}
		value := strings.TrimSpace(m[2])
		switch strings.ToLower(m[1]) {
		case "author":
			meta.Author = value
		case "source":
			meta.Source = value
		case "lang":
			meta.Lang = value
		case "date":
			meta.Date = value
		case "publisher":
			meta.Publisher = value
		case "subject":
			meta.Subject = value
		case "cover":
			coverURL = value
		case "tags":
			for _, tag := range strings.Split(value, ",") {
				if tag = strings.TrimSpace(tag); tag != "" {
					meta.Tags = append(meta.Tags, tag)
				}
			}
		default:
			// Not a header after all
			break headers
		}
	}

	story := &entities.Story{Meta: meta}
	var current *entities.Chapter
	var para []string

	flush := func() {
		if len(para) == 0 {
			return
		}
		text := strings.Join(para, " ")
		para = nil
		if current == nil {
			current = &entities.Chapter{}
			story.AddChapter(current)
		}
		if quoted, ok := strings.CutPrefix(text, "> "); ok {
			current.AddParagraph(entities.NewTextParagraph(entities.ParagraphQuote, quoted))
			return
		}
		current.AddParagraph(entities.NewTextParagraph(entities.ParagraphNormal, text))
	}

	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		switch {
		case line == "":
			flush()
		case line == sceneBreak:
			flush()
			if current == nil {
				current = &entities.Chapter{}
				story.AddChapter(current)
			}
			current.AddParagraph(&entities.Paragraph{Type: entities.ParagraphBreak})
		case chapterLine.MatchString(line):
			flush()
			m := chapterLine.FindStringSubmatch(line)
			current = &entities.Chapter{Name: strings.TrimSpace(m[2])}
			story.AddChapter(current)
		default:
			para = append(para, line)
		}
	}
	flush()

	meta.Words = story.Words()
	return story, coverURL, nil
}
