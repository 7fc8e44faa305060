// Package parsers reads stories back from the markdown files the markdown
// exporter writes.
package parsers

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/mrlokans/storyshelf/internal/entities"
)

var (
	chapterHeader = regexp.MustCompile(`^## Chapter \d+(?::\s*(.*))?$`)
	imageLine     = regexp.MustCompile(`^!\[[^\]]*\]\(data:[^,]*;base64,([A-Za-z0-9+/=]+)\)$`)
)

const (
	summaryHeader = "## Summary"
	sceneBreak    = "* * *"
	blankLine     = "&nbsp;"
)

// ParseMarkdownFile reads a single markdown file and converts it to a Story
func ParseMarkdownFile(filePath string) (*entities.Story, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	return ParseMarkdown(file)
}

// ParseMarkdown reads a story with YAML front matter, or with a "# Title"
// and "## Author: Name" header, followed by "## Chapter N: Name" sections.
func ParseMarkdown(r io.Reader) (*entities.Story, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), " \t\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	meta := &entities.MetaData{}
	rest, err := parseFrontmatter(lines, meta)
	if err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	story := &entities.Story{Meta: meta}
	if err := parseBody(rest, story); err != nil {
		return nil, err
	}
	meta.Words = story.Words()
	return story, nil
}

// parseFrontmatter fills meta and returns the lines after the header.
func parseFrontmatter(lines []string, meta *entities.MetaData) ([]string, error) {
	i := 0
	for i < len(lines) && lines[i] == "" {
		i++
	}
	if i == len(lines) {
		return nil, fmt.Errorf("empty file")
	}

	switch {
	case lines[i] == "---":
		return parseYAMLFrontmatter(lines[i+1:], meta)
	case strings.HasPrefix(lines[i], "# "):
		return parseMarkdownHeader(lines[i:], meta)
	}
	return nil, fmt.Errorf("unsupported frontmatter format: expected YAML frontmatter (---) or markdown header (#)")
}

func parseYAMLFrontmatter(lines []string, meta *entities.MetaData) ([]string, error) {
	end := -1
	for i, line := range lines {
		if line == "---" {
			end = i
			break
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = unquote(strings.TrimSpace(value))

		switch key {
		case "title":
			meta.Title = value
		case "author":
			meta.Author = value
		case "content_source", "source":
			if value != "unknown" {
				meta.Source = value
			}
		case "lang":
			meta.Lang = value
		case "published", "date":
			meta.Date = value
		case "url":
			meta.URL = value
		case "tags":
			meta.Tags = parseTags(value)
		}
	}
	if end < 0 {
		return nil, fmt.Errorf("unterminated frontmatter")
	}
	if meta.Title == "" {
		return nil, fmt.Errorf("missing required field: title")
	}

	rest := lines[end+1:]
	// The title heading repeats the front matter
	for i, line := range rest {
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "# ") {
			return rest[i+1:], nil
		}
		break
	}
	return rest, nil
}

func parseMarkdownHeader(lines []string, meta *entities.MetaData) ([]string, error) {
	meta.Title = strings.TrimSpace(strings.TrimPrefix(lines[0], "# "))
	if meta.Title == "" {
		return nil, fmt.Errorf("missing required field: title")
	}

	i := 1
	for ; i < len(lines); i++ {
		line := lines[i]
		if line == "" || line == "---" {
			continue
		}
		if author, ok := strings.CutPrefix(line, "## Author: "); ok {
			meta.Author = strings.TrimSpace(author)
			i++
		}
		break
	}
	return lines[i:], nil
}

func parseBody(lines []string, story *entities.Story) error {
	var current *entities.Chapter
	var para []string

	chapter := func() *entities.Chapter {
		if current == nil {
			current = &entities.Chapter{}
			story.AddChapter(current)
		}
		return current
	}

	flush := func() error {
		if len(para) == 0 {
			return nil
		}
		p, err := paragraph(para)
		para = nil
		if err != nil {
			return err
		}
		chapter().AddParagraph(p)
		return nil
	}

	for _, line := range lines {
		switch {
		case line == "":
			if err := flush(); err != nil {
				return err
			}
		case line == summaryHeader:
			if err := flush(); err != nil {
				return err
			}
			current = &entities.Chapter{}
			story.Meta.Resume = current
		case chapterHeader.MatchString(line):
			if err := flush(); err != nil {
				return err
			}
			m := chapterHeader.FindStringSubmatch(line)
			current = &entities.Chapter{Name: strings.TrimSpace(m[1])}
			story.AddChapter(current)
		default:
			para = append(para, line)
		}
	}
	return flush()
}

func paragraph(lines []string) (*entities.Paragraph, error) {
	if len(lines) == 1 {
		switch line := lines[0]; {
		case line == sceneBreak:
			return &entities.Paragraph{Type: entities.ParagraphBreak}, nil
		case line == blankLine:
			return &entities.Paragraph{Type: entities.ParagraphBlank}, nil
		case imageLine.MatchString(line):
			data, err := base64.StdEncoding.DecodeString(imageLine.FindStringSubmatch(line)[1])
			if err != nil {
				return nil, fmt.Errorf("bad inline image: %w", err)
			}
			return entities.NewImageParagraph(entities.NewImage(data)), nil
		}
	}

	quoted := make([]string, 0, len(lines))
	for _, line := range lines {
		text, ok := strings.CutPrefix(line, "> ")
		if !ok && line != ">" {
			return entities.NewTextParagraph(entities.ParagraphNormal, strings.Join(lines, "\n")), nil
		}
		quoted = append(quoted, text)
	}
	return entities.NewTextParagraph(entities.ParagraphQuote, strings.Join(quoted, "\n")), nil
}

func unquote(value string) string {
	if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		if s, err := strconv.Unquote(value); err == nil {
			return s
		}
		return strings.ReplaceAll(value[1:len(value)-1], `\"`, `"`)
	}
	return value
}

func parseTags(value string) []string {
	value = strings.TrimSuffix(strings.TrimPrefix(value, "["), "]")
	var tags []string
	for _, tag := range strings.Split(value, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
