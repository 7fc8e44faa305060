package remote

import (
	"fmt"

	"github.com/mrlokans/storyshelf/internal/entities"
)

// BreakStory decomposes story for transfer. Image documents are flattened
// into [story without chapters, chapter, paragraph..., chapter, ...] so
// that no single frame carries every image. Text documents travel as a
// single story part.
func BreakStory(story *entities.Story) []*Part {
	if story.Meta == nil || !story.Meta.ImageDocument {
		return []*Part{{Kind: PartStory, Story: story}}
	}

	parts := []*Part{{Kind: PartStory, Story: &entities.Story{Meta: story.Meta}}}
	for _, chap := range story.Chapters {
		parts = append(parts, &Part{Kind: PartChapter, Chapter: &entities.Chapter{
			Number: chap.Number,
			Name:   chap.Name,
			Words:  chap.Words,
		}})
		for _, para := range chap.Paragraphs {
			parts = append(parts, &Part{Kind: PartParagraph, Paragraph: para})
		}
	}
	return parts
}

// Rebuilder reassembles a story from the parts produced by BreakStory, one
// part at a time.
type Rebuilder struct {
	story   *entities.Story
	chapter *entities.Chapter
}

// Add attaches part to the story being rebuilt.
func (r *Rebuilder) Add(part *Part) error {
	switch part.Kind {
	case PartStory:
		if r.story != nil {
			return fmt.Errorf("%w: second story part", ErrProtocol)
		}
		if part.Story == nil {
			return fmt.Errorf("%w: empty story part", ErrProtocol)
		}
		r.story = part.Story
		if n := len(r.story.Chapters); n > 0 {
			r.chapter = r.story.Chapters[n-1]
		}
	case PartChapter:
		if r.story == nil || part.Chapter == nil {
			return fmt.Errorf("%w: chapter part without story", ErrProtocol)
		}
		r.chapter = part.Chapter
		r.story.Chapters = append(r.story.Chapters, r.chapter)
	case PartParagraph:
		if r.chapter == nil || part.Paragraph == nil {
			return fmt.Errorf("%w: paragraph part without chapter", ErrProtocol)
		}
		r.chapter.Paragraphs = append(r.chapter.Paragraphs, part.Paragraph)
	default:
		return fmt.Errorf("%w: unknown part kind %q", ErrProtocol, part.Kind)
	}
	return nil
}

// Story returns the rebuilt story, or nil if no story part was added.
func (r *Rebuilder) Story() *entities.Story {
	return r.story
}

// RebuildStory is the inverse of BreakStory.
func RebuildStory(parts []*Part) (*entities.Story, error) {
	var r Rebuilder
	for _, part := range parts {
		if err := r.Add(part); err != nil {
			return nil, err
		}
	}
	if r.Story() == nil {
		return nil, fmt.Errorf("%w: no story part", ErrProtocol)
	}
	return r.Story(), nil
}
