package entities

import (
	"strings"
)

// ParagraphType tells how the content of a Paragraph should be interpreted.
type ParagraphType string

const (
	ParagraphNormal ParagraphType = "normal"
	ParagraphQuote  ParagraphType = "quote"
	ParagraphBreak  ParagraphType = "break" // scene break
	ParagraphBlank  ParagraphType = "blank"
	ParagraphImage  ParagraphType = "image"
)

// Paragraph is the smallest unit of a story body.
type Paragraph struct {
	Type         ParagraphType `json:"type"`
	Content      string        `json:"content,omitempty"`
	ContentImage *Image        `json:"content_image,omitempty"`
	Words        int           `json:"words,omitempty"`
}

// NewTextParagraph builds a paragraph of the given type with its word count
// computed from content.
func NewTextParagraph(t ParagraphType, content string) *Paragraph {
	return &Paragraph{
		Type:    t,
		Content: content,
		Words:   CountWords(content),
	}
}

// NewImageParagraph builds an image paragraph. Images count as one word.
func NewImageParagraph(img *Image) *Paragraph {
	return &Paragraph{
		Type:         ParagraphImage,
		ContentImage: img,
		Words:        1,
	}
}

// Chapter is a numbered, optionally named, sequence of paragraphs.
type Chapter struct {
	Number     int          `json:"number"`
	Name       string       `json:"name,omitempty"`
	Paragraphs []*Paragraph `json:"paragraphs,omitempty"`
	Words      int          `json:"words,omitempty"`
}

// AddParagraph appends para and updates the chapter word count.
func (c *Chapter) AddParagraph(para *Paragraph) {
	c.Paragraphs = append(c.Paragraphs, para)
	c.Words += para.Words
}

// Story is a MetaData record plus its ordered chapters. Chapter numbers form
// the dense sequence 1..N matching their position.
type Story struct {
	Meta     *MetaData  `json:"meta"`
	Chapters []*Chapter `json:"chapters,omitempty"`
}

// AddChapter appends chap, numbering it after the last chapter.
func (s *Story) AddChapter(chap *Chapter) {
	chap.Number = len(s.Chapters) + 1
	s.Chapters = append(s.Chapters, chap)
}

// Renumber rewrites chapter numbers so they match list positions.
func (s *Story) Renumber() {
	for i, chap := range s.Chapters {
		chap.Number = i + 1
	}
}

// Words returns the total word count of the story body.
func (s *Story) Words() int {
	total := 0
	for _, chap := range s.Chapters {
		total += chap.Words
	}
	return total
}

// ParagraphCount returns the number of paragraphs across all chapters.
func (s *Story) ParagraphCount() int {
	total := 0
	for _, chap := range s.Chapters {
		total += len(chap.Paragraphs)
	}
	return total
}

// Clone returns a deep copy of the story.
func (s *Story) Clone() *Story {
	if s == nil {
		return nil
	}
	out := &Story{Meta: s.Meta.Clone()}
	for _, chap := range s.Chapters {
		out.Chapters = append(out.Chapters, chap.Clone())
	}
	return out
}

// Clone returns a deep copy of the chapter.
func (c *Chapter) Clone() *Chapter {
	if c == nil {
		return nil
	}
	out := &Chapter{Number: c.Number, Name: c.Name, Words: c.Words}
	for _, para := range c.Paragraphs {
		p := *para
		p.ContentImage = para.ContentImage.Clone()
		out.Paragraphs = append(out.Paragraphs, &p)
	}
	return out
}

// CountWords counts whitespace separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
