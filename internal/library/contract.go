package library

import (
	"context"

	"github.com/mrlokans/storyshelf/internal/entities"
	"github.com/mrlokans/storyshelf/internal/progress"
)

// Contract is the full set of operations any library offers, local or
// remote. Callers hold a Contract and never care which one they got.
//
// Implementations:
//   - Library (library.go) - composed over a Backend
//   - remote.Client (internal/remote) - speaks the wire protocol
type Contract interface {
	Status(ctx context.Context) Status

	// Listing
	GetMetas(ctx context.Context, pg *progress.Progress) ([]*entities.MetaData, error)
	GetList(ctx context.Context, pg *progress.Progress) (*MetaResultList, error)
	GetInfo(ctx context.Context, luid string) (*entities.MetaData, error)
	Refresh(ctx context.Context, pg *progress.Progress) error

	// Stories
	GetStory(ctx context.Context, luid string, meta *entities.MetaData, pg *progress.Progress) (*entities.Story, error)
	GetStoryFile(ctx context.Context, luid string, pg *progress.Progress) (string, error)
	Save(ctx context.Context, story *entities.Story, luid string, pg *progress.Progress) (*entities.Story, error)
	Delete(ctx context.Context, luid string) error

	// Covers
	GetCover(ctx context.Context, luid string) (*entities.Image, error)
	GetCustomCover(ctx context.Context, kind CoverKind, key string) (*entities.Image, error)
	GetSourceCover(ctx context.Context, source string) (*entities.Image, error)
	GetAuthorCover(ctx context.Context, author string) (*entities.Image, error)
	SetSourceCover(ctx context.Context, source, luid string) error
	SetAuthorCover(ctx context.Context, author, luid string) error

	// Metadata changes
	ChangeSource(ctx context.Context, luid, source string, pg *progress.Progress) error
	ChangeTitle(ctx context.Context, luid, title string, pg *progress.Progress) error
	ChangeAuthor(ctx context.Context, luid, author string, pg *progress.Progress) error
	ChangeSTA(ctx context.Context, luid, source, title, author string, pg *progress.Progress) error
	SaveMeta(ctx context.Context, meta *entities.MetaData, pg *progress.Progress) error

	// Import / export
	Import(ctx context.Context, url, luid string, pg *progress.Progress) (*entities.MetaData, error)
	Export(ctx context.Context, luid, format, target string, pg *progress.Progress) (string, error)
}

// GroupCover returns the custom cover of a source or author group, falling
// back to the cover of the first story of that group.
func GroupCover(ctx context.Context, c Contract, kind CoverKind, key string) (*entities.Image, error) {
	custom, err := c.GetCustomCover(ctx, kind, key)
	if err != nil {
		return nil, err
	}
	if custom != nil {
		return custom, nil
	}

	list, err := c.GetList(ctx, nil)
	if err != nil {
		return nil, err
	}

	var group []*entities.MetaData
	switch kind {
	case CoverSource:
		group = list.FilterBySource(key)
	case CoverAuthor:
		group = list.FilterByAuthor(key)
	}

	for _, meta := range group {
		cover, err := c.GetCover(ctx, meta.LUID)
		if err != nil {
			return nil, err
		}
		if cover != nil {
			return cover, nil
		}
	}
	return nil, nil
}

// ChangeOne loads the metadata of luid and reduces a single field change to
// ChangeSTA, so both local and remote libraries share the same semantics.
func ChangeOne(ctx context.Context, c Contract, luid string, pg *progress.Progress, mutate func(meta *entities.MetaData)) error {
	meta, err := c.GetInfo(ctx, luid)
	if err != nil {
		pg.Done()
		return err
	}
	if meta == nil {
		pg.Done()
		return notFound(luid)
	}
	mutate(meta)
	return c.ChangeSTA(ctx, luid, meta.Source, meta.Title, meta.Author, pg)
}
