package library

import (
	"context"

	"github.com/mrlokans/storyshelf/internal/entities"
	"github.com/mrlokans/storyshelf/internal/progress"
)

// CoverKind selects the group a custom cover is attached to.
type CoverKind string

const (
	CoverSource CoverKind = "SOURCE"
	CoverAuthor CoverKind = "AUTHOR"
)

// Valid reports whether k is a known cover kind.
func (k CoverKind) Valid() bool {
	return k == CoverSource || k == CoverAuthor
}

// Backend is the small set of primitives a storage implementation supplies.
// Library composes every higher level operation out of them.
//
// Implementations:
//   - database.Backend (internal/database) - sqlite index + JSON story files
type Backend interface {
	// Status reports whether the backend can currently be used.
	Status(ctx context.Context) Status

	// GetFile returns the path of the file holding the story body.
	GetFile(luid string, pg *progress.Progress) (string, error)

	// GetCover returns the cover of a story, or nil if it has none.
	GetCover(luid string) (*entities.Image, error)

	// GetMetas returns a copy of the metadata of every story.
	GetMetas(pg *progress.Progress) ([]*entities.MetaData, error)

	// InvalidateInfo drops cached metadata for luid, or all of it when
	// luid is empty.
	InvalidateInfo(luid string)

	// UpdateInfo refreshes one cached metadata entry.
	UpdateInfo(meta *entities.MetaData)

	// NextID reserves a LUID that is not used by any story.
	NextID() (string, error)

	// DoDelete removes a story. Deleting an unknown LUID is not an error.
	DoDelete(luid string) error

	// DoSave persists story under story.Meta.LUID and returns what was
	// stored.
	DoSave(story *entities.Story, pg *progress.Progress) (*entities.Story, error)

	// GetCustomCover returns the cover explicitly attached to a source or
	// author, or nil.
	GetCustomCover(kind CoverKind, key string) (*entities.Image, error)

	// SetCustomCover attaches img to a source or author. A nil img clears it.
	SetCustomCover(kind CoverKind, key string, img *entities.Image) error
}
