package library

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mrlokans/storyshelf/internal/entities"
	"github.com/mrlokans/storyshelf/internal/progress"
)

// Options configures a Library.
type Options struct {
	Inputs  []InputFormat
	Outputs []OutputFormat
	Logger  *zap.Logger
}

// Library implements Contract on top of a Backend. Mutations are
// serialized on a single mutex; reads go straight to the backend.
type Library struct {
	backend Backend
	inputs  []InputFormat
	outputs []OutputFormat
	logger  *zap.Logger

	mu sync.Mutex
}

// New creates a Library over backend.
func New(backend Backend, opts Options) *Library {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Library{
		backend: backend,
		inputs:  opts.Inputs,
		outputs: opts.Outputs,
		logger:  logger.Named("library"),
	}
}

// OutputNames lists the registered export formats.
func (l *Library) OutputNames() []string {
	names := make([]string, 0, len(l.outputs))
	for _, out := range l.outputs {
		names = append(names, out.Name())
	}
	return names
}

func (l *Library) Status(ctx context.Context) Status {
	return l.backend.Status(ctx)
}

func (l *Library) GetMetas(ctx context.Context, pg *progress.Progress) ([]*entities.MetaData, error) {
	defer pg.Done()
	metas, err := l.backend.GetMetas(pg)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	return metas, nil
}

func (l *Library) GetList(ctx context.Context, pg *progress.Progress) (*MetaResultList, error) {
	metas, err := l.GetMetas(ctx, pg)
	if err != nil {
		return nil, err
	}
	return NewMetaResultList(metas), nil
}

// GetInfo returns the metadata of luid, or nil if there is no such story.
func (l *Library) GetInfo(ctx context.Context, luid string) (*entities.MetaData, error) {
	metas, err := l.backend.GetMetas(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	for _, meta := range metas {
		if meta.LUID == luid {
			return meta, nil
		}
	}
	return nil, nil
}

// Refresh drops the cached metadata and reloads it.
func (l *Library) Refresh(ctx context.Context, pg *progress.Progress) error {
	l.backend.InvalidateInfo("")
	_, err := l.GetMetas(ctx, pg)
	return err
}

func (l *Library) GetStoryFile(ctx context.Context, luid string, pg *progress.Progress) (string, error) {
	defer pg.Done()
	meta, err := l.GetInfo(ctx, luid)
	if err != nil {
		return "", err
	}
	if meta == nil {
		return "", notFound(luid)
	}
	return l.backend.GetFile(luid, pg)
}

// GetStory reads a story back from storage. When meta is not nil the
// returned story uses it as its metadata, with the stored cover and resume
// copied onto it. A story that fails to parse is logged and reported as
// nil without an error.
func (l *Library) GetStory(ctx context.Context, luid string, meta *entities.MetaData, pg *progress.Progress) (*entities.Story, error) {
	defer pg.Done()

	stored, err := l.GetInfo(ctx, luid)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, notFound(luid)
	}

	pgFile := progress.New("file")
	pgParse := progress.New("parse")
	pg.AddProgress(pgFile, 10)
	pg.AddProgress(pgParse, 90)

	path, err := l.backend.GetFile(luid, pgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to locate story %s: %w", luid, err)
	}
	pgFile.Done()

	input := l.inputForType(stored.Type, path)
	if input == nil {
		return nil, fmt.Errorf("%w: stored type %q", ErrNoAdapter, stored.Type)
	}

	story, err := input.Process(ctx, path, pgParse)
	if err != nil || story == nil {
		l.logger.Warn("cannot read story",
			zap.String("luid", luid),
			zap.String("format", input.Name()),
			zap.Error(err))
		return nil, nil
	}

	target := meta
	if target == nil {
		target = stored
	}

	var parsedCover *entities.Image
	if story.Meta != nil {
		parsedCover = story.Meta.Cover
		if story.Meta.Resume != nil {
			target.Resume = story.Meta.Resume
		}
	}

	cover, err := l.backend.GetCover(luid)
	if err != nil {
		l.logger.Warn("cannot read cover", zap.String("luid", luid), zap.Error(err))
	}
	if cover == nil {
		cover = parsedCover
	}
	if cover != nil {
		target.Cover = cover
	}

	story.Meta = target
	return story, nil
}

// Save stores story under luid. An empty luid allocates a new one; an
// existing luid is overwritten.
func (l *Library) Save(ctx context.Context, story *entities.Story, luid string, pg *progress.Progress) (*entities.Story, error) {
	defer pg.Done()

	if story == nil {
		return nil, fmt.Errorf("%w: missing story", ErrInvalidMeta)
	}
	if err := ValidateMeta(story.Meta); err != nil {
		return nil, err
	}
	if !l.backend.Status(ctx).IsWritable() {
		return nil, ErrReadOnly
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.saveLocked(ctx, story, luid, pg)
}

func (l *Library) saveLocked(ctx context.Context, story *entities.Story, luid string, pg *progress.Progress) (*entities.Story, error) {
	if luid == "" {
		next, err := l.backend.NextID()
		if err != nil {
			return nil, fmt.Errorf("failed to allocate LUID: %w", err)
		}
		luid = next
	} else {
		existing, err := l.GetInfo(ctx, luid)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if err := l.backend.DoDelete(luid); err != nil {
				return nil, fmt.Errorf("failed to replace story %s: %w", luid, err)
			}
			l.backend.InvalidateInfo(luid)
		}
	}

	story.Meta.LUID = luid
	story.Renumber()
	if len(story.Chapters) > 0 {
		story.Meta.Words = story.Words()
	}

	saved, err := l.backend.DoSave(story, pg)
	if err != nil {
		return nil, fmt.Errorf("failed to save story %s: %w", luid, err)
	}
	l.backend.UpdateInfo(saved.Meta)

	l.logger.Info("story saved",
		zap.String("luid", luid),
		zap.String("title", saved.Meta.Title),
		zap.Int("chapters", len(saved.Chapters)))

	return saved, nil
}

// Delete removes luid. Deleting an unknown story is not an error.
func (l *Library) Delete(ctx context.Context, luid string) error {
	if !l.backend.Status(ctx).IsWritable() {
		return ErrReadOnly
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.backend.DoDelete(luid); err != nil {
		return fmt.Errorf("failed to delete story %s: %w", luid, err)
	}
	l.backend.InvalidateInfo(luid)

	l.logger.Info("story deleted", zap.String("luid", luid))
	return nil
}

func (l *Library) GetCover(ctx context.Context, luid string) (*entities.Image, error) {
	return l.backend.GetCover(luid)
}

func (l *Library) GetCustomCover(ctx context.Context, kind CoverKind, key string) (*entities.Image, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown cover kind %q", kind)
	}
	return l.backend.GetCustomCover(kind, key)
}

func (l *Library) GetSourceCover(ctx context.Context, source string) (*entities.Image, error) {
	return GroupCover(ctx, l, CoverSource, source)
}

func (l *Library) GetAuthorCover(ctx context.Context, author string) (*entities.Image, error) {
	return GroupCover(ctx, l, CoverAuthor, author)
}

// SetSourceCover uses the cover of luid as the cover of source.
func (l *Library) SetSourceCover(ctx context.Context, source, luid string) error {
	return l.setGroupCover(ctx, CoverSource, source, luid)
}

// SetAuthorCover uses the cover of luid as the cover of author.
func (l *Library) SetAuthorCover(ctx context.Context, author, luid string) error {
	return l.setGroupCover(ctx, CoverAuthor, author, luid)
}

func (l *Library) setGroupCover(ctx context.Context, kind CoverKind, key, luid string) error {
	meta, err := l.GetInfo(ctx, luid)
	if err != nil {
		return err
	}
	if meta == nil {
		return notFound(luid)
	}
	cover, err := l.backend.GetCover(luid)
	if err != nil {
		return fmt.Errorf("failed to read cover of %s: %w", luid, err)
	}
	return l.backend.SetCustomCover(kind, key, cover)
}

func (l *Library) ChangeSource(ctx context.Context, luid, source string, pg *progress.Progress) error {
	return ChangeOne(ctx, l, luid, pg, func(meta *entities.MetaData) { meta.Source = source })
}

func (l *Library) ChangeTitle(ctx context.Context, luid, title string, pg *progress.Progress) error {
	return ChangeOne(ctx, l, luid, pg, func(meta *entities.MetaData) { meta.Title = title })
}

func (l *Library) ChangeAuthor(ctx context.Context, luid, author string, pg *progress.Progress) error {
	return ChangeOne(ctx, l, luid, pg, func(meta *entities.MetaData) { meta.Author = author })
}

// ChangeSTA rewrites source, title and author of luid in one go.
func (l *Library) ChangeSTA(ctx context.Context, luid, source, title, author string, pg *progress.Progress) error {
	meta, err := l.GetInfo(ctx, luid)
	if err != nil {
		pg.Done()
		return err
	}
	if meta == nil {
		pg.Done()
		return notFound(luid)
	}

	meta.Source = source
	meta.Title = title
	meta.Author = author
	return l.SaveMeta(ctx, meta, pg)
}

// SaveMeta replaces the metadata of an existing story by reloading the
// story, deleting it and saving it again under the same LUID with the new
// metadata. A crash between the delete and the save loses the story.
func (l *Library) SaveMeta(ctx context.Context, meta *entities.MetaData, pg *progress.Progress) error {
	defer pg.Done()

	if err := ValidateMeta(meta); err != nil {
		return err
	}
	if !l.backend.Status(ctx).IsWritable() {
		return ErrReadOnly
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	pgLoad := progress.New("load")
	pgSave := progress.New("save")
	pg.AddProgress(pgLoad, 50)
	pg.AddProgress(pgSave, 50)

	story, err := l.GetStory(ctx, meta.LUID, nil, pgLoad)
	if err != nil {
		return err
	}
	if story == nil {
		return fmt.Errorf("cannot reload story %s", meta.LUID)
	}

	updated := meta.Clone()
	if updated.Cover == nil {
		updated.Cover = story.Meta.Cover
	}
	if updated.Resume == nil {
		updated.Resume = story.Meta.Resume
	}
	story.Meta = updated

	if err := l.backend.DoDelete(meta.LUID); err != nil {
		return fmt.Errorf("failed to delete story %s: %w", meta.LUID, err)
	}
	l.backend.InvalidateInfo(meta.LUID)

	_, err = l.saveLocked(ctx, story, meta.LUID, pgSave)
	return err
}

// Import parses url with the first input format supporting it and saves
// the result under luid (or a new LUID when empty).
func (l *Library) Import(ctx context.Context, url, luid string, pg *progress.Progress) (*entities.MetaData, error) {
	defer pg.Done()

	input := l.inputForURL(url)
	if input == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoAdapter, url)
	}

	pgParse := progress.New("parse")
	pgSave := progress.New("save")
	pg.AddProgress(pgParse, 90)
	pg.AddProgress(pgSave, 10)

	story, err := input.Process(ctx, url, pgParse)
	if err != nil {
		return nil, fmt.Errorf("failed to import %s: %w", url, err)
	}
	pgParse.Done()
	if story == nil || story.Meta == nil {
		return nil, fmt.Errorf("failed to import %s: no story found", url)
	}

	if story.Meta.URL == "" {
		story.Meta.URL = url
	}
	pgSave.SetName("save " + story.Meta.Title)

	saved, err := l.Save(ctx, story, luid, pgSave)
	if err != nil {
		return nil, err
	}

	l.logger.Info("story imported",
		zap.String("url", url),
		zap.String("luid", saved.Meta.LUID),
		zap.String("format", input.Name()))

	return saved.Meta, nil
}

// Export writes luid with the named output format into target.
func (l *Library) Export(ctx context.Context, luid, format, target string, pg *progress.Progress) (string, error) {
	defer pg.Done()

	output := l.outputFor(format)
	if output == nil {
		return "", fmt.Errorf("%w: output format %q (available: %s)",
			ErrNoAdapter, format, strings.Join(l.OutputNames(), ", "))
	}

	pgLoad := progress.New("load")
	pgExport := progress.New("export")
	pg.AddProgress(pgLoad, 50)
	pg.AddProgress(pgExport, 50)

	story, err := l.GetStory(ctx, luid, nil, pgLoad)
	if err != nil {
		return "", err
	}
	if story == nil {
		return "", fmt.Errorf("cannot load story %s", luid)
	}

	path, err := output.Process(story, target)
	if err != nil {
		return "", fmt.Errorf("failed to export %s as %s: %w", luid, format, err)
	}
	pgExport.Done()

	return path, nil
}

func (l *Library) inputForType(name, path string) InputFormat {
	for _, in := range l.inputs {
		if name != "" && strings.EqualFold(in.Name(), name) {
			return in
		}
	}
	return l.inputForURL(path)
}

func (l *Library) inputForURL(url string) InputFormat {
	for _, in := range l.inputs {
		if in.Supports(url) {
			return in
		}
	}
	return nil
}

func (l *Library) outputFor(name string) OutputFormat {
	for _, out := range l.outputs {
		if strings.EqualFold(out.Name(), name) {
			return out
		}
	}
	return nil
}
