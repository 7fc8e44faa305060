package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/storyshelf/internal/covers"
	"github.com/mrlokans/storyshelf/internal/database/settings"
	"github.com/mrlokans/storyshelf/internal/entities"
	"github.com/mrlokans/storyshelf/internal/library"
	"github.com/mrlokans/storyshelf/internal/progress"
)

// StorageFormat is the input format name of the files written by Backend.
const StorageFormat = "json"

const (
	indexFile  = "library.db"
	coversFile = "covers.db"
	storiesDir = "stories"
)

// Options configures a Backend.
type Options struct {
	ReadOnly bool
	Logger   *zap.Logger
}

// Backend stores stories on the local disk. It implements library.Backend.
type Backend struct {
	db       *Database
	settings *settings.Repository
	covers   *covers.Store
	dir      string
	readOnly bool
	logger   *zap.Logger

	mu    sync.RWMutex
	cache map[string]*entities.MetaData // nil until loaded
}

// Open opens the library stored in dir, creating it if needed.
func Open(dir string, opts Options) (*Backend, error) {
	if err := os.MkdirAll(filepath.Join(dir, storiesDir), 0755); err != nil {
		return nil, fmt.Errorf("create library dir: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := NewDatabase(filepath.Join(dir, indexFile), opts.ReadOnly)
	if err != nil {
		return nil, err
	}

	coverStore, err := covers.OpenStore(filepath.Join(dir, coversFile))
	if err != nil {
		db.Close()
		return nil, err
	}

	count, err := db.CountMetas()
	if err != nil {
		coverStore.Close()
		db.Close()
		return nil, fmt.Errorf("read index: %w", err)
	}

	logger.Info("library opened",
		zap.String("dir", dir),
		zap.Int64("stories", count),
		zap.Bool("read_only", opts.ReadOnly))

	return &Backend{
		db:       db,
		settings: settings.NewRepository(db.DB),
		covers:   coverStore,
		dir:      dir,
		readOnly: opts.ReadOnly,
		logger:   logger.Named("backend"),
	}, nil
}

// Close releases the index and the cover store.
func (b *Backend) Close() error {
	return errors.Join(b.covers.Close(), b.db.Close())
}

// Dir returns the library directory.
func (b *Backend) Dir() string {
	return b.dir
}

// Settings exposes the settings repository of the library index.
func (b *Backend) Settings() *settings.Repository {
	return b.settings
}

func (b *Backend) Status(ctx context.Context) library.Status {
	if err := b.db.Ping(ctx); err != nil {
		b.logger.Warn("library index unreachable", zap.Error(err))
		return library.StatusInvalid
	}
	if b.readOnly {
		return library.StatusReadOnly
	}
	return library.StatusReadWrite
}

func (b *Backend) GetFile(luid string, pg *progress.Progress) (string, error) {
	defer pg.Done()
	if err := checkLUID(luid); err != nil {
		return "", err
	}
	path := b.storyPath(luid)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("story file of %s: %w", luid, err)
	}
	return path, nil
}

func (b *Backend) GetCover(luid string) (*entities.Image, error) {
	if err := checkLUID(luid); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(b.coverPath(luid))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cover of %s: %w", luid, err)
	}
	return entities.NewImage(data), nil
}

func (b *Backend) GetMetas(pg *progress.Progress) ([]*entities.MetaData, error) {
	defer pg.Done()

	b.mu.RLock()
	if b.cache != nil {
		metas := b.snapshotLocked()
		b.mu.RUnlock()
		return metas, nil
	}
	b.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cache == nil {
		rows, err := b.db.AllMetas()
		if err != nil {
			return nil, fmt.Errorf("load index: %w", err)
		}
		pg.SetMinMax(0, len(rows))
		b.cache = make(map[string]*entities.MetaData, len(rows))
		for _, row := range rows {
			b.cache[row.LUID] = row
			pg.Add(1)
		}
		b.logger.Debug("index loaded", zap.Int("stories", len(rows)))
	}
	return b.snapshotLocked(), nil
}

func (b *Backend) snapshotLocked() []*entities.MetaData {
	metas := make([]*entities.MetaData, 0, len(b.cache))
	for _, meta := range b.cache {
		metas = append(metas, meta.Clone())
	}
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].LUID < metas[j].LUID
	})
	return metas
}

func (b *Backend) InvalidateInfo(luid string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if luid == "" || b.cache == nil {
		b.cache = nil
		return
	}

	delete(b.cache, luid)
	meta, err := b.db.GetMeta(luid)
	if err != nil {
		b.logger.Warn("cannot reload index entry", zap.String("luid", luid), zap.Error(err))
		b.cache = nil
		return
	}
	if meta != nil {
		b.cache[luid] = meta
	}
}

func (b *Backend) UpdateInfo(meta *entities.MetaData) {
	if meta == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cache != nil {
		b.cache[meta.LUID] = meta.WithoutCover()
	}
}

// NextID hands out the LUID after the highest one ever used.
func (b *Backend) NextID() (string, error) {
	rows, err := b.db.AllMetas()
	if err != nil {
		return "", fmt.Errorf("load index: %w", err)
	}

	highest := 0
	for _, row := range rows {
		if n, err := strconv.Atoi(row.LUID); err == nil && n > highest {
			highest = n
		}
	}

	next, err := b.settings.NextValue(entities.SettingKeyLastLUID, highest)
	if err != nil {
		return "", fmt.Errorf("advance LUID counter: %w", err)
	}
	return fmt.Sprintf("%04d", next), nil
}

func (b *Backend) DoDelete(luid string) error {
	if b.readOnly {
		return library.ErrReadOnly
	}
	if err := checkLUID(luid); err != nil {
		return err
	}
	if err := b.db.DeleteMeta(luid); err != nil {
		return fmt.Errorf("delete index entry: %w", err)
	}
	for _, path := range []string{b.storyPath(luid), b.coverPath(luid)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("delete story file: %w", err)
		}
	}
	return nil
}

func (b *Backend) DoSave(story *entities.Story, pg *progress.Progress) (*entities.Story, error) {
	if b.readOnly {
		return nil, library.ErrReadOnly
	}
	if story == nil || story.Meta == nil {
		return nil, errors.New("story has no metadata")
	}
	if err := checkLUID(story.Meta.LUID); err != nil {
		return nil, err
	}

	luid := story.Meta.LUID
	stored := story.Clone()
	cover := stored.Meta.Cover
	stored.Meta.Cover = nil
	stored.Meta.Type = StorageFormat
	if stored.Meta.Created == "" {
		stored.Meta.Created = time.Now().UTC().Format(time.RFC3339)
	}

	pg.SetMinMax(0, 3)

	if err := writeFileAtomic(b.storyPath(luid), func(f *os.File) error {
		return json.NewEncoder(f).Encode(stored)
	}); err != nil {
		return nil, fmt.Errorf("write story file: %w", err)
	}
	pg.Add(1)

	if cover != nil {
		err := writeFileAtomic(b.coverPath(luid), func(f *os.File) error {
			_, err := f.Write(cover.Data)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("write cover: %w", err)
		}
	} else if err := os.Remove(b.coverPath(luid)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove cover: %w", err)
	}
	pg.Add(1)

	if err := b.db.SaveMeta(stored.Meta); err != nil {
		return nil, fmt.Errorf("index story: %w", err)
	}
	pg.Add(1)

	saved := stored.Clone()
	saved.Meta.Cover = cover
	return saved, nil
}

func (b *Backend) GetCustomCover(kind library.CoverKind, key string) (*entities.Image, error) {
	data, err := b.covers.Get(string(kind), key)
	if err != nil {
		return nil, err
	}
	return entities.NewImage(data), nil
}

func (b *Backend) SetCustomCover(kind library.CoverKind, key string, img *entities.Image) error {
	if b.readOnly {
		return library.ErrReadOnly
	}
	var data []byte
	if img != nil {
		data = img.Data
	}
	return b.covers.Put(string(kind), key, data)
}

func (b *Backend) storyPath(luid string) string {
	return filepath.Join(b.dir, storiesDir, luid+".json")
}

func (b *Backend) coverPath(luid string) string {
	return filepath.Join(b.dir, storiesDir, luid+".cover")
}

// LUIDs end up in file names
func checkLUID(luid string) error {
	if luid == "" || strings.ContainsAny(luid, `/\.`) {
		return fmt.Errorf("invalid LUID %q", luid)
	}
	return nil
}

// writeFileAtomic writes path through a temporary file in the same
// directory and renames it into place.
func writeFileAtomic(path string, write func(f *os.File) error) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".tmp_")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if err := write(tmpFile); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
