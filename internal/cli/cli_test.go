package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/storyshelf/internal/database"
	"github.com/mrlokans/storyshelf/internal/entities"
	"github.com/mrlokans/storyshelf/internal/library"
)

// seedLibrary creates a library directory holding the given titles, saved
// as 0001, 0002...
func seedLibrary(t *testing.T, titles ...string) string {
	t.Helper()
	t.Setenv("REMOTE_URL", "")
	t.Setenv("LIBRARY_KEY", "")

	dir := t.TempDir()
	backend, err := database.Open(dir, database.Options{})
	require.NoError(t, err)
	defer backend.Close()

	lib := library.New(backend, library.Options{})
	for _, title := range titles {
		story := &entities.Story{Meta: &entities.MetaData{Title: title, Author: "Jane Doe", Source: "site", Tags: []string{"short"}}}
		chap := &entities.Chapter{Name: "One"}
		chap.AddParagraph(entities.NewTextParagraph(entities.ParagraphNormal, "Some words here"))
		story.AddChapter(chap)
		_, err := lib.Save(context.Background(), story, "", nil)
		require.NoError(t, err)
	}
	return dir
}

type runner interface {
	ParseFlags(args []string) error
	Run() error
}

func run(t *testing.T, cmd runner, args ...string) error {
	t.Helper()
	require.NoError(t, cmd.ParseFlags(args))
	return cmd.Run()
}

func TestListCommand(t *testing.T) {
	dir := seedLibrary(t, "The Long Walk", "Short Stories")

	t.Run("all", func(t *testing.T) {
		var out bytes.Buffer
		cmd := NewListCommand()
		cmd.SetOutput(&out)

		require.NoError(t, run(t, cmd, "-dir", dir))
		assert.Contains(t, out.String(), "LUID")
		assert.Contains(t, out.String(), "0001")
		assert.Contains(t, out.String(), "The Long Walk")
		assert.Contains(t, out.String(), "Short Stories")
	})

	t.Run("search", func(t *testing.T) {
		var out bytes.Buffer
		cmd := NewListCommand()
		cmd.SetOutput(&out)

		require.NoError(t, run(t, cmd, "-dir", dir, "-search", "walk"))
		assert.Contains(t, out.String(), "The Long Walk")
		assert.NotContains(t, out.String(), "Short Stories")
	})

	t.Run("no match", func(t *testing.T) {
		var out bytes.Buffer
		cmd := NewListCommand()
		cmd.SetOutput(&out)

		require.NoError(t, run(t, cmd, "-dir", dir, "-author", "Nobody"))
		assert.Contains(t, out.String(), "No stories found")
	})
}

func TestInfoCommand(t *testing.T) {
	dir := seedLibrary(t, "The Long Walk")

	var out bytes.Buffer
	cmd := NewInfoCommand()
	cmd.SetOutput(&out)
	require.NoError(t, run(t, cmd, "-dir", dir, "0001"))

	assert.Contains(t, out.String(), "Title:     The Long Walk")
	assert.Contains(t, out.String(), "Author:    Jane Doe")
	assert.Contains(t, out.String(), "Tags:      short")

	missing := NewInfoCommand()
	missing.SetOutput(&out)
	err := run(t, missing, "-dir", dir, "0404")
	assert.ErrorIs(t, err, library.ErrNotFound)

	assert.Error(t, NewInfoCommand().ParseFlags([]string{"-dir", dir}))
}

func TestChangeAndDeleteCommands(t *testing.T) {
	dir := seedLibrary(t, "Draft")

	var out bytes.Buffer
	change := NewChangeCommand(FieldTitle)
	change.SetOutput(&out)
	require.NoError(t, run(t, change, "-dir", dir, "0001", "Final"))
	assert.Contains(t, out.String(), `Changed title of 0001 to "Final"`)

	author := NewChangeCommand(FieldAuthor)
	author.SetOutput(&out)
	require.NoError(t, run(t, author, "-dir", dir, "0001", "John Roe"))

	out.Reset()
	info := NewInfoCommand()
	info.SetOutput(&out)
	require.NoError(t, run(t, info, "-dir", dir, "0001"))
	assert.Contains(t, out.String(), "Final")
	assert.Contains(t, out.String(), "John Roe")

	out.Reset()
	del := NewDeleteCommand()
	del.SetOutput(&out)
	require.NoError(t, run(t, del, "-dir", dir, "0001"))
	assert.Contains(t, out.String(), "Deleted 0001")

	out.Reset()
	list := NewListCommand()
	list.SetOutput(&out)
	require.NoError(t, run(t, list, "-dir", dir))
	assert.Contains(t, out.String(), "No stories found")
}

func TestReadOnlyLibrary(t *testing.T) {
	dir := seedLibrary(t, "Draft")

	var out bytes.Buffer
	del := NewDeleteCommand()
	del.SetOutput(&out)
	err := run(t, del, "-dir", dir, "-readonly", "0001")
	assert.ErrorIs(t, err, library.ErrReadOnly)
}

func TestExportCommands(t *testing.T) {
	dir := seedLibrary(t, "One", "Two")
	target := t.TempDir()

	var out bytes.Buffer
	export := NewExportCommand()
	export.SetOutput(&out)
	require.NoError(t, run(t, export, "-dir", dir, "-format", "text", "-target", target, "-quiet", "0002"))
	assert.FileExists(t, filepath.Join(target, "0002 - Two.txt"))

	all := NewExportAllCommand()
	all.SetOutput(&out)
	allDir := filepath.Join(t.TempDir(), "all")
	require.NoError(t, run(t, all, "-dir", dir, "-format", "json", "-out", allDir))
	assert.Contains(t, out.String(), "Exported 2 stories")

	entries, err := os.ReadDir(allDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestExportCommandPrintsProgress(t *testing.T) {
	dir := seedLibrary(t, "One")

	var out bytes.Buffer
	export := NewExportCommand()
	export.SetOutput(&out)
	require.NoError(t, run(t, export, "-dir", dir, "-format", "markdown", "-target", t.TempDir(), "0001"))

	assert.Contains(t, out.String(), "100%")
}

func TestImportCommandAsync(t *testing.T) {
	dir := seedLibrary(t)

	var out bytes.Buffer
	cmd := NewImportCommand()
	cmd.SetOutput(&out)
	require.NoError(t, run(t, cmd, "-dir", dir, "-async", "https://example.com/story.txt"))

	assert.Contains(t, out.String(), "Queued import of https://example.com/story.txt")
	assert.FileExists(t, filepath.Join(dir, "tasks.db"))
}

func TestStatusAndStopCommands(t *testing.T) {
	dir := seedLibrary(t)

	var out bytes.Buffer
	status := NewStatusCommand()
	status.SetOutput(&out)
	require.NoError(t, run(t, status, "-dir", dir))
	assert.Contains(t, out.String(), "read-write")

	stop := NewStopCommand()
	require.NoError(t, stop.ParseFlags([]string{"-dir", dir}))
	assert.ErrorIs(t, stop.Run(), ErrNeedsRemote)
}

func TestProgressPrinter(t *testing.T) {
	var out bytes.Buffer
	p := NewProgressPrinter(&out, 25)

	for v := 0; v <= 100; v += 5 {
		p.OnProgress(0, 100, v)
	}
	p.OnProgress(0, 100, 100)

	lines := bytes.Count(out.Bytes(), []byte("\n"))
	assert.Equal(t, 5, lines) // 0, 25, 50, 75, 100
	assert.Contains(t, out.String(), "[####################] 100%")
}

func TestScheduleCommand(t *testing.T) {
	dir := seedLibrary(t)
	t.Setenv("EXPORT_SCHEDULE_ENABLED", "")
	t.Setenv("EXPORT_SCHEDULE", "")

	var out bytes.Buffer
	show := NewScheduleCommand()
	show.SetOutput(&out)
	require.NoError(t, run(t, show, "-dir", dir))
	assert.Contains(t, out.String(), "0 3 * * *")
	assert.Contains(t, out.String(), "(config)")
	assert.Contains(t, out.String(), "never")

	out.Reset()
	set := NewScheduleCommand()
	set.SetOutput(&out)
	require.NoError(t, run(t, set, "-dir", dir, "-enable", "-cron", "*/15 * * * *", "-format", "json"))
	assert.Contains(t, out.String(), "*/15 * * * *")
	assert.Contains(t, out.String(), "(database)")

	bad := NewScheduleCommand()
	bad.SetOutput(&out)
	assert.Error(t, run(t, bad, "-dir", dir, "-cron", "soon"))

	out.Reset()
	reset := NewScheduleCommand()
	reset.SetOutput(&out)
	require.NoError(t, run(t, reset, "-dir", dir, "-reset"))
	assert.NotContains(t, out.String(), "(database)")

	assert.Error(t, NewScheduleCommand().ParseFlags([]string{"-enable", "-disable"}))
}
