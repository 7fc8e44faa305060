// Package exporters writes stories out in user facing formats.
package exporters

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrlokans/storyshelf/internal/entities"
	"github.com/mrlokans/storyshelf/internal/library"
	"github.com/mrlokans/storyshelf/internal/utils"
)

// Default returns every output format.
func Default() []library.OutputFormat {
	return []library.OutputFormat{
		NewJSONOutput(),
		NewMarkdownOutput(),
		NewTextOutput(),
	}
}

// FileName builds "<luid> - <title><ext>" with characters unsafe in file
// names removed.
func FileName(meta *entities.MetaData, ext string) string {
	title := utils.SanitizeFilename(meta.Title)
	if meta.LUID == "" {
		return title + ext
	}
	return fmt.Sprintf("%s - %s%s", meta.LUID, title, ext)
}

// outputPath resolves target into a file path. A target that is an
// existing directory, or ends with a separator, receives a generated file
// name; anything else is used as the file name, gaining ext if missing.
func outputPath(story *entities.Story, target, ext string) (string, error) {
	if target == "" {
		return "", fmt.Errorf("no export target")
	}

	isDir := strings.HasSuffix(target, string(os.PathSeparator)) || strings.HasSuffix(target, "/")
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		isDir = true
	}

	if isDir {
		if err := os.MkdirAll(target, 0755); err != nil {
			return "", fmt.Errorf("failed to create export directory: %w", err)
		}
		return filepath.Join(target, FileName(story.Meta, ext)), nil
	}

	if !strings.EqualFold(filepath.Ext(target), ext) {
		target += ext
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	return target, nil
}

// writeOutput writes content to the resolved path of target.
func writeOutput(story *entities.Story, target, ext string, content []byte) (string, error) {
	path, err := outputPath(story, target, ext)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", err
	}
	return path, nil
}
