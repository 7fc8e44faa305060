package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/storyshelf/internal/cli"
	"github.com/mrlokans/storyshelf/internal/database"
	"github.com/mrlokans/storyshelf/internal/database/settings"
	"github.com/mrlokans/storyshelf/internal/exporters"
	"github.com/mrlokans/storyshelf/internal/importers"
	"github.com/mrlokans/storyshelf/internal/library"
	"github.com/mrlokans/storyshelf/internal/progress"
	"github.com/mrlokans/storyshelf/internal/remote"
	"github.com/mrlokans/storyshelf/internal/scheduler"
	"github.com/mrlokans/storyshelf/internal/tasks"
)

// =============================================================================
// Library
// =============================================================================

// Contract implementations: the local library and the remote client
var _ library.Contract = (*library.Library)(nil)
var _ library.Contract = (*remote.Client)(nil)

// Backend implementations
var _ library.Backend = (*database.Backend)(nil)

// =============================================================================
// Formats
// =============================================================================

// InputFormat implementations
var _ library.InputFormat = (*importers.JSONInput)(nil)
var _ library.InputFormat = (*importers.TextInput)(nil)

// OutputFormat implementations
var _ library.OutputFormat = (*exporters.JSONOutput)(nil)
var _ library.OutputFormat = (*exporters.MarkdownOutput)(nil)
var _ library.OutputFormat = (*exporters.TextOutput)(nil)

// =============================================================================
// Progress Reporting
// =============================================================================

var _ progress.Sink = progress.SinkFunc(nil)
var _ progress.Sink = (*cli.ProgressPrinter)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ tasks.StoryImporter = (*library.Library)(nil)
var _ tasks.StoryImporter = (*remote.Client)(nil)
var _ scheduler.StatusStore = (*settings.Repository)(nil)
