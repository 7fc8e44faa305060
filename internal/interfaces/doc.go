// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Library Interfaces
//
//   - Contract: everything a caller can do with a library (internal/library/contract.go).
//     Implemented by library.Library (local) and remote.Client (over the network).
//   - Backend: the storage primitives a Library builds on (internal/library/backend.go).
//     Implemented by database.Backend.
//
// ## Format Interfaces
//
//   - InputFormat: turns a file or URL into a Story (internal/library/formats.go)
//   - OutputFormat: writes a Story to disk (internal/library/formats.go)
//
// ## Progress Interfaces
//
//   - Sink: receives (min, max, value) triples from a progress tree (internal/progress/sink.go)
//
// ## Background Work Interfaces
//
//   - StoryImporter: what an import task needs from a library (internal/tasks/import_story.go)
//   - StatusStore: where the export scheduler records its last run (internal/scheduler/export.go)
//
// # Adding a New Input Format
//
//  1. Implement InputFormat in internal/importers/
//
//     type EpubInput struct{}
//
//     func (i *EpubInput) Name() string { return "epub" }
//     func (i *EpubInput) Supports(url string) bool { return strings.HasSuffix(url, ".epub") }
//     func (i *EpubInput) Process(ctx context.Context, url string, pg *progress.Progress) (*entities.Story, error)
//
//     var _ library.InputFormat = (*EpubInput)(nil)
//
//  2. Add it to importers.Default
//
// # Adding a New Output Format
//
//  1. Implement OutputFormat in internal/exporters/, writing through writeOutput
//     so targets resolve the same way for every format
//
//  2. Add it to exporters.Default. The name becomes a valid -format value.
//
// # Adding a New Wire Command
//
//  1. Add the Command constant in internal/remote/protocol.go
//  2. Add a Request type with Command and Serve in internal/remote/dispatch.go
//     and decode its arguments in decodeRequest
//  3. Call it from the matching remote.Client method
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// This pattern is used throughout the codebase. See checks.go for examples.
package interfaces
