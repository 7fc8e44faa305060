// Package importers turns source files and URLs into stories.
//
// # Architecture
//
// Every input format implements library.InputFormat:
//
//	source (path, file:// or http(s) URL) → Input.Process → entities.Story → Library.Save
//
// The library picks the first registered input whose Supports method
// accepts the URL on import, and the input named by MetaData.Type when it
// reads a stored story back.
//
// # Existing Inputs
//
//   - JSONInput: the storage format of the local library (also accepts
//     stories exported as JSON)
//   - TextInput: plain text with an optional header block
//
// # Adding a New Input
//
//  1. Create a new file (e.g., html.go)
//  2. Implement Name, Supports and Process
//  3. Add a compile-time check: var _ library.InputFormat = (*HTMLInput)(nil)
//  4. Register it in Default
package importers
