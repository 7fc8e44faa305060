// Package database provides the local storage backend of a library.
//
// # Layout
//
// A library directory looks like this:
//
//	<dir>/
//	├── library.db       # sqlite index of story metadata and settings
//	├── covers.db        # bolt store of custom source/author covers
//	└── stories/
//	    ├── 0001.json    # story body (metadata without cover + chapters)
//	    └── 0001.cover   # raw cover bytes, when the story has one
//
// The index is the source of truth for listings; story files are only read
// when a story is opened.
//
// # Usage
//
//	backend, err := database.Open("./library", database.Options{Logger: logger})
//	lib := library.New(backend, library.Options{...})
//
// Sub-packages:
//
//   - settings: key/value settings, including the LUID counter
package database
