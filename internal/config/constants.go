package config

const (
	// DefaultLibraryDir holds the index, the covers and the story files
	DefaultLibraryDir = "./library"

	// TasksDatabaseFile is the task queue database, kept inside the library dir
	TasksDatabaseFile = "tasks.db"
)
