package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mrlokans/storyshelf/internal/config"
	"github.com/mrlokans/storyshelf/internal/covers"
	"github.com/mrlokans/storyshelf/internal/database"
	"github.com/mrlokans/storyshelf/internal/database/settings"
	"github.com/mrlokans/storyshelf/internal/exporters"
	"github.com/mrlokans/storyshelf/internal/importers"
	"github.com/mrlokans/storyshelf/internal/library"
	"github.com/mrlokans/storyshelf/internal/remote"
)

// ErrNeedsRemote is returned by commands that only make sense against a
// library server.
var ErrNeedsRemote = errors.New("this command needs -remote")

// LibraryFlags selects the library a command works on: the local one in
// Dir, or the server at Remote.
type LibraryFlags struct {
	Dir      string
	Remote   string
	Key      string
	ReadOnly bool

	cfg *config.Config
}

func (f *LibraryFlags) register(fs *flag.FlagSet) {
	f.cfg = config.NewConfig()
	fs.StringVar(&f.Dir, "dir", f.cfg.Library.Dir, "Local library directory (or set LIBRARY_DIR)")
	fs.StringVar(&f.Remote, "remote", f.cfg.Remote.URL, "Library server URL, e.g. ws://localhost:8189/library (or set REMOTE_URL)")
	fs.StringVar(&f.Key, "key", f.cfg.Library.Key, "Key of the library server (or set LIBRARY_KEY)")
	fs.BoolVar(&f.ReadOnly, "readonly", f.cfg.Library.ReadOnly, "Open the local library read-only")
}

// session is an opened library.
type session struct {
	lib library.Contract
	// settings is nil for a remote library
	settings *settings.Repository
	client   *remote.Client
	close    func() error
}

func (f *LibraryFlags) open(logger *zap.Logger) (*session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if f.Remote != "" {
		client := remote.NewClient(remote.ClientConfig{
			URL:             f.Remote,
			Key:             f.Key,
			DialTimeout:     f.cfg.Remote.DialTimeout,
			WriteTimeout:    f.cfg.Remote.WriteTimeout,
			BreakerFailures: f.cfg.Remote.BreakerFailures,
			BreakerCooldown: f.cfg.Remote.BreakerCooldown,
			Outputs:         exporters.Default(),
			Logger:          logger,
		})
		return &session{lib: client, client: client, close: func() error { return nil }}, nil
	}

	backend, err := database.Open(f.Dir, database.Options{ReadOnly: f.ReadOnly, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("failed to open library %s: %w", f.Dir, err)
	}
	fetcher, err := covers.NewFetcher(filepath.Join(backend.Dir(), "cache"))
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("failed to create cover cache: %w", err)
	}

	lib := library.New(backend, library.Options{
		Inputs:  importers.Default(fetcher),
		Outputs: exporters.Default(),
		Logger:  logger,
	})
	return &session{lib: lib, settings: backend.Settings(), close: backend.Close}, nil
}

// output is where commands print; tests replace it.
type output struct {
	out io.Writer
}

func (o *output) writer() io.Writer {
	if o.out == nil {
		return os.Stdout
	}
	return o.out
}

func (o *output) printf(format string, args ...any) {
	fmt.Fprintf(o.writer(), format, args...)
}

func (o *output) println(args ...any) {
	fmt.Fprintln(o.writer(), args...)
}

// SetOutput redirects what a command prints.
func (o *output) SetOutput(w io.Writer) {
	o.out = w
}

func usage(fs *flag.FlagSet, synopsis, description string) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "Usage: %s %s\n\n", os.Args[0], synopsis)
		fmt.Fprintf(os.Stderr, "%s\n\n", description)
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
}
