package cli

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"

	"github.com/mrlokans/storyshelf/internal/config"
	"github.com/mrlokans/storyshelf/internal/tasks"
)

// ImportCommand imports a story from a file or URL. With -async the
// import is queued for the server's task workers instead.
type ImportCommand struct {
	output
	Library LibraryFlags
	URL     string
	LUID    string
	Async   bool
	Quiet   bool
}

func NewImportCommand() *ImportCommand {
	return &ImportCommand{}
}

func (cmd *ImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	cmd.Library.register(fs)
	fs.StringVar(&cmd.LUID, "luid", "", "Save under this LUID, replacing what is there")
	fs.BoolVar(&cmd.Async, "async", false, "Queue the import for the server's task workers")
	fs.BoolVar(&cmd.Quiet, "quiet", false, "Do not print progress")
	fs.Usage = usage(fs, "import [options] <file-or-url>", "Import a story into a library.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("import needs exactly one file or URL")
	}
	cmd.URL = fs.Arg(0)
	return nil
}

func (cmd *ImportCommand) Run() error {
	if cmd.Async {
		return cmd.enqueue()
	}

	sess, err := cmd.Library.open(nil)
	if err != nil {
		return err
	}
	defer sess.close()

	pg, detach := track(cmd.writer(), "import", cmd.Quiet)
	defer detach()

	meta, err := sess.lib.Import(context.Background(), cmd.URL, cmd.LUID, pg)
	if err != nil {
		return err
	}
	cmd.printf("Imported %s: %q by %s\n", meta.LUID, meta.Title, meta.Author)
	return nil
}

// enqueue writes the task into the queue database of the library
// directory; the library itself stays untouched so a running server can
// keep it open.
func (cmd *ImportCommand) enqueue() error {
	if cmd.Library.Remote != "" {
		return fmt.Errorf("-async works on the library directory of the server, not with -remote")
	}

	client, err := tasks.NewClient(filepath.Join(cmd.Library.Dir, config.TasksDatabaseFile), tasks.DefaultConfig(), nil)
	if err != nil {
		return err
	}
	defer client.Close()

	id, err := client.EnqueueImport(cmd.URL, cmd.LUID)
	if err != nil {
		return err
	}
	cmd.printf("Queued import of %s as task %s\n", cmd.URL, id)
	return nil
}
