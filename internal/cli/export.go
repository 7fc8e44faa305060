package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/mrlokans/storyshelf/internal/config"
	"github.com/mrlokans/storyshelf/internal/scheduler"
)

// ExportCommand writes one story in an output format
type ExportCommand struct {
	output
	Library LibraryFlags
	LUID    string
	Format  string
	Target  string
	Quiet   bool
}

func NewExportCommand() *ExportCommand {
	return &ExportCommand{}
}

func (cmd *ExportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	cmd.Library.register(fs)
	fs.StringVar(&cmd.Format, "format", "markdown", "Output format: json, markdown or text")
	fs.StringVar(&cmd.Target, "target", ".", "Output file, or directory to write into")
	fs.BoolVar(&cmd.Quiet, "quiet", false, "Do not print progress")
	fs.Usage = usage(fs, "export [options] <luid>", "Export a story.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("export needs exactly one LUID")
	}
	cmd.LUID = fs.Arg(0)
	return nil
}

func (cmd *ExportCommand) Run() error {
	sess, err := cmd.Library.open(nil)
	if err != nil {
		return err
	}
	defer sess.close()

	pg, detach := track(cmd.writer(), "export", cmd.Quiet)
	defer detach()

	path, err := sess.lib.Export(context.Background(), cmd.LUID, cmd.Format, cmd.Target, pg)
	if err != nil {
		return err
	}
	cmd.printf("Exported %s to %s\n", cmd.LUID, path)
	return nil
}

// ExportAllCommand runs the scheduled export once
type ExportAllCommand struct {
	output
	Library LibraryFlags
	Dir     string
	Format  string
}

func NewExportAllCommand() *ExportAllCommand {
	return &ExportAllCommand{}
}

func (cmd *ExportAllCommand) ParseFlags(args []string) error {
	cfg := config.NewConfig()
	fs := flag.NewFlagSet("export-all", flag.ContinueOnError)
	cmd.Library.register(fs)
	fs.StringVar(&cmd.Dir, "out", cfg.ExportSchedule.Dir, "Directory to write into (or set EXPORT_DIR)")
	fs.StringVar(&cmd.Format, "format", cfg.ExportSchedule.Format, "Output format (or set EXPORT_FORMAT)")
	fs.Usage = usage(fs, "export-all [options]", "Export every story of a library.")
	return fs.Parse(args)
}

func (cmd *ExportAllCommand) Run() error {
	sess, err := cmd.Library.open(nil)
	if err != nil {
		return err
	}
	defer sess.close()

	var status scheduler.StatusStore
	if sess.settings != nil {
		status = sess.settings
	}
	export := scheduler.NewExportScheduler(sess.lib, status, scheduler.ExportConfig{
		Dir:    cmd.Dir,
		Format: cmd.Format,
	}, nil)

	result, err := export.RunOnce(context.Background())
	if err != nil {
		return err
	}
	cmd.printf("Exported %d stories to %s\n", result.Exported, cmd.Dir)
	if result.Failed > 0 {
		return fmt.Errorf("%d stories failed to export", result.Failed)
	}
	return nil
}
