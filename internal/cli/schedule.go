package cli

import (
	"flag"
	"fmt"

	"github.com/mrlokans/storyshelf/internal/settingsstore"
)

// ScheduleCommand shows or changes the export schedule stored in a local
// library. Stored values take precedence over EXPORT_* variables.
type ScheduleCommand struct {
	output
	Library  LibraryFlags
	Enable   bool
	Disable  bool
	Schedule string
	Dir      string
	Format   string
	Reset    bool
}

func NewScheduleCommand() *ScheduleCommand {
	return &ScheduleCommand{}
}

func (cmd *ScheduleCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("schedule", flag.ContinueOnError)
	cmd.Library.register(fs)
	fs.BoolVar(&cmd.Enable, "enable", false, "Enable the scheduled export")
	fs.BoolVar(&cmd.Disable, "disable", false, "Disable the scheduled export")
	fs.StringVar(&cmd.Schedule, "cron", "", `Cron schedule, e.g. "0 3 * * *"`)
	fs.StringVar(&cmd.Dir, "out", "", "Directory to export into")
	fs.StringVar(&cmd.Format, "format", "", "Output format")
	fs.BoolVar(&cmd.Reset, "reset", false, "Drop stored values and use the environment again")
	fs.Usage = usage(fs, "schedule [options]", "Show or change the scheduled export of a library. Changes apply on the next server start.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Enable && cmd.Disable {
		return fmt.Errorf("-enable and -disable are exclusive")
	}
	return nil
}

func (cmd *ScheduleCommand) Run() error {
	if cmd.Library.Remote != "" {
		return fmt.Errorf("the export schedule is stored with the library; run schedule on the server")
	}

	sess, err := cmd.Library.open(nil)
	if err != nil {
		return err
	}
	defer sess.close()

	store := settingsstore.New(sess.settings)
	if err := cmd.apply(store); err != nil {
		return err
	}

	info := store.GetExportSchedule(cmd.Library.cfg.ExportSchedule)
	cmd.printf("%-10s %-30v (%s)\n", "Enabled:", info.Enabled, info.EnabledSource)
	cmd.printf("%-10s %-30s (%s)\n", "Schedule:", info.Schedule, info.ScheduleSource)
	cmd.printf("%-10s %-30s (%s)\n", "Dir:", info.Dir, info.DirSource)
	cmd.printf("%-10s %-30s (%s)\n", "Format:", info.Format, info.FormatSource)

	status := store.GetExportStatus()
	if status.LastAt != nil {
		cmd.printf("%-10s %s, %s: %s\n", "Last run:", status.LastAt.Local().Format("2006-01-02 15:04"), status.Status, status.Message)
	} else {
		cmd.printf("%-10s never\n", "Last run:")
	}
	return nil
}

func (cmd *ScheduleCommand) apply(store *settingsstore.SettingsStore) error {
	if cmd.Reset {
		if err := store.ClearExportSchedule(); err != nil {
			return err
		}
	}
	if cmd.Enable || cmd.Disable {
		if err := store.SetExportEnabled(cmd.Enable); err != nil {
			return err
		}
	}
	if cmd.Schedule != "" {
		if err := store.SetExportSchedule(cmd.Schedule); err != nil {
			return err
		}
	}
	if cmd.Dir != "" {
		if err := store.SetExportDir(cmd.Dir); err != nil {
			return err
		}
	}
	if cmd.Format != "" {
		if err := store.SetExportFormat(cmd.Format); err != nil {
			return err
		}
	}
	return nil
}
