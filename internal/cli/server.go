package cli

import (
	"context"
	"flag"
	"fmt"
)

// StatusCommand prints the status of a library
type StatusCommand struct {
	output
	Library LibraryFlags
}

func NewStatusCommand() *StatusCommand {
	return &StatusCommand{}
}

func (cmd *StatusCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	cmd.Library.register(fs)
	fs.Usage = usage(fs, "status [options]", "Print whether a library can be read and written.")
	return fs.Parse(args)
}

func (cmd *StatusCommand) Run() error {
	sess, err := cmd.Library.open(nil)
	if err != nil {
		return err
	}
	defer sess.close()

	status := sess.lib.Status(context.Background())
	cmd.println(status.String())
	if !status.IsReady() {
		return fmt.Errorf("library is %s", status)
	}
	return nil
}

// StopCommand asks a library server to exit
type StopCommand struct {
	output
	Library LibraryFlags
}

func NewStopCommand() *StopCommand {
	return &StopCommand{}
}

func (cmd *StopCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("stop", flag.ContinueOnError)
	cmd.Library.register(fs)
	fs.Usage = usage(fs, "stop -remote <url> -key <key>", "Stop a library server.")
	return fs.Parse(args)
}

func (cmd *StopCommand) Run() error {
	if cmd.Library.Remote == "" {
		return ErrNeedsRemote
	}
	sess, err := cmd.Library.open(nil)
	if err != nil {
		return err
	}
	defer sess.close()

	if err := sess.client.Stop(context.Background()); err != nil {
		return err
	}
	cmd.println("Server stopped")
	return nil
}
