package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/mrlokans/storyshelf/internal/library"
)

// InfoCommand prints the metadata of one story
type InfoCommand struct {
	output
	Library LibraryFlags
	LUID    string
}

func NewInfoCommand() *InfoCommand {
	return &InfoCommand{}
}

func (cmd *InfoCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	cmd.Library.register(fs)
	fs.Usage = usage(fs, "info [options] <luid>", "Print the metadata of a story.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("info needs exactly one LUID")
	}
	cmd.LUID = fs.Arg(0)
	return nil
}

func (cmd *InfoCommand) Run() error {
	ctx := context.Background()

	sess, err := cmd.Library.open(nil)
	if err != nil {
		return err
	}
	defer sess.close()

	meta, err := sess.lib.GetInfo(ctx, cmd.LUID)
	if err != nil {
		return err
	}
	if meta == nil {
		return fmt.Errorf("%w: %s", library.ErrNotFound, cmd.LUID)
	}

	field := func(name, value string) {
		if value != "" {
			cmd.printf("%-10s %s\n", name+":", value)
		}
	}
	field("LUID", meta.LUID)
	field("Title", meta.Title)
	field("Author", meta.Author)
	field("Source", meta.Source)
	field("Subject", meta.Subject)
	field("Publisher", meta.Publisher)
	field("Lang", meta.Lang)
	field("Date", meta.Date)
	field("Created", meta.Created)
	field("URL", meta.URL)
	field("Type", meta.Type)
	field("Tags", strings.Join(meta.Tags, ", "))
	cmd.printf("%-10s %d\n", "Words:", meta.Words)
	if meta.ImageDocument {
		cmd.printf("%-10s %s\n", "Kind:", "images")
	}

	cover, err := sess.lib.GetCover(ctx, cmd.LUID)
	if err != nil && !errors.Is(err, library.ErrNotFound) {
		return err
	}
	if cover != nil {
		cmd.printf("%-10s %d bytes\n", "Cover:", cover.Size())
	}
	return nil
}
