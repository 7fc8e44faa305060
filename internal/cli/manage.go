package cli

import (
	"context"
	"flag"
	"fmt"
)

// DeleteCommand removes a story
type DeleteCommand struct {
	output
	Library LibraryFlags
	LUIDs   []string
}

func NewDeleteCommand() *DeleteCommand {
	return &DeleteCommand{}
}

func (cmd *DeleteCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	cmd.Library.register(fs)
	fs.Usage = usage(fs, "delete [options] <luid>...", "Delete stories from a library.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("delete needs at least one LUID")
	}
	cmd.LUIDs = fs.Args()
	return nil
}

func (cmd *DeleteCommand) Run() error {
	sess, err := cmd.Library.open(nil)
	if err != nil {
		return err
	}
	defer sess.close()

	for _, luid := range cmd.LUIDs {
		if err := sess.lib.Delete(context.Background(), luid); err != nil {
			return err
		}
		cmd.printf("Deleted %s\n", luid)
	}
	return nil
}

// Field is a metadata field the change commands can set.
type Field string

const (
	FieldSource Field = "source"
	FieldTitle  Field = "title"
	FieldAuthor Field = "author"
)

// ChangeCommand sets the source, title or author of a story
type ChangeCommand struct {
	output
	Library LibraryFlags
	Field   Field
	LUID    string
	Value   string
}

func NewChangeCommand(field Field) *ChangeCommand {
	return &ChangeCommand{Field: field}
}

func (cmd *ChangeCommand) ParseFlags(args []string) error {
	name := "set-" + string(cmd.Field)
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	cmd.Library.register(fs)
	fs.Usage = usage(fs, name+" [options] <luid> <value>", fmt.Sprintf("Change the %s of a story.", cmd.Field))
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("%s needs a LUID and a value", name)
	}
	cmd.LUID, cmd.Value = fs.Arg(0), fs.Arg(1)
	return nil
}

func (cmd *ChangeCommand) Run() error {
	ctx := context.Background()

	sess, err := cmd.Library.open(nil)
	if err != nil {
		return err
	}
	defer sess.close()

	switch cmd.Field {
	case FieldSource:
		err = sess.lib.ChangeSource(ctx, cmd.LUID, cmd.Value, nil)
	case FieldTitle:
		err = sess.lib.ChangeTitle(ctx, cmd.LUID, cmd.Value, nil)
	case FieldAuthor:
		err = sess.lib.ChangeAuthor(ctx, cmd.LUID, cmd.Value, nil)
	default:
		return fmt.Errorf("unknown field %q", cmd.Field)
	}
	if err != nil {
		return err
	}
	cmd.printf("Changed %s of %s to %q\n", cmd.Field, cmd.LUID, cmd.Value)
	return nil
}
