package cli

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/mrlokans/storyshelf/internal/entities"
)

// ListCommand lists the stories of a library
type ListCommand struct {
	output
	Library LibraryFlags
	Source  string
	Author  string
	Tag     string
	Search  string
}

func NewListCommand() *ListCommand {
	return &ListCommand{}
}

func (cmd *ListCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	cmd.Library.register(fs)
	fs.StringVar(&cmd.Source, "source", "", "Only stories of this source")
	fs.StringVar(&cmd.Author, "author", "", "Only stories of this author")
	fs.StringVar(&cmd.Tag, "tag", "", "Only stories with this tag")
	fs.StringVar(&cmd.Search, "search", "", "Fuzzy search in titles and authors")
	fs.Usage = usage(fs, "list [options]", "List the stories of a library.")
	return fs.Parse(args)
}

func (cmd *ListCommand) Run() error {
	ctx := context.Background()

	sess, err := cmd.Library.open(nil)
	if err != nil {
		return err
	}
	defer sess.close()

	list, err := sess.lib.GetList(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to list stories: %w", err)
	}

	metas := list.Metas()
	switch {
	case cmd.Search != "":
		metas = list.Search(cmd.Search)
	case cmd.Source != "":
		metas = list.FilterBySource(cmd.Source)
	case cmd.Author != "":
		metas = list.FilterByAuthor(cmd.Author)
	case cmd.Tag != "":
		metas = list.FilterByTag(cmd.Tag)
	}

	if len(metas) == 0 {
		cmd.println("No stories found")
		return nil
	}
	cmd.printTable(metas)
	return nil
}

func (cmd *ListCommand) printTable(metas []*entities.MetaData) {
	tw := tabwriter.NewWriter(cmd.writer(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LUID\tTITLE\tAUTHOR\tSOURCE\tWORDS")
	for _, meta := range metas {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", meta.LUID, meta.Title, meta.Author, meta.Source, meta.Words)
	}
	tw.Flush()
}
