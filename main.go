package main

import (
	"fmt"
	"os"

	"github.com/mrlokans/storyshelf/internal/cli"
	"github.com/mrlokans/storyshelf/internal/config"
	"github.com/mrlokans/storyshelf/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

type command interface {
	ParseFlags(args []string) error
	Run() error
}

func main() {
	// If no arguments or "serve" command, run the library server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		if err := entrypoint.Run(config.NewConfig(), Version); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	name := os.Args[1]
	args := os.Args[2:]

	var cmd command
	switch name {
	case "list":
		cmd = cli.NewListCommand()
	case "info":
		cmd = cli.NewInfoCommand()
	case "import":
		cmd = cli.NewImportCommand()
	case "export":
		cmd = cli.NewExportCommand()
	case "export-all":
		cmd = cli.NewExportAllCommand()
	case "delete":
		cmd = cli.NewDeleteCommand()
	case "set-source":
		cmd = cli.NewChangeCommand(cli.FieldSource)
	case "set-title":
		cmd = cli.NewChangeCommand(cli.FieldTitle)
	case "set-author":
		cmd = cli.NewChangeCommand(cli.FieldAuthor)
	case "schedule":
		cmd = cli.NewScheduleCommand()
	case "status", "ping":
		cmd = cli.NewStatusCommand()
	case "stop":
		cmd = cli.NewStopCommand()
	case "version":
		fmt.Printf("storyshelf %s (%s)\n", Version, Commit)
		return
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve        Serve the library over the network (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  list         List stories\n")
	fmt.Fprintf(os.Stderr, "  info         Print the metadata of a story\n")
	fmt.Fprintf(os.Stderr, "  import       Import a story from a file or URL\n")
	fmt.Fprintf(os.Stderr, "  export       Export a story\n")
	fmt.Fprintf(os.Stderr, "  export-all   Export every story\n")
	fmt.Fprintf(os.Stderr, "  delete       Delete stories\n")
	fmt.Fprintf(os.Stderr, "  set-source   Change the source of a story\n")
	fmt.Fprintf(os.Stderr, "  set-title    Change the title of a story\n")
	fmt.Fprintf(os.Stderr, "  set-author   Change the author of a story\n")
	fmt.Fprintf(os.Stderr, "  schedule     Show or change the scheduled export\n")
	fmt.Fprintf(os.Stderr, "  status       Print whether a library is readable and writable\n")
	fmt.Fprintf(os.Stderr, "  stop         Stop a library server\n")
	fmt.Fprintf(os.Stderr, "  version      Print the version\n")
	fmt.Fprintf(os.Stderr, "\nEvery command works on the local library (-dir) or a server (-remote, -key).\n")
	fmt.Fprintf(os.Stderr, "Use '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
