package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/alexflint/go-arg"
	"github.com/joho/godotenv"
)

// Args defines the command-line arguments with subcommands
type Args struct {
	Cat *CatCmd `arg:"subcommand:cat" help:"Fetch the selected files of a repository and concatenate them"`
	Ls  *LsCmd  `arg:"subcommand:ls" help:"List the files a cat run would fetch"`
}

func (Args) Description() string {
	return "ghcat concatenates files from a public GitHub repository into one prompt-ready document.\n"
}

// Runner dispatches to the selected subcommand
type Runner struct {
	Args Args
}

// NewRunner creates a new Runner
func NewRunner(args Args) *Runner {
	return &Runner{Args: args}
}

// Run dispatches to the appropriate subcommand
func (r *Runner) Run(ctx context.Context) error {
	switch {
	case r.Args.Cat != nil:
		catRunner, err := NewCatRunner(*r.Args.Cat)
		if err != nil {
			return err
		}
		return catRunner.Run(ctx)
	case r.Args.Ls != nil:
		lsRunner, err := NewLsRunner(*r.Args.Ls)
		if err != nil {
			return err
		}
		return lsRunner.Run(ctx)
	default:
		return fmt.Errorf("no subcommand specified, use 'cat' or 'ls'")
	}
}

func main() {
	// .env is optional; it only feeds the env-backed flags below
	_ = godotenv.Load()

	var args Args
	parser := arg.MustParse(&args)
	if args.Cat == nil && args.Ls == nil {
		parser.WriteHelp(os.Stderr)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRunner(args).Run(ctx); err != nil {
		log.Fatal(err)
	}
}
