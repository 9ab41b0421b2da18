// ABOUTME: Command-line entry point for the chancycle block scheduler
// ABOUTME: Wraps the config/solve/assemble/verify pipeline for CLI and --watch/--visual use

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/fsnotify/fsnotify"

	"chancycle/internal/assemble"
	"chancycle/internal/bumpers"
	"chancycle/internal/config"
	"chancycle/internal/model"
	"chancycle/internal/solver"
	"chancycle/internal/verify"
	"chancycle/internal/visual"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 1
	}

	mode := args[0]
	rest := args[1:]

	switch mode {
	case "generate":
		return runGenerate(rest)
	default:
		log.Printf("unknown mode %q", mode)
		usage()

		return 1
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: chancycle generate [--watch] [--visual] <config.toml>")
}

func runGenerate(args []string) int {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	watch := fs.Bool("watch", false, "re-run on every write to the config file")
	vis := fs.Bool("visual", false, "show a live progress view instead of a plain table")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if fs.NArg() != 1 {
		usage()
		return 1
	}

	path := fs.Arg(0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-stop
		cancel()
	}()

	if *vis {
		return runVisual(ctx, path)
	}

	if *watch {
		return runWatch(ctx, path)
	}

	if err := generateOnce(ctx, path); err != nil {
		log.Printf("generate error: %v", err)
		return exitCodeFor(err)
	}

	return 0
}

// generateOnce runs the full pipeline once and prints the result table.
func generateOnce(ctx context.Context, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	result, err := solver.Solve(ctx, cfg)
	if err != nil {
		return err
	}

	selector, err := bumpers.NewSelector(cfg.Bumpers, cfg.Solver.Seed)
	if err != nil {
		return &model.ConfigError{Reason: err.Error()}
	}

	cycle := assemble.Cycle(result, selector)

	findings := verify.Run(cfg, cycle.Entries)
	printResult(result, cycle, findings)

	if verify.HasErrors(findings) {
		return &model.VerifyFailureError{Findings: findings}
	}

	return nil
}

// runWatch re-runs generateOnce every time the config file is written.
func runWatch(ctx context.Context, path string) int {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("fsnotify error: %v", err)
		return 1
	}
	defer watcher.Close()

	// Watch the containing directory, not the file itself: editors commonly
	// replace a file on save (rename+create) rather than writing in place,
	// which drops a direct watch on the old inode.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		log.Printf("fsnotify watch %s: %v", dir, err)
		return 1
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		log.Printf("resolving %s: %v", path, err)
		return 1
	}

	if err := generateOnce(ctx, path); err != nil {
		log.Printf("generate error: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return 0
		case event, ok := <-watcher.Events:
			if !ok {
				return 0
			}

			eventAbs, err := filepath.Abs(event.Name)
			if err != nil || eventAbs != abs {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			fmt.Println("\nconfig changed, re-generating...")

			if err := generateOnce(ctx, path); err != nil {
				log.Printf("generate error: %v", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return 0
			}

			log.Printf("fsnotify error: %v", err)
		}
	}
}

func runVisual(ctx context.Context, path string) int {
	if err := visual.Run(ctx, path); err != nil {
		log.Printf("visual runner error: %v", err)
		return exitCodeFor(err)
	}

	return 0
}

func printResult(result model.SolveResult, cycle model.Cycle, findings []model.Finding) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "blocks\t%d\n", len(result.Blocks))
	fmt.Fprintf(w, "total waste (s)\t%d\n", result.TotalWasteS)
	fmt.Fprintf(w, "repeats used\t%d\n", result.RepeatsUsed)
	fmt.Fprintf(w, "playlist entries\t%d\n", len(cycle.Entries))
	fmt.Fprintf(w, "seed\t%d\n", result.Seed)

	if err := w.Flush(); err != nil {
		log.Printf("warning: failed to flush output: %v", err)
	}

	if len(findings) == 0 {
		fmt.Println("\nverify: no findings")
		return
	}

	fmt.Println("\nverify findings:")

	for _, f := range findings {
		fmt.Println(" ", f.String())
	}
}

// exitCodeFor maps the error taxonomy to a process exit code; all of them
// are non-zero today, but kept distinct for callers that inspect $?.
func exitCodeFor(err error) int {
	switch err.(type) {
	case *model.ConfigError:
		return 2
	case *model.NoContentError:
		return 3
	case *model.InfeasibleError:
		return 4
	case *model.VerifyFailureError:
		return 5
	default:
		return 1
	}
}
