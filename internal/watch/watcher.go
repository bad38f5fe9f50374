package watch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
)

// RunFunc re-runs the conversion pipeline and reports what changed.
type RunFunc func(ctx context.Context) (*RunResult, error)

// RunResult summarizes one pipeline execution for the status line and the
// report diff printed against the previous run.
type RunResult struct {
	Converted   int
	Unconverted int
	Files       int
	ReportDiff  string
}

// Options configures the watch behaviour.
type Options struct {
	// ChartDir is watched recursively. Empty when the input is a
	// pre-rendered manifest file carried in ExtraFiles instead.
	ChartDir string

	// ExtraFiles are watched individually: values overrides, the rules
	// file, a pre-rendered manifest.
	ExtraFiles []string

	// Debounce is the quiet period before a re-run triggers.
	Debounce time.Duration

	// Logger receives watcher-internal errors.
	Logger *slog.Logger

	// Out receives user-facing status lines.
	Out io.Writer
}

// DefaultOptions returns sensible default watch options.
func DefaultOptions() Options {
	return Options{
		Debounce: 500 * time.Millisecond,
		Logger:   slog.Default(),
		Out:      os.Stderr,
	}
}

// Run watches the configured paths and re-runs runFn after each settled
// burst of changes. It blocks until ctx is cancelled or SIGINT/SIGTERM
// arrives, after an initial run.
func Run(ctx context.Context, opts Options, runFn RunFunc) error {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Out == nil {
		opts.Out = io.Discard
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := setupWatches(watcher, opts); err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(opts.Out, "watching %s (debounce=%s)\n", watchTarget(opts), opts.Debounce)

	doRun(sigCtx, opts, runFn, "(initial)")

	debouncer := NewDebouncer(opts.Debounce, func(path string) {
		doRun(sigCtx, opts, runFn, path)
	})
	defer debouncer.Stop()

	return eventLoop(sigCtx, watcher, opts, debouncer)
}

// setupWatches registers the chart tree and every extra file.
func setupWatches(watcher *fsnotify.Watcher, opts Options) error {
	if opts.ChartDir != "" {
		if err := addRecursive(watcher, opts.ChartDir); err != nil {
			return fmt.Errorf("watching chart directory: %w", err)
		}
	}

	for _, f := range opts.ExtraFiles {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("resolving extra file %q: %w", f, err)
		}

		if err := watcher.Add(abs); err != nil {
			return fmt.Errorf("watching file %q: %w", abs, err)
		}
	}

	return nil
}

// watchTarget names the primary watched path for the startup message.
func watchTarget(opts Options) string {
	if opts.ChartDir != "" {
		return opts.ChartDir
	}

	if len(opts.ExtraFiles) > 0 {
		return opts.ExtraFiles[0]
	}

	return "(nothing)"
}

// eventLoop dispatches fsnotify events into the debouncer until shutdown.
func eventLoop(ctx context.Context, watcher *fsnotify.Watcher, opts Options, debouncer *Debouncer) error {
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(opts.Out, "\nshutting down watcher")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !isRelevant(event) {
				continue
			}

			// Directories created mid-run (e.g. helm dependency update)
			// need their own watches.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addRecursive(watcher, event.Name)
				}
			}

			debouncer.Trigger(event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			opts.Logger.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}

// doRun executes one pipeline run and prints its status line plus any
// report diff.
func doRun(ctx context.Context, opts Options, runFn RunFunc, trigger string) {
	stamp := time.Now().Format("15:04:05")

	result, err := runFn(ctx)
	if err != nil {
		fmt.Fprintf(opts.Out, "[%s] %s → ERROR: %v\n", stamp, trigger, err)
		return
	}

	fmt.Fprintf(opts.Out, "[%s] %s → OK (%d converted, %d skipped, %d files)\n",
		stamp, trigger, result.Converted, result.Unconverted, result.Files)

	if result.ReportDiff != "" {
		fmt.Fprintf(opts.Out, "  report changes:\n%s", indent(result.ReportDiff, "    "))
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}

	return strings.Join(lines, "\n") + "\n"
}

// addRecursive watches root and every non-hidden directory below it.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case !d.IsDir():
			return nil
		case path != root && strings.HasPrefix(d.Name(), "."):
			return filepath.SkipDir
		default:
			return watcher.Add(path)
		}
	})
}

// changeOps are the operations that can alter conversion input.
const changeOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// isRelevant drops events that cannot affect the conversion: chmod-only
// events, hidden files, and editor temp files.
func isRelevant(event fsnotify.Event) bool {
	if event.Op&changeOps == 0 {
		return false
	}

	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "#") {
		return false
	}

	return !strings.HasSuffix(name, "~") && !strings.HasSuffix(name, ".swp")
}
