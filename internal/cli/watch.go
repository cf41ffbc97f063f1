package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ironsheep/signature-tools-mcp/internal/logger"
	"github.com/ironsheep/signature-tools-mcp/internal/verifier"
)

var (
	watchKey       string
	watchThreshold float64
	watchExisting  bool
)

// settleDelay is how long an undecodable file must stay unchanged before its
// load error is reported.
const settleDelay = 2 * time.Second

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Verify scans as they arrive in a directory",
		Long: `Monitor a directory and verify every new or rewritten image against the
template for a key. Files are processed one at a time in arrival order.
Press Ctrl+C to stop watching.

Examples:
  sigverify watch --key alice ./inbox
  sigverify watch --key alice --existing -o json ./inbox`,
		Args: cobra.ExactArgs(1),
		RunE: runWatch,
	}

	cmd.Flags().StringVarP(&watchKey, "key", "k", "", "template key (required)")
	cmd.Flags().Float64VarP(&watchThreshold, "threshold", "t", 0, "decision threshold in [-1, 1] (default from config)")
	cmd.Flags().BoolVar(&watchExisting, "existing", false, "also verify images already in the directory")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := args[0]
	if err := requireKey(watchKey); err != nil {
		return err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}

	svc, cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	// Fail fast on a missing template instead of once per file.
	if _, err := svc.Store().Load(watchKey); err != nil {
		return err
	}

	box := newInbox(svc, watchKey, thresholdFlag(cmd, watchThreshold, svc), cmd.OutOrStdout(), cfg.Output.Format, log)
	if watchExisting {
		if err := box.processExisting(dir); err != nil {
			return err
		}
	}

	watcher, err := createWatcher(dir)
	if err != nil {
		return err
	}
	defer cleanupWatcher(watcher, log)

	log.Info("watching %s for key %s, press Ctrl+C to stop", dir, watchKey)
	return runWatchLoop(watcher, box)
}

// createWatcher creates and configures a new file system watcher
func createWatcher(dir string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	return watcher, nil
}

// cleanupWatcher safely closes watcher with error logging
func cleanupWatcher(watcher *fsnotify.Watcher, log *logger.Logger) {
	if err := watcher.Close(); err != nil {
		log.Warn("failed to close watcher: %v", err)
	}
}

// runWatchLoop runs the main watch loop with signal handling
func runWatchLoop(watcher *fsnotify.Watcher, box *inbox) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	ticker := time.NewTicker(settleDelay / 2)
	defer ticker.Stop()

	for {
		select {
		case <-signals:
			box.log.Info("stopping watch")
			cancel()
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			box.flushPending(now)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			box.handle(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			box.log.Warn("watcher error: %v", err)
		}
	}
}

// fileStamp identifies one version of a file on disk.
type fileStamp struct {
	size    int64
	modTime int64
}

// pendingFile is a file that failed to decode and may still be being written.
type pendingFile struct {
	stamp fileStamp
	err   error
	since time.Time
}

// inbox verifies the images that land in a watched directory.
type inbox struct {
	svc       *verifier.Service
	key       string
	threshold float64
	out       io.Writer
	format    string
	log       *logger.Logger

	seen    map[string]fileStamp
	pending map[string]pendingFile
}

func newInbox(svc *verifier.Service, key string, threshold float64, out io.Writer, format string, log *logger.Logger) *inbox {
	if log == nil {
		log = logger.Nop()
	}
	return &inbox{
		svc:       svc,
		key:       key,
		threshold: threshold,
		out:       out,
		format:    format,
		log:       log,
		seen:      make(map[string]fileStamp),
		pending:   make(map[string]pendingFile),
	}
}

func (b *inbox) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if !isImageFile(event.Name) {
		return
	}
	b.process(event.Name)
}

// processExisting verifies the images already in dir, in name order.
func (b *inbox) processExisting(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && isImageFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		b.process(filepath.Join(dir, name))
	}
	return nil
}

// process verifies path once per on-disk version, so a file that is still
// being written is verified again after its next write. A file that cannot be
// decoded is held as pending until it settles.
func (b *inbox) process(path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	stamp := fileStamp{size: info.Size(), modTime: info.ModTime().UnixNano()}
	if prev, ok := b.seen[path]; ok && prev == stamp {
		delete(b.pending, path)
		return
	}

	d, err := b.svc.Verify(b.key, path, b.threshold)
	if err != nil {
		if verifier.Kind(err) == verifier.KindImageLoad {
			// Reported by flushPending unless another write arrives first.
			if prev, ok := b.pending[path]; !ok || prev.stamp != stamp {
				b.pending[path] = pendingFile{stamp: stamp, err: err, since: time.Now()}
			}
			b.log.DebugWithFields("image not complete yet", []logger.Field{logger.Path(path)})
			return
		}
		delete(b.pending, path)
		b.report(path, stamp, err)
		return
	}

	delete(b.pending, path)
	b.seen[path] = stamp
	if err := renderDecision(b.out, b.format, b.key, path, d); err != nil {
		b.log.Warn("failed to write result: %v", err)
	}
}

// flushPending reports the load errors of files that have not changed for
// settleDelay. Files that changed since they failed are verified again.
func (b *inbox) flushPending(now time.Time) {
	paths := make([]string, 0, len(b.pending))
	for path := range b.pending {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		p := b.pending[path]
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			delete(b.pending, path)
			continue
		}
		if (fileStamp{size: info.Size(), modTime: info.ModTime().UnixNano()}) != p.stamp {
			b.process(path)
			continue
		}
		if now.Sub(p.since) < settleDelay {
			continue
		}
		delete(b.pending, path)
		b.report(path, p.stamp, p.err)
	}
}

func (b *inbox) report(path string, stamp fileStamp, err error) {
	b.seen[path] = stamp
	b.log.WarnWithFields("verification failed", []logger.Field{logger.Path(path), logger.Error(err)})
	PrintError(b.out, fmt.Errorf("%s: %w", path, err))
}

func isImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}
