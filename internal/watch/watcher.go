// Package watch reloads a knowledge directory when its files change. The
// knowledge base itself is single-threaded, so a reload builds a fresh one
// from the directory contents and hands it to the caller instead of mutating
// a live instance from the event loop.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"hornkb/internal/kb"
	"hornkb/internal/parser"
)

// Config controls a Watcher.
type Config struct {
	// Dir is the knowledge directory to watch.
	Dir string
	// Extension selects the files that count as knowledge files (".kb").
	Extension string
	// Debounce is how long a changed file must stay quiet before a reload.
	Debounce time.Duration
	// Knowledge configures each rebuilt knowledge base.
	Knowledge kb.Config
}

// Stats tracks watcher activity for diagnostics.
type Stats struct {
	FilesChanged  int
	Reloads       int
	ReloadErrors  int
	LastEventPath string
	LastEventTime time.Time
}

// Watcher watches a directory of knowledge files and rebuilds a knowledge
// base when a change settles.
type Watcher struct {
	mu          sync.Mutex
	cfg         Config
	log         *zap.Logger
	watcher     *fsnotify.Watcher
	onReload    func(*kb.KnowledgeBase)
	debounceMap map[string]time.Time
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	stats       Stats
}

// New creates a watcher over cfg.Dir. onReload receives each successfully
// rebuilt knowledge base; it runs on the watcher goroutine, so the callback
// owns the instance it is handed.
func New(cfg Config, logger *zap.Logger, onReload func(*kb.KnowledgeBase)) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Extension == "" {
		cfg.Extension = ".kb"
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		cfg:         cfg,
		log:         logger,
		watcher:     fsw,
		onReload:    onReload,
		debounceMap: make(map[string]time.Time),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs in a goroutine
// until Stop is called or ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.cfg.Dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	w.log.Info("watching knowledge directory", zap.String("dir", w.cfg.Dir))

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to drain.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.log.Error("closing watcher", zap.Error(err))
	}
	w.log.Info("watcher stopped")
}

// Stats returns a copy of the activity counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("watch error", zap.Error(err))
		case <-ticker.C:
			w.processSettled()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !strings.HasSuffix(event.Name, w.cfg.Extension) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	w.log.Debug("knowledge file changed",
		zap.String("path", event.Name),
		zap.Stringer("op", event.Op))

	w.mu.Lock()
	w.stats.FilesChanged++
	w.stats.LastEventPath = event.Name
	w.stats.LastEventTime = time.Now()
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

// processSettled triggers one reload once every pending change has stayed
// quiet past the debounce window.
func (w *Watcher) processSettled() {
	w.mu.Lock()
	if len(w.debounceMap) == 0 {
		w.mu.Unlock()
		return
	}
	now := time.Now()
	for _, eventTime := range w.debounceMap {
		if now.Sub(eventTime) < w.cfg.Debounce {
			w.mu.Unlock()
			return
		}
	}
	w.debounceMap = make(map[string]time.Time)
	w.mu.Unlock()

	w.reload()
}

func (w *Watcher) reload() {
	paths, err := knowledgeFiles(w.cfg.Dir, w.cfg.Extension)
	if err != nil {
		w.recordReloadError()
		w.log.Error("listing knowledge files", zap.Error(err))
		return
	}

	kbase := kb.New(w.cfg.Knowledge, w.log.Named("kb"))
	applied, err := parser.LoadFiles(context.Background(), kbase, paths)
	if err != nil {
		w.recordReloadError()
		w.log.Error("reload failed, keeping previous knowledge", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.stats.Reloads++
	w.mu.Unlock()
	w.log.Info("knowledge reloaded",
		zap.Int("files", len(paths)),
		zap.Int("directives", applied))

	if w.onReload != nil {
		w.onReload(kbase)
	}
}

func (w *Watcher) recordReloadError() {
	w.mu.Lock()
	w.stats.ReloadErrors++
	w.mu.Unlock()
}

// knowledgeFiles lists the knowledge files in dir in deterministic order.
func knowledgeFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
