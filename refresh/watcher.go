package refresh

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"

	"github.com/jonwraymond/promptrelay/observe"
)

// DefaultDebounce is the quiet period before an agent's list is rebuilt.
const DefaultDebounce = 500 * time.Millisecond

// Watcher rebuilds an agent's asset list when files in its directory are
// created, removed or renamed. Bursts of events collapse into one rebuild
// per agent.
type Watcher struct {
	assets   *Assets
	debounce time.Duration
	logger   observe.Logger

	fsw  *fsnotify.Watcher
	fire chan string
	done chan struct{}

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewWatcher watches the image root of assets and every agent directory in
// it. A debounce of zero uses DefaultDebounce.
func NewWatcher(assets *Assets, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create fsnotify watcher")
	}
	w := &Watcher{
		assets:   assets,
		debounce: debounce,
		logger:   assets.logger.With(observe.Op{Component: "assets", Name: "watch"}),
		fsw:      fsw,
		fire:     make(chan string),
		done:     make(chan struct{}),
		timers:   make(map[string]*time.Timer),
	}

	root := assets.Root()
	if err := fsw.Add(root); err != nil {
		_ = fsw.Close()
		return nil, errors.Wrapf(err, "watch image root %s", root)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		_ = fsw.Close()
		return nil, errors.Wrapf(err, "read image root %s", root)
	}
	for _, e := range entries {
		if _, ok := AgentOf(e); ok {
			w.watchDir(filepath.Join(root, e.Name()))
		}
	}
	return w, nil
}

// Run processes events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn(ctx, "asset watcher error", observe.F("error", err))

		case agent := <-w.fire:
			w.assets.Refresh(ctx, agent, w.assets.Dir(agent))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	root := filepath.Clean(w.assets.Root())
	parent := filepath.Dir(event.Name)

	if parent == root {
		agent, ok := agentName(filepath.Base(event.Name))
		if !ok {
			return
		}
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				w.watchDir(event.Name)
			}
		}
		w.logger.Debug(ctx, "asset directory changed", observe.F("agent", agent), observe.F("op", event.Op.String()))
		w.schedule(agent)
		return
	}

	if filepath.Dir(parent) != root {
		return
	}
	if agent, ok := agentName(filepath.Base(parent)); ok {
		w.schedule(agent)
	}
}

func (w *Watcher) watchDir(dir string) {
	if err := w.fsw.Add(dir); err != nil {
		w.logger.Warn(context.Background(), "cannot watch asset directory", observe.F("dir", dir), observe.F("error", err))
	}
}

func (w *Watcher) schedule(agent string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[agent]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() {
		if !w.expire(agent, t) {
			return
		}
		select {
		case w.fire <- agent:
		case <-w.done:
		}
	})
	w.timers[agent] = t
}

// expire removes t as agent's pending timer. It reports false when a newer
// timer has replaced t, which then fires instead.
func (w *Watcher) expire(agent string, t *time.Timer) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timers[agent] != t {
		return false
	}
	delete(w.timers, agent)
	return true
}

func (w *Watcher) stop() {
	close(w.done)
	w.mu.Lock()
	for agent, t := range w.timers {
		t.Stop()
		delete(w.timers, agent)
	}
	w.mu.Unlock()
	_ = w.fsw.Close()
}
