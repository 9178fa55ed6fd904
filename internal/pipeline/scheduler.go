package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ppiankov/vocabmine/internal/model"
)

const (
	// DefaultWatchInterval applies to URL watches registered without one
	DefaultWatchInterval = time.Hour

	// fileDebounce coalesces the burst of events an editor save produces
	fileDebounce = 500 * time.Millisecond
)

// ErrSchedulerClosed is returned when adding a watch after Close
var ErrSchedulerClosed = errors.New("scheduler closed")

// Watch re-mines one source periodically (URLs) or on change (files)
type Watch struct {
	ID       string               `json:"id"`
	Spec     model.SourceSpec     `json:"spec"`
	Interval time.Duration        `json:"interval"`
	Options  *model.MiningOptions `json:"options,omitempty"`
}

// RunFunc mines the source of one watch
type RunFunc func(ctx context.Context, w Watch) (*model.Result, error)

// ResultHandler receives the outcome of every watch run
type ResultHandler func(w Watch, result *model.Result, err error)

type watchTask struct {
	watch  Watch
	cancel context.CancelFunc
	done   chan struct{}
}

// Scheduler owns the active watches. Each watch runs in its own goroutine
// until stopped or the scheduler is closed.
type Scheduler struct {
	run     RunFunc
	logger  zerolog.Logger
	handler ResultHandler

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	watches map[string]*watchTask
	closed  bool
	wg      sync.WaitGroup
}

// NewScheduler creates an empty scheduler
func NewScheduler(run RunFunc, logger zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		run:     run,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		watches: make(map[string]*watchTask),
	}
}

// OnResult sets the handler called after each run. The handler runs on the
// watch goroutine and must not call Stop.
func (s *Scheduler) OnResult(h ResultHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// Add registers a watch and runs it once immediately. File sources re-run
// on writes; other sources re-run every Interval. Returns the watch ID.
func (s *Scheduler) Add(w Watch) (string, error) {
	if w.Spec.Locator == "" {
		return "", fmt.Errorf("%w: watch needs a locator", model.ErrInvalidConfig)
	}
	if w.Interval < 0 {
		return "", fmt.Errorf("%w: watch interval must not be negative", model.ErrInvalidConfig)
	}
	if w.Interval == 0 {
		w.Interval = DefaultWatchInterval
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}

	var fsw *fsnotify.Watcher
	if w.Spec.Type == model.SourceFile {
		var err error
		if fsw, err = watchFile(w.Spec.Locator); err != nil {
			return "", err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		if fsw != nil {
			fsw.Close()
		}
		return "", ErrSchedulerClosed
	}
	if _, exists := s.watches[w.ID]; exists {
		if fsw != nil {
			fsw.Close()
		}
		return "", fmt.Errorf("%w: watch %s already registered", model.ErrInvalidConfig, w.ID)
	}

	ctx, cancel := context.WithCancel(s.ctx)
	task := &watchTask{watch: w, cancel: cancel, done: make(chan struct{})}
	s.watches[w.ID] = task

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(task.done)
		if fsw != nil {
			defer fsw.Close()
			s.loopFile(ctx, w, fsw)
			return
		}
		s.loopTicker(ctx, w)
	}()

	s.logger.Info().
		Str("watch_id", w.ID).
		Str("locator", w.Spec.Locator).
		Str("type", string(w.Spec.Type)).
		Dur("interval", w.Interval).
		Msg("watch added")
	return w.ID, nil
}

// Stop cancels one watch and waits for its goroutine. Reports whether the
// watch existed.
func (s *Scheduler) Stop(id string) bool {
	s.mu.Lock()
	task, ok := s.watches[id]
	if ok {
		delete(s.watches, id)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}

	task.cancel()
	<-task.done
	s.logger.Info().Str("watch_id", id).Msg("watch stopped")
	return true
}

// List returns the active watches ordered by ID
func (s *Scheduler) List() []Watch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Watch, 0, len(s.watches))
	for _, task := range s.watches {
		out = append(out, task.watch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close cancels every watch and waits for all goroutines to exit
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.watches = make(map[string]*watchTask)
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) loopTicker(ctx context.Context, w Watch) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	s.execute(ctx, w)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.execute(ctx, w)
		}
	}
}

// loopFile re-mines after writes to the watched file settle. The parent
// directory is watched so editors that replace the file are still seen.
func (s *Scheduler) loopFile(ctx context.Context, w Watch, fsw *fsnotify.Watcher) {
	target := filepath.Clean(localPath(w.Spec.Locator))
	debounce := time.NewTimer(fileDebounce)
	debounce.Stop()
	defer debounce.Stop()

	s.execute(ctx, w)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				debounce.Reset(fileDebounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			s.logger.Warn().Err(err).Str("watch_id", w.ID).Msg("file watcher error")

		case <-debounce.C:
			s.execute(ctx, w)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, w Watch) {
	result, err := s.run(ctx, w)
	if ctx.Err() != nil {
		return
	}

	if err != nil {
		s.logger.Warn().Err(err).Str("watch_id", w.ID).Msg("watch run failed")
	} else {
		s.logger.Debug().
			Str("watch_id", w.ID).
			Str("state", string(result.State)).
			Int("terms", len(result.Terms)).
			Msg("watch run finished")
	}

	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	if h != nil {
		h(w, result, err)
	}
}

func localPath(locator string) string {
	return strings.TrimPrefix(locator, "file://")
}

func watchFile(locator string) (*fsnotify.Watcher, error) {
	path := localPath(locator)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(filepath.Clean(path))); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	return fsw, nil
}
