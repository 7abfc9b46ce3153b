package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/fsnotify/fsnotify"

	"github.com/vivafolio/entsync/pkg/core"
)

// watchWorker feeds filesystem notifications into the service. Debouncing
// is the external watcher's job; every mapped event is forwarded as-is.
type watchWorker struct {
	*worker.BaseWorker
	service *Service
	events  chan fileEvent
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
}

func newWatchWorker(service *Service, events chan fileEvent) *watchWorker {
	return &watchWorker{
		BaseWorker: worker.NewBaseWorker("fs-watcher"),
		service:    service,
		events:     events,
	}
}

func (w *watchWorker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	for _, root := range w.service.config.WatchPaths {
		if err := recursiveAdd(watcher, root); err != nil {
			_ = watcher.Close()
			return err
		}
	}

	w.watcher = watcher

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *watchWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}
	return w.BaseWorker.Stop(ctx)
}

func (w *watchWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
		}
	})
}

func (w *watchWorker) run(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			w.service.logger.Error("watcher panic",
				"error", err,
				"stack", string(debug.Stack()),
			)
		}
	}()
	defer close(w.events)
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			w.processEvent(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.handleError(wErr)
		}
	}
}

func (w *watchWorker) processEvent(ctx context.Context, event fsnotify.Event) {
	w.service.logger.Debug("event received", "name", event.Name, "op", event.Op.String())

	// New directories must be watched before their contents change.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = recursiveAdd(w.watcher, event.Name)
			return
		}
	}

	eventType := mapEventType(event)
	if eventType == "" {
		return
	}
	if !w.service.eligible(event.Name) {
		return
	}

	select {
	case w.events <- fileEvent{Path: event.Name, Type: eventType}:
	case <-ctx.Done():
	}
}

func (w *watchWorker) handleError(err error) {
	w.service.logger.Error("fsnotify error", "error", err)
	if w.service.config.ErrorHandler != nil {
		w.service.config.ErrorHandler(err)
	}
}

func mapEventType(event fsnotify.Event) core.FileEventType {
	switch {
	case event.Has(fsnotify.Create):
		return core.FileAdded
	case event.Has(fsnotify.Write):
		return core.FileChanged
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return core.FileRemoved
	default:
		return ""
	}
}

func recursiveAdd(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
