package index

import (
	"context"
	"log/slog"

	"github.com/windschord/context-mcp-sub001/internal/watcher"
)

// WatchProject starts a FileWatcher on rootPath and consumes its debounced
// events for the lifetime of ctx, keeping projectID's index incrementally
// up to date via UpdateFile/DeleteFile. It returns once the watcher is
// registered and running; event handling continues in a background
// goroutine until ctx is cancelled.
func (s *Service) WatchProject(ctx context.Context, projectID, rootPath string, opts watcher.Options) (*watcher.Watcher, error) {
	w := watcher.New(rootPath, opts)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = w.Stop()
				return
			case err, ok := <-w.Errors():
				if !ok {
					return
				}
				slog.Warn("file watcher error", slog.String("projectId", projectID), slog.String("error", err.Error()))
			case event, ok := <-w.Events():
				if !ok {
					return
				}
				s.handleWatchEvent(ctx, projectID, rootPath, event)
			}
		}
	}()

	return w, nil
}

func (s *Service) handleWatchEvent(ctx context.Context, projectID, rootPath string, event watcher.FileEvent) {
	slog.Debug("processing file event",
		slog.String("projectId", projectID),
		slog.String("path", event.Path),
		slog.String("type", event.Type.String()))

	var err error
	switch event.Type {
	case watcher.FileAdded, watcher.FileChanged:
		err = s.UpdateFile(ctx, projectID, rootPath, event.Path)
	case watcher.FileDeleted:
		err = s.DeleteFile(ctx, projectID, rootPath, event.Path)
	}
	if err != nil {
		slog.Warn("failed to process file event",
			slog.String("projectId", projectID),
			slog.String("path", event.Path),
			slog.String("type", event.Type.String()),
			slog.String("error", err.Error()))
	}
}
