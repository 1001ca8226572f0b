package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fsnotify/fsnotify"

	"splice-scan/internal/raster"
)

// Event is one watch outcome: a file that appeared in the drop directory
// together with its ingestion result or error.
type Event struct {
	Path   string
	Record *Record
	Err    error
}

// settleDelay is how long a file must stay quiet before it is ingested.
// Cameras and scanners write images in bursts; acting on the first write
// would read a half-transferred file.
const settleDelay = 500 * time.Millisecond

// Watch ingests label images dropped into dir until ctx is done. Files are
// processed one at a time in arrival order; the returned channel is closed
// when the watcher shuts down.
func (in *Ingestor) Watch(ctx context.Context, dir string, opts Options) (<-chan Event, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	events := make(chan Event, 16)
	go in.watchLoop(ctx, w, opts, events)
	return events, nil
}

// watchLoop coalesces bursts of filesystem events per path and ingests each
// file once it has settled. Ingestion runs on this goroutine so the engine
// is never used concurrently.
func (in *Ingestor) watchLoop(ctx context.Context, w *fsnotify.Watcher, opts Options, events chan<- Event) {
	defer close(events)
	defer w.Close()

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case e, ok := <-w.Events:
			if !ok {
				return
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if !raster.IsSupportedFormat(e.Name) {
				continue
			}
			pending[e.Name] = time.Now()

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Printf("Watcher error: %v", err)
			select {
			case events <- Event{Err: err}:
			case <-ctx.Done():
				return
			}

		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < settleDelay {
					continue
				}
				delete(pending, path)
				rec, err := in.IngestFile(ctx, path, opts)
				select {
				case events <- Event{Path: path, Record: rec, Err: err}:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}
