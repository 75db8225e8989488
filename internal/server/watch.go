package server

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mgb22/chatbotjourney/internal/config"
)

// watch pings SSE clients whenever target changes. The parent directory
// is watched so editors that replace the file by rename are still seen.
func (s *Server) watch(ctx context.Context, target string) error {
	abs, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("failed to resolve watch path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		s.logger.Error("failed to watch source", slog.String("path", abs), slog.String("error", err.Error()))
		<-ctx.Done()
		return nil
	}
	s.logger.Debug("watching source", slog.String("path", abs))

	debounce := s.cfg.Server.Debounce
	if debounce <= 0 {
		debounce = config.DefaultDebounce
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event, abs) {
				continue
			}

			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				c := s.notifier.Broadcast(abs)
				s.logger.Debug("source changed", slog.String("path", abs), slog.Uint64("seq", c.Seq))
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}

// relevant reports whether event touches target or one of its SQLite
// side files (-wal, -journal).
func relevant(event fsnotify.Event, target string) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Clean(event.Name)
	return name == target || strings.HasPrefix(name, target+"-")
}
