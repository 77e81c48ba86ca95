package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// WatchLogLevel reloads the config file at path whenever it changes and calls
// apply with the new logging level each time that level differs from the
// last one seen. Other settings are fixed for the life of the process and
// are ignored. It runs until ctx is cancelled.
//
// The parent directory is watched rather than the file so that editors which
// save by writing a temporary file and renaming it over path keep being seen.
// A reload that fails to load or validate is logged and skipped.
func WatchLogLevel(ctx context.Context, path string, apply func(level string)) error {
	path = filepath.Clean(path)

	cfg, err := Load(path)
	if err != nil {
		return err
	}
	current := cfg.Server.Logging.Level

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	log.Info().Str("path", path).Str("level", current).Msg("config: watching log level")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			// A rename over path arrives as Create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("config: reload failed, keeping log level")
				continue
			}
			level := cfg.Server.Logging.Level
			if level == current {
				log.Debug().Str("path", path).Msg("config: changed, log level unchanged")
				continue
			}
			log.Info().Str("from", current).Str("to", level).Msg("config: log level changed")
			current = level
			apply(level)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("config: watcher error")
		}
	}
}
