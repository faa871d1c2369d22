package sanitize

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/quietmetrics/beacon/pkg/observability"
)

// RuleWatcher hot-reloads a YAML rule file into a Sanitizer so the
// detection policy can be audited and adjusted without redeploying.
type RuleWatcher struct {
	path      string
	sanitizer *Sanitizer
	logger    *observability.Logger
	watcher   *fsnotify.Watcher
	done      chan struct{}
}

// WatchRules loads the rule file, applies it to the sanitizer and starts
// watching for changes. A file that later becomes invalid is logged and
// ignored; the previous policy stays active.
func WatchRules(path string, sanitizer *Sanitizer, logger *observability.Logger) (*RuleWatcher, error) {
	rules, err := LoadRulesFile(path)
	if err != nil {
		return nil, err
	}
	sanitizer.ReplaceRules(rules)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating rule watcher: %w", err)
	}
	// Watch the directory: editors replace files on save, which drops
	// watches on the file itself.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching rule directory: %w", err)
	}

	if logger == nil {
		logger = observability.NewNopLogger()
	}

	w := &RuleWatcher{
		path:      path,
		sanitizer: sanitizer,
		logger:    logger.WithComponent("sanitizer"),
		watcher:   fsw,
		done:      make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *RuleWatcher) run() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			rules, err := LoadRulesFile(w.path)
			if err != nil {
				w.logger.WithError(err).Warn("ignoring invalid rule file update")
				continue
			}
			w.sanitizer.ReplaceRules(rules)
			w.logger.WithField("path", w.path).Info("reloaded sanitizer rules")
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("rule watcher error")
		}
	}
}

// Close stops watching. Safe to call once.
func (w *RuleWatcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
