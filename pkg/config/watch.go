package config

import (
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads path into store whenever it changes on disk, via a
// background fsnotify goroutine. The returned close func stops the
// watcher; callers should defer it.
func Watch(store *Store, path string) (func(), error) {
	if path == "" {
		return func() {}, nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("config: could not start watcher: %v", err)
		return func() {}, err
	}

	dir := filepath.Dir(path)
	name := filepath.Base(path)

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if filepath.Base(event.Name) != name {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					log.Printf("config: reload of %s failed: %v", path, err)
					continue
				}
				store.set(cfg)
				log.Printf("config: reloaded %s", path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("config: watcher error: %v", err)
			}
		}
	}()

	if err := watcher.Add(dir); err != nil {
		log.Printf("config: could not watch %s: %v", dir, err)
		watcher.Close()
		return func() {}, err
	}

	return func() { watcher.Close() }, nil
}
