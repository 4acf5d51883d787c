// This file implements a token store persisted to a single file, so the
// daemon and the CLI share one login. Changes made by another process are
// picked up through an fsnotify watch on the containing directory.

package credentials

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileStore persists the token to path with 0600 permissions.
type FileStore struct {
	path string

	mu    sync.RWMutex
	token string

	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	onChange func(token string, present bool)
}

// NewFileStore opens the store at path, loading any token already saved there.
func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path}
	if _, err := fs.reload(); err != nil {
		return nil, err
	}
	return fs, nil
}

// Path returns the backing file.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Token() (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.token, f.token != ""
}

// Set writes the token atomically (temp file + rename).
func (f *FileStore) Set(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".token-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary token file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(token); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write token: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to restrict token file permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close token file: %w", err)
	}

	// The rename and the in-memory update happen under one lock so the
	// watcher never sees our own write as a foreign change.
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to store token: %w", err)
	}
	f.token = token
	return nil
}

// Clear removes the token file. A missing file is not an error.
func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	f.token = ""
	return nil
}

// reload rereads the file and reports whether the token differs from the
// one held in memory.
func (f *FileStore) reload() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		data, err = nil, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	changed := token != f.token
	f.token = token
	return changed, nil
}

// Watch starts observing the token file for changes made by other processes.
// onChange, if not nil, is called after every reload.
func (f *FileStore) Watch(onChange func(token string, present bool)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}
	// The directory is watched rather than the file: the file is replaced
	// by rename on every Set and may not exist yet.
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}
	f.watcher = watcher
	f.stopChan = make(chan struct{})
	f.onChange = onChange

	go f.processEvents(watcher, f.stopChan)
	log.Printf("Watching credentials file: %s", f.path)
	return nil
}

// Close stops the watcher started by Watch.
func (f *FileStore) Close() error {
	if f.watcher == nil {
		return nil
	}
	close(f.stopChan)
	err := f.watcher.Close()
	f.watcher = nil
	return err
}

func (f *FileStore) processEvents(watcher *fsnotify.Watcher, stop chan struct{}) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			f.handleEvent(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Credentials watcher error: %v", err)
		case <-stop:
			return
		}
	}
}

func (f *FileStore) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(f.path) {
		return
	}
	if event.Op == fsnotify.Chmod {
		return
	}

	changed, err := f.reload()
	if err != nil {
		log.Printf("Failed to reload credentials after %s: %v", event.Op, err)
		return
	}
	if !changed {
		return
	}
	after, present := f.Token()
	log.Printf("Credentials changed on disk (present=%v)", present)
	if f.onChange != nil {
		f.onChange(after, present)
	}
}
