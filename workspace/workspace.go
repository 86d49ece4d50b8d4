// Package workspace holds the set of open files, their content and the
// active file.
//
// Files live in an arena slice kept in insertion order with a path index
// beside it; the active file is an index into the arena (-1 when none).
// Every mutation changes the mapping and the active pointer under one
// write lock, so readers never observe a dangling active file.
package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/richinex/mentorspace/internal/dsa"
	"github.com/richinex/mentorspace/internal/logging"
	"github.com/richinex/mentorspace/model"
)

// ErrNotFound is returned when an operation names a path that is not open.
var ErrNotFound = errors.New("file not found")

const noActive = -1

// File is a snapshot of one open file.
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Snapshot is a consistent copy of the whole workspace.
type Snapshot struct {
	Files   []File `json:"files"`
	Active  string `json:"active,omitempty"`
	Version uint64 `json:"version"`
}

type entry struct {
	path    string
	content string
}

// Workspace is safe for concurrent use.
type Workspace struct {
	mu      sync.RWMutex
	entries []entry
	index   map[string]int
	active  int
	version uint64
	tree    *dsa.Trie[struct{}]
	logger  *slog.Logger

	idxMu sync.Mutex
	idx   *searchIndex
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the logger used for mutation events.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workspace) { w.logger = logger }
}

// WithFiles seeds the workspace. Files are added in the given order and the
// first one becomes active.
func WithFiles(files ...File) Option {
	return func(w *Workspace) {
		for _, f := range files {
			w.txn().Add(f.Path, f.Content)
		}
		if len(w.entries) > 0 {
			w.active = 0
		}
		w.version = 0
	}
}

// DefaultFiles is the starter project a fresh session opens with.
func DefaultFiles() []File {
	return []File{
		{Path: "index.py", Content: "def hello():\n    print(\"Hello, AI Mentor!\")\n\nhello()"},
		{Path: "utils.py", Content: "def add(a, b):\n    return a + b\n"},
	}
}

// New creates an empty workspace unless WithFiles is given.
func New(opts ...Option) *Workspace {
	w := &Workspace{
		index:  make(map[string]int),
		active: noActive,
		tree:   dsa.NewTrie[struct{}](),
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logging.OrNop(w.logger)
	return w
}

// SetActive makes path the active file.
func (w *Workspace) SetActive(path string) error {
	return w.Batch(func(tx *Txn) error { return tx.SetActive(path) })
}

// Update replaces the content of an existing file.
func (w *Workspace) Update(path, content string) error {
	return w.Batch(func(tx *Txn) error { return tx.Update(path, content) })
}

// Add inserts or replaces a file. A newly inserted file becomes active;
// replacing an existing file leaves the active file alone.
func (w *Workspace) Add(path, content string) {
	_ = w.Batch(func(tx *Txn) error {
		tx.Add(path, content)
		return nil
	})
}

// Remove deletes a file. When it was active, the first remaining file in
// insertion order becomes active, or none when the workspace is empty.
func (w *Workspace) Remove(path string) error {
	return w.Batch(func(tx *Txn) error { return tx.Remove(path) })
}

// Batch runs fn with exclusive access. If fn returns an error every change
// it made is rolled back and the error is returned unchanged.
func (w *Workspace) Batch(fn func(tx *Txn) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	saved := w.save()
	tx := w.txn()
	if err := fn(tx); err != nil {
		w.restore(saved)
		w.logger.Debug("workspace.batch_rolled_back", "error", err)
		return err
	}
	for _, ev := range tx.events {
		w.logger.Debug(ev.name, "path", ev.path, "version", w.version)
	}
	return nil
}

// Get returns the content of path.
func (w *Workspace) Get(path string) (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.txn().Get(path)
}

// Has reports whether path is open.
func (w *Workspace) Has(path string) bool {
	_, ok := w.Get(path)
	return ok
}

// Active returns the active path, if any.
func (w *Workspace) Active() (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.active == noActive {
		return "", false
	}
	return w.entries[w.active].path, true
}

// ActiveFile returns the active file, if any.
func (w *Workspace) ActiveFile() (File, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.active == noActive {
		return File{}, false
	}
	e := w.entries[w.active]
	return File{Path: e.path, Content: e.content}, true
}

// Paths returns open paths in insertion order.
func (w *Workspace) Paths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	paths := make([]string, len(w.entries))
	for i, e := range w.entries {
		paths[i] = e.path
	}
	return paths
}

// Files returns a copy of the path to content mapping.
func (w *Workspace) Files() model.FileMap {
	w.mu.RLock()
	defer w.mu.RUnlock()
	files := make(model.FileMap, len(w.entries))
	for _, e := range w.entries {
		files[e.path] = e.content
	}
	return files
}

// Snapshot returns every file, the active path and the version as of one
// instant.
func (w *Workspace) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot()
}

func (w *Workspace) snapshot() Snapshot {
	snap := Snapshot{Files: make([]File, len(w.entries)), Version: w.version}
	for i, e := range w.entries {
		snap.Files[i] = File{Path: e.path, Content: e.content}
	}
	if w.active != noActive {
		snap.Active = w.entries[w.active].path
	}
	return snap
}

// Len returns the number of open files.
func (w *Workspace) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entries)
}

// Version increases on every successful mutation.
func (w *Workspace) Version() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.version
}

// List returns the immediate children of dir, with directories suffixed by
// "/". An empty dir lists the root.
func (w *Workspace) List(dir string) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tree.Children(dir)
}

// Fingerprint digests every (path, content) pair. Equal file sets produce
// equal fingerprints regardless of insertion order.
func (w *Workspace) Fingerprint() string {
	return Fingerprint(w.Files())
}

// Fingerprint digests a file map the same way Workspace.Fingerprint does.
func Fingerprint(files model.FileMap) string {
	h := xxhash.New()
	for _, p := range files.Paths() {
		content := files[p]
		_, _ = h.WriteString(strconv.Itoa(len(p)))
		_, _ = h.WriteString(":")
		_, _ = h.WriteString(p)
		_, _ = h.WriteString(strconv.Itoa(len(content)))
		_, _ = h.WriteString(":")
		_, _ = h.WriteString(content)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

type savedState struct {
	entries []entry
	active  int
	version uint64
}

func (w *Workspace) save() savedState {
	entries := make([]entry, len(w.entries))
	copy(entries, w.entries)
	return savedState{entries: entries, active: w.active, version: w.version}
}

func (w *Workspace) restore(s savedState) {
	w.entries = s.entries
	w.active = s.active
	w.version = s.version
	w.reindex()
}

func (w *Workspace) reindex() {
	w.index = make(map[string]int, len(w.entries))
	w.tree.Clear()
	for i, e := range w.entries {
		w.index[e.path] = i
		w.tree.Insert(e.path, struct{}{})
	}
}

func (w *Workspace) txn() *Txn { return &Txn{w: w} }

// Txn is the view handed to Batch. It must not be used after Batch returns.
type Txn struct {
	w      *Workspace
	events []event
}

type event struct {
	name string
	path string
}

func (tx *Txn) record(name, path string) {
	tx.w.version++
	tx.events = append(tx.events, event{name: name, path: path})
}

// Get returns the content of path.
func (tx *Txn) Get(path string) (string, bool) {
	i, ok := tx.w.index[path]
	if !ok {
		return "", false
	}
	return tx.w.entries[i].content, true
}

// Has reports whether path is open.
func (tx *Txn) Has(path string) bool {
	_, ok := tx.w.index[path]
	return ok
}

// Add inserts or replaces path. A newly inserted path becomes active.
func (tx *Txn) Add(path, content string) {
	w := tx.w
	if i, ok := w.index[path]; ok {
		w.entries[i].content = content
		tx.record("workspace.replaced", path)
		return
	}
	w.entries = append(w.entries, entry{path: path, content: content})
	w.index[path] = len(w.entries) - 1
	w.tree.Insert(path, struct{}{})
	w.active = len(w.entries) - 1
	tx.record("workspace.added", path)
}

// Update replaces the content of an existing path.
func (tx *Txn) Update(path, content string) error {
	i, ok := tx.w.index[path]
	if !ok {
		return fmt.Errorf("update %q: %w", path, ErrNotFound)
	}
	tx.w.entries[i].content = content
	tx.record("workspace.updated", path)
	return nil
}

// SetActive makes path the active file.
func (tx *Txn) SetActive(path string) error {
	i, ok := tx.w.index[path]
	if !ok {
		return fmt.Errorf("set active %q: %w", path, ErrNotFound)
	}
	if tx.w.active == i {
		return nil
	}
	tx.w.active = i
	tx.record("workspace.activated", path)
	return nil
}

// Remove deletes path and reassigns the active file if needed.
func (tx *Txn) Remove(path string) error {
	w := tx.w
	i, ok := w.index[path]
	if !ok {
		return fmt.Errorf("remove %q: %w", path, ErrNotFound)
	}
	w.entries = append(w.entries[:i], w.entries[i+1:]...)
	delete(w.index, path)
	w.tree.Delete(path)
	for j := i; j < len(w.entries); j++ {
		w.index[w.entries[j].path] = j
	}
	switch {
	case len(w.entries) == 0:
		w.active = noActive
	case w.active == i:
		w.active = 0
	case w.active > i:
		w.active--
	}
	tx.record("workspace.removed", path)
	return nil
}

// Paths returns open paths in insertion order.
// Snapshot returns the state including the changes made so far. Taken as
// the last step of a successful batch, it is exactly what the batch
// committed.
func (tx *Txn) Snapshot() Snapshot { return tx.w.snapshot() }

func (tx *Txn) Paths() []string {
	paths := make([]string, len(tx.w.entries))
	for i, e := range tx.w.entries {
		paths[i] = e.path
	}
	return paths
}
