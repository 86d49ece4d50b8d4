package workspace

import (
	"errors"
	"sort"
	"strings"

	"github.com/richinex/mentorspace/internal/dsa"
)

// ErrBadQuery is returned by Search for an empty query or one spanning
// lines.
var ErrBadQuery = errors.New("invalid search query")

// Match is one search hit. Line and Column are 1-based; Text is the whole
// matching line.
type Match struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Text   string `json:"text"`
}

// searchIndex is a suffix array over every file joined by NUL, with the
// start offset of each file.
type searchIndex struct {
	version uint64
	sa      *dsa.SuffixArray
	text    string
	paths   []string
	starts  []int
}

const separator = "\x00"

func buildIndex(snap Snapshot) *searchIndex {
	idx := &searchIndex{version: snap.Version}
	var b strings.Builder
	files := make([]File, len(snap.Files))
	copy(files, snap.Files)
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	for _, f := range files {
		idx.paths = append(idx.paths, f.Path)
		idx.starts = append(idx.starts, b.Len())
		b.WriteString(f.Content)
		b.WriteString(separator)
	}
	idx.text = b.String()
	idx.sa = dsa.NewSuffixArray(idx.text)
	return idx
}

// Search finds every occurrence of query in file contents, ordered by path
// then position. At most limit matches are returned when limit > 0.
func (w *Workspace) Search(query string, limit int) ([]Match, error) {
	if query == "" || strings.ContainsAny(query, "\n"+separator) {
		return nil, ErrBadQuery
	}
	idx := w.searchIndex()

	var out []Match
	for _, off := range idx.sa.Lookup(query) {
		f := sort.Search(len(idx.starts), func(i int) bool { return idx.starts[i] > off }) - 1
		start, end := idx.starts[f], len(idx.text)-1
		if f+1 < len(idx.starts) {
			end = idx.starts[f+1] - 1
		}
		// Bounds come from the offsets table; content may itself hold NUL.
		content := idx.text[start:end]
		pos := off - start

		lineStart := strings.LastIndexByte(content[:pos], '\n') + 1
		lineEnd := strings.IndexByte(content[pos:], '\n')
		if lineEnd < 0 {
			lineEnd = len(content)
		} else {
			lineEnd += pos
		}
		out = append(out, Match{
			Path:   idx.paths[f],
			Line:   strings.Count(content[:pos], "\n") + 1,
			Column: pos - lineStart + 1,
			Text:   content[lineStart:lineEnd],
		})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// searchIndex returns an index for the current version, rebuilding it after
// any mutation.
func (w *Workspace) searchIndex() *searchIndex {
	snap := w.Snapshot()
	w.idxMu.Lock()
	defer w.idxMu.Unlock()
	if w.idx == nil || w.idx.version != snap.Version {
		w.idx = buildIndex(snap)
	}
	return w.idx
}
