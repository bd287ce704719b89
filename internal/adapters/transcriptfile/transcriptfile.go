// Package transcriptfile reads calls from transcript text files.
//
// The call ID is the file name without its extension. Files named NAME.partN.txt are
// chunks of call NAME and are appended in ascending N after NAME.txt, if present.
// Directories contribute every .txt file they contain, in name order.
package transcriptfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/model"
)

// ErrNoFiles is returned when no transcript files were named.
var ErrNoFiles = errors.New("no transcript files")

var partName = regexp.MustCompile(`^(.+)\.part(\d+)\.txt$`)

type part struct {
	n    int
	text string
}

type group struct {
	id         string
	transcript string
	parts      []part
}

// Load reads paths into calls in the order their call IDs first appear.
func Load(paths []string) ([]model.Call, error) {
	files, err := expand(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	var order []string
	groups := make(map[string]*group)
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read transcript: %w", err)
		}
		key, id, n, isPart := identify(f)
		g, ok := groups[key]
		if !ok {
			g = &group{id: id}
			groups[key] = g
			order = append(order, key)
		}
		if isPart {
			g.parts = append(g.parts, part{n: n, text: string(data)})
		} else {
			g.transcript = string(data)
		}
	}

	calls := make([]model.Call, 0, len(order))
	for _, key := range order {
		g := groups[key]
		slices.SortStableFunc(g.parts, func(a, b part) int { return a.n - b.n })
		c := model.Call{CallID: g.id, Transcript: g.transcript}
		for _, p := range g.parts {
			c.Chunks = append(c.Chunks, p.text)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("transcript %s: %w", g.id, err)
		}
		calls = append(calls, c)
	}
	return calls, nil
}

// identify returns the grouping key, call ID and chunk number of a file.
func identify(path string) (key, id string, n int, isPart bool) {
	dir, base := filepath.Split(path)
	if m := partName.FindStringSubmatch(base); m != nil {
		n, _ = strconv.Atoi(m[2])
		return dir + m[1], m[1], n, true
	}
	id = strings.TrimSuffix(base, filepath.Ext(base))
	return dir + id, id, 0, false
}

func expand(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("transcript path: %w", err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(p, "*.txt"))
		if err != nil {
			return nil, fmt.Errorf("list transcripts: %w", err)
		}
		slices.Sort(matches)
		out = append(out, matches...)
	}
	return out, nil
}
