package index

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
)

// recoverySet tracks which record IDs have already been embedded, backed by
// a line-per-ID file. The file is read once at startup and appended after
// each successful sub-batch; a crash between an upsert and the append only
// costs a redundant (idempotent) re-embed on resume.
type recoverySet struct {
	path string
	seen map[uint]struct{}
}

// loadRecoverySet reads the recovery file if it exists. A missing file
// means a fresh run.
func loadRecoverySet(path string) (*recoverySet, error) {
	set := &recoverySet{path: path, seen: make(map[uint]struct{})}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return set, nil
		}
		return nil, fmt.Errorf("opening recovery file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		id, err := strconv.ParseUint(line, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("recovery file %s: bad line %q: %w", path, line, err)
		}
		set.seen[uint(id)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading recovery file: %w", err)
	}

	return set, nil
}

// Contains reports whether the ID was embedded in a previous run.
func (r *recoverySet) Contains(id uint) bool {
	_, ok := r.seen[id]
	return ok
}

// Append records IDs as embedded, flushing them to disk before returning.
func (r *recoverySet) Append(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening recovery file for append: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, id := range ids {
		if _, err := fmt.Fprintln(w, id); err != nil {
			return fmt.Errorf("writing recovery file: %w", err)
		}
		r.seen[id] = struct{}{}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing recovery file: %w", err)
	}
	return f.Sync()
}

// Len returns how many IDs are recorded.
func (r *recoverySet) Len() int { return len(r.seen) }
