// Package fs provides file-based storage for cached responses and layers.
package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/arcgisdl"
)

// MaxSegmentLen is the longest path segment written verbatim. Longer
// segments, typically query strings with long where clauses, are shortened
// to a prefix plus a hash so they stay within filesystem name limits.
const MaxSegmentLen = 200

// Ensure Cache implements arcgisdl.Cache at compile time.
var _ arcgisdl.Cache = (*Cache)(nil)

// Cache stores raw response bodies in a directory tree mirroring the
// canonical request URLs. Entries are written once and never expire.
type Cache struct {
	dir  string
	link func(oldname, newname string) error
}

// NewCache creates a Cache rooted at dir.
func NewCache(dir string) *Cache {
	return &Cache{dir: dir, link: os.Link}
}

// Path returns the file holding the entry for key.
func (c *Cache) Path(key string) (string, error) {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = shortenSegment(s)
	}
	return safeJoin(c.dir, filepath.Join(segments...))
}

// Get returns the cached body for key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path, err := c.Path(key)
	if err != nil {
		return nil, false, err
	}
	body, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return body, true, nil
}

// Put stores body under key. The body is written to a temporary file and
// linked into place, so readers never see a partial entry and the first
// writer wins. On filesystems without hard links the entry is renamed into
// place only if it is still missing; a writer racing between that check and
// the rename can still be overwritten there.
func (c *Cache) Put(ctx context.Context, key string, body []byte) error {
	path, err := c.Path(key)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".cache-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return c.commit(tmp.Name(), path)
}

// commit moves the temporary file tmp to path unless path already exists.
func (c *Cache) commit(tmp, path string) error {
	link := c.link
	if link == nil {
		link = os.Link
	}
	err := link(tmp, path)
	if err == nil || errors.Is(err, os.ErrExist) {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.Rename(tmp, path)
}

func shortenSegment(s string) string {
	if len(s) <= MaxSegmentLen {
		return s
	}
	return fmt.Sprintf("%s~%016x", s[:MaxSegmentLen-17], xxhash.Sum64String(s))
}

// safeJoin joins rel onto base and rejects results outside base.
func safeJoin(base, rel string) (string, error) {
	full := filepath.Join(base, rel)
	r, err := filepath.Rel(base, full)
	if err != nil {
		return "", err
	}
	if r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", arcgisdl.Errorf(arcgisdl.EINVALID, "path traversal detected: %s", rel)
	}
	return full, nil
}
