// Package cache persists rendered pages keyed by pagination profile and
// chapter index, so a second render of byte-identical input and
// configuration can skip layout entirely.
package cache

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/rupor-github/mu-epub/config"
	"github.com/rupor-github/mu-epub/ir"
)

// schemaVersion is bumped whenever the persisted envelope's shape changes
// in a way older readers cannot tolerate; a version mismatch is always a
// cache miss, never a parse error.
const schemaVersion = 1

// Envelope is the on-disk JSON document for one chapter's pages.
type Envelope struct {
	Version int            `json:"version"`
	Pages   []ir.RenderPage `json:"pages"`
}

// Store is the pluggable cache-store capability: both operations are
// best-effort and must tolerate concurrent writers to the same key.
type Store interface {
	Load(profile config.ProfileID, chapterIndex int) ([]ir.RenderPage, bool)
	Store(profile config.ProfileID, chapterIndex int, pages []ir.RenderPage)
}

// FileStore is the default Store: one JSON file per (profile, chapter)
// under root, written via a unique-temp-file-then-rename sequence so a
// reader never observes a partially written file.
type FileStore struct {
	root         string
	maxFileBytes int64
	log          *zap.Logger
	nonce        atomic.Uint64
}

func NewFileStore(root string, maxFileBytes int64, log *zap.Logger) *FileStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileStore{root: root, maxFileBytes: maxFileBytes, log: log.Named("cache")}
}

func (s *FileStore) dir(profile config.ProfileID) string {
	return filepath.Join(s.root, profile.Hex())
}

func (s *FileStore) finalPath(profile config.ProfileID, chapterIndex int) string {
	return filepath.Join(s.dir(profile), fmt.Sprintf("chapter-%d.json", chapterIndex))
}

// Load returns the cached pages for (profile, chapterIndex), or ok=false
// on any miss: file absent, oversized, unreadable, malformed, or a schema
// version mismatch. Load never returns an error; every failure mode is a
// cache miss by design.
func (s *FileStore) Load(profile config.ProfileID, chapterIndex int) ([]ir.RenderPage, bool) {
	path := s.finalPath(profile, chapterIndex)

	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if info.Size() > s.maxFileBytes {
		s.log.Debug("cache file exceeds max_file_bytes, treating as miss", zap.String("path", path))
		return nil, false
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.maxFileBytes+1))
	if err != nil || int64(len(data)) > s.maxFileBytes {
		return nil, false
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false
	}
	if env.Version != schemaVersion {
		return nil, false
	}
	for i := range env.Pages {
		env.Pages[i].Sync()
	}
	return env.Pages, true
}

// Store persists pages for (profile, chapterIndex). Any I/O or encode
// failure is swallowed: the write silently no-ops and the next Load
// simply misses, per the cache layer's "never surfaced" error policy.
func (s *FileStore) Store(profile config.ProfileID, chapterIndex int, pages []ir.RenderPage) {
	if len(pages) == 0 {
		return
	}
	dir := s.dir(profile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.log.Debug("cache mkdir failed, skipping store", zap.Error(err))
		return
	}

	data, err := json.Marshal(Envelope{Version: schemaVersion, Pages: pages})
	if err != nil {
		s.log.Debug("cache encode failed, skipping store", zap.Error(err))
		return
	}
	if int64(len(data)) > s.maxFileBytes {
		s.log.Debug("cache payload exceeds max_file_bytes, skipping store")
		return
	}

	nonce := s.nonce.Add(1)
	tmp := filepath.Join(dir, fmt.Sprintf("chapter-%d.json.tmp-%d-%d", chapterIndex, os.Getpid(), nonce))

	if err := s.writeTemp(tmp, data); err != nil {
		err = multierr.Append(err, os.Remove(tmp))
		s.log.Debug("cache write failed, skipping store", zap.Error(err))
		return
	}

	final := s.finalPath(profile, chapterIndex)
	if err := os.Rename(tmp, final); err != nil {
		err = multierr.Append(err, os.Remove(tmp))
		s.log.Debug("cache rename failed, skipping store", zap.Error(err))
		return
	}
	if dirf, err := os.Open(dir); err == nil {
		dirf.Sync()
		dirf.Close()
	}
}

// writeTemp writes data to path through a counting writer (bounding the
// bytes actually committed, independent of the pre-marshal length check)
// and fsyncs before returning, so a crash after Store never leaves a
// truncated or half-flushed temp file behind to be renamed.
func (s *FileStore) writeTemp(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := &countingWriter{w: f, limit: s.maxFileBytes}
	if _, err := cw.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

type countingWriter struct {
	w       io.Writer
	written int64
	limit   int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.written+int64(len(p)) > c.limit {
		return 0, fmt.Errorf("cache: write would exceed max_file_bytes (%d)", c.limit)
	}
	n, err := c.w.Write(p)
	c.written += int64(n)
	return n, err
}
