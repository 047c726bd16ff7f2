//go:build hyperscan

// Package hyperscan compiles the sensitive path vocabulary into a single Hyperscan block database.
package hyperscan

import (
	"fmt"
	"regexp"
	"runtime"

	"edgeguard/detection"

	hs "github.com/flier/gohs/hyperscan"
	"github.com/rs/zerolog"
)

// PathMatcher implements detection.PathMatcher with one multi-pattern scan per path.
type PathMatcher struct {
	logger zerolog.Logger

	// Hyperscan's compiled database of path fragments
	db hs.BlockDatabase

	// Scratch space is not safe for concurrent scans, so each scan borrows one of a fixed set
	scratches chan *hs.Scratch
	size      int
}

// NewPathMatcher compiles fragments as case-insensitive literals.
func NewPathMatcher(logger zerolog.Logger, fragments []string) (m *PathMatcher, err error) {
	if len(fragments) == 0 {
		err = fmt.Errorf("no path fragments to compile")
		return
	}

	patterns := []*hs.Pattern{}
	for i, f := range fragments {
		p := hs.NewPattern(regexp.QuoteMeta(f), 0)
		p.Id = i

		// SingleMatch makes Hyperscan report each fragment at most once per scan.
		p.Flags = hs.SingleMatch | hs.Caseless

		patterns = append(patterns, p)
	}

	h := &PathMatcher{logger: logger}
	h.db, err = hs.NewBlockDatabase(patterns...)
	if err != nil {
		err = fmt.Errorf("failed to compile path fragments: %w", err)
		return
	}

	if err = h.allocScratches(runtime.GOMAXPROCS(0)); err != nil {
		h.db.Close()
		return
	}

	logger.Info().Int("fragments", len(fragments)).Int("scratches", h.size).Msg("Compiled hyperscan path matcher")
	m = h
	return
}

// NewSensitivePathMatcher compiles detection.SensitivePaths.
func NewSensitivePathMatcher(logger zerolog.Logger) (*PathMatcher, error) {
	return NewPathMatcher(logger, detection.SensitivePaths)
}

// MatchPath scans path for any compiled fragment. Scan errors are logged and count as no match.
// It waits for a free scratch when all of them are in use.
func (h *PathMatcher) MatchPath(path string) bool {
	s := <-h.scratches
	defer func() { h.scratches <- s }()

	matched := false
	handler := func(id uint, from, to uint64, flags uint, context interface{}) error {
		matched = true
		return nil
	}

	if err := h.db.Scan([]byte(path), s, handler, nil); err != nil {
		h.logger.Warn().Err(err).Str("path", path).Msg("Hyperscan scan failed")
		return false
	}
	return matched
}

// Close waits for running scans, then frees every scratch and the compiled database.
// The matcher must not be used afterwards.
func (h *PathMatcher) Close() error {
	for i := 0; i < h.size; i++ {
		(<-h.scratches).Free()
	}
	return h.db.Close()
}

// allocScratches fills the scratch set with one allocated scratch and n-1 clones of it.
func (h *PathMatcher) allocScratches(n int) error {
	if n < 1 {
		n = 1
	}
	h.scratches = make(chan *hs.Scratch, n)

	base, err := hs.NewScratch(h.db)
	if err != nil {
		return fmt.Errorf("failed to allocate hyperscan scratch: %w", err)
	}
	h.scratches <- base
	h.size = 1

	for h.size < n {
		s, err := base.Clone()
		if err != nil {
			for i := 0; i < h.size; i++ {
				(<-h.scratches).Free()
			}
			h.size = 0
			return fmt.Errorf("failed to clone hyperscan scratch: %w", err)
		}
		h.scratches <- s
		h.size++
	}
	return nil
}
