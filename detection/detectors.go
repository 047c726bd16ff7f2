// Package detection holds the stateless request heuristics: a bot detector and a suspicious pattern detector.
package detection

import (
	"strings"

	"edgeguard/encoding"
	"edgeguard/guard"
)

// PathMatcher reports whether a lower-cased request path contains a sensitive fragment.
type PathMatcher interface {
	MatchPath(path string) bool
}

type substringMatcher struct {
	needles []string
}

// NewSubstringMatcher creates a PathMatcher that checks each needle in turn.
func NewSubstringMatcher(needles []string) PathMatcher {
	m := &substringMatcher{}
	for _, n := range needles {
		m.needles = append(m.needles, strings.ToLower(n))
	}
	return m
}

func (m *substringMatcher) MatchPath(path string) bool {
	return containsAny(path, m.needles)
}

type botDetectorImpl struct{}

// NewBotDetector creates a detector matching user agents against BotTokens.
func NewBotDetector() guard.BotDetector {
	return &botDetectorImpl{}
}

func (d *botDetectorImpl) IsBot(req guard.HTTPRequest) bool {
	ua, _ := guard.HeaderValue(req, "User-Agent")
	return containsAny(strings.ToLower(ua), BotTokens)
}

type patternDetectorImpl struct {
	paths PathMatcher
}

// NewPatternDetector creates a suspicious pattern detector. A nil paths falls back to substring matching of SensitivePaths.
func NewPatternDetector(paths PathMatcher) guard.PatternDetector {
	if paths == nil {
		paths = NewSubstringMatcher(SensitivePaths)
	}
	return &patternDetectorImpl{paths: paths}
}

func (d *patternDetectorImpl) Detect(req guard.HTTPRequest) (patterns []string) {
	accept, _ := guard.HeaderValue(req, "Accept")
	acceptLanguage, _ := guard.HeaderValue(req, "Accept-Language")
	if accept == "" || acceptLanguage == "" {
		patterns = append(patterns, guard.PatternMissingHeaders)
	}

	ua, _ := guard.HeaderValue(req, "User-Agent")
	if len(ua) < MinUserAgentLength || containsAny(strings.ToLower(ua), CLITokens) {
		patterns = append(patterns, guard.PatternSuspiciousUserAgent)
	}

	if d.paths.MatchPath(strings.ToLower(encoding.DecodePath(guard.RequestPath(req)))) {
		patterns = append(patterns, guard.PatternSuspiciousPath)
	}

	return
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
