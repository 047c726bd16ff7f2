//go:build hyperscan

package hyperscan

import (
	"runtime"
	"sync"
	"testing"

	"edgeguard/detection"
	"edgeguard/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSensitivePathMatcher(t *testing.T) {
	// Arrange
	assert := assert.New(t)
	m, err := NewSensitivePathMatcher(testutils.NewTestLogger(t))
	require.NoError(t, err)
	defer m.Close()

	tests := []struct {
		path     string
		expected bool
	}{
		{"/wp-admin/setup.php", true},
		{"/WP-LOGIN.PHP", true},
		{"/static/.git/head", true},
		{"/etc/passwd", true},
		{"/products/42", false},
		{"/", false},
		{"", false},
	}

	// Act and assert
	for _, tt := range tests {
		assert.Equal(tt.expected, m.MatchPath(tt.path), tt.path)
	}
}

func TestPathMatcherAgreesWithSubstringMatcher(t *testing.T) {
	m, err := NewSensitivePathMatcher(testutils.NewTestLogger(t))
	require.NoError(t, err)
	defer m.Close()
	sub := detection.NewSubstringMatcher(detection.SensitivePaths)

	for _, p := range []string{"/xmlrpc.php", "/a/b/c", "/cgi-bin/x", "/.aws/credentials", "/server-status", "/configure"} {
		assert.Equal(t, sub.MatchPath(p), m.MatchPath(p), p)
	}
}

func TestPathMatcherLiteralFragments(t *testing.T) {
	m, err := NewPathMatcher(testutils.NewTestLogger(t), []string{"/a.b", "/(x)"})
	require.NoError(t, err)
	defer m.Close()

	assert.True(t, m.MatchPath("/a.b"))
	assert.False(t, m.MatchPath("/axb"))
	assert.True(t, m.MatchPath("/(x)"))
}

func TestPathMatcherConcurrentScans(t *testing.T) {
	m, err := NewSensitivePathMatcher(testutils.NewTestLogger(t))
	require.NoError(t, err)
	defer m.Close()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.True(t, m.MatchPath("/.env"))
			}
		}()
	}
	wg.Wait()
}

func TestPathMatcherMoreScansThanScratches(t *testing.T) {
	// Arrange
	assert := assert.New(t)
	m, err := NewSensitivePathMatcher(testutils.NewTestLogger(t))
	require.NoError(t, err)

	// Act
	var wg sync.WaitGroup
	for i := 0; i < 4*m.size; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(m.MatchPath("/wp-admin/"))
			assert.False(m.MatchPath("/products"))
		}()
	}
	wg.Wait()
	err = m.Close()

	// Assert
	assert.Nil(err)
	assert.Equal(runtime.GOMAXPROCS(0), m.size)
	assert.Len(m.scratches, 0)
}

func TestNewPathMatcherEmpty(t *testing.T) {
	_, err := NewPathMatcher(testutils.NewTestLogger(t), nil)

	assert.NotNil(t, err)
}
