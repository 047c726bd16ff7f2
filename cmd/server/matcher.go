//go:build !hyperscan

package main

import (
	"edgeguard/detection"

	"github.com/rs/zerolog"
)

func newPathMatcher(logger zerolog.Logger) (detection.PathMatcher, func(), error) {
	logger.Info().Msg("Using substring path matcher")
	return detection.NewSubstringMatcher(detection.SensitivePaths), func() {}, nil
}
