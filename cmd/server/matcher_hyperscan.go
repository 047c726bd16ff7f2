//go:build hyperscan

package main

import (
	"edgeguard/detection"
	"edgeguard/hyperscan"

	"github.com/rs/zerolog"
)

func newPathMatcher(logger zerolog.Logger) (detection.PathMatcher, func(), error) {
	m, err := hyperscan.NewSensitivePathMatcher(logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Msg("Using Hyperscan path matcher")
	return m, func() { m.Close() }, nil
}
