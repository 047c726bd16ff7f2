package guard

// Settings are the externally supplied protection inputs. They are read-only to the engine.
type Settings struct {
	MaxRequestsPerMinute int  `yaml:"max_requests_per_minute" validate:"gt=0"`
	MaxRequestsPerHour   int  `yaml:"max_requests_per_hour" validate:"gt=0"`
	ReputationThreshold  int  `yaml:"reputation_threshold" validate:"gte=0,lte=100"`
	BotDetectionEnabled  bool `yaml:"bot_detection_enabled"`
	ChallengeEnabled     bool `yaml:"challenge_enabled"`

	BotPenalty     int `yaml:"bot_penalty" validate:"lte=0"`
	PatternPenalty int `yaml:"pattern_penalty" validate:"lte=0"`
	CleanReward    int `yaml:"clean_reward" validate:"gte=0"`
}

// DefaultSettings returns the settings used when nothing else is configured.
func DefaultSettings() Settings {
	return Settings{
		MaxRequestsPerMinute: 60,
		MaxRequestsPerHour:   1000,
		ReputationThreshold:  30,
		BotDetectionEnabled:  true,
		ChallengeEnabled:     true,
		BotPenalty:           -10,
		PatternPenalty:       -5,
		CleanReward:          1,
	}
}
