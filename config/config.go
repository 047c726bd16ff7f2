// Package config loads the edgeguard configuration from YAML, the environment and defaults.
package config

import (
	"time"

	"edgeguard/guard"
)

// Main is the top level configuration.
type Main struct {
	Protection guard.Settings `yaml:"protection"`
	Store      Store          `yaml:"store"`
	HTTP       HTTP           `yaml:"http"`
	GRPC       GRPC           `yaml:"grpc"`
	Analytics  Analytics      `yaml:"analytics"`
	AttackLog  AttackLog      `yaml:"attack_log"`

	// BlockedNetworks are addresses or IPv4 CIDR blocks that are always treated as blacklisted.
	BlockedNetworks []string `yaml:"blocked_networks" validate:"dive,ipv4|cidrv4"`

	// TrustedProxies are the IPv4 CIDR blocks whose X-Forwarded-For and X-Real-IP headers are believed.
	TrustedProxies []string `yaml:"trusted_proxies" validate:"dive,cidrv4"`
}

// Store selects and tunes the key-value store.
type Store struct {
	Backend       string        `yaml:"backend" validate:"oneof=memory redis"`
	RedisURL      string        `yaml:"redis_url" validate:"required_if=Backend redis"`
	OpTimeout     time.Duration `yaml:"op_timeout" validate:"gt=0"`
	SweepInterval time.Duration `yaml:"sweep_interval" validate:"gt=0"`
}

// HTTP configures the gatekeeper middleware and the admin API.
type HTTP struct {
	Addr string `yaml:"addr" validate:"required"`

	// AdminToken, if set, is required as a bearer token on /admin routes.
	AdminToken string `yaml:"admin_token"`

	ProtectedPrefix string `yaml:"protected_prefix" validate:"required,startswith=/"`

	// Upstream, if set, receives allowed requests. Otherwise allowed requests get an empty 200 response,
	// which suits auth-subrequest setups.
	Upstream string `yaml:"upstream" validate:"omitempty,url"`
}

// GRPC configures the decision service.
type GRPC struct {
	Enabled        bool   `yaml:"enabled"`
	Addr           string `yaml:"addr" validate:"required_if=Enabled true"`
	MaxConnections int    `yaml:"max_connections" validate:"gt=0"`
}

// Analytics bounds the analytics scans.
type Analytics struct {
	PageSize      int           `yaml:"page_size" validate:"gt=0"`
	KeyBudget     int           `yaml:"key_budget" validate:"gtefield=PageSize"`
	Concurrency   int           `yaml:"concurrency" validate:"gt=0,lte=100"`
	RecentLimit   int           `yaml:"recent_limit" validate:"gt=0"`
	TopThreats    int           `yaml:"top_threats" validate:"gt=0"`
	AttackTTL     time.Duration `yaml:"attack_ttl" validate:"gt=0"`
	ReputationTTL time.Duration `yaml:"reputation_ttl" validate:"gt=0"`
}

// AttackLog configures the recent attacks lists and the optional journal file.
type AttackLog struct {
	RecentLen   int    `yaml:"recent_len" validate:"gt=0"`
	JournalDir  string `yaml:"journal_dir"`
	JournalFile string `yaml:"journal_file" validate:"required_with=JournalDir"`
}

// Default returns the configuration used when nothing else is given.
func Default() Main {
	return Main{
		Protection: guard.DefaultSettings(),
		Store: Store{
			Backend:       "memory",
			OpTimeout:     250 * time.Millisecond,
			SweepInterval: time.Minute,
		},
		HTTP: HTTP{
			Addr:            ":8080",
			ProtectedPrefix: "/",
		},
		GRPC: GRPC{
			Addr:           ":37291",
			MaxConnections: 256,
		},
		Analytics: Analytics{
			PageSize:      100,
			KeyBudget:     1000,
			Concurrency:   10,
			RecentLimit:   20,
			TopThreats:    10,
			AttackTTL:     30 * time.Second,
			ReputationTTL: 60 * time.Second,
		},
		AttackLog: AttackLog{
			RecentLen:   10,
			JournalFile: "attacks.log",
		},
	}
}
