package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "EDGEGUARD_"

// FileSystem reads configuration files.
type FileSystem interface {
	ReadFile(name string) ([]byte, error)
}

// OSFileSystem reads from the local disk.
type OSFileSystem struct{}

// ReadFile returns the contents of name.
func (OSFileSystem) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// Load builds the configuration from defaults, then the YAML file at path if given, then environment overrides.
// The result is validated.
func Load(fs FileSystem, path string, getenv func(string) string) (c Main, err error) {
	c = Default()

	if path != "" {
		var data []byte
		data, err = fs.ReadFile(path)
		if err != nil {
			err = fmt.Errorf("failed to read config file %v: %w", path, err)
			return
		}

		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err = dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
			err = fmt.Errorf("failed to parse config file %v: %w", path, err)
			return
		}
		err = nil
	}

	if getenv != nil {
		if err = applyEnv(&c, getenv); err != nil {
			return
		}
	}

	err = Validate(c)
	return
}

// LoadDotEnv loads variables from the given .env files into the process environment.
// Missing files are skipped. Variables already set are not overwritten.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %v: %w", f, err)
		}
	}
	return nil
}

// Validate checks the configuration for values the engine cannot work with.
func Validate(c Main) error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%v failed '%v'", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %v", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func applyEnv(c *Main, getenv func(string) string) error {
	str := func(name string, target *string) {
		if v := getenv(EnvPrefix + name); v != "" {
			*target = v
		}
	}
	integer := func(name string, target *int) error {
		v := getenv(EnvPrefix + name)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %v%v: %w", EnvPrefix, name, err)
		}
		*target = n
		return nil
	}
	boolean := func(name string, target *bool) error {
		v := getenv(EnvPrefix + name)
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %v%v: %w", EnvPrefix, name, err)
		}
		*target = b
		return nil
	}
	list := func(name string, target *[]string) {
		if v := getenv(EnvPrefix + name); v != "" {
			*target = nil
			for _, s := range strings.Split(v, ",") {
				if s = strings.TrimSpace(s); s != "" {
					*target = append(*target, s)
				}
			}
		}
	}

	str("STORE", &c.Store.Backend)
	str("REDIS_URL", &c.Store.RedisURL)
	str("HTTP_ADDR", &c.HTTP.Addr)
	str("ADMIN_TOKEN", &c.HTTP.AdminToken)
	str("UPSTREAM", &c.HTTP.Upstream)
	str("GRPC_ADDR", &c.GRPC.Addr)
	str("JOURNAL_DIR", &c.AttackLog.JournalDir)
	list("BLOCKED_NETWORKS", &c.BlockedNetworks)
	list("TRUSTED_PROXIES", &c.TrustedProxies)

	return errors.Join(
		integer("MAX_PER_MINUTE", &c.Protection.MaxRequestsPerMinute),
		integer("MAX_PER_HOUR", &c.Protection.MaxRequestsPerHour),
		integer("REPUTATION_THRESHOLD", &c.Protection.ReputationThreshold),
		boolean("BOT_DETECTION", &c.Protection.BotDetectionEnabled),
		boolean("CHALLENGE", &c.Protection.ChallengeEnabled),
		boolean("GRPC_ENABLED", &c.GRPC.Enabled),
	)
}
