// Package config loads pgcatalog settings from defaults, an optional YAML
// file and PGCATALOG_ environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/koustreak/pgcatalog/internal/database"
	"github.com/koustreak/pgcatalog/internal/dialect"
	"github.com/koustreak/pgcatalog/internal/errs"
	"github.com/koustreak/pgcatalog/internal/filestore"
	"github.com/koustreak/pgcatalog/internal/logger"
	"github.com/koustreak/pgcatalog/internal/server"
	"github.com/koustreak/pgcatalog/internal/snapshot"
)

// EnvPrefix prefixes every environment override. Nested keys are separated
// by a double underscore: PGCATALOG_DATABASE__MAX_CONNS=20.
const EnvPrefix = "PGCATALOG_"

// FileNames are looked up in the working directory when no file is given.
var FileNames = []string{"pgcatalog.yaml", "pgcatalog.yml"}

// Config is the full application configuration.
type Config struct {
	Database database.Config  `koanf:"database"`
	Dialect  dialect.Config   `koanf:"dialect"`
	Log      logger.Config    `koanf:"log"`
	Server   server.Config    `koanf:"server"`
	Storage  filestore.Config `koanf:"storage"`
	Snapshot snapshot.Config  `koanf:"snapshot"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Database: *database.DefaultConfig(""),
		Dialect:  dialect.DefaultConfig(),
		Log:      *logger.DefaultConfig(),
		Server:   server.DefaultConfig(),
		Storage:  *filestore.DefaultConfig("localhost:9000", "", ""),
		Snapshot: snapshot.Config{Prefix: "snapshots"},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path falls back to the first of FileNames that exists; having
// no file at all is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = findFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("error reading config file %s", path), err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to load env vars", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "unable to decode config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case database.DriverPgx, database.DriverPq:
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "unknown database driver %q", c.Database.Driver)
	}
	if c.Dialect.IndexKeyLimit < 0 {
		return errs.New(errs.ErrKindInvalidInput, "dialect.index_key_limit must not be negative")
	}
	if c.Snapshot.Bucket == "" {
		c.Snapshot.Bucket = c.Storage.Bucket
	}
	return nil
}

// envKey maps PGCATALOG_DATABASE__MAX_CONNS to database.max_conns.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func findFile() string {
	for _, name := range FileNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}
