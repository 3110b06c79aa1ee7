package dialect

const (
	// DefaultIndexKeyLimit is used when the server does not report
	// max_index_keys. It matches PostgreSQL's compiled-in INDEX_MAX_KEYS.
	DefaultIndexKeyLimit = 32

	// ReturningMinVersion is the first server version (8.2) that accepts
	// INSERT ... RETURNING.
	ReturningMinVersion = 80200

	// DefaultIdentifierLength is NAMEDATALEN-1 on a stock build.
	DefaultIdentifierLength = 63
)

// Config tunes the Adapter.
type Config struct {
	// IndexKeyLimit bounds how many key positions of each index are read.
	// Key columns past the limit are dropped from Index.Columns. Zero asks
	// the server (SHOW max_index_keys) and falls back to DefaultIndexKeyLimit.
	IndexKeyLimit int `koanf:"index_key_limit"`

	// SearchPath overrides the session's search_path for index lookups of
	// unqualified tables. Comma separated, as in SET search_path.
	SearchPath string `koanf:"search_path"`

	// ReturningMinVersion is the server version from which the insert
	// protocol uses RETURNING. Set it above the server version to force the
	// currval path.
	ReturningMinVersion int `koanf:"returning_min_version"`

	// DefaultIdentifierLength is reported by TableAliasLength for servers
	// older than 8.0.
	DefaultIdentifierLength int `koanf:"default_identifier_length"`

	// StrictTypes makes Columns fail with an unsupported-type error when a
	// column's native type has no logical mapping.
	StrictTypes bool `koanf:"strict_types"`
}

// DefaultConfig returns the Adapter defaults.
func DefaultConfig() Config {
	return Config{
		ReturningMinVersion:     ReturningMinVersion,
		DefaultIdentifierLength: DefaultIdentifierLength,
	}
}

func (c Config) withDefaults() Config {
	if c.ReturningMinVersion == 0 {
		c.ReturningMinVersion = ReturningMinVersion
	}
	if c.DefaultIdentifierLength == 0 {
		c.DefaultIdentifierLength = DefaultIdentifierLength
	}
	return c
}
