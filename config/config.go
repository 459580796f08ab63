// Package config loads plbridge.toml.
package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/plbridge/errors"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "plbridge.toml"

// Primitive null handling modes.
const (
	PrimitiveNullsError = "error"
	PrimitiveNullsZero  = "zero"
)

// Catalog drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	DefaultStatementCacheSize = 64
	DefaultCatalogDSN         = ":memory:"
)

// Config is a plbridge.toml file.
type Config struct {
	// Classpath maps managed class names to wasm files. Relative paths are
	// resolved against Dir.
	Classpath map[string]string `toml:"classpath"`

	LogLevel string `toml:"log_level"`
	Debug    bool   `toml:"debug"`

	PrimitiveNulls             string `toml:"primitive_nulls"`
	StatementCacheSize         int    `toml:"statement_cache_size"`
	ReleaseLingeringSavepoints bool   `toml:"release_lingering_savepoints"`
	MemoryLimitPages           uint32 `toml:"memory_limit_pages"`

	Catalog Catalog `toml:"catalog"`

	// Dir is the directory of the loaded file (set at load time).
	Dir string `toml:"-"`
}

// Catalog selects the host the CLI runs against.
type Catalog struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "cannot read "+path)
	}
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "cannot resolve "+path)
	}
	c, err := Parse(string(data))
	if err != nil {
		return nil, err
	}
	c.Dir = dir
	return c, nil
}

// Parse decodes configuration text, applies defaults and validates it.
func Parse(text string) (*Config, error) {
	var c Config
	md, err := toml.Decode(text, &c)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse error")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.InvalidInput(errors.PhaseConfig, "unknown keys: "+strings.Join(keys, ", "))
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// FindAndLoad walks up from startDir looking for plbridge.toml. It returns
// the defaults when none is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "cannot resolve "+startDir)
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
		if c.Debug {
			c.LogLevel = "debug"
		}
	}
	if c.PrimitiveNulls == "" {
		c.PrimitiveNulls = PrimitiveNullsError
	}
	if c.StatementCacheSize == 0 {
		c.StatementCacheSize = DefaultStatementCacheSize
	}
	if c.Catalog.Driver == "" {
		c.Catalog.Driver = DriverSQLite
	}
	if c.Catalog.DSN == "" && c.Catalog.Driver == DriverSQLite {
		c.Catalog.DSN = DefaultCatalogDSN
	}
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("log_level").Value(c.LogLevel).Cause(err).
			Detail("unknown log level %q", c.LogLevel).Build()
	}
	switch c.PrimitiveNulls {
	case PrimitiveNullsError, PrimitiveNullsZero:
	default:
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("primitive_nulls").Value(c.PrimitiveNulls).
			Detail("must be %q or %q", PrimitiveNullsError, PrimitiveNullsZero).Build()
	}
	if c.StatementCacheSize < 0 {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("statement_cache_size").Value(c.StatementCacheSize).
			Detail("must not be negative").Build()
	}
	switch c.Catalog.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.Catalog.DSN == "" {
			return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path("catalog", "dsn").
				Detail("a dsn is required for the %s driver", DriverPostgres).Build()
		}
	default:
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("catalog", "driver").Value(c.Catalog.Driver).
			Detail("unknown catalog driver %q", c.Catalog.Driver).Build()
	}
	for class, file := range c.Classpath {
		if class == "" || file == "" {
			return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path("classpath", class).
				Detail("class name and file must be set").Build()
		}
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() zapcore.Level {
	l, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// ZeroPrimitiveNulls reports whether SQL NULL reaches primitives as zero.
func (c *Config) ZeroPrimitiveNulls() bool {
	return c.PrimitiveNulls == PrimitiveNullsZero
}

// ClassFile returns the absolute path of a classpath entry.
func (c *Config) ClassFile(class string) (string, bool) {
	file, ok := c.Classpath[class]
	if !ok {
		return "", false
	}
	if !filepath.IsAbs(file) && c.Dir != "" {
		file = filepath.Join(c.Dir, file)
	}
	return file, true
}

// Classes returns the classpath class names in sorted order.
func (c *Config) Classes() []string {
	names := make([]string, 0, len(c.Classpath))
	for name := range c.Classpath {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
