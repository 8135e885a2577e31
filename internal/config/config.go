// Package config loads and validates the db-catalogue configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/electwix/db-catalogue/internal/catalogue"
	"github.com/electwix/db-catalogue/internal/codegen"
	"github.com/electwix/db-catalogue/internal/data"
)

// DefaultPath is the configuration file read when none is named.
const DefaultPath = "db-catalogue.toml"

// Environment variables that override file values.
const (
	EnvAddr         = "DB_CATALOGUE_ADDR"
	EnvStoreBackend = "DB_CATALOGUE_STORE_BACKEND"
	EnvStorePath    = "DB_CATALOGUE_STORE_PATH"
	EnvStoreDSN     = "DB_CATALOGUE_STORE_DSN"
	EnvStoreBucket  = "DB_CATALOGUE_STORE_BUCKET"
	EnvDataPath     = "DB_CATALOGUE_DATA_PATH"
	EnvCheckStrict  = "DB_CATALOGUE_CHECK_STRICT"
)

// Duration decodes TOML strings such as "10s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string   `toml:"addr"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`

	// CompileCache is how many compilation results the server memoizes.
	// Zero disables the cache.
	CompileCache    int      `toml:"compile_cache"`
	CompileCacheTTL Duration `toml:"compile_cache_ttl"`
}

// StoreConfig selects where the catalogue is persisted.
type StoreConfig struct {
	Backend   catalogue.Backend `toml:"backend"`
	Path      string            `toml:"path"`
	DSN       string            `toml:"dsn"`
	Bucket    string            `toml:"bucket"`
	Key       string            `toml:"key"`
	Region    string            `toml:"region"`
	Endpoint  string            `toml:"endpoint"`
	PathStyle bool              `toml:"path_style"`
}

// Options converts the section into catalogue store options.
func (s StoreConfig) Options() catalogue.StoreOptions {
	return catalogue.StoreOptions{
		Backend: s.Backend,
		Path:    s.Path,
		DSN:     s.DSN,
		S3: catalogue.S3Options{
			Bucket:       s.Bucket,
			Key:          s.Key,
			Region:       s.Region,
			Endpoint:     s.Endpoint,
			UsePathStyle: s.PathStyle,
		},
	}
}

// DataConfig selects where inserted rows are kept. The memory store backend
// keeps rows in memory too and ignores both paths.
type DataConfig struct {
	Path string `toml:"path"`
	// WAL is the write-ahead log file. Empty disables the log.
	WAL string `toml:"wal"`
}

// CheckConfig tunes the semantic checker.
type CheckConfig struct {
	Strict bool `toml:"strict"`
}

// GenConfig holds code generation defaults.
type GenConfig struct {
	Out          string           `toml:"out"`
	Language     codegen.Language `toml:"language"`
	Package      string           `toml:"package"`
	Schemas      []string         `toml:"schemas"`
	EmitJSONTags bool             `toml:"emit_json_tags"`
}

// LogConfig configures logging.
type LogConfig struct {
	Verbose bool `toml:"verbose"`
	JSON    bool `toml:"json"`
}

// Config mirrors the db-catalogue TOML schema.
type Config struct {
	Server ServerConfig `toml:"server"`
	Store  StoreConfig  `toml:"store"`
	Data   DataConfig   `toml:"data"`
	Check  CheckConfig  `toml:"check"`
	Gen    GenConfig    `toml:"gen"`
	Log    LogConfig    `toml:"log"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            "127.0.0.1:3000",
			ReadTimeout:     Duration(10 * time.Second),
			WriteTimeout:    Duration(10 * time.Second),
			CompileCache:    256,
			CompileCacheTTL: Duration(10 * time.Minute),
		},
		Store: StoreConfig{
			Backend: catalogue.BackendFile,
			Path:    catalogue.DefaultPath,
			Key:     catalogue.DefaultS3Key,
			Region:  "us-east-1",
		},
		Data: DataConfig{
			Path: data.DefaultPath,
			WAL:  data.DefaultWALPath,
		},
		Gen: GenConfig{
			Out:      "models",
			Language: codegen.LanguageGo,
			Package:  "models",
		},
	}
}

// LoadOptions tunes config loading behavior.
type LoadOptions struct {
	// Strict turns unknown keys into errors.
	Strict bool
	// Required makes a missing file an error instead of yielding defaults.
	Required bool
	// EnvFile is a dotenv file read when present. Empty selects ".env" next to
	// the config file.
	EnvFile string
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(key string) (string, bool)
}

// Result wraps a loaded configuration alongside any non-fatal warnings.
type Result struct {
	Config   Config
	Path     string
	Found    bool
	Warnings []string
}

// Load reads path over the defaults, applies environment overrides and
// validates the outcome.
func Load(path string, opts LoadOptions) (Result, error) {
	if path == "" {
		path = DefaultPath
	}
	res := Result{Config: Default(), Path: path}

	data, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
		res.Found = true
	case errors.Is(err, fs.ErrNotExist) && !opts.Required:
	default:
		return res, fmt.Errorf("read %s: %w", path, err)
	}

	if res.Found {
		unknown, err := decode(data, &res.Config)
		if err != nil {
			return res, fmt.Errorf("%s: %w", path, err)
		}
		if len(unknown) > 0 {
			message := fmt.Sprintf("%s: unknown configuration keys: %s", path, strings.Join(unknown, ", "))
			if opts.Strict {
				return res, errors.New(message)
			}
			res.Warnings = append(res.Warnings, message)
		}
	}

	lookup, err := envLookup(path, opts)
	if err != nil {
		return res, err
	}
	if err := applyEnv(&res.Config, lookup); err != nil {
		return res, err
	}
	if err := validate(res.Config); err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

// decode fills cfg and returns the dotted names of keys cfg has no field for.
func decode(data []byte, cfg *Config) ([]string, error) {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	err := dec.Decode(cfg)
	if err == nil {
		return nil, nil
	}
	var strict *toml.StrictMissingError
	if !errors.As(err, &strict) {
		return nil, err
	}
	// The strict pass stops at unknown keys; decode again leniently so the
	// known keys still apply.
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	unknown := make([]string, 0, len(strict.Errors))
	for _, e := range strict.Errors {
		unknown = append(unknown, strings.Join(e.Key(), "."))
	}
	slices.Sort(unknown)
	return slices.Compact(unknown), nil
}

// envLookup layers the process environment over the dotenv file.
func envLookup(path string, opts LoadOptions) (func(string) (string, bool), error) {
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = filepath.Join(filepath.Dir(path), ".env")
	}
	dotenv, err := godotenv.Read(envFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return lookup, nil
		}
		return nil, fmt.Errorf("read %s: %w", envFile, err)
	}
	return func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAddr); ok {
		cfg.Server.Addr = v
	}
	if v, ok := lookup(EnvStoreBackend); ok {
		cfg.Store.Backend = catalogue.Backend(v)
	}
	if v, ok := lookup(EnvStorePath); ok {
		cfg.Store.Path = v
	}
	if v, ok := lookup(EnvStoreDSN); ok {
		cfg.Store.DSN = v
	}
	if v, ok := lookup(EnvStoreBucket); ok {
		cfg.Store.Bucket = v
	}
	if v, ok := lookup(EnvDataPath); ok {
		cfg.Data.Path = v
	}
	if v, ok := lookup(EnvCheckStrict); ok {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCheckStrict, err)
		}
		cfg.Check.Strict = strict
	}
	return nil
}

func validate(cfg Config) error {
	if cfg.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if cfg.Server.ReadTimeout <= 0 || cfg.Server.WriteTimeout <= 0 {
		return errors.New("server timeouts must be positive")
	}
	if cfg.Server.CompileCache < 0 {
		return errors.New("server.compile_cache must not be negative")
	}
	switch cfg.Store.Backend {
	case catalogue.BackendFile, catalogue.BackendSQLite, catalogue.BackendMemory:
	case catalogue.BackendPostgres:
		if cfg.Store.DSN == "" {
			return errors.New("store.dsn is required for the postgres backend")
		}
	case catalogue.BackendS3:
		if cfg.Store.Bucket == "" {
			return errors.New("store.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unsupported store.backend %q", cfg.Store.Backend)
	}
	if cfg.Data.Path != "" {
		if _, err := catalogue.CodecFor(cfg.Data.Path); err != nil {
			return fmt.Errorf("data.path: %w", err)
		}
	}
	if _, err := codegen.ParseLanguage(string(cfg.Gen.Language)); err != nil {
		return fmt.Errorf("gen.language: %w", err)
	}
	if cfg.Gen.Package != "" && (!token.IsIdentifier(cfg.Gen.Package) || token.Lookup(cfg.Gen.Package) != token.IDENT) {
		return fmt.Errorf("invalid gen.package %q", cfg.Gen.Package)
	}
	return nil
}
