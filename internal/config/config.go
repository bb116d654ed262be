package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"ecommerce-dashboard/internal/database"
	"ecommerce-dashboard/internal/pipeline"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "DASHBOARD_"

type Config struct {
	Source        Source           `yaml:"source"`
	Databases     Databases        `yaml:"databases"`
	Pipeline      pipeline.Options `yaml:"pipeline"`
	Server        Server           `yaml:"server"`
	BenchSettings BenchSettings    `yaml:"bench_settings"`
	Log           Log              `yaml:"log"`
}

// Source picks where the extracts are read from: "csv" reads DataDir,
// any database kind reads the matching DSN.
type Source struct {
	Kind    string `yaml:"kind"`
	DataDir string `yaml:"data_dir"`
}

type Databases struct {
	Postgres      string `yaml:"postgres"`
	MySQL         string `yaml:"mysql"`
	SQLite        string `yaml:"sqlite"`
	Mongo         string `yaml:"mongo"`
	MongoDatabase string `yaml:"mongo_database"`
}

// DSN returns the connection string configured for kind.
func (d Databases) DSN(kind string) (string, error) {
	var dsn string
	switch kind {
	case database.KindPostgres:
		dsn = d.Postgres
	case database.KindMySQL:
		dsn = d.MySQL
	case database.KindSQLite:
		dsn = d.SQLite
	case database.KindMongo:
		dsn = d.Mongo
	default:
		return "", fmt.Errorf("unsupported database type: %s", kind)
	}
	if dsn == "" {
		return "", fmt.Errorf("no dsn configured for %s", kind)
	}
	return dsn, nil
}

type Server struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type BenchSettings struct {
	DefaultDuration    time.Duration `yaml:"default_duration"`
	DefaultConcurrency int           `yaml:"default_concurrency"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const SourceCSV = "csv"

func Default() *Config {
	return &Config{
		Source:    Source{Kind: SourceCSV, DataDir: "data"},
		Databases: Databases{SQLite: "dashboard.db", MongoDatabase: "dashboard"},
		Server: Server{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		BenchSettings: BenchSettings{DefaultDuration: 10 * time.Second, DefaultConcurrency: 8},
		Log:           Log{Level: "info", Format: "text"},
	}
}

// LoadConfig reads path on top of the defaults, then applies a .env file and
// DASHBOARD_* environment overrides. An empty path or a missing file leaves
// the defaults in place.
func LoadConfig(path string) (*Config, error) {
	config := Default()

	if path != "" {
		file, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(file, config); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := config.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"SOURCE_KIND":    &c.Source.Kind,
		"DATA_DIR":       &c.Source.DataDir,
		"POSTGRES_DSN":   &c.Databases.Postgres,
		"MYSQL_DSN":      &c.Databases.MySQL,
		"SQLITE_DSN":     &c.Databases.SQLite,
		"MONGO_DSN":      &c.Databases.Mongo,
		"MONGO_DATABASE": &c.Databases.MongoDatabase,
		"SERVER_ADDR":    &c.Server.Addr,
		"LOG_LEVEL":      &c.Log.Level,
		"LOG_FORMAT":     &c.Log.Format,
	}
	for key, dst := range strs {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = v
		}
	}
	if v, ok := lookup(envPrefix + "EXCLUDE_UNDELIVERED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sEXCLUDE_UNDELIVERED: %w", envPrefix, err)
		}
		c.Pipeline.ExcludeUndelivered = b
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceCSV:
		if c.Source.DataDir == "" {
			return errors.New("source.data_dir is required for csv sources")
		}
	default:
		if _, err := c.Databases.DSN(c.Source.Kind); err != nil {
			return fmt.Errorf("source.kind: %w", err)
		}
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// NewLogger builds the slog logger described by the log section.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
