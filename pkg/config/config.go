// Package config loads the project configuration: named database
// connections, named table lists and the location of the mydumper binaries.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultKey is used for --database and --target when they are absent.
	DefaultKey = "default"

	DefaultMyDumper = "mydumper"
	DefaultMyLoader = "myloader"
)

// Config represents the complete project configuration
type Config struct {
	ProjectRoot string                           `yaml:"project_root"`
	Binaries    Binaries                         `yaml:"binaries"`
	Databases   map[string]map[string]Connection `yaml:"databases"`
	Tables      TableLists                       `yaml:"tables"`

	// dir is the directory of the loaded file, relative paths resolve against it.
	dir string
}

// Binaries are the external programs that do the actual work.
type Binaries struct {
	MyDumper string `yaml:"mydumper"`
	MyLoader string `yaml:"myloader"`
}

// TableLists holds named lists of table patterns, referenced by
// --skip-tables-key and --structure-tables-key.
type TableLists struct {
	Skip      map[string][]string `yaml:"skip"`
	Structure map[string][]string `yaml:"structure"`
}

// LoadConfig loads configuration from a YAML file. A .env file next to it is
// loaded into the environment first, and ${VAR} references in the YAML are
// expanded from the environment.
func LoadConfig(path string) (*Config, error) {
	dir := filepath.Dir(path)
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	config, err := Parse(data)
	if err != nil {
		return nil, err
	}
	config.dir = dir
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// Parse expands environment references in data and decodes it.
// It does not validate the result.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &config, nil
}

// Validate checks if the configuration is valid and sets defaults.
func (c *Config) Validate() error {
	if len(c.Databases) == 0 {
		return errors.New("at least one database connection is required")
	}
	for _, key := range sortedKeys(c.Databases) {
		if len(c.Databases[key]) == 0 {
			return fmt.Errorf("databases.%s has no targets", key)
		}
	}

	switch {
	case c.ProjectRoot == "" && c.dir != "":
		c.ProjectRoot = c.dir
	case c.ProjectRoot == "":
		c.ProjectRoot = "."
	case !filepath.IsAbs(c.ProjectRoot) && c.dir != "":
		c.ProjectRoot = filepath.Join(c.dir, c.ProjectRoot)
	}
	if c.Binaries.MyDumper == "" {
		c.Binaries.MyDumper = DefaultMyDumper
	}
	if c.Binaries.MyLoader == "" {
		c.Binaries.MyLoader = DefaultMyLoader
	}
	return nil
}

// Connection resolves a connection by database key and target. Empty values
// resolve to DefaultKey. A defaults_file, when set, is resolved against the
// config directory and fills every field the YAML leaves empty. Only the
// mysql backend is accepted.
func (c *Config) Connection(database, target string) (Connection, error) {
	if database == "" {
		database = DefaultKey
	}
	if target == "" {
		target = DefaultKey
	}
	targets, ok := c.Databases[database]
	if !ok {
		return Connection{}, Usagef("unknown database connection key %q", database)
	}
	conn, ok := targets[target]
	if !ok {
		return Connection{}, Usagef("unknown target %q for database connection %q", target, database)
	}
	if !conn.Backend().Supported() {
		return Connection{}, Usagef("database driver %q not supported", conn.Driver)
	}
	if conn.DefaultsFile != "" {
		path := conn.DefaultsFile
		if !filepath.IsAbs(path) && c.dir != "" {
			path = filepath.Join(c.dir, path)
		}
		params, err := newConfParams(path)
		if err != nil {
			return Connection{}, fmt.Errorf("could not read defaults file %s: %w", path, err)
		}
		conn.DefaultsFile = path
		explicit := conn
		conn = params.fill(conn)
		conn.explicit = &explicit
	}
	return conn, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
