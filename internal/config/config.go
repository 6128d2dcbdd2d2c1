// Package config loads and validates service configuration from a YAML file,
// environment variables and CLI flags. Configuration is read once at startup
// and treated as immutable for the life of the process.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrison/autopr/internal/logger"
)

// Store backend selectors accepted in the "store" field.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Editor selectors accepted in the "editor" field.
const (
	EditorNote    = "note"
	EditorCommand = "command"
)

// Config holds all service configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// Store selects the persistence backend: memory, file, redis or sqlite.
	Store string `yaml:"store"`

	// StateFile is the JSON document path used by the file backend.
	StateFile string `yaml:"state_file"`

	// SQLitePath is the database path used by the sqlite backend.
	SQLitePath string `yaml:"sqlite_path"`

	// RedisAddr is the host:port of the redis backend.
	RedisAddr string `yaml:"redis_addr"`

	// RedisDB is the redis database number.
	RedisDB int `yaml:"redis_db"`

	// WorkDir is the directory under which per-task workspaces are cloned.
	WorkDir string `yaml:"workdir"`

	// StepTimeout bounds each pipeline step (clone, push, PR creation, ...).
	StepTimeout time.Duration `yaml:"step_timeout"`

	// TestTimeout bounds the user-supplied test command.
	TestTimeout time.Duration `yaml:"test_timeout"`

	// LogLevel sets logging verbosity (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// Editor selects the edit producer: note (append to README) or command.
	Editor string `yaml:"editor"`

	// AgentCommand is the external agent CLI invoked by the command editor.
	AgentCommand string `yaml:"agent_command"`

	// CommitterName and CommitterEmail identify the commit author configured
	// in each task workspace before committing.
	CommitterName  string `yaml:"committer_name"`
	CommitterEmail string `yaml:"committer_email"`

	// GitHubToken is the credential used for clones, pushes and PR creation.
	// The GITHUB_TOKEN environment variable takes precedence over the file.
	GitHubToken string `yaml:"github_token"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Listen:         ":8000",
		Store:          StoreFile,
		StateFile:      filepath.Join(".autopr", "tasks.json"),
		SQLitePath:     filepath.Join(".autopr", "tasks.db"),
		RedisAddr:      "localhost:6379",
		WorkDir:        filepath.Join(os.TempDir(), "autopr"),
		StepTimeout:    10 * time.Minute,
		TestTimeout:    15 * time.Minute,
		LogLevel:       "info",
		Editor:         EditorNote,
		AgentCommand:   "claude",
		CommitterName:  "autopr-agent",
		CommitterEmail: "autopr-agent@localhost",
	}
}

// Load reads configuration from path, applying defaults for absent fields and
// the GITHUB_TOKEN environment variable for the credential.
// A missing file is not an error; a malformed file is.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else {
			fileCfg, err := parse(data)
			if err != nil {
				return nil, err
			}
			cfg.merge(fileCfg)
		}
	}

	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cfg.GitHubToken = token
	}

	return cfg, nil
}

// parse unmarshals a YAML document into a Config. Durations are accepted in
// time.ParseDuration notation ("30s", "10m", "1h30m").
func parse(data []byte) (*Config, error) {
	// Shadow struct so duration fields can be parsed from strings.
	type yamlConfig struct {
		Listen         string `yaml:"listen"`
		Store          string `yaml:"store"`
		StateFile      string `yaml:"state_file"`
		SQLitePath     string `yaml:"sqlite_path"`
		RedisAddr      string `yaml:"redis_addr"`
		RedisDB        int    `yaml:"redis_db"`
		WorkDir        string `yaml:"workdir"`
		StepTimeout    string `yaml:"step_timeout"`
		TestTimeout    string `yaml:"test_timeout"`
		LogLevel       string `yaml:"log_level"`
		Editor         string `yaml:"editor"`
		AgentCommand   string `yaml:"agent_command"`
		CommitterName  string `yaml:"committer_name"`
		CommitterEmail string `yaml:"committer_email"`
		GitHubToken    string `yaml:"github_token"`
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{
		Listen:         yc.Listen,
		Store:          yc.Store,
		StateFile:      yc.StateFile,
		SQLitePath:     yc.SQLitePath,
		RedisAddr:      yc.RedisAddr,
		RedisDB:        yc.RedisDB,
		WorkDir:        yc.WorkDir,
		LogLevel:       yc.LogLevel,
		Editor:         yc.Editor,
		AgentCommand:   yc.AgentCommand,
		CommitterName:  yc.CommitterName,
		CommitterEmail: yc.CommitterEmail,
		GitHubToken:    yc.GitHubToken,
	}

	if yc.StepTimeout != "" {
		d, err := time.ParseDuration(yc.StepTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid step_timeout %q: %w", yc.StepTimeout, err)
		}
		cfg.StepTimeout = d
	}
	if yc.TestTimeout != "" {
		d, err := time.ParseDuration(yc.TestTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid test_timeout %q: %w", yc.TestTimeout, err)
		}
		cfg.TestTimeout = d
	}

	return cfg, nil
}

// merge applies non-zero values from other on top of c.
func (c *Config) merge(other *Config) {
	if other.Listen != "" {
		c.Listen = other.Listen
	}
	if other.Store != "" {
		c.Store = other.Store
	}
	if other.StateFile != "" {
		c.StateFile = other.StateFile
	}
	if other.SQLitePath != "" {
		c.SQLitePath = other.SQLitePath
	}
	if other.RedisAddr != "" {
		c.RedisAddr = other.RedisAddr
	}
	if other.RedisDB != 0 {
		c.RedisDB = other.RedisDB
	}
	if other.WorkDir != "" {
		c.WorkDir = other.WorkDir
	}
	if other.StepTimeout != 0 {
		c.StepTimeout = other.StepTimeout
	}
	if other.TestTimeout != 0 {
		c.TestTimeout = other.TestTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.Editor != "" {
		c.Editor = other.Editor
	}
	if other.AgentCommand != "" {
		c.AgentCommand = other.AgentCommand
	}
	if other.CommitterName != "" {
		c.CommitterName = other.CommitterName
	}
	if other.CommitterEmail != "" {
		c.CommitterEmail = other.CommitterEmail
	}
	if other.GitHubToken != "" {
		c.GitHubToken = other.GitHubToken
	}
}

// Validate checks configuration consistency. Errors here are fatal at startup.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreFile, StoreRedis, StoreSQLite:
	default:
		return fmt.Errorf("invalid store %q, must be one of: memory, file, redis, sqlite", c.Store)
	}

	if c.Store == StoreFile && c.StateFile == "" {
		return fmt.Errorf("state_file is required for the file store")
	}
	if c.Store == StoreSQLite && c.SQLitePath == "" {
		return fmt.Errorf("sqlite_path is required for the sqlite store")
	}
	if c.Store == StoreRedis && c.RedisAddr == "" {
		return fmt.Errorf("redis_addr is required for the redis store")
	}

	switch c.Editor {
	case EditorNote:
	case EditorCommand:
		if c.AgentCommand == "" {
			return fmt.Errorf("agent_command is required for the command editor")
		}
	default:
		return fmt.Errorf("invalid editor %q, must be one of: note, command", c.Editor)
	}

	if !logger.ValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log_level %q, must be one of: debug, info, warn, error", c.LogLevel)
	}
	if c.StepTimeout <= 0 {
		return fmt.Errorf("step_timeout must be > 0, got %v", c.StepTimeout)
	}
	if c.TestTimeout <= 0 {
		return fmt.Errorf("test_timeout must be > 0, got %v", c.TestTimeout)
	}
	if c.WorkDir == "" {
		return fmt.Errorf("workdir cannot be empty")
	}
	if c.GitHubToken == "" {
		return fmt.Errorf("github token is required (set GITHUB_TOKEN or github_token)")
	}

	return nil
}
