package config

import (
	"context"
	"fmt"
	"os"

	"github.com/ogulcanaydogan/kwscore/pkg/types"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

const DefaultConfigPath = "kwscore.yaml"

type ProjectConfig struct {
	ResultsDir  string                    `yaml:"results_dir"`
	HistoryPath string                    `yaml:"history_path"`
	GatePolicy  string                    `yaml:"gate_policy"`
	EntrySchema string                    `yaml:"entry_schema"`
	Modules     []types.ModuleScoreConfig `yaml:"modules"`
	PathRules   map[string][]string       `yaml:"path_rules"`
}

func LoadConfig(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Load reads the project file at path on top of DefaultProjectConfig. A
// missing file is not an error when path is the default location.
func Load(path string) (ProjectConfig, error) {
	cfg := DefaultProjectConfig()
	if path == "" {
		path = DefaultConfigPath
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && path == DefaultConfigPath {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := LoadConfig(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Table returns the default module table with the project's overrides
// applied.
func (c ProjectConfig) Table() (Table, error) {
	return DefaultTable().Merge(c.Modules)
}

func DefaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		ResultsDir:  "results",
		HistoryPath: ".kwscore/history.db",
		PathRules: map[string][]string{
			"m01":  {"results/m01_*", "results/M01_*"},
			"m01a": {"results/m01a_*", "results/M01a_*"},
			"m02":  {"results/m02_*", "results/M02_*"},
			"m04":  {"results/m04_*", "results/M04_*"},
			"m05":  {"results/m05_*", "results/M05_*"},
			"m12":  {"results/m12_*", "results/M12_*"},
			"m12b": {"results/m12b_*", "results/M12b_*"},
			"m13":  {"results/m13_*", "results/M13_*"},
			"m14":  {"results/m14_*", "results/M14_*"},
			"m15":  {"results/m15_*", "results/M15_*"},
			"m16":  {"results/m16_*", "results/M16_*"},
		},
	}
}

// Settings are read from the environment. Command-line flags take precedence
// over these, and these over the project file.
type Settings struct {
	ConfigPath  string `env:"KWSCORE_CONFIG,default=kwscore.yaml"`
	HistoryDB   string `env:"KWSCORE_HISTORY_DB"`
	Concurrency int    `env:"KWSCORE_CONCURRENCY,default=4"`
	LogLevel    string `env:"KWSCORE_LOG_LEVEL,default=info"`
	ListenAddr  string `env:"KWSCORE_LISTEN_ADDR,default=:8080"`

	S3 S3Settings
}

type S3Settings struct {
	Endpoint  string `env:"KWSCORE_S3_ENDPOINT"`
	Region    string `env:"KWSCORE_S3_REGION,default=us-east-1"`
	AccessKey string `env:"KWSCORE_S3_ACCESS_KEY"`
	SecretKey string `env:"KWSCORE_S3_SECRET_KEY"`
}

func LoadSettings(ctx context.Context) (Settings, error) {
	return loadSettings(ctx, nil)
}

func loadSettings(ctx context.Context, lookuper envconfig.Lookuper) (Settings, error) {
	var s Settings
	cfg := &envconfig.Config{Target: &s}
	if lookuper != nil {
		cfg.Lookuper = lookuper
	}
	if err := envconfig.ProcessWith(ctx, cfg); err != nil {
		return Settings{}, fmt.Errorf("process environment: %w", err)
	}
	if s.Concurrency < 1 {
		s.Concurrency = 1
	}
	return s, nil
}
