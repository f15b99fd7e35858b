// Package config resolves hooktarget settings from defaults, an optional
// TOML file, HOOKTARGET_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/weiihann/hooktarget/harness"
)

const (
	// FileName is the config file looked up in the working directory.
	FileName = "hooktarget"
	// EnvPrefix prefixes environment overrides, e.g. HOOKTARGET_RUN_MODE.
	EnvPrefix = "HOOKTARGET"
)

// DefaultBenchSettle is the pause after loading an extension before the
// hooked phase starts, long enough for a constructor thread to install its
// hooks.
const DefaultBenchSettle = 2 * time.Second

// Config is the resolved configuration.
type Config struct {
	Extension string      `mapstructure:"extension"`
	Entry     string      `mapstructure:"entry"`
	Run       RunConfig   `mapstructure:"run"`
	Bench     BenchConfig `mapstructure:"bench"`
}

// RunConfig configures the process harness.
type RunConfig struct {
	Mode             string        `mapstructure:"mode"`
	Settle           time.Duration `mapstructure:"settle"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	Workers          int           `mapstructure:"workers"`
	Workloads        []string      `mapstructure:"workloads"`
	ParallelWorkload string        `mapstructure:"parallel_workload"`
	Wait             bool          `mapstructure:"wait"`
}

// BenchConfig configures the benchmark command.
type BenchConfig struct {
	Workload   string        `mapstructure:"workload"`
	Iterations uint64        `mapstructure:"iterations"`
	Settle     time.Duration `mapstructure:"settle"`
	Quiet      bool          `mapstructure:"quiet"`
	JSON       bool          `mapstructure:"json"`
	History    string        `mapstructure:"history"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Run: RunConfig{
			Mode:             harness.Once.String(),
			PollInterval:     harness.DefaultPollInterval,
			Workers:          harness.DefaultWorkers,
			ParallelWorkload: harness.DefaultParallelWorkload,
		},
		Bench: BenchConfig{
			Workload: "calc",
			Settle:   DefaultBenchSettle,
		},
	}
}

// flagKeys maps config keys to the flag names that override them.
var flagKeys = map[string]string{
	"extension":             "extension",
	"entry":                 "entry",
	"run.mode":              "mode",
	"run.settle":            "settle",
	"run.poll_interval":     "poll-interval",
	"run.workers":           "workers",
	"run.workloads":         "workloads",
	"run.parallel_workload": "parallel-workload",
	"run.wait":              "wait",
	"bench.workload":        "workload",
	"bench.iterations":      "iterations",
	"bench.settle":          "settle",
	"bench.quiet":           "quiet",
	"bench.json":            "json",
	"bench.history":         "history",
}

// Load resolves the configuration. When path is empty, hooktarget.toml in
// the working directory is used if present. Flags missing from flags are
// ignored.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("extension", defaults.Extension)
	v.SetDefault("entry", defaults.Entry)
	v.SetDefault("run.mode", defaults.Run.Mode)
	v.SetDefault("run.settle", defaults.Run.Settle)
	v.SetDefault("run.poll_interval", defaults.Run.PollInterval)
	v.SetDefault("run.workers", defaults.Run.Workers)
	v.SetDefault("run.workloads", defaults.Run.Workloads)
	v.SetDefault("run.parallel_workload", defaults.Run.ParallelWorkload)
	v.SetDefault("run.wait", defaults.Run.Wait)
	v.SetDefault("bench.workload", defaults.Bench.Workload)
	v.SetDefault("bench.iterations", defaults.Bench.Iterations)
	v.SetDefault("bench.settle", defaults.Bench.Settle)
	v.SetDefault("bench.quiet", defaults.Bench.Quiet)
	v.SetDefault("bench.json", defaults.Bench.JSON)
	v.SetDefault("bench.history", defaults.Bench.History)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("toml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if flags != nil {
		for key, name := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}

			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// Harness converts the run settings into a harness.Config.
func (c *Config) Harness() (harness.Config, error) {
	mode, err := harness.ParseMode(c.Run.Mode)
	if err != nil {
		return harness.Config{}, err
	}

	hc := harness.Config{
		ExtensionPath:    c.Extension,
		Mode:             mode,
		PollInterval:     c.Run.PollInterval,
		Workers:          c.Run.Workers,
		Workloads:        c.Run.Workloads,
		ParallelWorkload: c.Run.ParallelWorkload,
		Wait:             c.Run.Wait,
	}

	if err := hc.Validate(); err != nil {
		return harness.Config{}, err
	}

	return hc, nil
}

// RequireExtension reports a MissingRequiredPath error when no extension
// path is configured.
func (c *Config) RequireExtension() error {
	if c.Extension == "" {
		return &Error{Kind: MissingRequiredPath, Key: "extension"}
	}

	return nil
}

// fileConfig is the on-disk layout written by WriteDefault.
type fileConfig struct {
	Extension string    `toml:"extension"`
	Entry     string    `toml:"entry"`
	Run       fileRun   `toml:"run"`
	Bench     fileBench `toml:"bench"`
}

type fileRun struct {
	Mode             string   `toml:"mode"`
	Settle           string   `toml:"settle"`
	PollInterval     string   `toml:"poll_interval"`
	Workers          int      `toml:"workers"`
	Workloads        []string `toml:"workloads"`
	ParallelWorkload string   `toml:"parallel_workload"`
	Wait             bool     `toml:"wait"`
}

type fileBench struct {
	Workload   string `toml:"workload"`
	Iterations uint64 `toml:"iterations"`
	Settle     string `toml:"settle"`
	Quiet      bool   `toml:"quiet"`
	JSON       bool   `toml:"json"`
	History    string `toml:"history"`
}

// WriteDefault writes the default configuration as TOML.
func WriteDefault(w io.Writer) error {
	d := Default()

	fc := fileConfig{
		Extension: d.Extension,
		Entry:     d.Entry,
		Run: fileRun{
			Mode:             d.Run.Mode,
			Settle:           d.Run.Settle.String(),
			PollInterval:     d.Run.PollInterval.String(),
			Workers:          d.Run.Workers,
			Workloads:        []string{},
			ParallelWorkload: d.Run.ParallelWorkload,
			Wait:             d.Run.Wait,
		},
		Bench: fileBench{
			Workload:   d.Bench.Workload,
			Iterations: d.Bench.Iterations,
			Settle:     d.Bench.Settle.String(),
			Quiet:      d.Bench.Quiet,
			JSON:       d.Bench.JSON,
			History:    d.Bench.History,
		},
	}

	enc := toml.NewEncoder(w)
	if err := enc.Encode(fc); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	return nil
}
