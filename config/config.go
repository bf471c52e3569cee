// Package config resolves sparsebench settings from flags, environment
// variables, an optional .env file and an optional YAML config file.
// Precedence follows viper: flags, then environment, then file, then
// defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. SPARSEBENCH_SEED.
const EnvPrefix = "SPARSEBENCH"

// Keys shared by flags, environment and config file.
const (
	KeyOutputDir   = "output-dir"
	KeyDelimiter   = "delimiter"
	KeySeed        = "seed"
	KeyRepeats     = "repeats"
	KeyNumber      = "number"
	KeyMinDuration = "min-duration"
	KeyLogLevel    = "log-level"
	KeyLogFormat   = "log-format"
	KeyMetricsFile = "metrics-file"
	KeyTraceFile   = "trace-file"
	KeyJSON        = "json"
	KeyPlan        = "plan"
	KeySuites      = "suite"
	KeyRoutines    = "routines"
)

// Settings is the resolved configuration of one invocation.
type Settings struct {
	OutputDir   string
	Delimiter   rune
	Seed        uint64
	Repeats     int
	Number      int
	MinDuration time.Duration
	LogLevel    slog.Level
	LogFormat   string
	MetricsFile string
	TraceFile   string
	JSON        bool
	Plan        string
	Suites      []string
	Routines    []string
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyOutputDir, ".")
	v.SetDefault(KeyDelimiter, "tab")
	v.SetDefault(KeySeed, 1)
	v.SetDefault(KeyRepeats, 8)
	v.SetDefault(KeyNumber, 0)
	v.SetDefault(KeyMinDuration, "200ms")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "auto")
	v.SetDefault(KeyJSON, false)
}

// Load reads .env and the config file into v, binds flags, and resolves
// Settings. cfgFile may be empty, in which case ./sparsebench.yaml is used
// when present.
func Load(v *viper.Viper, cfgFile string, flags *pflag.FlagSet) (Settings, error) {
	// A missing .env is not an error.
	_ = godotenv.Load()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("sparsebench")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Settings{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	return Resolve(v)
}

// Resolve converts the values held by v into Settings.
func Resolve(v *viper.Viper) (Settings, error) {
	s := Settings{
		OutputDir:   v.GetString(KeyOutputDir),
		Repeats:     v.GetInt(KeyRepeats),
		Number:      v.GetInt(KeyNumber),
		MinDuration: v.GetDuration(KeyMinDuration),
		LogFormat:   v.GetString(KeyLogFormat),
		MetricsFile: v.GetString(KeyMetricsFile),
		TraceFile:   v.GetString(KeyTraceFile),
		JSON:        v.GetBool(KeyJSON),
		Plan:        v.GetString(KeyPlan),
		Suites:      splitList(v.GetStringSlice(KeySuites)),
		Routines:    splitList(v.GetStringSlice(KeyRoutines)),
	}

	seed := v.GetInt64(KeySeed)
	if seed < 0 {
		return Settings{}, fmt.Errorf("seed must not be negative, got %d", seed)
	}
	s.Seed = uint64(seed)

	if s.Repeats < 0 {
		return Settings{}, fmt.Errorf("repeats must not be negative, got %d", s.Repeats)
	}

	if s.Number < 0 {
		return Settings{}, fmt.Errorf("number must not be negative, got %d", s.Number)
	}

	delim, err := ParseDelimiter(v.GetString(KeyDelimiter))
	if err != nil {
		return Settings{}, err
	}
	s.Delimiter = delim

	if err := s.LogLevel.UnmarshalText([]byte(v.GetString(KeyLogLevel))); err != nil {
		return Settings{}, fmt.Errorf("log level: %w", err)
	}

	switch s.LogFormat {
	case "auto", "text", "json":
	default:
		return Settings{}, fmt.Errorf("log format %q: want auto, text or json", s.LogFormat)
	}

	return s, nil
}

// ParseDelimiter accepts "tab", "comma", or any single character.
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "tab", `\t`, "\t":
		return '\t', nil
	case "comma", ",":
		return ',', nil
	}

	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter %q: want tab, comma or a single character", s)
	}

	r, _ := utf8.DecodeRuneInString(s)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, fmt.Errorf("delimiter %q is not allowed", s)
	}

	return r, nil
}

// splitList flattens comma-separated entries, which is how list values
// arrive from environment variables.
func splitList(values []string) []string {
	var out []string

	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}

	return out
}
