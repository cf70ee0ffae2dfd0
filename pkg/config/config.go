// Package config loads tsera settings with koanf. Sources are applied in
// order: defaults, the project config file, an optional profile overlay,
// TSERA_* environment variables and finally --set flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	mm "github.com/Masterminds/semver/v3"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	tserrors "github.com/tsera-dev/tsera/pkg/errors"
)

// EnvPrefix prefixes environment overrides: TSERA_DB_DIALECT sets db.dialect.
const EnvPrefix = "TSERA_"

// ProfileEnv selects a profile overlay when no --profile flag is given.
const ProfileEnv = "TSERA_PROFILE"

// FileNames are the config file names looked up in a project directory.
var FileNames = []string{"tsera.config.yaml", "tsera.config.yml", "tsera.config.json"}

type Config struct {
	Project   ProjectConfig   `koanf:"project"`
	Paths     PathsConfig     `koanf:"paths"`
	Engine    EngineConfig    `koanf:"engine"`
	Artifacts ArtifactsConfig `koanf:"artifacts"`
	DB        DBConfig        `koanf:"db"`
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Audit     AuditConfig     `koanf:"audit"`
	CD        CDConfig        `koanf:"cd"`
	Dev       DevConfig       `koanf:"dev"`

	// Source is the config file that was loaded, if any.
	Source string `koanf:"-"`
	// Profile is the overlay that was applied, if any.
	Profile string `koanf:"-"`
}

type ProjectConfig struct {
	Name     string `koanf:"name"`
	Version  string `koanf:"version"`
	Requires string `koanf:"requires"` // semver constraint on the tsera version
}

type PathsConfig struct {
	Entities string `koanf:"entities"`
	Output   string `koanf:"output"` // prefix for generated artifact paths
}

type EngineConfig struct {
	Version          int  `koanf:"version"`
	IncludeUnchanged bool `koanf:"include_unchanged"`
}

type ArtifactsConfig struct {
	Schema    bool `koanf:"schema"`
	Migration bool `koanf:"migration"`
	Doc       bool `koanf:"doc"`
	Test      bool `koanf:"test"`
	OpenAPI   bool `koanf:"openapi"`
}

type DBConfig struct {
	Dialect string `koanf:"dialect"` // postgres, sqlite, mysql
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // none, stdout, otlp
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
	PromTextfile string `koanf:"prom_textfile"`
}

type AuditConfig struct {
	Enabled bool   `koanf:"enabled"`
	Driver  string `koanf:"driver"` // memory, sqlite
	Path    string `koanf:"path"`
}

type CDConfig struct {
	Provider string `koanf:"provider"` // github, gitlab
	Dir      string `koanf:"dir"`      // empty selects the provider default
	Force    bool   `koanf:"force"`
}

type DevConfig struct {
	DebounceMS int `koanf:"debounce_ms"`
}

// Global k instance
var k = koanf.New(".")

func setDefaults() {
	k.Set("project.name", "app")
	k.Set("project.version", "0.1.0")
	k.Set("paths.entities", "entities")
	k.Set("paths.output", ".")
	k.Set("engine.version", 1)
	k.Set("engine.include_unchanged", false)
	k.Set("artifacts.schema", true)
	k.Set("artifacts.migration", true)
	k.Set("artifacts.doc", true)
	k.Set("artifacts.test", true)
	k.Set("artifacts.openapi", true)
	k.Set("db.dialect", "postgres")
	k.Set("log.level", "info")
	k.Set("log.format", "text")
	k.Set("telemetry.exporter", "none")
	k.Set("telemetry.otlp_endpoint", "localhost:4317")
	k.Set("telemetry.otlp_insecure", true)
	k.Set("audit.enabled", false)
	k.Set("audit.driver", "sqlite")
	k.Set("audit.path", ".tsera/audit.db")
	k.Set("cd.provider", "github")
	k.Set("cd.dir", "")
	k.Set("dev.debounce_ms", 300)
}

// Load reads defaults, the file at path (if any) and the environment.
func Load(path string) (*Config, error) {
	return load(path, "", nil)
}

// LoadWithProfile is Load plus the overlay file <name>.<profile><ext> next
// to path. A missing overlay is ignored.
func LoadWithProfile(path, profile string) (*Config, error) {
	return load(path, profile, nil)
}

// LoadWithCLI parses --config, --profile (alias --env) and --set key=value
// from args and loads accordingly. --set values are decoded as JSON when
// possible, so --set artifacts.doc=false yields a boolean.
func LoadWithCLI(args []string) (*Config, error) {
	path, opts, err := parseCLIOverrides(args)
	if err != nil {
		return nil, err
	}
	return load(path, opts.profile, opts.sets)
}

type cliOptions struct {
	profile string
	sets    map[string]any
}

func parseCLIOverrides(args []string) (string, cliOptions, error) {
	var (
		path string
		opts = cliOptions{sets: map[string]any{}}
	)
	value := func(i int, name string) (string, error) {
		if i+1 >= len(args) {
			return "", fmt.Errorf("missing value for %s", name)
		}
		return args[i+1], nil
	}
	addSet := func(raw string) error {
		key, val, ok := strings.Cut(raw, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return fmt.Errorf("invalid --set %q: want key=value", raw)
		}
		var decoded any
		if err := json.Unmarshal([]byte(val), &decoded); err != nil {
			decoded = val
		}
		opts.sets[key] = decoded
		return nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--config":
			v, err := value(i, arg)
			if err != nil {
				return "", opts, err
			}
			path = v
			i++
		case strings.HasPrefix(arg, "--config="):
			path = strings.TrimPrefix(arg, "--config=")
		case arg == "--profile" || arg == "--env":
			v, err := value(i, arg)
			if err != nil {
				return "", opts, err
			}
			opts.profile = v
			i++
		case strings.HasPrefix(arg, "--profile="):
			opts.profile = strings.TrimPrefix(arg, "--profile=")
		case strings.HasPrefix(arg, "--env="):
			opts.profile = strings.TrimPrefix(arg, "--env=")
		case arg == "--set":
			v, err := value(i, arg)
			if err != nil {
				return "", opts, err
			}
			if err := addSet(v); err != nil {
				return "", opts, err
			}
			i++
		case strings.HasPrefix(arg, "--set="):
			if err := addSet(strings.TrimPrefix(arg, "--set=")); err != nil {
				return "", opts, err
			}
		default:
			return "", opts, fmt.Errorf("unknown config flag %q", arg)
		}
	}
	return path, opts, nil
}

func load(path, profile string, sets map[string]any) (*Config, error) {
	k = koanf.New(".")
	setDefaults()

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, configError("load config file", err).WithContext("file", path)
		}
	}

	// 2. Profile overlay
	if profile == "" {
		profile = os.Getenv(ProfileEnv)
	}
	if path != "" && profile != "" {
		overlay := ProfilePath(path, profile)
		if _, err := os.Stat(overlay); err == nil {
			if err := k.Load(file.Provider(overlay), yaml.Parser()); err != nil {
				return nil, configError("load profile overlay", err).WithContext("file", overlay)
			}
		}
	}

	// 3. Load from ENV (TSERA_ENGINE_INCLUDE_UNCHANGED -> engine.include_unchanged)
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
	}), nil); err != nil {
		return nil, configError("load environment", err)
	}

	// 4. CLI overrides
	keys := make([]string, 0, len(sets))
	for key := range sets {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if err := k.Set(key, sets[key]); err != nil {
			return nil, configError("apply --set", err).WithContext("key", key)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, configError("decode config", err)
	}
	cfg.Source = path
	cfg.Profile = profile
	return &cfg, nil
}

// ProfilePath returns the overlay path for profile: tsera.config.yaml with
// profile dev becomes tsera.config.dev.yaml.
func ProfilePath(path, profile string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "." + profile + ext
}

// Discover returns the first config file present in dir, or "".
func Discover(dir string) string {
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); !errors.Is(err, fs.ErrNotExist) {
			return p
		}
	}
	return ""
}

// Validate checks enumerations and the project version requirements
// against toolVersion. A toolVersion that is not semver (such as "dev")
// skips the requirement check.
func (c *Config) Validate(toolVersion string) error {
	var problems []string
	check := func(field, value string, allowed ...string) {
		if !slices.Contains(allowed, value) {
			problems = append(problems, fmt.Sprintf("%s: %q is not one of %s", field, value, strings.Join(allowed, ", ")))
		}
	}
	check("db.dialect", strings.ToLower(c.DB.Dialect), "postgres", "postgresql", "sqlite", "sqlite3", "mysql")
	check("log.format", c.Log.Format, "text", "json")
	check("log.level", strings.ToLower(c.Log.Level), "debug", "info", "warn", "warning", "error")
	check("telemetry.exporter", c.Telemetry.Exporter, "none", "stdout", "otlp")
	check("audit.driver", c.Audit.Driver, "memory", "sqlite")
	check("cd.provider", c.CD.Provider, "github", "gitlab")

	if c.Engine.Version < 1 {
		problems = append(problems, "engine.version must be at least 1")
	}
	if strings.TrimSpace(c.Paths.Entities) == "" {
		problems = append(problems, "paths.entities is required")
	}
	if _, err := mm.StrictNewVersion(c.Project.Version); err != nil {
		problems = append(problems, fmt.Sprintf("project.version: %v", err))
	}
	if c.Project.Requires != "" {
		constraint, err := mm.NewConstraint(c.Project.Requires)
		if err != nil {
			problems = append(problems, fmt.Sprintf("project.requires: %v", err))
		} else if v, err := mm.NewVersion(toolVersion); err == nil && !constraint.Check(v) {
			problems = append(problems, fmt.Sprintf("project requires tsera %s, running %s", c.Project.Requires, toolVersion))
		}
	}

	if len(problems) > 0 {
		return tserrors.New(tserrors.CodeConfig, "invalid configuration: "+strings.Join(problems, "; "), nil).
			WithContext("file", c.Source)
	}
	return nil
}

func configError(msg string, err error) *tserrors.Error {
	return tserrors.New(tserrors.CodeConfig, msg, err)
}
