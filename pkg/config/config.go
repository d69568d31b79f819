package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Log       LogConfig       `koanf:"log"`
	LLM       LLMConfig       `koanf:"llm"`
	Loop      LoopConfig      `koanf:"loop"`
	Data      DataConfig      `koanf:"data"`
	Evaluator EvaluatorConfig `koanf:"evaluator"`
	Memory    MemoryConfig    `koanf:"memory"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Audit     AuditConfig     `koanf:"audit"`
	MCP       MCPConfig       `koanf:"mcp"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type LLMConfig struct {
	Provider string `koanf:"provider"` // openai, anthropic, gemini, qwen, ollama, mock
	Model    string `koanf:"model"`
	BaseURL  string `koanf:"base_url"`
	APIKey   string `koanf:"api_key"`
}

// LoopConfig bounds the tool-calling conversation loop.
type LoopConfig struct {
	MaxIterations     int  `koanf:"max_iterations"`
	AskMaxIterations  int  `koanf:"ask_max_iterations"`
	RetryDelaySeconds int  `koanf:"retry_delay_seconds"`
	MaxRetries        int  `koanf:"max_retries"` // <= 0 means bounded only by iterations
	Verbose           bool `koanf:"verbose"`
}

// DataConfig names the input files and the directory that receives outcomes.
type DataConfig struct {
	Dir         string `koanf:"dir"`
	ProductTree string `koanf:"product_tree"`
	Guidelines  string `koanf:"guidelines"`
	Questions   string `koanf:"questions"`
	Snapshot    string `koanf:"snapshot"` // entities snapshot for ask/show/mcp; empty picks the latest outcome
	OWL         string `koanf:"owl"`
}

type EvaluatorConfig struct {
	Dialect        string `koanf:"dialect"` // datalog, sparql
	Endpoint       string `koanf:"endpoint"`
	TimeoutSeconds int    `koanf:"timeout_seconds"`
}

type MemoryConfig struct {
	Enabled          bool   `koanf:"enabled"`
	Provider         string `koanf:"provider"` // vector, inmemory
	QdrantAddr       string `koanf:"qdrant_addr"`
	Collection       string `koanf:"collection"`
	EmbedderProvider string `koanf:"embedder_provider"` // ollama
	EmbedderBaseURL  string `koanf:"embedder_base_url"`
	EmbedderModel    string `koanf:"embedder_model"`
}

type TelemetryConfig struct {
	Enabled            bool              `koanf:"enabled"`
	Exporter           string            `koanf:"exporter"` // stdout, otlp
	OTLPEndpoint       string            `koanf:"otlp_endpoint"`
	OTLPInsecure       bool              `koanf:"otlp_insecure"`
	OTLPTimeoutSeconds int               `koanf:"otlp_timeout_seconds"`
	OTLPHeaders        map[string]string `koanf:"otlp_headers"`
	OTLPUser           string            `koanf:"otlp_user"`
	OTLPToken          string            `koanf:"otlp_token"`
}

type AuditConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

type MCPConfig struct {
	Servers map[string]MCPServerConfig `koanf:"servers"`
}

type MCPServerConfig struct {
	Transport string   `koanf:"transport"` // stdio, http
	URL       string   `koanf:"url"`
	Command   string   `koanf:"command"`
	Args      []string `koanf:"args"`

	// Optional client tuning. Pointers distinguish "unset" from zero.
	TimeoutSeconds  *int   `koanf:"timeout_seconds"`
	RetryCount      *int   `koanf:"retry_count"`
	RetryBackoffMs  *int   `koanf:"retry_backoff_ms"`
	CacheTTLSeconds *int   `koanf:"cache_ttl_seconds"`
	ProtocolVersion string `koanf:"protocol_version"`
}

// Load reads configuration from defaults, the optional file at path,
// and ONTOFORGE_ environment variables, in that order.
func Load(path string) (*Config, error) {
	return load(path, "", nil)
}

// LoadWithProfile loads the base config file and overlays the matching
// profile file (config.yaml + config.<profile>.yaml) when it exists.
func LoadWithProfile(path, profile string) (*Config, error) {
	return load(path, profile, nil)
}

// LoadWithCLI parses --config, --profile/--env, and repeatable --set key=value
// flags and loads configuration with the overrides applied last.
func LoadWithCLI(args []string) (*Config, error) {
	flags, sets, err := parseCLIOverrides(args)
	if err != nil {
		return nil, err
	}
	return load(flags.configPath, flags.profile, sets)
}

// load builds a fresh koanf instance per call, so a reload never keeps
// keys that the current file revision no longer has.
func load(path, profile string, sets map[string]any) (*Config, error) {
	k := koanf.New(".")
	setDefaults(k)

	// File next: YAML, with JSON parsing as a YAML subset.
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
		if profilePath := profileConfigPath(path, profile); profilePath != "" {
			if err := k.Load(file.Provider(profilePath), yaml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	// Environment: ONTOFORGE_LLM_PROVIDER becomes llm.provider.
	if err := k.Load(env.Provider("ONTOFORGE_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, "ONTOFORGE_")), "_", ".")
	}), nil); err != nil {
		return nil, err
	}

	// CLI --set overrides win over file and environment.
	for key, value := range sets {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("apply override %s: %w", key, err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(k *koanf.Koanf) {
	k.Set("log.level", "info")
	k.Set("log.format", "text")

	k.Set("llm.provider", "openai")
	k.Set("llm.model", "gpt-5")

	k.Set("loop.max_iterations", 80)
	k.Set("loop.ask_max_iterations", 20)
	k.Set("loop.retry_delay_seconds", 15)
	k.Set("loop.max_retries", 0)
	k.Set("loop.verbose", false)

	k.Set("data.dir", "data")
	k.Set("data.product_tree", "data/product_data.json")
	k.Set("data.guidelines", "data/logistics.json")
	k.Set("data.questions", "data/test.json")

	k.Set("evaluator.dialect", "datalog")
	k.Set("evaluator.timeout_seconds", 30)

	k.Set("memory.enabled", false)
	k.Set("memory.provider", "vector")
	k.Set("memory.qdrant_addr", "localhost:6334")
	k.Set("memory.collection", "ontoforge_entities")
	k.Set("memory.embedder_provider", "ollama")
	k.Set("memory.embedder_base_url", "http://localhost:11434")
	k.Set("memory.embedder_model", "nomic-embed-text")

	k.Set("telemetry.enabled", false)
	k.Set("telemetry.exporter", "stdout")

	k.Set("audit.enabled", false)
	k.Set("audit.path", "data/audit.db")
}

// profileConfigPath derives config.<profile>.yaml from the base path and
// returns it only when the file exists.
func profileConfigPath(base, profile string) string {
	if base == "" || profile == "" {
		return ""
	}
	dir := filepath.Dir(base)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(filepath.Base(base), ext)
	path := filepath.Join(dir, name+"."+profile+ext)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

type cliFlags struct {
	configPath string
	profile    string
}

// parseCLIOverrides extracts --config, --profile/--env, and --set flags.
// Values for --set parse as JSON when possible (booleans, numbers, objects)
// and fall back to plain strings.
func parseCLIOverrides(args []string) (cliFlags, map[string]any, error) {
	var flags cliFlags
	sets := make(map[string]any)

	nextValue := func(i *int, flag string) (string, error) {
		*i++
		if *i >= len(args) {
			return "", fmt.Errorf("missing value for %s", flag)
		}
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--config":
			v, err := nextValue(&i, arg)
			if err != nil {
				return flags, nil, err
			}
			flags.configPath = v
		case strings.HasPrefix(arg, "--config="):
			flags.configPath = strings.TrimPrefix(arg, "--config=")
		case arg == "--profile" || arg == "--env":
			v, err := nextValue(&i, arg)
			if err != nil {
				return flags, nil, err
			}
			flags.profile = v
		case strings.HasPrefix(arg, "--profile="):
			flags.profile = strings.TrimPrefix(arg, "--profile=")
		case strings.HasPrefix(arg, "--env="):
			flags.profile = strings.TrimPrefix(arg, "--env=")
		case arg == "--set":
			v, err := nextValue(&i, arg)
			if err != nil {
				return flags, nil, err
			}
			key, value, err := parseSet(v)
			if err != nil {
				return flags, nil, err
			}
			sets[key] = value
		case strings.HasPrefix(arg, "--set="):
			key, value, err := parseSet(strings.TrimPrefix(arg, "--set="))
			if err != nil {
				return flags, nil, err
			}
			sets[key] = value
		}
	}

	return flags, sets, nil
}

func parseSet(raw string) (string, any, error) {
	key, value, ok := strings.Cut(raw, "=")
	if !ok || key == "" {
		return "", nil, fmt.Errorf("invalid --set %q, expected key=value", raw)
	}
	var parsed any
	if err := json.Unmarshal([]byte(value), &parsed); err == nil {
		return key, parsed, nil
	}
	return key, value, nil
}
