package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Runtime struct {
	HTTPAddr      string   `yaml:"http_addr"`
	CacheMaxItems int      `yaml:"cache_max_items"`
	ObsBuffer     int      `yaml:"obs_buffer"`
	Policy        string   `yaml:"policy"`
	RuleOrder     []string `yaml:"rules"`
	GuardsPath    string   `yaml:"guards_path"`
	JournalPath   string   `yaml:"journal_path"`
	LogLevel      string   `yaml:"log_level"`
}

func Defaults() Runtime {
	return Runtime{
		HTTPAddr:      ":8080",
		CacheMaxItems: 1024,
		ObsBuffer:     4096,
		Policy:        "fail_fast",
		RuleOrder:     []string{"unit_exists", "order_preserve"},
		LogLevel:      "info",
	}
}

// Load builds the runtime configuration from defaults, then the YAML file
// named by RULES_CONFIG_FILE (if any), then environment variables.
func Load() (Runtime, error) {
	rt := Defaults()

	if path := os.Getenv("RULES_CONFIG_FILE"); path != "" {
		if err := rt.mergeFile(path); err != nil {
			return Runtime{}, err
		}
	}

	rt.HTTPAddr = getenv("HTTP_ADDR", rt.HTTPAddr)
	rt.CacheMaxItems = getenvInt("RULES_CACHE_MAX_ITEMS", rt.CacheMaxItems, 1)
	rt.ObsBuffer = getenvInt("RULES_OBS_BUFFER", rt.ObsBuffer, 1)
	rt.Policy = getenv("RULES_POLICY", rt.Policy)
	rt.RuleOrder = getenvList("RULES_ORDER", rt.RuleOrder)
	rt.GuardsPath = getenv("RULES_GUARDS_PATH", rt.GuardsPath)
	rt.JournalPath = getenv("RULES_JOURNAL_PATH", rt.JournalPath)
	rt.LogLevel = getenv("LOG_LEVEL", rt.LogLevel)

	return rt, nil
}

func (rt *Runtime) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var file Runtime
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if file.HTTPAddr != "" {
		rt.HTTPAddr = file.HTTPAddr
	}
	if file.CacheMaxItems > 0 {
		rt.CacheMaxItems = file.CacheMaxItems
	}
	if file.ObsBuffer > 0 {
		rt.ObsBuffer = file.ObsBuffer
	}
	if file.Policy != "" {
		rt.Policy = file.Policy
	}
	if len(file.RuleOrder) > 0 {
		rt.RuleOrder = file.RuleOrder
	}
	if file.GuardsPath != "" {
		rt.GuardsPath = file.GuardsPath
	}
	if file.JournalPath != "" {
		rt.JournalPath = file.JournalPath
	}
	if file.LogLevel != "" {
		rt.LogLevel = file.LogLevel
	}
	return nil
}

// GuardsDOT reads the default guard chain, or returns "" when none is set.
func (rt Runtime) GuardsDOT() (string, error) {
	if rt.GuardsPath == "" {
		return "", nil
	}
	data, err := os.ReadFile(rt.GuardsPath)
	if err != nil {
		return "", fmt.Errorf("read guards: %w", err)
	}
	return string(data), nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback, min int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min {
		return fallback
	}
	return v
}

func getenvList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
