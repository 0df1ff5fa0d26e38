// Package config loads the controller's runtime configuration from
// environment variables via viper's AutomaticEnv with explicit defaults.
package config

import (
	"fmt"
	"strconv"

	"github.com/spf13/viper"
)

// Config holds every environment-sourced setting the controller needs to
// run: which gateway and model to call, and the per-agent-kind turn
// budgets.
type Config struct {
	// LiteLLMModel selects the model string sent to the gateway, e.g.
	// "anthropic/claude-sonnet-4-5-20250929".
	LiteLLMModel string
	// LiteLLMTemperature is the sampling temperature applied to every
	// completion.
	LiteLLMTemperature float64
	// LiteLLMAPIKey authenticates against the gateway.
	LiteLLMAPIKey string
	// LiteLLMAPIBase overrides the gateway's base URL; empty uses the
	// Anthropic SDK's own default.
	LiteLLMAPIBase string

	// MaxOrchTurns bounds the Orchestrator Runtime's top-level loop.
	MaxOrchTurns int
	// MaxExplorerTurns bounds an Explorer Subagent's turn loop.
	MaxExplorerTurns int
	// MaxCoderTurns bounds a Coder Subagent's turn loop.
	MaxCoderTurns int
}

const (
	defaultModel            = "anthropic/claude-sonnet-4-5-20250929"
	defaultTemperature      = 0.1
	defaultMaxOrchTurns     = 100
	defaultMaxExplorerTurns = 15
	defaultMaxCoderTurns    = 25
)

// Load reads Config from the environment, falling back to the reference
// defaults for anything unset. LiteLLMAPIKey has no default: Validate
// reports its absence so the caller can fail fast instead of discovering
// it on the first gateway call.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	bindEnv(v, "litellm_model", "LITELLM_MODEL")
	bindEnv(v, "litellm_temperature", "LITELLM_TEMPERATURE")
	bindEnv(v, "lite_llm_api_key", "LITE_LLM_API_KEY")
	bindEnv(v, "lite_llm_api_base", "LITE_LLM_API_BASE")
	bindEnv(v, "max_orch_turns", "MAX_ORCH_TURNS")
	bindEnv(v, "max_explorer_turns", "MAX_EXPLORER_TURNS")
	bindEnv(v, "max_coder_turns", "MAX_CODER_TURNS")

	cfg := &Config{
		LiteLLMModel:       v.GetString("litellm_model"),
		LiteLLMTemperature: v.GetFloat64("litellm_temperature"),
		LiteLLMAPIKey:      v.GetString("lite_llm_api_key"),
		LiteLLMAPIBase:     v.GetString("lite_llm_api_base"),
		MaxOrchTurns:       v.GetInt("max_orch_turns"),
		MaxExplorerTurns:   v.GetInt("max_explorer_turns"),
		MaxCoderTurns:      v.GetInt("max_coder_turns"),
	}

	return cfg, nil
}

// Validate reports whether cfg has everything required to reach the
// gateway. It is separate from Load so tests can construct a Config by
// hand without also faking an environment.
func (c *Config) Validate() error {
	if c.LiteLLMAPIKey == "" {
		return fmt.Errorf("LITE_LLM_API_KEY is not set")
	}
	if c.LiteLLMModel == "" {
		return fmt.Errorf("LITELLM_MODEL is not set")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("litellm_model", defaultModel)
	v.SetDefault("litellm_temperature", defaultTemperature)
	v.SetDefault("lite_llm_api_key", "")
	v.SetDefault("lite_llm_api_base", "")
	v.SetDefault("max_orch_turns", defaultMaxOrchTurns)
	v.SetDefault("max_explorer_turns", defaultMaxExplorerTurns)
	v.SetDefault("max_coder_turns", defaultMaxCoderTurns)
}

// bindEnv is a small wrapper over viper.BindEnv that panics only on a
// programmer error (a typo'd key), never on a missing environment
// variable, which BindEnv treats as a normal case.
func bindEnv(v *viper.Viper, key, envVar string) {
	if err := v.BindEnv(key, envVar); err != nil {
		panic(fmt.Sprintf("config: invalid BindEnv(%q, %q): %v", key, envVar, err))
	}
}

// ParseTemperature parses a temperature value as a 64-bit float. Load does
// not call it: viper converts LITELLM_TEMPERATURE itself.
func ParseTemperature(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
