// Package models exposes the static model-provider catalog shown by the setup
// wizard and validates generation parameters.
package models

import (
	"github.com/glorpus-work/clawstrap/pkg/errors"
)

// Provider is one selectable model provider.
type Provider struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Models            []string `json:"models"`
	DefaultModel      string   `json:"default_model"`
	SupportsStreaming bool     `json:"supports_streaming"`
	MaxTokens         uint32   `json:"max_tokens"`
}

// Parameters are the generation settings of a model.
type Parameters struct {
	Temperature      float32 `json:"temperature"`
	MaxTokens        uint32  `json:"max_tokens"`
	TopP             float32 `json:"top_p"`
	FrequencyPenalty float32 `json:"frequency_penalty"`
	PresencePenalty  float32 `json:"presence_penalty"`
	Stream           bool    `json:"stream"`
}

// Preset is a named parameter set.
type Preset struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  Parameters `json:"parameters"`
}

// UsageStats is one row of get_model_usage_stats.
type UsageStats struct {
	Provider          string  `json:"provider"`
	Model             string  `json:"model"`
	TotalRequests     uint64  `json:"total_requests"`
	TotalTokens       uint64  `json:"total_tokens"`
	AvgResponseTimeMS uint64  `json:"avg_response_time_ms"`
	SuccessRate       float32 `json:"success_rate"`
}

// Parameter limits.
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
	MinMaxTokens   = 1
	MaxMaxTokens   = 32768
	MinTopP        = 0.0
	MaxTopP        = 1.0
	MinPenalty     = -2.0
	MaxPenalty     = 2.0
)

// DefaultParameters is the Balanced preset.
func DefaultParameters() Parameters {
	return Parameters{Temperature: 0.7, MaxTokens: 4096, TopP: 1.0, Stream: true}
}

// Providers returns the provider catalog.
func Providers() []Provider {
	return []Provider{
		{
			ID:                "alibaba",
			Name:              "阿里云百炼 / 通义千问",
			Models:            []string{"qwen-max", "qwen-plus", "qwen-turbo"},
			DefaultModel:      "qwen-plus",
			SupportsStreaming: true,
			MaxTokens:         8192,
		},
		{
			ID:                "deepseek",
			Name:              "深度求索 DeepSeek",
			Models:            []string{"deepseek-chat", "deepseek-coder"},
			DefaultModel:      "deepseek-chat",
			SupportsStreaming: true,
			MaxTokens:         4096,
		},
		{
			ID:                "zhipu",
			Name:              "智谱 AI / GLM",
			Models:            []string{"glm-4", "glm-4-air", "glm-3-turbo"},
			DefaultModel:      "glm-4",
			SupportsStreaming: true,
			MaxTokens:         8192,
		},
		{
			ID:                "anthropic",
			Name:              "Anthropic Claude",
			Models:            []string{"claude-3-5-sonnet-20241022", "claude-3-opus-20240229", "claude-3-haiku-20240307"},
			DefaultModel:      "claude-3-5-sonnet-20241022",
			SupportsStreaming: true,
			MaxTokens:         8192,
		},
		{
			ID:                "openai",
			Name:              "OpenAI",
			Models:            []string{"gpt-4-turbo", "gpt-4", "gpt-3.5-turbo"},
			DefaultModel:      "gpt-4-turbo",
			SupportsStreaming: true,
			MaxTokens:         4096,
		},
	}
}

// FindProvider looks a provider up by id.
func FindProvider(id string) (Provider, bool) {
	for _, p := range Providers() {
		if p.ID == id {
			return p, true
		}
	}
	return Provider{}, false
}

// Presets returns Creative, Balanced and Precise.
func Presets() []Preset {
	return []Preset{
		{
			Name:        "Creative",
			Description: "高创造力，适合创意写作和头脑风暴",
			Parameters:  Parameters{Temperature: 1.0, MaxTokens: 4096, TopP: 0.95, FrequencyPenalty: 0.5, PresencePenalty: 0.5, Stream: true},
		},
		{
			Name:        "Balanced",
			Description: "平衡模式，适合日常对话",
			Parameters:  DefaultParameters(),
		},
		{
			Name:        "Precise",
			Description: "精确模式，适合技术问答和代码生成",
			Parameters:  Parameters{Temperature: 0.3, MaxTokens: 4096, TopP: 0.9, Stream: true},
		},
	}
}

// Usage returns the usage table. Usage is not tracked yet, so this is a fixed
// sample row.
func Usage() []UsageStats {
	return []UsageStats{{
		Provider:          "alibaba",
		Model:             "qwen-plus",
		TotalRequests:     42,
		TotalTokens:       15234,
		AvgResponseTimeMS: 1250,
		SuccessRate:       0.98,
	}}
}

// Validate checks every parameter against its range.
func Validate(p Parameters) error {
	switch {
	case p.Temperature < MinTemperature || p.Temperature > MaxTemperature:
		return errors.Detail(errors.ErrInvalidParameter, "Temperature must be between 0.0 and 2.0")
	case p.MaxTokens < MinMaxTokens || p.MaxTokens > MaxMaxTokens:
		return errors.Detail(errors.ErrInvalidParameter, "Max tokens must be between 1 and 32768")
	case p.TopP < MinTopP || p.TopP > MaxTopP:
		return errors.Detail(errors.ErrInvalidParameter, "Top P must be between 0.0 and 1.0")
	case p.FrequencyPenalty < MinPenalty || p.FrequencyPenalty > MaxPenalty:
		return errors.Detail(errors.ErrInvalidParameter, "Frequency penalty must be between -2.0 and 2.0")
	case p.PresencePenalty < MinPenalty || p.PresencePenalty > MaxPenalty:
		return errors.Detail(errors.ErrInvalidParameter, "Presence penalty must be between -2.0 and 2.0")
	}
	return nil
}
