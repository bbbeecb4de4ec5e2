package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/glorpus-work/clawstrap/pkg/errors"
)

func TestProviders(t *testing.T) {
	providers := Providers()
	require.Len(t, providers, 5)
	for _, p := range providers {
		assert.Contains(t, p.Models, p.DefaultModel, p.ID)
	}
	p, ok := FindProvider("alibaba")
	require.True(t, ok)
	assert.Equal(t, "qwen-plus", p.DefaultModel)
	_, ok = FindProvider("ollama")
	assert.False(t, ok)
}

func TestPresets(t *testing.T) {
	presets := Presets()
	require.Len(t, presets, 3)
	names := []string{}
	for _, p := range presets {
		names = append(names, p.Name)
		assert.NoError(t, Validate(p.Parameters), p.Name)
	}
	assert.Equal(t, []string{"Creative", "Balanced", "Precise"}, names)
	assert.Equal(t, DefaultParameters(), presets[1].Parameters)
}

func TestDefaultParameters(t *testing.T) {
	p := DefaultParameters()
	assert.InDelta(t, 0.7, p.Temperature, 1e-6)
	assert.Equal(t, uint32(4096), p.MaxTokens)
	assert.InDelta(t, 1.0, p.TopP, 1e-6)
	assert.True(t, p.Stream)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Parameters)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Parameters) {}},
		{name: "edges", mutate: func(p *Parameters) {
			p.Temperature, p.MaxTokens, p.TopP, p.FrequencyPenalty, p.PresencePenalty = 2, 32768, 0, -2, 2
		}},
		{name: "temperature", mutate: func(p *Parameters) { p.Temperature = 3 }, wantErr: "Temperature must be between 0.0 and 2.0"},
		{name: "negative temperature", mutate: func(p *Parameters) { p.Temperature = -0.1 }, wantErr: "Temperature must be between 0.0 and 2.0"},
		{name: "zero tokens", mutate: func(p *Parameters) { p.MaxTokens = 0 }, wantErr: "Max tokens must be between 1 and 32768"},
		{name: "too many tokens", mutate: func(p *Parameters) { p.MaxTokens = 32769 }, wantErr: "Max tokens must be between 1 and 32768"},
		{name: "top p", mutate: func(p *Parameters) { p.TopP = 1.5 }, wantErr: "Top P must be between 0.0 and 1.0"},
		{name: "frequency", mutate: func(p *Parameters) { p.FrequencyPenalty = -2.5 }, wantErr: "Frequency penalty must be between -2.0 and 2.0"},
		{name: "presence", mutate: func(p *Parameters) { p.PresencePenalty = 2.5 }, wantErr: "Presence penalty must be between -2.0 and 2.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParameters()
			tt.mutate(&p)
			err := Validate(p)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, pkgerrors.ErrInvalidParameter)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestUsage(t *testing.T) {
	rows := Usage()
	require.Len(t, rows, 1)
	assert.Equal(t, "qwen-plus", rows[0].Model)
}
