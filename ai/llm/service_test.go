package llm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewServiceTemperatureDefaults(t *testing.T) {
	svc, err := NewService(&Config{Provider: "openai", Model: "gpt-4o"})
	require.NoError(t, err)
	require.InDelta(t, 0.7, svc.(*service).temperature, 0.0001)
}

func TestNewServiceHonorsZeroTemperature(t *testing.T) {
	zero := float32(0)
	svc, err := NewService(&Config{Provider: "openai", Model: "gpt-4o", Temperature: &zero})
	require.NoError(t, err)
	require.Zero(t, svc.(*service).temperature)
}
