package factory

import (
	"path/filepath"
	"testing"

	"github.com/opd-ai/vp9depack/interfaces"
	"github.com/opd-ai/vp9depack/real"
	testsim "github.com/opd-ai/vp9depack/testing"
)

// clearEnv isolates a test from VP9DEPACK_* variables set by the caller.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvUseSimulation, "")
	t.Setenv(EnvMaxFrames, "")
}

// TestNewSinkFactory verifies default factory creation
func TestNewSinkFactory(t *testing.T) {
	clearEnv(t)

	factory := NewSinkFactory()
	if factory == nil {
		t.Fatal("NewSinkFactory returned nil")
	}

	config := factory.GetCurrentConfig()
	if config.UseSimulation {
		t.Error("expected real mode by default")
	}
	if config.MaxFrames != 0 {
		t.Errorf("expected default MaxFrames 0, got %d", config.MaxFrames)
	}
}

// TestEnvironmentVariableParsing verifies environment variable handling
func TestEnvironmentVariableParsing(t *testing.T) {
	tests := []struct {
		name        string
		envKey      string
		envValue    string
		checkFunc   func(*interfaces.SinkConfig) bool
		description string
	}{
		{
			name:        "valid_simulation_true",
			envKey:      EnvUseSimulation,
			envValue:    "true",
			checkFunc:   func(c *interfaces.SinkConfig) bool { return c.UseSimulation },
			description: "UseSimulation should be true",
		},
		{
			name:        "invalid_simulation_value",
			envKey:      EnvUseSimulation,
			envValue:    "maybe",
			checkFunc:   func(c *interfaces.SinkConfig) bool { return !c.UseSimulation },
			description: "UseSimulation should fall back to default (false) on invalid value",
		},
		{
			name:        "output_dir",
			envKey:      EnvOutputDir,
			envValue:    "/srv/frames",
			checkFunc:   func(c *interfaces.SinkConfig) bool { return c.Directory == "/srv/frames" },
			description: "Directory should come from the environment",
		},
		{
			name:        "blank_output_dir",
			envKey:      EnvOutputDir,
			envValue:    "  ",
			checkFunc:   func(c *interfaces.SinkConfig) bool { return c.Directory == "" },
			description: "Directory should ignore a blank value",
		},
		{
			name:        "valid_max_frames",
			envKey:      EnvMaxFrames,
			envValue:    "500",
			checkFunc:   func(c *interfaces.SinkConfig) bool { return c.MaxFrames == 500 },
			description: "MaxFrames should be 500",
		},
		{
			name:        "max_frames_not_a_number",
			envKey:      EnvMaxFrames,
			envValue:    "lots",
			checkFunc:   func(c *interfaces.SinkConfig) bool { return c.MaxFrames == 0 },
			description: "MaxFrames should fall back to default on invalid value",
		},
		{
			name:        "max_frames_negative",
			envKey:      EnvMaxFrames,
			envValue:    "-1",
			checkFunc:   func(c *interfaces.SinkConfig) bool { return c.MaxFrames == 0 },
			description: "MaxFrames should fall back to default when negative",
		},
		{
			name:        "max_frames_above_maximum",
			envKey:      EnvMaxFrames,
			envValue:    "1000001",
			checkFunc:   func(c *interfaces.SinkConfig) bool { return c.MaxFrames == 0 },
			description: "MaxFrames should fall back to default above maximum",
		},
		{
			name:        "max_frames_at_maximum",
			envKey:      EnvMaxFrames,
			envValue:    "1000000",
			checkFunc:   func(c *interfaces.SinkConfig) bool { return c.MaxFrames == MaxMaxFrames },
			description: "MaxFrames should accept value at maximum boundary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.envKey, tt.envValue)

			config := NewSinkFactory().GetCurrentConfig()
			if !tt.checkFunc(config) {
				t.Errorf("%s failed: %s", tt.name, tt.description)
			}
		})
	}
}

// TestCreateSink verifies the implementation chosen for each configuration
func TestCreateSink(t *testing.T) {
	clearEnv(t)
	factory := NewSinkFactory()

	sink, err := factory.CreateSinkWithConfig(&interfaces.SinkConfig{UseSimulation: true})
	if err != nil {
		t.Fatalf("CreateSinkWithConfig failed: %v", err)
	}
	if _, ok := sink.(*testsim.RecordingSink); !ok {
		t.Errorf("expected RecordingSink, got %T", sink)
	}

	dir := filepath.Join(t.TempDir(), "frames")
	sink, err = factory.CreateSinkWithConfig(&interfaces.SinkConfig{Directory: dir})
	if err != nil {
		t.Fatalf("CreateSinkWithConfig failed: %v", err)
	}
	if _, ok := sink.(*real.DirectorySink); !ok {
		t.Errorf("expected DirectorySink, got %T", sink)
	}

	sink, err = factory.CreateSinkWithConfig(&interfaces.SinkConfig{})
	if err != nil {
		t.Fatalf("CreateSinkWithConfig failed: %v", err)
	}
	if _, ok := sink.(*real.LogSink); !ok {
		t.Errorf("expected LogSink, got %T", sink)
	}

	if _, err := factory.CreateSinkWithConfig(&interfaces.SinkConfig{MaxFrames: -5}); err == nil {
		t.Error("expected invalid configuration to fail")
	}
}

// TestSwitchModes verifies runtime switching between simulation and real
func TestSwitchModes(t *testing.T) {
	clearEnv(t)
	factory := NewSinkFactory()

	factory.SwitchToSimulation()
	if !factory.IsUsingSimulation() {
		t.Fatal("expected simulation mode")
	}
	sink, err := factory.CreateSink()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := sink.(*testsim.RecordingSink); !ok {
		t.Errorf("expected RecordingSink, got %T", sink)
	}

	factory.SwitchToReal()
	if factory.IsUsingSimulation() {
		t.Error("expected real mode")
	}
}

// TestUpdateConfig verifies the stored configuration is copied
func TestUpdateConfig(t *testing.T) {
	clearEnv(t)
	factory := NewSinkFactory()

	if err := factory.UpdateConfig(nil); err == nil {
		t.Error("expected nil config to fail")
	}
	if err := factory.UpdateConfig(&interfaces.SinkConfig{MaxFrames: -1}); err == nil {
		t.Error("expected invalid config to fail")
	}

	config := &interfaces.SinkConfig{UseSimulation: true, MaxFrames: 10}
	if err := factory.UpdateConfig(config); err != nil {
		t.Fatal(err)
	}
	config.MaxFrames = 99

	if got := factory.GetCurrentConfig().MaxFrames; got != 10 {
		t.Errorf("expected stored MaxFrames 10, got %d", got)
	}
}

// TestCreateSimulationForTesting verifies test options are applied
func TestCreateSimulationForTesting(t *testing.T) {
	sink := NewSinkFactory().CreateSimulationForTesting(WithMaxFrames(2))
	for i := 0; i < 5; i++ {
		_ = sink.WriteFrame(nil)
	}
	if sink.Len() != 2 {
		t.Errorf("expected 2 retained frames, got %d", sink.Len())
	}
}
