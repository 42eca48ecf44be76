package factory

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/opd-ai/vp9depack/interfaces"
	"github.com/opd-ai/vp9depack/real"
	testsim "github.com/opd-ai/vp9depack/testing"
	"github.com/sirupsen/logrus"
)

// Environment variables read by NewSinkFactory.
const (
	EnvUseSimulation = "VP9DEPACK_USE_SIMULATION"
	EnvOutputDir     = "VP9DEPACK_OUTPUT_DIR"
	EnvMaxFrames     = "VP9DEPACK_MAX_FRAMES"
)

// Validation constants for configuration bounds checking.
const (
	// MinMaxFrames is the smallest retention limit; 0 means unlimited.
	MinMaxFrames = 0
	// MaxMaxFrames is the largest retention limit accepted from the environment.
	MaxMaxFrames = 1000000
)

// SinkFactory creates frame sink implementations based on configuration.
// It is safe for concurrent use; all methods are protected by an internal mutex.
type SinkFactory struct {
	mu            sync.RWMutex
	defaultConfig *interfaces.SinkConfig
}

// TestConfigOption is a functional option for customizing test simulation configuration.
type TestConfigOption func(*interfaces.SinkConfig)

// NewSinkFactory creates a new factory with default configuration
func NewSinkFactory() *SinkFactory {
	defaultConfig := createDefaultConfig()
	applyEnvironmentOverrides(defaultConfig)
	logConfigurationInfo(defaultConfig)

	return &SinkFactory{
		defaultConfig: defaultConfig,
	}
}

// createDefaultConfig initializes the default sink configuration: frames are
// logged, not stored, until a directory is configured.
func createDefaultConfig() *interfaces.SinkConfig {
	return &interfaces.SinkConfig{
		UseSimulation: false,
		Directory:     "",
		MaxFrames:     0,
	}
}

// applyEnvironmentOverrides updates configuration based on environment variables.
// It checks for VP9DEPACK_* environment variables and overrides defaults if valid values are found.
func applyEnvironmentOverrides(config *interfaces.SinkConfig) {
	parseSimulationSetting(config)
	parseDirectorySetting(config)
	parseMaxFramesSetting(config)
}

// parseSimulationSetting updates UseSimulation from VP9DEPACK_USE_SIMULATION.
// It only updates config if parsing succeeds.
func parseSimulationSetting(config *interfaces.SinkConfig) {
	if useSimStr := os.Getenv(EnvUseSimulation); useSimStr != "" {
		useSim, err := strconv.ParseBool(useSimStr)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function":    "parseSimulationSetting",
				"env_var":     EnvUseSimulation,
				"value":       useSimStr,
				"error":       err.Error(),
				"using_value": config.UseSimulation,
			}).Warn("Failed to parse VP9DEPACK_USE_SIMULATION environment variable, using default")
			return
		}
		config.UseSimulation = useSim
	}
}

// parseDirectorySetting updates Directory from VP9DEPACK_OUTPUT_DIR.
func parseDirectorySetting(config *interfaces.SinkConfig) {
	dir, ok := os.LookupEnv(EnvOutputDir)
	if !ok {
		return
	}
	if strings.TrimSpace(dir) == "" {
		logrus.WithFields(logrus.Fields{
			"function":    "parseDirectorySetting",
			"env_var":     EnvOutputDir,
			"using_value": config.Directory,
		}).Warn("VP9DEPACK_OUTPUT_DIR is blank, using default")
		return
	}
	config.Directory = dir
}

// parseMaxFramesSetting updates MaxFrames from VP9DEPACK_MAX_FRAMES. It
// validates the value is within [MinMaxFrames, MaxMaxFrames].
func parseMaxFramesSetting(config *interfaces.SinkConfig) {
	if maxStr := os.Getenv(EnvMaxFrames); maxStr != "" {
		maxFrames, err := strconv.Atoi(maxStr)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function":    "parseMaxFramesSetting",
				"env_var":     EnvMaxFrames,
				"value":       maxStr,
				"error":       err.Error(),
				"using_value": config.MaxFrames,
			}).Warn("Failed to parse VP9DEPACK_MAX_FRAMES environment variable, using default")
			return
		}
		if maxFrames < MinMaxFrames || maxFrames > MaxMaxFrames {
			logrus.WithFields(logrus.Fields{
				"function":    "parseMaxFramesSetting",
				"env_var":     EnvMaxFrames,
				"value":       maxFrames,
				"min":         MinMaxFrames,
				"max":         MaxMaxFrames,
				"using_value": config.MaxFrames,
			}).Warn("VP9DEPACK_MAX_FRAMES value out of bounds, using default")
			return
		}
		config.MaxFrames = maxFrames
	}
}

// logConfigurationInfo logs the final configuration settings for debugging purposes.
func logConfigurationInfo(config *interfaces.SinkConfig) {
	logrus.WithFields(logrus.Fields{
		"function":       "NewSinkFactory",
		"use_simulation": config.UseSimulation,
		"directory":      config.Directory,
		"max_frames":     config.MaxFrames,
	}).Info("Created frame sink factory with configuration")
}

// CreateSink creates a sink from the factory's current configuration
func (f *SinkFactory) CreateSink() (interfaces.IFrameSink, error) {
	return f.CreateSinkWithConfig(nil)
}

// CreateSinkWithConfig creates a sink with custom configuration. A nil
// config means the factory's current configuration.
func (f *SinkFactory) CreateSinkWithConfig(config *interfaces.SinkConfig) (interfaces.IFrameSink, error) {
	if config == nil {
		config = f.GetCurrentConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sink configuration: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":       "CreateSinkWithConfig",
		"use_simulation": config.UseSimulation,
		"directory":      config.Directory,
	}).Info("Creating frame sink implementation")

	switch {
	case config.UseSimulation:
		return testsim.NewRecordingSink(config), nil
	case config.Directory != "":
		return real.NewDirectorySink(config.Directory)
	default:
		return real.NewLogSink(nil), nil
	}
}

// WithMaxFrames sets the frame retention limit for the test configuration.
func WithMaxFrames(n int) TestConfigOption {
	return func(c *interfaces.SinkConfig) {
		c.MaxFrames = n
	}
}

// CreateSimulationForTesting creates a recording sink specifically for testing.
// It accepts optional TestConfigOption functions to override default test values.
func (f *SinkFactory) CreateSimulationForTesting(opts ...TestConfigOption) *testsim.RecordingSink {
	testConfig := &interfaces.SinkConfig{
		UseSimulation: true,
	}
	for _, opt := range opts {
		opt(testConfig)
	}

	logrus.WithFields(logrus.Fields{
		"function":   "CreateSimulationForTesting",
		"max_frames": testConfig.MaxFrames,
	}).Info("Creating simulation sink for testing")

	return testsim.NewRecordingSink(testConfig)
}

// SwitchToSimulation switches the configuration to use simulation
func (f *SinkFactory) SwitchToSimulation() {
	f.mu.Lock()
	defer f.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "SwitchToSimulation",
		"previous": f.defaultConfig.UseSimulation,
	}).Info("Switching factory to simulation mode")

	f.defaultConfig.UseSimulation = true
}

// SwitchToReal switches the configuration to use real implementation
func (f *SinkFactory) SwitchToReal() {
	f.mu.Lock()
	defer f.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "SwitchToReal",
		"previous": f.defaultConfig.UseSimulation,
	}).Info("Switching factory to real mode")

	f.defaultConfig.UseSimulation = false
}

// GetCurrentConfig returns a copy of the current default configuration
func (f *SinkFactory) GetCurrentConfig() *interfaces.SinkConfig {
	f.mu.RLock()
	defer f.mu.RUnlock()

	c := *f.defaultConfig
	return &c
}

// IsUsingSimulation returns true if the factory is configured for simulation
func (f *SinkFactory) IsUsingSimulation() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.defaultConfig.UseSimulation
}

// UpdateConfig updates the factory's default configuration
func (f *SinkFactory) UpdateConfig(config *interfaces.SinkConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":       "UpdateConfig",
		"old_simulation": f.defaultConfig.UseSimulation,
		"new_simulation": config.UseSimulation,
		"old_directory":  f.defaultConfig.Directory,
		"new_directory":  config.Directory,
	}).Info("Updating factory configuration")

	c := *config
	f.defaultConfig = &c
	return nil
}
