package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/opd-ai/vp9depack/limits"
	"github.com/opd-ai/vp9depack/rtp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *CLIConfig {
	return &CLIConfig{
		listenAddr:   "127.0.0.1:0",
		payloadType:  96,
		maxFrameSize: limits.MaxFrameSize,
		maxStreams:   rtp.DefaultMaxStreams,
		readTimeout:  rtp.DefaultReadTimeout,
		logLevel:     "info",
		logFormat:    "text",
	}
}

func TestParseCLIFlags_Defaults(t *testing.T) {
	config, _, err := parseCLIFlags(nil)
	require.NoError(t, err)

	assert.Equal(t, ":5004", config.listenAddr)
	assert.Equal(t, uint(rtp.DefaultPayloadType), config.payloadType)
	assert.Equal(t, limits.MaxFrameSize, config.maxFrameSize)
	assert.Equal(t, rtp.DefaultMaxStreams, config.maxStreams)
	assert.Equal(t, rtp.DefaultReadTimeout, config.readTimeout)
	assert.Empty(t, config.outDir)
	assert.Empty(t, config.statsAddr)
	assert.False(t, config.help)
	assert.NoError(t, validateCLIConfig(config))
}

func TestParseCLIFlags_Overrides(t *testing.T) {
	config, _, err := parseCLIFlags([]string{
		"-listen", "127.0.0.1:6000",
		"-payload-type", "0",
		"-out-dir", "frames",
		"-max-frame-size", "2048",
		"-stats-addr", ":8080",
		"-read-timeout", "250ms",
		"-log-format", "json",
	})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:6000", config.listenAddr)
	assert.Equal(t, uint(0), config.payloadType)
	assert.Equal(t, "frames", config.outDir)
	assert.Equal(t, 2048, config.maxFrameSize)
	assert.Equal(t, ":8080", config.statsAddr)
	assert.Equal(t, 250*time.Millisecond, config.readTimeout)
	assert.Equal(t, "json", config.logFormat)
}

func TestParseCLIFlags_UnknownFlag(t *testing.T) {
	_, _, err := parseCLIFlags([]string{"-bogus"})
	assert.Error(t, err)
}

func TestValidateCLIConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CLIConfig)
		wantErr bool
	}{
		{"valid", func(*CLIConfig) {}, false},
		{"any payload type", func(c *CLIConfig) { c.payloadType = 0 }, false},
		{"empty listen address", func(c *CLIConfig) { c.listenAddr = "" }, true},
		{"payload type too large", func(c *CLIConfig) { c.payloadType = 128 }, true},
		{"frame ceiling too small", func(c *CLIConfig) { c.maxFrameSize = 10 }, true},
		{"zero streams", func(c *CLIConfig) { c.maxStreams = 0 }, true},
		{"zero read timeout", func(c *CLIConfig) { c.readTimeout = 0 }, true},
		{"unknown log level", func(c *CLIConfig) { c.logLevel = "loud" }, true},
		{"unknown log format", func(c *CLIConfig) { c.logFormat = "xml" }, true},
		{"uppercase level", func(c *CLIConfig) { c.logLevel = "DEBUG" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(config)
			err := validateCLIConfig(config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigureLogging(t *testing.T) {
	level, formatter := logrus.GetLevel(), logrus.StandardLogger().Formatter
	t.Cleanup(func() {
		logrus.SetLevel(level)
		logrus.SetFormatter(formatter)
	})

	config := validConfig()
	config.logLevel = "debug"
	config.logFormat = "json"
	require.NoError(t, configureLogging(config))

	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)
}

func TestPrintUsage(t *testing.T) {
	_, fs, err := parseCLIFlags(nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	printUsage(&buf, fs)

	out := buf.String()
	assert.Contains(t, out, "-listen")
	assert.Contains(t, out, "-out-dir")
	assert.Contains(t, out, "Examples:")
}

func TestCreateDemuxerConfig(t *testing.T) {
	config := validConfig()
	config.payloadType = 100

	demuxConfig := createDemuxerConfig(config)
	assert.Equal(t, uint8(100), demuxConfig.PayloadType)
	assert.True(t, demuxConfig.AutoRegister)
	assert.NoError(t, demuxConfig.Validate())
}

func TestRun_StopsOnCancel(t *testing.T) {
	config := validConfig()
	config.outDir = t.TempDir()
	config.statsAddr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, config) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancellation")
	}
}

func TestRun_ListenFailure(t *testing.T) {
	config := validConfig()
	config.listenAddr = "not-an-address"

	err := run(context.Background(), config)
	assert.Error(t, err)
}
