// Package main provides vp9depack, a receiver that reassembles VP9 frames
// from RTP streams arriving on a UDP socket.
//
// Complete frames are written to a directory, one file per frame, or logged
// when no directory is given. An optional HTTP endpoint reports per-stream
// statistics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/opd-ai/vp9depack/factory"
	"github.com/opd-ai/vp9depack/limits"
	"github.com/opd-ai/vp9depack/rtp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds the graceful stop of the stats server.
const shutdownTimeout = 5 * time.Second

// CLI configuration
type CLIConfig struct {
	listenAddr   string
	payloadType  uint
	outDir       string
	maxFrameSize int
	maxStreams   int
	readTimeout  time.Duration
	statsAddr    string
	logLevel     string
	logFormat    string
	help         bool
}

// parseCLIFlags parses command-line flags and returns the configuration.
func parseCLIFlags(args []string) (*CLIConfig, *flag.FlagSet, error) {
	config := &CLIConfig{}
	fs := flag.NewFlagSet("vp9depack", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// Network configuration
	fs.StringVar(&config.listenAddr, "listen", ":5004", "UDP address to receive RTP on")
	fs.UintVar(&config.payloadType, "payload-type", rtp.DefaultPayloadType, "RTP payload type carrying VP9 (0 accepts any)")
	fs.DurationVar(&config.readTimeout, "read-timeout", rtp.DefaultReadTimeout, "Socket read deadline")

	// Reassembly configuration
	fs.IntVar(&config.maxFrameSize, "max-frame-size", limits.MaxFrameSize, "Largest reassembled frame in bytes")
	fs.IntVar(&config.maxStreams, "max-streams", rtp.DefaultMaxStreams, "Maximum number of concurrent SSRCs")

	// Output configuration
	fs.StringVar(&config.outDir, "out-dir", "", "Directory to write frames to (default: log frames)")
	fs.StringVar(&config.statsAddr, "stats-addr", "", "HTTP address for the stream statistics endpoint (default: disabled)")

	// Logging configuration
	fs.StringVar(&config.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.StringVar(&config.logFormat, "log-format", "text", "Log format (text, json)")

	// Help
	fs.BoolVar(&config.help, "help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	return config, fs, nil
}

// printUsage prints the usage information.
func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "VP9 RTP Depacketizer")
	fmt.Fprintln(w, "====================")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Receives VP9 video over RTP, reassembles frames per SSRC and writes")
	fmt.Fprintln(w, "each complete frame to a directory or to the log.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintf(w, "  %s [options]\n", fs.Name())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fs.SetOutput(io.Discard)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintf(w, "  # Log frames received on the default port\n")
	fmt.Fprintf(w, "  %s\n", fs.Name())
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  # Store frames and expose statistics\n")
	fmt.Fprintf(w, "  %s -listen :6000 -out-dir frames -stats-addr :8080\n", fs.Name())
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  # Accept any payload type with JSON logs\n")
	fmt.Fprintf(w, "  %s -payload-type 0 -log-format json -log-level debug\n", fs.Name())
}

// validateCLIConfig validates the CLI configuration.
func validateCLIConfig(config *CLIConfig) error {
	if config.listenAddr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}

	if config.payloadType > 127 {
		return fmt.Errorf("invalid payload type: %d (must be 0-127)", config.payloadType)
	}

	if err := limits.ValidateFrameCeiling(config.maxFrameSize); err != nil {
		return fmt.Errorf("invalid max frame size: %w", err)
	}

	if config.maxStreams <= 0 {
		return fmt.Errorf("max streams must be positive")
	}

	if config.readTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}

	if _, err := logrus.ParseLevel(config.logLevel); err != nil {
		return err
	}

	if _, err := newFormatter(config.logFormat); err != nil {
		return err
	}

	return nil
}

func newFormatter(format string) (logrus.Formatter, error) {
	switch strings.ToLower(format) {
	case "text":
		return &logrus.TextFormatter{FullTimestamp: true}, nil
	case "json":
		return &logrus.JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown log format: %q", format)
	}
}

// configureLogging applies the log level and format to the standard logger.
func configureLogging(config *CLIConfig) error {
	level, err := logrus.ParseLevel(config.logLevel)
	if err != nil {
		return err
	}
	formatter, err := newFormatter(config.logFormat)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(formatter)
	return nil
}

// createDemuxerConfig converts CLI configuration to the demuxer configuration.
func createDemuxerConfig(cliConfig *CLIConfig) *rtp.Config {
	return &rtp.Config{
		PayloadType:  uint8(cliConfig.payloadType),
		AutoRegister: true,
		MaxStreams:   cliConfig.maxStreams,
		MaxFrameSize: cliConfig.maxFrameSize,
	}
}

// run receives until ctx is cancelled or a component fails.
func run(ctx context.Context, cliConfig *CLIConfig) error {
	demuxer, err := rtp.NewDemuxer(createDemuxerConfig(cliConfig))
	if err != nil {
		return fmt.Errorf("failed to create demuxer: %w", err)
	}
	defer demuxer.Close()

	sinkFactory := factory.NewSinkFactory()
	sinkConfig := sinkFactory.GetCurrentConfig()
	if cliConfig.outDir != "" {
		sinkConfig.Directory = cliConfig.outDir
		sinkConfig.UseSimulation = false
	}
	sink, err := sinkFactory.CreateSinkWithConfig(sinkConfig)
	if err != nil {
		return fmt.Errorf("failed to create frame sink: %w", err)
	}
	defer sink.Close()

	conn, err := net.ListenPacket("udp", cliConfig.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cliConfig.listenAddr, err)
	}
	defer conn.Close()

	logrus.WithFields(logrus.Fields{
		"function":     "run",
		"listen_addr":  conn.LocalAddr().String(),
		"payload_type": cliConfig.payloadType,
		"out_dir":      cliConfig.outDir,
		"stats_addr":   cliConfig.statsAddr,
	}).Info("vp9depack starting")

	receiver := rtp.NewReceiver(conn, demuxer, sink, &rtp.ReceiverOptions{
		ReadTimeout: cliConfig.readTimeout,
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return receiver.Run(ctx)
	})

	if cliConfig.statsAddr != "" {
		statsSrv := &http.Server{
			Addr:              cliConfig.statsAddr,
			Handler:           newStatsRouter(demuxer),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			logrus.WithFields(logrus.Fields{
				"function": "run",
				"addr":     cliConfig.statsAddr,
			}).Info("Stats server listening")
			if err := statsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("stats server: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()
			return statsSrv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	logStreamSummary(demuxer)
	return err
}

func logStreamSummary(demuxer *rtp.Demuxer) {
	for _, info := range demuxer.Streams() {
		logrus.WithFields(logrus.Fields{
			"function":         "run",
			"stream_id":        info.ID,
			"ssrc":             info.SSRC,
			"stream_index":     info.Index,
			"frames":           info.Frames,
			"bytes":            info.Bytes,
			"discarded_frames": info.DiscardedFrames,
			"lost":             info.Lost,
			"halted":           info.Halted,
		}).Info("Stream summary")
	}
}

// main is the entry point for the depacketizer.
func main() {
	cliConfig, fs, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(os.Stdout, fs)
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		fmt.Fprintf(os.Stderr, "Use -help for usage information.\n")
		os.Exit(1)
	}

	// Show help if requested
	if cliConfig.help {
		printUsage(os.Stdout, fs)
		os.Exit(0)
	}

	// Validate configuration
	if err := validateCLIConfig(cliConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		fmt.Fprintf(os.Stderr, "Use -help for usage information.\n")
		os.Exit(1)
	}

	if err := configureLogging(cliConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to configure logging: %v\n", err)
		os.Exit(1)
	}

	// Set up context with cancellation for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cliConfig); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "main",
			"error":    err.Error(),
		}).Error("vp9depack failed")
		os.Exit(1)
	}

	logrus.WithField("function", "main").Info("vp9depack stopped")
}
