// Oszifox viewer - live display for the Oszifox serial oscilloscope
// This program reads the instrument's frame stream from a serial port,
// reconstructs the trace and shows it in the terminal or a browser.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"oszifox-viewer/internal/acquire"
	"oszifox-viewer/internal/capture"
	"oszifox-viewer/internal/config"
	"oszifox-viewer/internal/filter"
	"oszifox-viewer/internal/serialport"
	"oszifox-viewer/internal/server"
	"oszifox-viewer/internal/simulator"
	"oszifox-viewer/internal/tui"
	"oszifox-viewer/internal/version"
	"oszifox-viewer/internal/waveform"
)

// Command line flag variables
var (
	cfgFile    string // Configuration file path
	port       string // Instrument serial device
	baudRate   int    // Line speed
	kernel     string // Interpolation kernel name
	oversample int    // Output points per sample interval
	listen     string // Websocket server address; setting it enables the server
	useTUI     bool   // Run the terminal viewer
	simulate   bool   // Use the built-in instrument simulator
	replay     string // Capture file to play back instead of a device
	record     string // Capture file to record frames to
	verbose    bool   // Enable debug logging
)

// rootCmd runs the live viewer
var rootCmd = &cobra.Command{
	Use:   "oszifox",
	Short: "Live viewer for the Oszifox serial oscilloscope",
	Long: `Oszifox reads frames from the oscilloscope's serial link, decodes the
instrument settings and draws the reconstructed trace in the terminal
and, optionally, in a browser over a websocket.

Keys: 4/6 move the trace left/right, 8/2 up/down, 5 centers it,
space pauses, q or Esc quits.`,
	Version:      version.GetFullVersion(),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runViewer(cmd)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	def := config.DefaultConfig()

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "./config.yaml", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.Flags().StringVarP(&port, "port", "p", def.Serial.Port, "serial port the instrument is attached to")
	rootCmd.Flags().IntVar(&baudRate, "baud", def.Serial.BaudRate, "serial line speed")
	rootCmd.Flags().StringVar(&kernel, "kernel", def.Display.Kernel, "interpolation kernel: "+strings.Join(filter.Names(), " or "))
	rootCmd.Flags().IntVar(&oversample, "oversample", def.Display.Oversample, "output points per sample interval")
	rootCmd.Flags().StringVar(&listen, "listen", def.Server.Listen, "serve the web viewer on this address")
	rootCmd.Flags().BoolVar(&useTUI, "tui", def.Display.TUI, "run the terminal viewer (true|false)")
	rootCmd.Flags().BoolVar(&simulate, "simulate", def.Serial.Simulate, "use the built-in instrument simulator instead of a device")
	rootCmd.Flags().StringVar(&replay, "replay", "", "play back a capture file instead of reading a device")
	rootCmd.Flags().StringVar(&record, "record", def.Capture.File, "record frames to a capture file")

	// Bind command line flags to viper configuration keys
	viper.BindPFlag("serial.port", rootCmd.Flags().Lookup("port"))
	viper.BindPFlag("serial.baud_rate", rootCmd.Flags().Lookup("baud"))
	viper.BindPFlag("serial.simulate", rootCmd.Flags().Lookup("simulate"))
	viper.BindPFlag("display.kernel", rootCmd.Flags().Lookup("kernel"))
	viper.BindPFlag("display.oversample", rootCmd.Flags().Lookup("oversample"))
	viper.BindPFlag("display.tui", rootCmd.Flags().Lookup("tui"))
	viper.BindPFlag("server.listen", rootCmd.Flags().Lookup("listen"))
	viper.BindPFlag("capture.file", rootCmd.Flags().Lookup("record"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(portsCmd, configCmd, versionCmd)
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	// OSZIFOX_SERIAL_PORT overrides serial.port, and so on.
	viper.SetEnvPrefix("oszifox")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig merges defaults, the config file, environment and flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cmd.Flags().Changed("listen") {
		cfg.Server.Enabled = true
	}
	if viper.GetBool("verbose") {
		cfg.Logging.Level = "debug"
	}
	if replay != "" {
		cfg.Serial.Simulate = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setupLogging directs the log package to the configured file. The
// terminal viewer owns the screen, so without a file its log is dropped.
func setupLogging(cfg *config.Config) (func(), error) {
	if cfg.Debug() {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	}
	switch {
	case cfg.Logging.File != "":
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		log.SetOutput(f)
		return func() { f.Close() }, nil
	case cfg.Display.TUI:
		log.SetOutput(io.Discard)
	}
	return func() {}, nil
}

// openSource returns the instrument byte stream and a name for it.
func openSource(cfg *config.Config) (io.ReadCloser, string, error) {
	switch {
	case replay != "":
		r, h, err := capture.Replay(replay)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load capture: %w", err)
		}
		return io.NopCloser(r), fmt.Sprintf("%s (recorded from %s)", replay, h.Device), nil

	case cfg.Serial.Simulate:
		wave, err := simulator.ParseWave(cfg.Serial.SimWave)
		if err != nil {
			return nil, "", err
		}
		opts := simulator.DefaultOptions()
		opts.Wave = wave
		opts.Noise = 8
		opts.Seed = time.Now().UnixNano()
		return simulator.New(opts), "simulator", nil
	}

	p, err := serialport.Open(cfg.Serial)
	if err != nil {
		return nil, "", err
	}
	return p, cfg.Serial.Port, nil
}

// runViewer is the main application logic
func runViewer(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	k, err := filter.ByName(cfg.Display.Kernel)
	if err != nil {
		return err
	}
	recon, err := waveform.New(k, cfg.Display.Oversample)
	if err != nil {
		return err
	}

	fmt.Printf("Oszifox viewer %s starting...\n", version.GetFullVersion())
	fmt.Printf("Kernel: %s, oversample %d\n", k.Name, cfg.Display.Oversample)

	src, name, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer src.Close()
	fmt.Printf("Source: %s\n", name)

	closeLog, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	view := waveform.NewView()
	acq := acquire.New(view, acquire.Options{
		PollInterval: cfg.Serial.ReadTimeout,
		Debug:        cfg.Debug(),
	})

	if cfg.Capture.File != "" {
		w, err := capture.Create(cfg.Capture.File, capture.Header{Created: time.Now(), Device: name})
		if err != nil {
			return err
		}
		defer func() {
			if err := w.Close(); err != nil {
				log.Printf("capture: %v", err)
			}
			fmt.Printf("Recorded %d frames to %s\n", w.Count(), cfg.Capture.File)
		}()
		acq.AddListener(func(s acquire.Snapshot) {
			if err := w.WriteFrame(s.Received, s.Frame); err != nil {
				log.Printf("capture: %v", err)
			}
		})
		fmt.Printf("Recording to %s\n", cfg.Capture.File)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		return acq.Run(ctx, src)
	})

	if cfg.Server.Enabled {
		srv := server.New(acq, view, recon, cfg.Debug())
		acq.AddListener(srv.Notify)
		fmt.Printf("Web viewer at http://%s\n", cfg.Server.Listen)
		grp.Go(func() error {
			return srv.Run(ctx, cfg.Server.Listen)
		})
	}

	if cfg.Display.TUI {
		v := tui.New(acq, view, recon)
		acq.AddListener(v.Notify)
		grp.Go(func() error {
			return v.Run(ctx)
		})
	} else if !cfg.Server.Enabled {
		fmt.Printf("Press Ctrl+C to stop\n")
	}

	err = grp.Wait()
	switch {
	case err == nil, errors.Is(err, tui.ErrQuit), errors.Is(err, context.Canceled):
	default:
		return err
	}

	st := acq.Stats()
	fmt.Printf("Frames: %d, resyncs: %d, discarded bytes: %d\n", st.Frames, st.Resyncs, st.Discarded)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
