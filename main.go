package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"hippy/client"
	"hippy/config"
	"hippy/console"

	"golang.org/x/term"
)

func main() {
	args := config.ParseCommandLineArgs()

	cfg, err := config.LoadConfig(args.ConfigFile)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	cfg.ApplyCommandLineArgs(args)

	logFile, err := setupLogging(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "log setup error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logFile.Close() }()

	c := client.New(cfg.SoHal.Host, cfg.SoHal.Port)
	if err := c.Connect(); err != nil {
		fmt.Printf("unable to connect to SoHal at %s:%d: %v\n",
			cfg.SoHal.Host, cfg.SoHal.Port, err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()
	fmt.Printf("connected to SoHal on port %d\n", c.Port())

	// Close the connection on SIGINT/SIGTERM so SoHal sees a clean
	// websocket shutdown.
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalCh
		fmt.Println("\nsignal received, exiting")
		_ = c.Close()
		os.Exit(0)
	}()

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Println("stdin is not a terminal, exiting")
		return
	}
	console.Run(c)
}

// setupLogging routes slog output to the configured log file. Debug
// mode lowers the level so protocol traffic shows up.
func setupLogging(cfg *config.Config) (*os.File, error) {
	logFile, err := os.OpenFile(cfg.Log.Filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return nil, fmt.Errorf("unable to open log file %s: %w", cfg.Log.Filename, err)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: level})))
	return logFile, nil
}
