// Command soundcheckd runs the soundcheck daemon in the foreground,
// suitable for systemd or container supervision. Most users start the
// daemon through `soundcheck daemon start` instead.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"soundcheck/internal/config"
	"soundcheck/internal/daemonrun"
)

func main() {
	var configPath string
	var socketPath string
	var logLevel string
	var diagnostic bool

	flag.StringVar(&configPath, "config", "", "configuration file path")
	flag.StringVar(&socketPath, "socket", "", "control socket path override")
	flag.StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	flag.BoolVar(&diagnostic, "diagnostic", false, "enable diagnostic mode with separate DEBUG logs")
	flag.Parse()

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	err = daemonrun.Run(context.Background(), cfg, daemonrun.Options{
		SocketPath: socketPath,
		LogLevel:   logLevel,
		Diagnostic: diagnostic,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
