// Command mixdownd runs the mixdown assembly daemon in the foreground.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"mixdown/internal/config"
	"mixdown/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	logLevel := flag.String("log-level", "", "Override configured log level (debug, info, warn, error)")
	flag.Parse()

	if err := run(*configPath, *logLevel); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, logLevel string) error {
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}
	return daemonrun.Run(context.Background(), cfg, daemonrun.Options{LogLevel: logLevel})
}
