// Command mediabutlerd runs the MediaButler daemon in the foreground. The
// mediabutler CLI normally launches the daemon itself; this binary exists
// for service managers that want a dedicated process.
package main

import (
	"context"
	"flag"
	"log"

	"mediabutler/internal/config"
	"mediabutler/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	logLevel := flag.String("log-level", "", "Override the configured log level")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{LogLevel: *logLevel}); err != nil {
		log.Fatalf("daemon: %v", err)
	}
}
