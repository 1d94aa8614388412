package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"bitget-trader/api"
	"bitget-trader/bot"
	"bitget-trader/config"
	"bitget-trader/daemon"
	"bitget-trader/logging"
	"bitget-trader/web_interface"
)

var (
	cfg    *config.Config
	logger *logging.Logger
)

// Initialize logging with the provided configuration
func initLogging() error {
	logLevel := logging.LogLevel(cfg.LogLevel)
	if cfg.Debug {
		logLevel = logging.DEBUG
	}

	var err error
	logger, err = logging.NewLogger(
		cfg.LogFile,
		cfg.LogMaxSize,
		cfg.LogMaxBackups,
		cfg.LogMaxAge,
		cfg.LogCompress,
		logLevel,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// handleDaemonFlags processes the daemon commands and reports whether the
// process should exit afterwards.
func handleDaemonFlags(start, stop, restart bool) bool {
	if !start && !stop && !restart {
		return false
	}

	stripped := []string{}
	for _, arg := range os.Args[1:] {
		if arg != "-start-daemon" && arg != "-restart-daemon" {
			stripped = append(stripped, arg)
		}
	}

	switch {
	case start:
		logger.Info("Starting daemon...")
		if err := daemon.StartDaemon(stripped); err != nil {
			logger.Fatal("Failed to start daemon: %v", err)
		}
	case stop:
		logger.Info("Stopping daemon...")
		if err := daemon.StopDaemon(); err != nil {
			logger.Fatal("Failed to stop daemon: %v", err)
		}
	case restart:
		logger.Info("Restarting daemon...")
		if err := daemon.RestartDaemon(stripped); err != nil {
			logger.Fatal("Failed to restart daemon: %v", err)
		}
	}
	return true
}

func main() {
	cfg = config.LoadConfig()

	daemonStart := flag.Bool("start-daemon", false, "Start the application as a daemon")
	daemonStop := flag.Bool("stop-daemon", false, "Stop the daemon process")
	daemonRestart := flag.Bool("restart-daemon", false, "Restart the daemon process")
	debugFlag := flag.Bool("debug", false, "enable debug logs")
	listenFlag := flag.String("listen", "", "web interface listen address (overrides config)")
	flag.Parse()

	cfg.Debug = *debugFlag
	if *listenFlag != "" {
		cfg.ListenAddr = *listenFlag
	}
	if daemon.IsDaemon() {
		cfg.DaemonMode = true
	}

	if err := initLogging(); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}

	if handleDaemonFlags(*daemonStart, *daemonStop, *daemonRestart) {
		return
	}

	logger.Info("Starting bitget-trader (daemon=%v)", cfg.DaemonMode)

	// Each bot trades with its own credentials; the factory clones the base
	// config around them.
	exchangeFactory := func(creds bot.Credentials) bot.Exchange {
		botCfg := *cfg
		botCfg.APIKey = creds.APIKey
		botCfg.APISecret = creds.APISecret
		botCfg.Passphrase = creds.Passphrase
		return api.NewRESTClient(&botCfg, logger)
	}
	accountFactory := func(creds bot.Credentials) web_interface.AccountClient {
		acctCfg := *cfg
		acctCfg.APIKey = creds.APIKey
		acctCfg.APISecret = creds.APISecret
		acctCfg.Passphrase = creds.Passphrase
		return api.NewRESTClient(&acctCfg, logger)
	}

	registry := bot.NewRegistry(exchangeFactory, logger)
	webUI := web_interface.NewWebUI(cfg, registry, accountFactory, logger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- webUI.Start()
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-signals:
		logger.Info("Received signal %s, shutting down gracefully...", sig)
	case err := <-serverErr:
		logger.Error("Web interface stopped: %v", err)
	}

	registry.StopAll()
	logger.Info("All bots stopped")

	if err := logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}
}
