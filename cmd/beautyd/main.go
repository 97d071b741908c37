package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"beautyton/config"
	"beautyton/core"
	"beautyton/journal"
	"beautyton/observability/logging"
	"beautyton/rpc"
	"beautyton/storage"
)

func main() {
	configPath := flag.String("config", "./config.toml", "path to the TOML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "path", *configPath, "error", err)
		os.Exit(1)
	}

	logger := logging.Setup("beautyd", cfg.NetworkName)

	platform, err := cfg.Platform()
	if err != nil {
		logger.Error("invalid platform address", "error", err)
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open data directory", "path", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	node, err := core.NewNode(db, platform, cfg.CommissionPercent)
	if err != nil {
		logger.Error("failed to initialize node", "error", err)
		os.Exit(1)
	}

	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			logger.Error("failed to open receipt journal", "path", cfg.JournalPath, "error", err)
			os.Exit(1)
		}
		defer j.Close()
		node.SetJournal(j)
	}

	allocs, err := cfg.GenesisBalances()
	if err != nil {
		logger.Error("invalid genesis allocations", "error", err)
		os.Exit(1)
	}
	genesis := make([]core.GenesisAlloc, 0, len(allocs))
	for _, alloc := range allocs {
		genesis = append(genesis, core.GenesisAlloc{Address: alloc.Address, Balance: alloc.Balance})
	}
	if err := node.ApplyGenesis(genesis); err != nil {
		logger.Error("failed to apply genesis allocations", "error", err)
		os.Exit(1)
	}

	if cfg.MetricsAddress != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Info("metrics listener starting", "address", cfg.MetricsAddress)
			if err := http.ListenAndServe(cfg.MetricsAddress, mux); err != nil {
				logger.Error("metrics listener stopped", "error", err)
			}
		}()
	}

	server := rpc.NewServer(node, cfg.RPCAuthToken)
	go func() {
		logger.Info("rpc listener starting",
			"address", cfg.RPCAddress,
			"network", cfg.NetworkName,
			"commissionPercent", cfg.CommissionPercent)
		if err := server.Start(cfg.RPCAddress); err != nil {
			logger.Error("rpc listener stopped", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")
}
