package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/strata/pkg/authz"
	"github.com/cuemby/strata/pkg/controller"
	"github.com/cuemby/strata/pkg/graph"
	"github.com/cuemby/strata/pkg/log"
	"github.com/cuemby/strata/pkg/metrics"
	"github.com/cuemby/strata/pkg/notify"
	"github.com/cuemby/strata/pkg/security"
	"github.com/cuemby/strata/pkg/storage"
	"github.com/cuemby/strata/pkg/token"
	"github.com/cuemby/strata/pkg/types"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Open the store and run the controller",
	Long: `serve opens the bbolt-backed store, rebuilds the in-memory graph mirror,
loads the signing keyring and issuer registry, and starts the notification
broker and metrics collector. It holds the process open until interrupted;
no network transport is bound — see pkg/controller for the in-process
request surface a transport layer would bind to.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("data-dir", "", "Directory holding strata.db (default /var/lib/strata)")
	serveCmd.Flags().String("metrics-addr", "", "Address for the /metrics, /health, /ready, /live endpoints")
	serveCmd.Flags().String("audience", "", "Required token audience")
	serveCmd.Flags().String("passphrase", "", "Passphrase wrapping the signing keyring at rest")
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(cmd, configPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	store, err := storage.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	log.Info("store opened")

	var g *graph.Graph
	if err := store.View(func(txn *storage.Txn) error {
		var err error
		g, err = graph.Load(txn)
		return err
	}); err != nil {
		return fmt.Errorf("load graph: %w", err)
	}
	log.Info("graph loaded")

	secrets, err := security.NewSecretsManagerFromPassword(cfg.Passphrase)
	if err != nil {
		return fmt.Errorf("derive secrets key: %w", err)
	}
	keyring := token.NewKeyring(secrets)
	registry := token.NewRegistry(keyring)

	if err := store.Update(func(txn *storage.Txn) error {
		if err := keyring.LoadOrInitialize(txn); err != nil {
			return err
		}
		if err := registry.RegisterIssuer(txn, &types.Issuer{
			Name:      "server",
			Type:      types.IssuerServer,
			Audiences: []string{cfg.Audience},
		}); err != nil {
			return err
		}
		for _, oidc := range cfg.OIDCIssuers {
			if err := registry.RegisterIssuer(txn, &types.Issuer{
				Name:         oidc.Name,
				Type:         types.IssuerOIDC,
				JWKSEndpoint: oidc.JWKSEndpoint,
				Audiences:    oidc.Audiences,
			}); err != nil {
				return err
			}
		}
		return registry.Load(txn)
	}); err != nil {
		return fmt.Errorf("bootstrap signing keys and issuers: %w", err)
	}
	log.Info("signing keyring and issuer registry ready")

	handler := token.NewHandler(registry, keyring)
	broker := notify.NewBroker()
	broker.Start()
	defer broker.Stop()

	az := authz.New(g)
	// ctrl is the in-process request surface; no transport in this build
	// binds to it and nothing in this process calls it.
	ctrl := controller.New(store, g, az, handler, registry, keyring, broker)
	_ = ctrl

	collector := metrics.NewCollector(store, broker)
	collector.Start()
	defer collector.Stop()

	metrics.SetVersion(Version)
	// "store" and "controller" are (re-)registered every tick by collector
	// itself, driven by an actual bbolt round trip and the live broker's
	// subscriber count — not asserted once here.
	metrics.RegisterComponent("api", false, "no transport bound in this build")

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/health", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())
	mux.Handle("/live", metrics.LivenessHandler())

	errCh := make(chan error, 1)
	go func() {
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			errCh <- fmt.Errorf("metrics server error: %w", err)
		}
	}()
	log.Logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics endpoint listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("shutting down")
	case err := <-errCh:
		return err
	}

	return nil
}
