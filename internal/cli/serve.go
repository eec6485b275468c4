package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aethermind/synapse/internal/config"
	"github.com/aethermind/synapse/internal/ledger"
	"github.com/aethermind/synapse/internal/server"
	"github.com/aethermind/synapse/internal/store"
	"github.com/spf13/cobra"
)

var serveAssumeEligible bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveAssumeEligible, "assume-eligible", false,
		"Attest storage eligibility for requests that omit it (development only)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Default()

	if serveAssumeEligible {
		cfg.Ledger.AssumeEligible = true
	}

	// Resolve database path: env override, then config, then default.
	dbPath := os.Getenv("SYNAPSE_DB")
	if dbPath == "" {
		dbPath = cfg.Database.Path
	}
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	eng := ledger.New(db)
	srv := server.New(db, eng, VersionString(), cfg.Ledger.AssumeEligible)

	addr := os.Getenv("SYNAPSE_ADDR")
	if addr == "" {
		addr = cfg.ListenAddr()
	}

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "synapse serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", dbPath)
		if cfg.Ledger.AssumeEligible {
			fmt.Fprintln(os.Stderr, "  assume-eligible: on (development mode)")
		}
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}
