package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/authgate/authgate/pkg/auth"
	"github.com/authgate/authgate/pkg/auth/middleware"
	"github.com/authgate/authgate/pkg/logger"
)

const (
	defaultGracefulTimeout = 30 * time.Second
	serverReadTimeout      = 10 * time.Second
	serverWriteTimeout     = 15 * time.Second
	serverIdleTimeout      = 60 * time.Second
)

// newServeCmd creates the serve command for starting the gateway.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication gateway",
		Long: `Start the authentication gateway.

The gateway serves a health endpoint, Prometheus metrics, and a whoami
endpoint guarded by the configured module chain. The chain is selected from
the providers file by interception point and provider ID.`,
		RunE: runServe,
	}

	cmd.Flags().String("address", ":8080", "Address to listen on")
	cmd.Flags().String("provider-id", "", "Provider ID to select the module chain (empty selects the default entry)")

	if err := viper.BindPFlag("address", cmd.Flags().Lookup("address")); err != nil {
		logger.Fatalf("Failed to bind address flag: %v", err)
	}
	if err := viper.BindPFlag("provider-id", cmd.Flags().Lookup("provider-id")); err != nil {
		logger.Fatalf("Failed to bind provider-id flag: %v", err)
	}

	return cmd
}

func runServe(_ *cobra.Command, _ []string) error {
	address := viper.GetString("address")
	providerID := viper.GetString("provider-id")

	// Fail fast on a broken providers file instead of serving 500s.
	if _, err := auth.GetConfig(); err != nil {
		return err
	}

	authn := middleware.Middleware(middleware.Options{ProviderID: providerID})

	router := chi.NewRouter()
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	router.Handle("/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(authn)
		r.Get("/whoami", whoamiHandler)
	})

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	go func() {
		logger.Infof("Gateway listening on %s", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
		return err
	}

	logger.Info("Server shutdown complete")
	return nil
}

// whoamiHandler reports the identity established by the module chain.
func whoamiHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{
		"subject": identity.Subject,
		"name":    identity.Name,
		"email":   identity.Email,
	}); err != nil {
		logger.Errorf("Failed to encode identity: %v", err)
	}
}
