package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/credentials"

	"github.com/VerteraIO/agentrouter/internal/config"
	"github.com/VerteraIO/agentrouter/internal/controlplane/decisions"
	"github.com/VerteraIO/agentrouter/internal/controlplane/dispatch"
	"github.com/VerteraIO/agentrouter/internal/controlplane/scheduler"
	"github.com/VerteraIO/agentrouter/internal/grpc/controller"
	httpserver "github.com/VerteraIO/agentrouter/internal/http"
	"github.com/VerteraIO/agentrouter/internal/logging"
	"github.com/VerteraIO/agentrouter/internal/metrics"
	"github.com/VerteraIO/agentrouter/internal/model"
	"github.com/VerteraIO/agentrouter/internal/routing"
	"github.com/VerteraIO/agentrouter/internal/security/tlsconfig"
)

const serviceName = "agentrouter"

func newServeCommand(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the routing server",
		Long: `Run the HTTP routing API and, when enabled, the gRPC Router service.

Settings come from defaults, the --config file and AGENTROUTER_* environment
variables; the flags below override all of them.

Examples:
  # Heuristic routing on the default port
  agentrouter serve

  # Predictive routing with a trained model
  agentrouter serve --strategy predictive \
    --model models/router.txt --manifest models/features.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(g.configPath, bindFlags(cmd, map[string]string{
				"addr":      "http.addr",
				"grpc":      "grpc.enabled",
				"grpc-addr": "grpc.addr",
				"strategy":  "routing.strategy",
				"model":     "model.artifact_path",
				"manifest":  "model.manifest_path",
				"format":    "model.format",
				"log-level": "logging.level",
			}))
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, logging.New(serviceName, logging.Config{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				Output: cmd.ErrOrStderr(),
			}))
		},
	}
	f := cmd.Flags()
	f.String("addr", "", "HTTP listen address")
	f.Bool("grpc", false, "enable the gRPC Router service")
	f.String("grpc-addr", "", "gRPC listen address")
	f.String("strategy", "", "default scoring strategy (heuristic|predictive)")
	f.String("model", "", "model artifact path")
	f.String("manifest", "", "feature manifest path")
	f.String("format", "", "model artifact format (lightgbm|lightgbm_json|xgboost)")
	f.String("log-level", "", "log level (debug|info|warn|error)")
	return cmd
}

// bindFlags binds only flags the user set, so unset flags do not mask the
// config file or environment.
func bindFlags(cmd *cobra.Command, keys map[string]string) config.Option {
	return func(v *viper.Viper) error {
		for name, key := range keys {
			fl := cmd.Flags().Lookup(name)
			if fl == nil || !fl.Changed {
				continue
			}
			if err := v.BindPFlag(key, fl); err != nil {
				return fmt.Errorf("bind --%s: %w", name, err)
			}
		}
		return nil
	}
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	reg, m := metrics.NewRegistry()

	bundle, err := loadModel(cfg, logger)
	if err != nil {
		return err
	}

	var mgr *dispatch.Manager
	if cfg.Dispatch.Enabled {
		mgr = dispatch.NewManager(cfg.Dispatch.MaxPending)
	}
	svc, err := routing.NewService(routing.Options{
		Strategy:  scheduler.Strategy(cfg.Routing.Strategy),
		Bundle:    bundle,
		Decisions: decisions.NewStore(cfg.Decisions.Capacity),
		Dispatch:  mgr,
		Metrics:   m,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	var tlsCfg *tls.Config
	if cfg.TLS.Enabled() {
		if tlsCfg, err = tlsconfig.ServerTLSConfig(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.ClientCAFile); err != nil {
			return err
		}
	}
	var secret []byte
	if cfg.Auth.Enabled() {
		secret = []byte(cfg.Auth.JWTSecret)
	}

	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: httpserver.NewServer(httpserver.Options{
			Routing:        svc,
			Logger:         logger,
			Metrics:        m,
			Gatherer:       reg,
			AuthSecret:     secret,
			RequestTimeout: cfg.HTTP.RequestTimeout,
		}),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		TLSConfig:    tlsCfg,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
	httpLn, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen http: %w", err)
	}

	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		logger.Info("http listening", "addr", httpLn.Addr().String(), "tls", tlsCfg != nil, "auth", secret != nil, "strategy", svc.DefaultStrategy())
		return httpserver.Run(ctx, srv, httpLn, cfg.HTTP.ShutdownTimeout)
	})

	if cfg.GRPC.Enabled {
		grpcLn, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			_ = httpLn.Close()
			return fmt.Errorf("listen grpc: %w", err)
		}
		opts := controller.Options{AuthSecret: secret, Logger: logger}
		if tlsCfg != nil {
			opts.Creds = credentials.NewTLS(tlsCfg)
		}
		gs := controller.NewServer(svc, opts)
		grp.Go(func() error {
			logger.Info("grpc listening", "addr", grpcLn.Addr().String())
			return controller.Serve(ctx, gs, grpcLn, cfg.HTTP.ShutdownTimeout)
		})
	}

	err = grp.Wait()
	logger.Info("shutdown complete")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// loadModel returns nil without error when no model is configured or when
// it fails to load under the heuristic default.
func loadModel(cfg *config.Config, logger *slog.Logger) (*model.Bundle, error) {
	strategy, _ := scheduler.ParseStrategy(cfg.Routing.Strategy)
	predictive := strategy == scheduler.StrategyPredictive
	if !cfg.Model.Configured() {
		if predictive {
			return nil, fmt.Errorf("routing.strategy is predictive but no model is configured: %w", model.ErrUnavailable)
		}
		return nil, nil
	}
	format, err := model.ParseFormat(cfg.Model.Format)
	if err != nil {
		return nil, err
	}
	b, err := model.LoadBundle(cfg.Model.ArtifactPath, cfg.Model.ManifestPath, format)
	if err != nil {
		if predictive {
			return nil, err
		}
		logger.Warn("model not loaded, predictive requests will fail", "error", err)
		return nil, nil
	}
	logger.Info("model loaded", "artifact", cfg.Model.ArtifactPath, "format", format, "features", b.Manifest().Fields())
	return b, nil
}
