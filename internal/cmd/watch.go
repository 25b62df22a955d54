package cmd

import (
	"crypto/tls"
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/VerteraIO/agentrouter/internal/config"
	"github.com/VerteraIO/agentrouter/internal/controlplane/dispatch"
	"github.com/VerteraIO/agentrouter/internal/grpc/agent"
	"github.com/VerteraIO/agentrouter/internal/logging"
	"github.com/VerteraIO/agentrouter/internal/security/tlsconfig"
)

type watchOptions struct {
	addr       string
	agentID    string
	token      string
	caFile     string
	certFile   string
	keyFile    string
	serverName string
}

func newWatchCommand(g *globalOptions) *cobra.Command {
	o := &watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream an agent's assignments from a router",
		Long: `Connect to the gRPC Router service and print each assignment routed to
--agent as one JSON line, starting with any still pending.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.agentID == "" {
				return errors.New("--agent is required")
			}
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}
			logger := logging.New(serviceName, logging.Config{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				Output: cmd.ErrOrStderr(),
			})

			var tlsCfg *tls.Config
			if o.caFile != "" {
				if tlsCfg, err = tlsconfig.ClientTLSConfig(o.caFile, o.certFile, o.keyFile, o.serverName); err != nil {
					return err
				}
			}
			conn, err := agent.Dial(o.addr, agent.DialOptions{TLS: tlsCfg, Token: o.token})
			if err != nil {
				return err
			}
			defer conn.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			return agent.Watch(cmd.Context(), conn, o.agentID, func(a *dispatch.Assignment) error {
				return enc.Encode(a)
			}, logger)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.addr, "addr", "localhost:9090", "router gRPC address")
	f.StringVar(&o.agentID, "agent", "", "agent id to watch")
	f.StringVar(&o.token, "token", "", "bearer token")
	f.StringVar(&o.caFile, "ca", "", "CA bundle; enables TLS")
	f.StringVar(&o.certFile, "cert", "", "client certificate for mTLS")
	f.StringVar(&o.keyFile, "key", "", "client key for mTLS")
	f.StringVar(&o.serverName, "server-name", "", "expected server name")
	return cmd
}
