package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/VerteraIO/agentrouter/internal/security/tlsconfig"
)

func newCertsCommand() *cobra.Command {
	var (
		dir      string
		hosts    []string
		clients  []string
		validity time.Duration
	)
	cmd := &cobra.Command{
		Use:   "certs",
		Short: "Create a development CA with server and client certificates",
		Long: `Create (or reuse) a CA in --dir, a server certificate for --host and one
client certificate per --client. Point tls.cert_file, tls.key_file and
tls.client_ca_file at the results to enable mTLS.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ca, caKey, err := tlsconfig.EnsureCA(dir, "agentrouter dev CA", validity)
			if err != nil {
				return err
			}
			caPath, _, _, _ := tlsconfig.Paths(dir, "")
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ca:     %s\n", caPath)

			cert, key, err := tlsconfig.IssueCertificate(dir, "server", "agentrouter", tlsconfig.ServerAuth, ca, caKey, validity, hosts)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "server: %s %s\n", cert, key)

			for _, c := range clients {
				cert, key, err := tlsconfig.IssueCertificate(dir, "client-"+c, c, tlsconfig.ClientAuth, ca, caKey, validity, nil)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "client: %s %s\n", cert, key)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&dir, "dir", "pki", "output directory")
	f.StringSliceVar(&hosts, "host", []string{"localhost", "127.0.0.1"}, "server DNS names or IPs")
	f.StringSliceVar(&clients, "client", nil, "client certificate names")
	f.DurationVar(&validity, "validity", 365*24*time.Hour, "certificate lifetime")
	return cmd
}
