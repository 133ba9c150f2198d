package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"httpconnect/internal/agent"
	"httpconnect/internal/gateway"
	"httpconnect/internal/runner"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run a local gateway with its node servers",
	Long: `Serves GET /api/1.0/ on the gateway port, handing out node ports
round-robin, and POST /api/1.0/nodes on every node port. Runs until
interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		var cfg gateway.ServerConfig
		cfg.Host, _ = f.GetString("listen")
		cfg.Port, _ = f.GetInt("port")
		cfg.Sockets, _ = f.GetInt("sockets")
		cfg.BasePort, _ = f.GetInt("base-port")
		cfg.Jitter, _ = f.GetDuration("jitter")
		cfg.FailRate, _ = f.GetFloat64("fail-rate")
		cfg.GatewayFailRate, _ = f.GetFloat64("gateway-fail-rate")

		srv, err := gateway.Start(cfg, slog.Default())
		if err != nil {
			return fmt.Errorf("starting gateway: %w", err)
		}
		ports := srv.Ports()
		fmt.Fprintf(cmd.ErrOrStderr(), "🛰️  Gateway on :%d, %d node servers (%d..%d)\n",
			srv.Port(), len(ports), ports[0], ports[len(ports)-1])

		<-cmd.Context().Done()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
		slog.Info("gateway stopped",
			"gateway_hits", srv.GatewayHits(),
			"node_hits", srv.NodeHits(),
			"rejected", srv.Rejected())
		return nil
	},
}

func init() {
	f := gatewayCmd.Flags()
	f.String("listen", "", "Listen address (default all interfaces)")
	f.IntP("port", "p", agent.DefaultGatewayPort, "Gateway port")
	f.Int("sockets", runner.DefaultServerSockets, "Number of node servers")
	f.Int("base-port", 0, "First node port, following ones are consecutive (0 picks free ports)")
	f.Duration("jitter", 0, "Upper bound of a random delay added to node responses")
	f.Float64("fail-rate", 0, "Fraction of node requests answered with 500")
	f.Float64("gateway-fail-rate", 0, "Fraction of gateway requests answered with 500")
}
