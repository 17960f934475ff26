// Command scanner is the CLI / process-lifecycle entrypoint (C11):
// `scanner scan`, `scanner continuous start`, and
// `scanner serve` drive the C1-C9 stack from one cobra root command.
// Grounded on the teacher's cmd/cryptorun/main.go (zerolog console-vs-JSON
// switch on TTY detection, cobra command tree, non-zero exit on
// unrecoverable init failure).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sawpanic/marketscanner/internal/adapter"
	"github.com/sawpanic/marketscanner/internal/config"
	"github.com/sawpanic/marketscanner/internal/httpapi"
	"github.com/sawpanic/marketscanner/internal/scan"
	"github.com/sawpanic/marketscanner/internal/service"
)

const appName = "marketscanner"

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	var configPath string

	root := &cobra.Command{
		Use:   appName,
		Short: "Multi-exchange market scanner and signal engine",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to scanner.yaml (defaults embedded if omitted)")

	root.AddCommand(newScanCmd(&configPath))
	root.AddCommand(newContinuousCmd(&configPath))
	root.AddCommand(newServeCmd(&configPath))

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// mockExchangeBuilder stands in for a real REST-backed adapter, per spec
// §4.1's interface-only contract: any adapter.Exchange implementation can
// be substituted here without touching the rest of the stack.
func mockExchangeBuilder(ecfg config.ExchangeConfig) (adapter.Exchange, error) {
	pairs := []string{"BTC/USDT", "ETH/USDT", "SOL/USDT", "XRP/USDT", "ADA/USDT"}
	return adapter.NewMockExchange(ecfg.Name, pairs, 260), nil
}

func buildScanner(configPath string) (*service.Scanner, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	symbols := make([]adapter.Symbol, 0)
	for _, ecfg := range cfg.Exchanges {
		for _, pair := range []string{"BTC/USDT", "ETH/USDT"} {
			symbols = append(symbols, adapter.Symbol{ExchangeID: ecfg.Name, Pair: pair, Quote: "USDT", MarketType: adapter.MarketFuture})
		}
	}

	s, err := service.New(service.ScannerDeps{
		Cfg:            cfg,
		BuildExchange:  mockExchangeBuilder,
		DefaultSymbols: symbols,
	})
	if err != nil {
		return nil, fmt.Errorf("service init failed: %w", err)
	}
	return s, nil
}

func newScanCmd(configPath *string) *cobra.Command {
	var exchangeName, timeframe string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a single scan against one configured exchange",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildScanner(*configPath)
			if err != nil {
				return err
			}
			defer svc.Close()

			o, ok := svc.Orchestrators[exchangeName]
			if !ok {
				return fmt.Errorf("unknown exchange %q", exchangeName)
			}
			req := scan.DefaultRequest()
			if timeframe != "" {
				req.Timeframe = httpapi.ResolveTimeframe(timeframe)
			}

			res, err := o.Scan(cmd.Context(), req)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVar(&exchangeName, "exchange", "kucoinfutures", "exchange to scan")
	cmd.Flags().StringVar(&timeframe, "timeframe", "medium", "scalping|short|medium|daily|weekly")
	return cmd
}

func newContinuousCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{Use: "continuous", Short: "Control the continuous scanning pipeline"}

	cmd.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Start the continuous pipeline and block until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildScanner(*configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := svc.StartContinuous(ctx); err != nil {
				return err
			}
			log.Info().Msg("continuous pipeline started, press ctrl-c to stop")
			<-ctx.Done()
			svc.StopContinuous()
			return nil
		},
	})

	return cmd
}

func newServeCmd(configPath *string) *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the control API server (and continuous pipeline)",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildScanner(*configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := svc.StartContinuous(ctx); err != nil {
				return err
			}

			srvCfg := httpapi.DefaultServerConfig()
			if h := svc.Config.Cfg.HTTP.Host; h != "" {
				srvCfg.Host = h
			}
			if p := svc.Config.Cfg.HTTP.Port; p != 0 {
				srvCfg.Port = p
			}
			if host != "" {
				srvCfg.Host = host
			}
			if port != 0 {
				srvCfg.Port = port
			}
			server := httpapi.NewServer(srvCfg, httpapi.Deps{
				Exchanges:      svc.Exchanges,
				Orchestrators:  svc.Orchestrators,
				Pipeline:       svc.Pipeline,
				Store:          svc.Store,
				Metrics:        svc.Metrics,
				Registry:       svc.Registry,
				StartTime:      time.Now(),
				DefaultSymbols: svc.Config.DefaultSymbols,
			})

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case err := <-errCh:
				svc.StopContinuous()
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = server.Shutdown(shutdownCtx)
				svc.StopContinuous()
				return nil
			}
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "override http.host")
	cmd.Flags().IntVar(&port, "port", 0, "override http.port")
	return cmd
}
