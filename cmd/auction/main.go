package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"doubleauction/internal/auction"
	"doubleauction/internal/config"
	"doubleauction/internal/logging"
	"doubleauction/internal/market"
	"doubleauction/internal/store"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	closer, err := logging.Setup(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	// Run the simulation in a tomb so a signal interrupts it between rounds.
	t, ctx := tomb.WithContext(ctx)
	t.Go(func() error {
		_, err := simulate(ctx, cfg)
		return err
	})

	if err := t.Wait(); err != nil {
		log.Error().Err(err).Msg("simulation failed")
		closer.Close()
		os.Exit(1)
	}
}

// simulate generates the market described by cfg, runs the auction over it
// and, when a store path is configured, persists the result.
func simulate(ctx context.Context, cfg config.Config) (auction.Summary, error) {
	env := market.Generate(market.Params{
		Buyers:          cfg.Buyers,
		Sellers:         cfg.Sellers,
		Units:           cfg.Units,
		BuyerBaseValue:  cfg.BuyerBaseValue,
		SellerBaseValue: cfg.SellerBaseValue,
		Spread:          cfg.Spread,
		InitialCash:     cfg.InitialCash,
		Seed:            cfg.Seed,
	})

	a := auction.New(env, cfg.Rounds)
	logUtilities(a.ID(), "initial utility", env)
	log.Info().
		Str("run", a.ID()).
		Int("buyers", cfg.Buyers).
		Int("sellers", cfg.Sellers).
		Int("rounds", cfg.Rounds).
		Int64("seed", cfg.Seed).
		Msg("auction starting")

	summary, err := a.Run(ctx)
	if err != nil {
		return auction.Summary{}, fmt.Errorf("run %s: %w", a.ID(), err)
	}
	logUtilities(a.ID(), "final utility", env)

	if cfg.Store.Path == "" {
		return summary, nil
	}

	s, err := store.Open(cfg.Store.Path)
	if err != nil {
		return summary, err
	}
	defer s.Close()

	if err := s.SaveRun(ctx, cfg, summary, a.TradeHistory(), a.OrderBook()); err != nil {
		return summary, fmt.Errorf("save run %s: %w", a.ID(), err)
	}
	log.Info().Str("run", a.ID()).Str("path", cfg.Store.Path).Msg("run saved")
	return summary, nil
}

func logUtilities(run, msg string, env *market.Environment) {
	for _, agent := range env.Agents() {
		log.Info().
			Str("run", run).
			Int("agent", agent.ID()).
			Bool("buyer", agent.IsBuyer()).
			Float64("utility", agent.Utility()).
			Msg(msg)
	}
}
