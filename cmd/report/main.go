package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"doubleauction/internal/store"
)

func main() {
	dbPath := flag.String("db", "auction.db", "Path to the SQLite run store")
	runID := flag.String("run", "", "Run to inspect; lists all runs when empty")
	showBook := flag.Bool("book", false, "Also print the order-book log of -run")
	flag.Parse()

	s, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open store at %s: %v", *dbPath, err)
	}
	defer s.Close()

	ctx := context.Background()
	if *runID == "" {
		err = listRuns(ctx, os.Stdout, s)
	} else {
		err = showRun(ctx, os.Stdout, s, *runID, *showBook)
	}
	if err != nil {
		s.Close()
		log.Fatal(err)
	}
}

func listRuns(ctx context.Context, w io.Writer, s *store.Store) error {
	runs, err := s.Runs(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs stored.")
		return nil
	}

	fmt.Fprintf(w, "%-36s  %-19s  %6s  %6s  %9s  %9s  %6s\n",
		"RUN", "CREATED", "ROUNDS", "TRADES", "SURPLUS", "CE", "EFF")
	for _, run := range runs {
		fmt.Fprintf(w, "%-36s  %-19s  %6d  %6d  %9.2f  %9.2f  %5.1f%%\n",
			run.ID,
			run.CreatedAt.Format(time.DateTime),
			run.Summary.Rounds,
			run.Summary.TotalTrades,
			run.Summary.TotalSurplus,
			run.Summary.Equilibrium.TotalSurplus,
			run.Summary.Efficiency*100,
		)
	}
	return nil
}

func showRun(ctx context.Context, w io.Writer, s *store.Store, id string, withBook bool) error {
	run, err := s.Run(ctx, id)
	if err != nil {
		return err
	}
	trades, err := s.Trades(ctx, id)
	if err != nil {
		return err
	}

	sum := run.Summary
	fmt.Fprintf(w, "Run %s (%s)\n", run.ID, run.CreatedAt.Format(time.DateTime))
	fmt.Fprintf(w, "  agents: %d buyers, %d sellers, %d units, seed %d\n",
		run.Config.Buyers, run.Config.Sellers, run.Config.Units, run.Config.Seed)
	fmt.Fprintf(w, "  rounds: %d  trades: %d  average price: %.2f\n", sum.Rounds, sum.TotalTrades, sum.AveragePrice)
	fmt.Fprintf(w, "  surplus: %.2f  equilibrium: %.2f @ %.2f x %d  difference: %.2f\n",
		sum.TotalSurplus, sum.Equilibrium.TotalSurplus, sum.Equilibrium.Price, sum.Equilibrium.Quantity, sum.SurplusDifference)
	if sum.NegativeSurplus {
		fmt.Fprintln(w, "  WARNING: negative practical surplus")
	}

	fmt.Fprintln(w, "\nTrades:")
	for _, t := range trades {
		fmt.Fprintf(w, "  #%-4d round %-3d buyer %-3d seller %-3d %d @ %.2f (value %.2f, cost %.2f)\n",
			t.ID, t.Round, t.BuyerID, t.SellerID, t.Quantity, t.Price, t.BuyerValue, t.SellerCost)
	}

	if !withBook {
		return nil
	}
	book, err := s.OrderBook(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "\nOrder book:")
	for i, entry := range book {
		fmt.Fprintf(w, "  %4d  %d @ %.2f = %.2f\n", i, entry.Quantity, entry.Price, entry.Notional)
	}
	return nil
}
