// Command simulate drives load against a running matchforge server using
// internal/sim's worker pool.
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"matchforge/internal/sim"
)

func main() {
	baseURL := flag.String("url", "http://127.0.0.1:8080", "matchforge server base URL")
	workers := flag.Int("workers", 8, "number of concurrent submitting workers")
	duration := flag.Duration("duration", 30*time.Second, "how long to run before stopping; 0 runs until interrupted")
	midPrice := flag.Uint64("mid", 100, "mid price the simulated book oscillates around")
	band := flag.Uint64("band", 5, "price band around mid that simulated orders spread across")
	maxQty := flag.Uint64("max-qty", 20, "maximum quantity per simulated order")
	marketProb := flag.Float64("market-prob", 0.15, "fraction of simulated orders submitted as market orders")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	gen := sim.New(sim.Config{
		BaseURL:    *baseURL,
		Pairs:      []string{"BTC-USD", "ETH-USD"},
		Workers:    *workers,
		MidPrice:   *midPrice,
		PriceBand:  *band,
		MaxQty:     *maxQty,
		MarketProb: *marketProb,
	}, nil)

	var t tomb.Tomb
	t.Go(func() error {
		return gen.Run(&t)
	})

	go func() {
		<-ctx.Done()
		t.Kill(nil)
	}()

	log.Info().Str("url", *baseURL).Int("workers", *workers).Msg("simulation starting")
	if err := t.Wait(); err != nil {
		log.Error().Err(err).Msg("simulation exited with error")
	}
	log.Info().Msg("simulation stopped")
}
