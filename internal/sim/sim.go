// Package sim is a load generator exercising a running matchforge server
// over HTTP. It adapts the teacher's internal/worker.go WorkerPool — a
// tomb.v2-supervised pool of goroutines pulling tasks off a channel — into a
// pool of order-submitting workers instead of the original's generic task
// runner.
package sim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

// taskChanSize mirrors TASK_CHAN_SIZE in the teacher's worker pool.
const taskChanSize = 100

// Config controls the generator's behavior.
type Config struct {
	BaseURL    string
	Pairs      []string
	Workers    int
	MidPrice   uint64
	PriceBand  uint64
	MaxQty     uint64
	MarketProb float64 // fraction of orders submitted as market orders
}

// orderTask is one order to submit, the sim's equivalent of the teacher's
// generic `task any`.
type orderTask struct {
	pair  string
	side  string
	kind  string
	price uint64
	qty   uint64
}

// Generator runs Config.Workers concurrent submitters against an HTTP
// server until its tomb is told to die.
type Generator struct {
	cfg    Config
	client *http.Client
	tasks  chan orderTask
}

// New constructs a Generator. client may be nil to use http.DefaultClient.
func New(cfg Config, client *http.Client) *Generator {
	if client == nil {
		client = http.DefaultClient
	}
	return &Generator{cfg: cfg, client: client, tasks: make(chan orderTask, taskChanSize)}
}

// Run starts the producer and the worker pool under t, and blocks until t
// is told to die. Workers log rejected orders and always return nil, so
// they never kill t themselves.
func (g *Generator) Run(t *tomb.Tomb) error {
	t.Go(func() error {
		g.produce(t)
		return nil
	})

	active := 0
	for {
		select {
		case <-t.Dying():
			return nil
		default:
			if active < g.cfg.Workers {
				t.Go(func() error {
					err := g.worker(t)
					active--
					return err
				})
				active++
			}
		}
	}
}

// produce fills the task channel with randomized orders until the tomb dies.
func (g *Generator) produce(t *tomb.Tomb) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for {
		select {
		case <-t.Dying():
			close(g.tasks)
			return
		case g.tasks <- g.randomTask(rng):
		}
	}
}

func (g *Generator) randomTask(rng *rand.Rand) orderTask {
	pair := g.cfg.Pairs[rng.Intn(len(g.cfg.Pairs))]
	side := "buy"
	if rng.Intn(2) == 0 {
		side = "sell"
	}
	kind := "limit"
	if rng.Float64() < g.cfg.MarketProb {
		kind = "market"
	}

	offset := int64(rng.Intn(int(2*g.cfg.PriceBand+1))) - int64(g.cfg.PriceBand)
	price := int64(g.cfg.MidPrice) + offset
	if price < 1 {
		price = 1
	}

	qty := uint64(rng.Int63n(int64(g.cfg.MaxQty))) + 1
	return orderTask{pair: pair, side: side, kind: kind, price: uint64(price), qty: qty}
}

// worker pulls tasks and submits them over HTTP until the tomb dies.
func (g *Generator) worker(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task, ok := <-g.tasks:
			if !ok {
				return nil
			}
			if err := g.submit(t.Context(context.Background()), task); err != nil {
				log.Warn().Err(err).Str("pair", task.pair).Msg("simulated order rejected")
			}
		}
	}
}

func (g *Generator) submit(ctx context.Context, task orderTask) error {
	body := map[string]any{
		"symbol":     task.pair,
		"side":       task.side,
		"order_type": task.kind,
		"quantity":   task.qty,
	}
	if task.kind == "limit" {
		body["price"] = task.price
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/orders", bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("order rejected: status %d", resp.StatusCode)
	}
	return nil
}
