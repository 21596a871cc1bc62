package vesting

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/urfave/cli/v2"

	"github.com/openmodular/orchestrator/payments"
)

// Vesting prints the vesting curve of a hypothetical stream at evenly
// spaced sample points, which is handy to sanity-check an order before
// queueing it on a client module.
func Vesting() *cli.Command {
	cfg := struct {
		amount  string
		start   uint64
		cliff   uint64
		end     uint64
		samples uint64
	}{}
	return &cli.Command{
		Name:  "vesting",
		Usage: "Print the vesting curve of a stream",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "amount",
				Usage:       "Total amount of the stream (decimal)",
				Required:    true,
				Destination: &cfg.amount,
			},
			&cli.Uint64Flag{
				Name:        "start",
				Usage:       "Start timestamp of the stream",
				Destination: &cfg.start,
			},
			&cli.Uint64Flag{
				Name:        "cliff",
				Usage:       "Cliff duration after start",
				Destination: &cfg.cliff,
			},
			&cli.Uint64Flag{
				Name:        "end",
				Usage:       "End timestamp of the stream",
				Required:    true,
				Destination: &cfg.end,
			},
			&cli.Uint64Flag{
				Name:        "samples",
				Usage:       "Number of sample points",
				Value:       10,
				Destination: &cfg.samples,
			},
		},
		Action: func(c *cli.Context) error {
			total, err := uint256.FromDecimal(cfg.amount)
			if err != nil {
				return fmt.Errorf("invalid amount: %w", err)
			}
			if cfg.end <= cfg.start {
				return fmt.Errorf("end must be after start")
			}
			if cfg.start+cfg.cliff > cfg.end {
				return fmt.Errorf("cliff ends after the stream ends")
			}
			if cfg.samples == 0 {
				return fmt.Errorf("samples must be positive")
			}

			s := &payments.Stream{
				TotalAmount:    total,
				ReleasedAmount: uint256.NewInt(0),
				Start:          cfg.start,
				Cliff:          cfg.cliff,
				End:            cfg.end,
			}

			step := (cfg.end - cfg.start) / cfg.samples
			if step == 0 {
				step = 1
			}
			for t := cfg.start; t < cfg.end; t += step {
				fmt.Printf("t=%d vested=%s\n", t, s.VestedAt(t).Dec())
			}
			fmt.Printf("t=%d vested=%s\n", cfg.end, s.VestedAt(cfg.end).Dec())

			return nil
		},
	}
}
