package simulate

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/urfave/cli/v2"

	"github.com/openmodular/orchestrator/modules"
	"github.com/openmodular/orchestrator/orchestrator"
	"github.com/openmodular/orchestrator/payments"
	"github.com/openmodular/orchestrator/testutil"
)

// The simulated deployment uses fixed well-known addresses for the core
// so scenario files only have to name the client, the token and the
// recipients.
var (
	selfAddr  = common.HexToAddress("0x0001")
	adminAddr = common.HexToAddress("0x0002")
	fmAddr    = common.HexToAddress("0x0003")
	authAddr  = common.HexToAddress("0x0004")
	ppAddr    = common.HexToAddress("0x0005")
	fundToken = common.HexToAddress("0x0006")
)

type scenarioOrder struct {
	Recipient common.Address `json:"recipient"`
	Amount    string         `json:"amount"`
	Start     uint64         `json:"start"`
	Cliff     uint64         `json:"cliff"`
	End       uint64         `json:"end"`
}

type scenarioClaim struct {
	Recipient common.Address `json:"recipient"`
	At        uint64         `json:"at"`
}

type scenario struct {
	Client    common.Address  `json:"client"`
	Token     common.Address  `json:"token"`
	Mint      string          `json:"mint"`
	ProcessAt uint64          `json:"processAt"`
	Orders    []scenarioOrder `json:"orders"`
	Claims    []scenarioClaim `json:"claims"`
}

// Simulate replays a JSON scenario file against an in-memory deployment:
// the client's orders are processed into streams, then each claim is
// executed at its timestamp. Balances and parked amounts are printed at
// the end.
func Simulate() *cli.Command {
	return &cli.Command{
		Name:      "simulate",
		Usage:     "Replay a payment scenario in memory",
		ArgsUsage: "<scenario.json>",
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return fmt.Errorf("scenario file is required")
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read scenario: %w", err)
			}
			sc := scenario{}
			if err := json.Unmarshal(data, &sc); err != nil {
				return fmt.Errorf("failed to parse scenario: %w", err)
			}

			return run(&sc)
		},
	}
}

func run(sc *scenario) error {
	db := testutil.NewStateAccess()
	res := testutil.NewResolver()
	res.Register(&testutil.FundingManagerModule{Addr: fmAddr, TokenAddr: fundToken})
	res.Register(&testutil.AuthorizerModule{Addr: authAddr})
	res.Register(&testutil.ProcessorModule{Addr: ppAddr})

	client := &testutil.ClientModule{Addr: sc.Client}
	res.Register(client)

	_, err := orchestrator.Initialize(db, res, selfAddr, adminAddr,
		fmAddr, authAddr, ppAddr, []common.Address{sc.Client}, orchestrator.DefaultTimelockDuration)
	if err != nil {
		return fmt.Errorf("failed to initialize deployment: %w", err)
	}

	rt := testutil.NewTokenRuntime()
	token := testutil.NewToken()
	rt.Register(sc.Token, token)

	mint, err := uint256.FromDecimal(sc.Mint)
	if err != nil {
		return fmt.Errorf("invalid mint amount: %w", err)
	}
	token.Mint(sc.Client, mint.Uint64())

	for _, o := range sc.Orders {
		amount, err := uint256.FromDecimal(o.Amount)
		if err != nil {
			return fmt.Errorf("invalid order amount %q: %w", o.Amount, err)
		}
		client.QueueOrder(modules.PaymentOrder{
			Recipient: o.Recipient,
			Token:     sc.Token,
			Amount:    amount,
			Start:     o.Start,
			Cliff:     o.Cliff,
			End:       o.End,
		})
	}

	logs, err := payments.ProcessPayments(db, rt, res, sc.Client, sc.Client, sc.ProcessAt)
	if err != nil {
		return fmt.Errorf("failed to process orders: %w", err)
	}
	fmt.Printf("processed %d orders at t=%d (%d events)\n", len(sc.Orders), sc.ProcessAt, len(logs))

	for _, cl := range sc.Claims {
		logs, err := payments.ClaimAll(db, rt, res, cl.Recipient, sc.Client, cl.At)
		if err != nil {
			fmt.Printf("claim by %s at t=%d failed: %v\n", cl.Recipient.Hex(), cl.At, err)
			continue
		}
		fmt.Printf("claim by %s at t=%d (%d events)\n", cl.Recipient.Hex(), cl.At, len(logs))
	}

	fmt.Println()
	balance, err := token.BalanceOf(sc.Client)
	if err != nil {
		return err
	}
	fmt.Printf("client %s balance=%s\n", sc.Client.Hex(), balance.Dec())

	seen := map[common.Address]bool{}
	for _, o := range sc.Orders {
		if seen[o.Recipient] {
			continue
		}
		seen[o.Recipient] = true

		balance, err := token.BalanceOf(o.Recipient)
		if err != nil {
			return err
		}
		parked := payments.UnclaimableAmount(db, sc.Client, sc.Token, o.Recipient)
		fmt.Printf("recipient %s balance=%s unclaimable=%s active=%d\n",
			o.Recipient.Hex(), balance.Dec(), parked.Dec(),
			len(payments.ActiveStreamIDs(db, sc.Client, o.Recipient)))
	}

	return nil
}
