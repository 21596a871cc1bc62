package eventsigs

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/openmodular/orchestrator/events"
)

// EventSigs prints the topic-0 hash of every log signature the core
// emits, for wiring up log filters and decoders.
func EventSigs() *cli.Command {
	return &cli.Command{
		Name:  "event-sigs",
		Usage: "Print the log signature hashes emitted by the core",
		Action: func(c *cli.Context) error {
			sigs := []struct {
				name string
				hash common.Hash
			}{
				{"RoleGranted", events.RoleGranted},
				{"RoleRevoked", events.RoleRevoked},
				{"RoleAdminChanged", events.RoleAdminChanged},
				{"ModuleUpdateInitiated", events.ModuleUpdateInitiated},
				{"ModuleUpdateCanceled", events.ModuleUpdateCanceled},
				{"ModuleAdded", events.ModuleAdded},
				{"ModuleRemoved", events.ModuleRemoved},
				{"AuthorizerUpdated", events.AuthorizerUpdated},
				{"FundingManagerUpdated", events.FundingManagerUpdated},
				{"PaymentProcessorUpdated", events.PaymentProcessorUpdated},
				{"StreamingPaymentAdded", events.StreamingPaymentAdded},
				{"StreamingPaymentRemoved", events.StreamingPaymentRemoved},
				{"TokensReleased", events.TokensReleased},
				{"UnclaimableAmountAdded", events.UnclaimableAmountAdded},
				{"UnclaimableAmountClaimed", events.UnclaimableAmountClaimed},
			}

			for _, s := range sigs {
				fmt.Printf("%s %s\n", s.hash.Hex(), s.name)
			}

			return nil
		},
	}
}
