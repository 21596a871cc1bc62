package roleid

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/openmodular/orchestrator/authorizer"
)

func RoleID() *cli.Command {
	cfg := struct {
		scope string
		label string
	}{}
	return &cli.Command{
		Name:  "role-id",
		Usage: "Derive the role id for a module scope and role label",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "scope",
				Usage:       "The module address the role is scoped to",
				Required:    true,
				Destination: &cfg.scope,
			},
			&cli.StringFlag{
				Name:        "label",
				Usage:       "The role label, e.g. CLAIMANT",
				Required:    true,
				Destination: &cfg.label,
			},
		},
		Action: func(c *cli.Context) error {
			if !common.IsHexAddress(cfg.scope) {
				return fmt.Errorf("invalid scope address: %s", cfg.scope)
			}

			role := authorizer.RoleID(common.HexToAddress(cfg.scope), cfg.label)
			fmt.Println(role.Hex())

			return nil
		},
	}
}
