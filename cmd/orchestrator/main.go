package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/openmodular/orchestrator/cmd/orchestrator/eventsigs"
	"github.com/openmodular/orchestrator/cmd/orchestrator/roleid"
	"github.com/openmodular/orchestrator/cmd/orchestrator/simulate"
	"github.com/openmodular/orchestrator/cmd/orchestrator/vesting"
)

func main() {

	app := &cli.App{
		Name:  "orchestrator CLI",
		Usage: "Modular funding orchestrator",

		Commands: []*cli.Command{
			roleid.RoleID(),
			vesting.Vesting(),
			eventsigs.EventSigs(),
			simulate.Simulate(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
