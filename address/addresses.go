package address

import "github.com/ethereum/go-ethereum/common"

// Reserved state accounts. Each core subsystem keeps its slots under its
// own account so their keyspaces cannot collide.
var (
	OrchestratorStateAddress = common.HexToAddress("0x000000000000000000000000000000006f726368")
	AuthorizerStateAddress   = common.HexToAddress("0x0000000000000000000000000000000061757468")
	PaymentsStateAddress     = common.HexToAddress("0x0000000000000000000000000000000070617973")
)
