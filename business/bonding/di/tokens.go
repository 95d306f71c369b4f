// Package di contains dependency injection tokens for the bonding context.
package di

import (
	"github.com/fd1az/bond-desk/business/bonding/app"
	"github.com/fd1az/bond-desk/business/bonding/infra/ethereum"
	"github.com/fd1az/bond-desk/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Store        = di.NewToken[*app.Store]("bonding.Store")
	Engine       = di.NewToken[*app.Engine]("bonding.Engine")
	Scheduler    = di.NewToken[*app.Scheduler]("bonding.Scheduler")
	Orchestrator = di.NewToken[*app.Orchestrator]("bonding.Orchestrator")
	Balances     = di.NewToken[*app.BalanceService]("bonding.Balances")
)

// Private dependency tokens - internal to bonding module
var (
	Ledger    = di.NewToken[*ethereum.Ledger]("bonding:ledger")
	Wallet    = di.NewToken[*ethereum.KeyWallet]("bonding:wallet")
	Refresher = di.NewToken[*app.Refresher]("bonding:refresher")
)

// Helper functions for type-safe access
func GetStore(c di.ServiceRegistry) *app.Store {
	return di.GetToken(c, Store)
}

func GetEngine(c di.ServiceRegistry) *app.Engine {
	return di.GetToken(c, Engine)
}

func GetScheduler(c di.ServiceRegistry) *app.Scheduler {
	return di.GetToken(c, Scheduler)
}

func GetOrchestrator(c di.ServiceRegistry) *app.Orchestrator {
	return di.GetToken(c, Orchestrator)
}

func GetBalances(c di.ServiceRegistry) *app.BalanceService {
	return di.GetToken(c, Balances)
}

func GetLedger(c di.ServiceRegistry) *ethereum.Ledger {
	return di.GetToken(c, Ledger)
}

func GetWallet(c di.ServiceRegistry) *ethereum.KeyWallet {
	return di.GetToken(c, Wallet)
}

func GetRefresher(c di.ServiceRegistry) *app.Refresher {
	return di.GetToken(c, Refresher)
}
