package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/bond-desk/business/bonding/domain"
	"github.com/fd1az/bond-desk/internal/apperror"
	"github.com/fd1az/bond-desk/internal/asset"
	"github.com/fd1az/bond-desk/internal/logger"
)

const payoutTokenDecimals = 9

// BalanceService loads the connected account's token balances into the Store.
type BalanceService struct {
	ledger      domain.Ledger
	store       *Store
	network     domain.NetworkID
	payoutToken common.Address
	bonds       []*domain.Bond
	logger      logger.LoggerInterface
}

// NewBalanceService creates a BalanceService. A zero payoutToken skips the payout balance.
func NewBalanceService(
	ledger domain.Ledger,
	store *Store,
	network domain.NetworkID,
	payoutToken common.Address,
	bonds []*domain.Bond,
	log logger.LoggerInterface,
) *BalanceService {
	return &BalanceService{
		ledger:      ledger,
		store:       store,
		network:     network,
		payoutToken: payoutToken,
		bonds:       bonds,
		logger:      log,
	}
}

// Refresh reads every reserve balance of account and publishes them together.
func (s *BalanceService) Refresh(ctx context.Context, account common.Address) error {
	bal := Balances{Reserves: make(map[domain.Symbol]float64, len(s.bonds))}

	if s.payoutToken != (common.Address{}) {
		raw, err := s.ledger.Reserve(s.payoutToken).BalanceOf(ctx, account)
		if err != nil {
			return apperror.Wrap(err, apperror.CodeLedgerCallFailed, "payout balance")
		}
		bal.Payout = asset.ToFloat(raw, payoutTokenDecimals)
	}

	for _, b := range s.bonds {
		reserve, ok := b.ReserveAddress(s.network)
		if !ok {
			continue
		}
		raw, err := s.ledger.Reserve(reserve).BalanceOf(ctx, account)
		if err != nil {
			return apperror.Wrap(err, apperror.CodeLedgerCallFailed, "reserve balance "+string(b.Name))
		}
		bal.Reserves[b.Name] = asset.ToFloat(raw, int32(b.Reserve.Decimals()))
	}

	s.store.Dispatch(BalancesLoaded{Balances: bal})
	s.logger.Debug(ctx, "balances refreshed", "account", account.Hex(), "payout", bal.Payout)
	return nil
}
