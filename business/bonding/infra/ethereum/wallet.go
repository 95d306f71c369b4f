package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/fd1az/bond-desk/business/bonding/app"
	"github.com/fd1az/bond-desk/internal/apperror"
)

var _ app.Wallet = (*KeyWallet)(nil)

// KeyWallet signs transactions with a locally held secp256k1 key. The zero
// value (or a nil pointer) is a disconnected wallet.
type KeyWallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
}

// NewKeyWallet parses a hex private key. An empty key yields a disconnected
// wallet so read-only sessions can still quote.
func NewKeyWallet(privateKeyHex string, chainID uint64) (*KeyWallet, error) {
	keyHex := strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	if keyHex == "" {
		return &KeyWallet{}, nil
	}

	key, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("wallet: invalid private key: %w", err)
	}

	return &KeyWallet{
		key:     key,
		address: ethcrypto.PubkeyToAddress(key.PublicKey),
		chainID: new(big.Int).SetUint64(chainID),
	}, nil
}

// Address returns the signing address and whether a key is loaded.
func (w *KeyWallet) Address() (common.Address, bool) {
	if w == nil || w.key == nil {
		return common.Address{}, false
	}
	return w.address, true
}

// transactOpts builds fresh signing options bound to ctx.
func (w *KeyWallet) transactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	if w == nil || w.key == nil {
		return nil, apperror.New(apperror.CodeWalletNotConnected)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(w.key, w.chainID)
	if err != nil {
		return nil, apperror.New(apperror.CodeWalletNotConnected, apperror.WithCause(err))
	}
	opts.Context = ctx
	return opts, nil
}
