package asset

import "github.com/ethereum/go-ethereum/common"

// Chain IDs
const (
	ChainIDFiat     = 0
	ChainIDEthereum = 1
	ChainIDRinkeby  = 4
)

// Token addresses on Ethereum mainnet.
var (
	AddrDAIEthereum     = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	AddrSHIBEthereum    = common.HexToAddress("0x95aD61b0a150d79219dCF64E1E6Cc01f0B64C4cE")
	AddrWETHEthereum    = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	AddrLUSDEthereum    = common.HexToAddress("0x5f98805A4E8be255a32880FDeC7F6728C6568bA0")
	Addr3DOGEthereum    = common.HexToAddress("0x8a14897eA5F668f36671678593fAe44Ae23B39FB")
	AddrDOGWETHEthereum = common.HexToAddress("0xB5B6C3816C66Fa6BC5b189F49e5b088E2dE5082a")
)

// Token addresses on Rinkeby.
var (
	AddrDAIRinkeby     = common.HexToAddress("0xfACDF811DD0ECB621Fe35d5883e0F10A5Bc7711E")
	AddrWETHRinkeby    = common.HexToAddress("0xc778417E063141139Fce010982780140Aa0cD5Ab")
	AddrLUSDRinkeby    = common.HexToAddress("0x45754dF05AA6305114004358eCf8D04FF3B84e26")
	AddrDOGWETHRinkeby = common.HexToAddress("0xB5B6C3816C66Fa6BC5b189F49e5b088E2dE5082a")
)

// Well-known assets.
var (
	DAI     = NewAssetWithName(NewTokenAssetID(ChainIDEthereum, AddrDAIEthereum), "DAI", "Dai Stablecoin", 18)
	SHIB    = NewAssetWithName(NewTokenAssetID(ChainIDEthereum, AddrSHIBEthereum), "SHIB", "Shiba Inu", 18)
	WETH    = NewAssetWithName(NewTokenAssetID(ChainIDEthereum, AddrWETHEthereum), "WETH", "Wrapped Ether", 18)
	LUSD    = NewAssetWithName(NewTokenAssetID(ChainIDEthereum, AddrLUSDEthereum), "LUSD", "LUSD Stablecoin", 18)
	DOG     = NewAssetWithName(NewTokenAssetID(ChainIDEthereum, Addr3DOGEthereum), "3DOG", "Cerberus", 9)
	DOGWETH = NewAssetWithName(NewTokenAssetID(ChainIDEthereum, AddrDOGWETHEthereum), "3DOG-WETH", "3DOG-wETH LP", 18)

	DAIRinkeby     = NewAssetWithName(NewTokenAssetID(ChainIDRinkeby, AddrDAIRinkeby), "DAI", "Dai Stablecoin", 18)
	WETHRinkeby    = NewAssetWithName(NewTokenAssetID(ChainIDRinkeby, AddrWETHRinkeby), "WETH", "Wrapped Ether", 18)
	LUSDRinkeby    = NewAssetWithName(NewTokenAssetID(ChainIDRinkeby, AddrLUSDRinkeby), "LUSD", "LUSD Stablecoin", 18)
	DOGWETHRinkeby = NewAssetWithName(NewTokenAssetID(ChainIDRinkeby, AddrDOGWETHRinkeby), "3DOG-WETH", "3DOG-wETH LP", 18)

	USD = NewAssetWithName(NewFiatAssetID("USD"), "USD", "US Dollar", 2)
)

// DefaultRegistry returns a registry pre-populated with the well-known assets.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, a := range []*Asset{
		DAI, SHIB, WETH, LUSD, DOG, DOGWETH,
		DAIRinkeby, WETHRinkeby, LUSDRinkeby, DOGWETHRinkeby,
		USD,
	} {
		r.Register(a)
	}
	return r
}
