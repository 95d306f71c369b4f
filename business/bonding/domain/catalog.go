package domain

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/bond-desk/internal/asset"
)

// Bond names.
const (
	DAI      Symbol = "dai"
	SHIB     Symbol = "shib"
	ETH      Symbol = "eth"
	LUSD     Symbol = "lusd"
	DogEthLP Symbol = "dog_eth_lp"
)

var (
	daiBond = NewStableBond(BondParams{
		Name:        DAI,
		DisplayName: "DAI",
		Reserve:     asset.DAI,
		IsAvailable: map[NetworkID]bool{Mainnet: true, Testnet: true},
		Addresses: map[NetworkID]Addresses{
			Mainnet: {
				Bond:    common.HexToAddress("0x575409F8d77c12B05feD8B455815f0e54797381c"),
				Reserve: asset.AddrDAIEthereum,
			},
			Testnet: {
				Bond:    common.HexToAddress("0x57680ADD6cEBE4746CBe241180e5a585D06B7530"),
				Reserve: asset.AddrDAIRinkeby,
			},
		},
	})

	shibBond = NewCustomBond(BondParams{
		Name:        SHIB,
		DisplayName: "SHIB",
		Reserve:     asset.SHIB,
		IsAvailable: map[NetworkID]bool{Mainnet: true, Testnet: true},
		Addresses: map[NetworkID]Addresses{
			Mainnet: {
				Bond:    common.HexToAddress("0x5F50d0f427228F48665fB790685c450328995C0D"),
				Reserve: asset.AddrSHIBEthereum,
			},
			Testnet: {
				Bond:    common.HexToAddress("0xca7b90f8158A4FAA606952c023596EE6d322bcf0"),
				Reserve: asset.AddrWETHRinkeby,
			},
		},
	}, PriceInUSDTimesSpot, "SHIB", SpotPriceTreasury{Symbol: "SHIB"})

	ethBond = NewCustomBond(BondParams{
		Name:        ETH,
		DisplayName: "wETH",
		Reserve:     asset.WETH,
		IsAvailable: map[NetworkID]bool{Mainnet: true, Testnet: true},
		Addresses: map[NetworkID]Addresses{
			Mainnet: {
				Bond:    common.HexToAddress("0xE6295201CD1ff13CeD5f063a5421c39A1D236F1c"),
				Reserve: asset.AddrWETHEthereum,
			},
			Testnet: {
				Bond:    common.HexToAddress("0xca7b90f8158A4FAA606952c023596EE6d322bcf0"),
				Reserve: asset.AddrWETHRinkeby,
			},
		},
	}, PriceInUSD, "", AssetPriceTreasury{})

	lusdBond = NewStableBond(BondParams{
		Name:        LUSD,
		DisplayName: "LUSD",
		Reserve:     asset.LUSD,
		IsAvailable: map[NetworkID]bool{Mainnet: false, Testnet: true},
		Addresses: map[NetworkID]Addresses{
			Mainnet: {
				Bond:    common.HexToAddress("0x10C0f93f64e3C8D0a1b0f4B87d6155fd9e89D08D"),
				Reserve: asset.AddrLUSDEthereum,
			},
			Testnet: {
				Bond:    common.HexToAddress("0x3aD02C4E4D1234590E87A1f9a73B8E0fd8CF8CCa"),
				Reserve: asset.AddrLUSDRinkeby,
			},
		},
	})

	dogEthLPBond = NewLPBond(BondParams{
		Name:        DogEthLP,
		DisplayName: "3DOG-wETH LP",
		Reserve:     asset.DOGWETH,
		IsAvailable: map[NetworkID]bool{Mainnet: true, Testnet: true},
		Addresses: map[NetworkID]Addresses{
			Mainnet: {
				Bond:    common.HexToAddress("0xd2E0BD64B3e6fbc4d09f9a11e5852bf9A46A6731"),
				Reserve: asset.AddrDOGWETHEthereum,
			},
			Testnet: {
				Bond:    common.HexToAddress("0x39B8E79de8201C46cCBad64767B7208d9C41A9dB"),
				Reserve: asset.AddrDOGWETHRinkeby,
			},
		},
	}, [2]PoolAsset{
		{Symbol: asset.DOG.Symbol(), Decimals: int32(asset.DOG.Decimals())},
		{Symbol: asset.WETH.Symbol(), Decimals: int32(asset.WETH.Decimals())},
	}, LPTreasury{PoolNetwork: Mainnet})
)

var catalog = map[Symbol]*Bond{
	DAI:      daiBond,
	SHIB:     shibBond,
	ETH:      ethBond,
	LUSD:     lusdBond,
	DogEthLP: dogEthLPBond,
}

// AllBonds returns every defined bond ordered by name.
func AllBonds() []*Bond {
	out := make([]*Bond, 0, len(catalog))
	for _, b := range catalog {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the bond with the given name.
func Lookup(name Symbol) (*Bond, bool) {
	b, ok := catalog[name]
	return b, ok
}

// Available returns the bonds that can be used on network n.
func Available(n NetworkID) []*Bond {
	var out []*Bond
	for _, b := range AllBonds() {
		if b.AvailableOn(n) {
			out = append(out, b)
		}
	}
	return out
}
