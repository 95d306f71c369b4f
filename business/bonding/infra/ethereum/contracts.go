package ethereum

// BondDepositoryABI covers the bond depository reads and writes used for
// quoting, depositing and redeeming.
const BondDepositoryABI = `[
	{
		"inputs": [],
		"name": "terms",
		"outputs": [
			{"internalType": "uint256", "name": "controlVariable", "type": "uint256"},
			{"internalType": "uint256", "name": "vestingTerm", "type": "uint256"},
			{"internalType": "uint256", "name": "minimumPrice", "type": "uint256"},
			{"internalType": "uint256", "name": "maxPayout", "type": "uint256"},
			{"internalType": "uint256", "name": "fee", "type": "uint256"},
			{"internalType": "uint256", "name": "maxDebt", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "maxPayout",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "debtRatio",
		"outputs": [{"internalType": "uint256", "name": "debtRatio_", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "standardizedDebtRatio",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "bondPrice",
		"outputs": [{"internalType": "uint256", "name": "price_", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "bondPriceInUSD",
		"outputs": [{"internalType": "uint256", "name": "price_", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "uint256", "name": "_value", "type": "uint256"}],
		"name": "payoutFor",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "assetPrice",
		"outputs": [{"internalType": "int256", "name": "", "type": "int256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "uint256", "name": "_amount", "type": "uint256"},
			{"internalType": "uint256", "name": "_maxPrice", "type": "uint256"},
			{"internalType": "address", "name": "_depositor", "type": "address"}
		],
		"name": "deposit",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "_recipient", "type": "address"},
			{"internalType": "bool", "name": "_stake", "type": "bool"}
		],
		"name": "redeem",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// PairABI is ERC20 plus the Uniswap V2 pair reserves accessor. Plain
// reserve tokens never receive a getReserves call.
const PairABI = `[
	{
		"inputs": [{"internalType": "address", "name": "account", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "totalSupply",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "owner", "type": "address"},
			{"internalType": "address", "name": "spender", "type": "address"}
		],
		"name": "allowance",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "spender", "type": "address"},
			{"internalType": "uint256", "name": "amount", "type": "uint256"}
		],
		"name": "approve",
		"outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "getReserves",
		"outputs": [
			{"internalType": "uint112", "name": "_reserve0", "type": "uint112"},
			{"internalType": "uint112", "name": "_reserve1", "type": "uint112"},
			{"internalType": "uint32", "name": "_blockTimestampLast", "type": "uint32"}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

// BondCalculatorABI values LP tokens.
const BondCalculatorABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "_pair", "type": "address"},
			{"internalType": "uint256", "name": "amount_", "type": "uint256"}
		],
		"name": "valuation",
		"outputs": [{"internalType": "uint256", "name": "_value", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "address", "name": "_pair", "type": "address"}],
		"name": "markdown",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// RedeemHelperABI batches redemption across all bonds.
const RedeemHelperABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "_recipient", "type": "address"},
			{"internalType": "bool", "name": "_stake", "type": "bool"}
		],
		"name": "redeemAll",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`
