package contracts

// Subsets of the staking and reward system contract ABIs covering the
// read-only calls made by the updater and the api.
const (
	stakingABI = `[
	{
		"type": "function",
		"name": "validators",
		"stateMutability": "view",
		"inputs": [{"name": "", "type": "address"}],
		"outputs": [
			{"name": "publicKey", "type": "bytes"},
			{"name": "ty", "type": "uint8"},
			{"name": "rate", "type": "uint256"},
			{"name": "staker", "type": "address"},
			{"name": "power", "type": "uint256"},
			{"name": "totalUnboundAmount", "type": "uint256"},
			{"name": "punishRate", "type": "uint256"},
			{"name": "beginBlock", "type": "uint256"}
		]
	},
	{
		"type": "function",
		"name": "validatorStatus",
		"stateMutability": "view",
		"inputs": [{"name": "", "type": "address"}],
		"outputs": [
			{"name": "heapIndexOff1", "type": "uint256"},
			{"name": "isActive", "type": "bool"},
			{"name": "jailed", "type": "bool"},
			{"name": "unjailDatetime", "type": "uint64"},
			{"name": "shouldVote", "type": "uint16"},
			{"name": "voted", "type": "uint16"}
		]
	},
	{
		"type": "function",
		"name": "delegators",
		"stateMutability": "view",
		"inputs": [
			{"name": "", "type": "address"},
			{"name": "", "type": "address"}
		],
		"outputs": [
			{"name": "boundAmount", "type": "uint256"},
			{"name": "unboundAmount", "type": "uint256"}
		]
	}
]`

	rewardABI = `[
	{
		"type": "function",
		"name": "rewards",
		"stateMutability": "view",
		"inputs": [{"name": "", "type": "address"}],
		"outputs": [{"name": "", "type": "uint256"}]
	},
	{
		"type": "function",
		"name": "rewardDebt",
		"stateMutability": "view",
		"inputs": [
			{"name": "", "type": "address"},
			{"name": "", "type": "address"}
		],
		"outputs": [{"name": "", "type": "uint256"}]
	}
]`
)
