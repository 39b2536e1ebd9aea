package arenakit

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const erc20ABIJSON = `[
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

const erc1155ABIJSON = `[
	{"constant":true,"inputs":[{"name":"account","type":"address"},{"name":"operator","type":"address"}],"name":"isApprovedForAll","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"operator","type":"address"},{"name":"approved","type":"bool"}],"name":"setApprovalForAll","outputs":[],"type":"function"}
]`

const battleABIJSON = `[
	{"constant":true,"inputs":[],"name":"tokenA","outputs":[{"name":"","type":"address"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"tokenB","outputs":[{"name":"","type":"address"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"totalStakedA","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"totalStakedB","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"startTime","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"duration","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"resolved","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"winner","outputs":[{"name":"","type":"uint8"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"side","type":"uint8"},{"name":"amount","type":"uint256"}],"name":"stake","outputs":[],"type":"function"},
	{"constant":false,"inputs":[],"name":"claim","outputs":[],"type":"function"}
]`

const registryABIJSON = `[
	{"constant":true,"inputs":[],"name":"getBattles","outputs":[{"name":"","type":"address[]"}],"type":"function"}
]`

var (
	erc20ABIOnce sync.Once
	erc20ABIVal  abi.ABI

	erc1155ABIOnce sync.Once
	erc1155ABIVal  abi.ABI

	battleABIOnce sync.Once
	battleABIVal  abi.ABI

	registryABIOnce sync.Once
	registryABIVal  abi.ABI
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

func erc20ABI() abi.ABI {
	erc20ABIOnce.Do(func() {
		erc20ABIVal = mustParseABI(erc20ABIJSON)
	})
	return erc20ABIVal
}

func erc1155ABI() abi.ABI {
	erc1155ABIOnce.Do(func() {
		erc1155ABIVal = mustParseABI(erc1155ABIJSON)
	})
	return erc1155ABIVal
}

// BattleABI returns the battle contract ABI, parsed once.
func BattleABI() abi.ABI {
	battleABIOnce.Do(func() {
		battleABIVal = mustParseABI(battleABIJSON)
	})
	return battleABIVal
}

// RegistryABI returns the battle registry ABI, parsed once.
func RegistryABI() abi.ABI {
	registryABIOnce.Do(func() {
		registryABIVal = mustParseABI(registryABIJSON)
	})
	return registryABIVal
}
