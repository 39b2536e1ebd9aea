package arenakit

import (
	"context"
	"math/big"

	"github.com/KyberNetwork/logger"
	"github.com/ethereum/go-ethereum/common"
)

// fallbackTokens is the fixed dataset substituted when the real token
// metadata source is unavailable. Balances are zero; display only.
var fallbackTokens = []Token{
	{
		Address:  common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
		Symbol:   "WETH",
		Name:     "Wrapped Ether",
		Decimals: 18,
	},
	{
		Address:  common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
		Symbol:   "USDC",
		Name:     "USD Coin",
		Decimals: 6,
	},
	{
		Address:  common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"),
		Symbol:   "DAI",
		Name:     "Dai Stablecoin",
		Decimals: 18,
	},
	{
		Address:  common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"),
		Symbol:   "WBTC",
		Name:     "Wrapped BTC",
		Decimals: 8,
	},
}

// FallbackTokens returns a copy of the fixed fallback dataset.
func FallbackTokens() []Token {
	out := make([]Token, len(fallbackTokens))
	copy(out, fallbackTokens)
	for i := range out {
		out[i].Balance = big.NewInt(0)
	}
	return out
}

// chainTokenSource reads balances of a configured token list directly from
// the chain.
type chainTokenSource struct {
	reader ChainReader
	tokens []Token
}

// NewChainTokenSource creates a TokenSource that checks the owner's balance
// of each configured token. Token metadata (symbol, name, decimals) comes
// from the configuration; only balances are read on-chain.
func NewChainTokenSource(reader ChainReader, tokens []Token) TokenSource {
	list := make([]Token, len(tokens))
	copy(list, tokens)
	return &chainTokenSource{reader: reader, tokens: list}
}

var _ TokenSource = (*chainTokenSource)(nil)

func (s *chainTokenSource) TokensOwnedBy(ctx context.Context, owner common.Address) ([]Token, error) {
	out := make([]Token, 0, len(s.tokens))
	for _, token := range s.tokens {
		data, err := erc20ABI().Pack("balanceOf", owner)
		if err != nil {
			return nil, err
		}
		raw, err := s.reader.CallContract(ctx, token.Address, data)
		if err != nil {
			logger.WithFields(logger.Fields{
				"token": token.Address.Hex(),
				"owner": owner.Hex(),
				"error": err,
			}).Warn("Skipping token with unreadable balance")
			continue
		}
		results, err := erc20ABI().Unpack("balanceOf", raw)
		if err != nil || len(results) != 1 {
			continue
		}
		balance, ok := results[0].(*big.Int)
		if !ok || balance.Sign() == 0 {
			continue
		}
		token.Balance = balance
		out = append(out, token)
	}
	return out, nil
}

// fallbackTokenSource wraps a primary source and substitutes the fixed
// dataset when the primary is unavailable.
type fallbackTokenSource struct {
	primary TokenSource
}

// NewFallbackTokenSource wraps a token source so that unavailability yields
// the fixed fallback dataset instead of an error. A nil primary always
// yields the fallback.
func NewFallbackTokenSource(primary TokenSource) TokenSource {
	return &fallbackTokenSource{primary: primary}
}

var _ TokenSource = (*fallbackTokenSource)(nil)

func (s *fallbackTokenSource) TokensOwnedBy(ctx context.Context, owner common.Address) ([]Token, error) {
	if s.primary == nil {
		return FallbackTokens(), nil
	}
	tokens, err := s.primary.TokensOwnedBy(ctx, owner)
	if err != nil {
		logger.WithFields(logger.Fields{
			"owner": owner.Hex(),
			"error": err,
		}).Warn("Token source unavailable. Substituting fallback dataset")
		return FallbackTokens(), nil
	}
	return tokens, nil
}
