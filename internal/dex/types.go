package dex

import (
	"context"
	"math/big"
)

// Chain identifies one EVM network the scanner quotes on.
type Chain struct {
	Name     string
	ID       int64
	RPCURL   string
	ZeroXURL string
}

// Token is a token-list entry. Decimals is 0 when the list omits it.
type Token struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// TokenLister enumerates the tradable tokens on a chain, keyed by address.
type TokenLister interface {
	ListTokens(ctx context.Context, chain Chain) (map[string]Token, error)
}

// Quoter converts amount base units of from into base units of to.
type Quoter interface {
	Name() string
	Quote(ctx context.Context, chain Chain, from, to Token, amount *big.Int) (*big.Int, error)
}

// DecimalsReader reads ERC-20 decimals() for a token address.
type DecimalsReader interface {
	Decimals(ctx context.Context, chain Chain, token string) (int, error)
}
