package dex

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
)

// decimals() selector
const decimalsSelector = "0x313ce567"

// FallbackDecimals is used when neither the token list nor the chain
// can tell us a token's decimals.
const FallbackDecimals = 18

// RPCDecimals reads decimals() over JSON-RPC, one lazily dialed client per chain.
// Every call is bounded by timeout, whatever the caller's ctx carries.
type RPCDecimals struct {
	timeout time.Duration

	mu      sync.Mutex
	clients map[string]*rpc.Client
}

func NewRPCDecimals(timeout time.Duration) *RPCDecimals {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RPCDecimals{timeout: timeout, clients: make(map[string]*rpc.Client)}
}

func (r *RPCDecimals) Decimals(ctx context.Context, chain Chain, token string) (int, error) {
	if !common.IsHexAddress(token) {
		return 0, fmt.Errorf("invalid token address %q", token)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	client, err := r.client(ctx, chain)
	if err != nil {
		return 0, err
	}

	var result string
	call := map[string]string{"to": common.HexToAddress(token).Hex(), "data": decimalsSelector}
	if err := client.CallContext(ctx, &result, "eth_call", call, "latest"); err != nil {
		return 0, fmt.Errorf("eth_call decimals %s on %s: %w", token, chain.Name, err)
	}
	return parseDecimals(result)
}

func parseDecimals(res string) (int, error) {
	res = strings.TrimSpace(res)
	if !strings.HasPrefix(res, "0x") || len(res) <= 2 {
		return 0, fmt.Errorf("unexpected decimals result %q", res)
	}
	n := new(big.Int).SetBytes(common.FromHex(res))
	if !n.IsInt64() || n.Int64() > 255 {
		return 0, fmt.Errorf("decimals out of range: %s", n)
	}
	return int(n.Int64()), nil
}

func (r *RPCDecimals) client(ctx context.Context, chain Chain) (*rpc.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[chain.Name]; ok {
		return c, nil
	}
	if chain.RPCURL == "" {
		return nil, fmt.Errorf("no rpc url for chain %s", chain.Name)
	}
	c, err := rpc.DialOptions(ctx, chain.RPCURL, rpc.WithHTTPClient(&http.Client{Timeout: r.timeout}))
	if err != nil {
		return nil, fmt.Errorf("dial rpc %s: %w", chain.Name, err)
	}
	r.clients[chain.Name] = c
	return c, nil
}

func (r *RPCDecimals) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, c := range r.clients {
		c.Close()
		delete(r.clients, name)
	}
}
