package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// receiptPollInterval is how often WaitMined re-checks for a receipt.
const receiptPollInterval = 2 * time.Second

// Client wraps the go-ethereum RPC client with the node surface the
// engine needs.
type Client struct {
	rpc     *ethclient.Client
	chainID *big.Int
}

// Dial connects to an Ethereum JSON-RPC endpoint. When wantChainID is
// nonzero the node's chain ID must match it.
func Dial(ctx context.Context, rawURL string, wantChainID int64) (*Client, error) {
	rpc, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("ethereum: dial %s: %w", rawURL, err)
	}

	chainID, err := rpc.ChainID(ctx)
	if err != nil {
		rpc.Close()
		return nil, fmt.Errorf("ethereum: chain id: %w", err)
	}

	if wantChainID != 0 && chainID.Int64() != wantChainID {
		rpc.Close()
		return nil, fmt.Errorf("ethereum: chain id mismatch: node reports %s, config wants %d", chainID, wantChainID)
	}

	return &Client{rpc: rpc, chainID: chainID}, nil
}

// Close closes the underlying RPC connection.
func (c *Client) Close() {
	c.rpc.Close()
}

// ChainID returns the connected chain's ID.
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Backend returns the raw client for binding contracts.
func (c *Client) Backend() *ethclient.Client {
	return c.rpc
}

// GasPrice returns the node's suggested gas price in wei.
func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	price, err := c.rpc.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("ethereum: suggest gas price: %w", err)
	}
	return price, nil
}

// BalanceAt returns the native balance of an account at the latest block.
func (c *Client) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	bal, err := c.rpc.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("ethereum: balance of %s: %w", account.Hex(), err)
	}
	return bal, nil
}

// WaitMined polls for the receipt of txHash until the context is done.
// Lookup errors keep the poll going: an unmined transaction reports "not
// found" until it lands.
func (c *Client) WaitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.rpc.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("ethereum: wait mined %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
