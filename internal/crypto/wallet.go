package crypto

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Wallet holds the secp256k1 key that signs settlement transactions. It is
// bound to a single chain ID at construction so a key configured for mainnet
// can never sign for a testnet by accident.
type Wallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
}

// NewWallet derives a Wallet from a hex-encoded private key (with or without
// 0x prefix) for the given chain.
func NewWallet(privateKeyHex string, chainID int64) (*Wallet, error) {
	if chainID <= 0 {
		return nil, fmt.Errorf("crypto: invalid chain id %d", chainID)
	}

	pk, err := ethcrypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid private key: %w", err)
	}

	return &Wallet{
		key:     pk,
		address: ethcrypto.PubkeyToAddress(pk.PublicKey),
		chainID: big.NewInt(chainID),
	}, nil
}

// Address returns the address derived from the wallet's private key.
func (w *Wallet) Address() common.Address {
	return w.address
}

// ChainID returns a copy of the chain ID the wallet signs for.
func (w *Wallet) ChainID() *big.Int {
	return new(big.Int).Set(w.chainID)
}

// TransactOpts returns signing options bound to ctx. Nonce, gas price, and
// gas limit are left unset so the bound contract fills them from the backend
// unless the caller overrides them.
func (w *Wallet) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(w.key, w.chainID)
	if err != nil {
		return nil, fmt.Errorf("crypto: building transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}
