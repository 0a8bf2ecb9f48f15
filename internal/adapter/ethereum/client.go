package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/bunnyexe1/AUTHENTIX/internal/app/config"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ChainBackend is the subset of the Ethereum RPC surface the marketplace
// adapter needs. *ethclient.Client satisfies it.
type ChainBackend interface {
	bind.ContractBackend
	bind.DeployBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// NewClient dials the configured RPC endpoint and verifies it serves the
// expected chain, so a misconfigured endpoint fails at startup rather than
// on the first settlement.
func NewClient(ctx context.Context, cfg config.EthereumConfig) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ethereum rpc %s: %w", cfg.RPCURL, err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to query chain id: %w", err)
	}
	if chainID.Int64() != cfg.ChainID {
		client.Close()
		return nil, fmt.Errorf("rpc endpoint serves chain %s, expected %d", chainID, cfg.ChainID)
	}

	return client, nil
}

// KeystoreSigner signs marketplace transactions with keys held in a local
// encrypted keystore, one account per wallet address the service acts for.
type KeystoreSigner struct {
	ks         *keystore.KeyStore
	chainID    *big.Int
	passphrase string
}

func NewKeystoreSigner(cfg config.EthereumConfig) *KeystoreSigner {
	return &KeystoreSigner{
		ks:         keystore.NewKeyStore(cfg.KeystoreDir, keystore.StandardScryptN, keystore.StandardScryptP),
		chainID:    big.NewInt(cfg.ChainID),
		passphrase: cfg.Passphrase,
	}
}

// TransactorFor returns transact options that sign as the given address.
func (s *KeystoreSigner) TransactorFor(addr common.Address) (*bind.TransactOpts, error) {
	if !s.ks.HasAddress(addr) {
		return nil, fmt.Errorf("no key for address %s in keystore", addr.Hex())
	}

	account := accounts.Account{Address: addr}
	if err := s.ks.Unlock(account, s.passphrase); err != nil {
		return nil, fmt.Errorf("failed to unlock account %s: %w", addr.Hex(), err)
	}

	opts, err := bind.NewKeyStoreTransactorWithChainID(s.ks, account, s.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to build transactor for %s: %w", addr.Hex(), err)
	}
	return opts, nil
}
