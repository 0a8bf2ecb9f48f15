package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/bunnyexe1/AUTHENTIX/internal/app/config"
	"github.com/bunnyexe1/AUTHENTIX/internal/ledger"
	"github.com/bunnyexe1/AUTHENTIX/internal/platform/logger"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// marketplaceABI mirrors the deployed NFTMarketplace contract.
const marketplaceABI = `[
	{"type":"function","name":"listNFT","stateMutability":"nonpayable","inputs":[{"name":"nftContract","type":"address"},{"name":"tokenId","type":"uint256"},{"name":"price","type":"uint256"},{"name":"imageURL","type":"string"}],"outputs":[]},
	{"type":"function","name":"createAndListNFT","stateMutability":"nonpayable","inputs":[{"name":"price","type":"uint256"},{"name":"imageURL","type":"string"}],"outputs":[]},
	{"type":"function","name":"buyNFT","stateMutability":"payable","inputs":[{"name":"listingId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"relistNFT","stateMutability":"nonpayable","inputs":[{"name":"listingId","type":"uint256"},{"name":"newPrice","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"redeemNFT","stateMutability":"nonpayable","inputs":[{"name":"listingId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"listingCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"listings","stateMutability":"view","inputs":[{"name":"","type":"uint256"}],"outputs":[{"name":"seller","type":"address"},{"name":"nftContract","type":"address"},{"name":"tokenId","type":"uint256"},{"name":"price","type":"uint256"},{"name":"imageURL","type":"string"},{"name":"sold","type":"bool"},{"name":"buyer","type":"address"},{"name":"redeemed","type":"bool"}]},
	{"type":"function","name":"getRelistedListings","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256[]"}]},
	{"type":"event","name":"NFTListed","inputs":[{"name":"listingId","type":"uint256","indexed":true},{"name":"seller","type":"address","indexed":true},{"name":"nftContract","type":"address","indexed":false},{"name":"tokenId","type":"uint256","indexed":false},{"name":"price","type":"uint256","indexed":false},{"name":"imageURL","type":"string","indexed":false}]},
	{"type":"event","name":"NFTPurchased","inputs":[{"name":"listingId","type":"uint256","indexed":true},{"name":"buyer","type":"address","indexed":true},{"name":"tokenId","type":"uint256","indexed":false},{"name":"price","type":"uint256","indexed":false}]},
	{"type":"event","name":"NFTRedeemed","inputs":[{"name":"listingId","type":"uint256","indexed":true},{"name":"redeemer","type":"address","indexed":true}]}
]`

const confirmPollInterval = 2 * time.Second

// Marketplace implements ledger.Ledger against the on-chain marketplace
// contract. State-changing calls return after the transaction is mined
// with a successful receipt and the configured confirmation depth.
type Marketplace struct {
	backend        ChainBackend
	signers        *KeystoreSigner
	address        common.Address
	abi            abi.ABI
	bound          *bind.BoundContract
	confirmations  uint64
	confirmTimeout time.Duration
	log            logger.Logger
}

func NewMarketplace(backend ChainBackend, signers *KeystoreSigner, cfg config.EthereumConfig, log logger.Logger) (*Marketplace, error) {
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid marketplace contract address %q", cfg.ContractAddress)
	}

	parsed, err := abi.JSON(strings.NewReader(marketplaceABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse marketplace ABI: %w", err)
	}

	address := common.HexToAddress(cfg.ContractAddress)
	return &Marketplace{
		backend:        backend,
		signers:        signers,
		address:        address,
		abi:            parsed,
		bound:          bind.NewBoundContract(address, parsed, backend, backend, backend),
		confirmations:  cfg.Confirmations,
		confirmTimeout: cfg.ConfirmTimeout,
		log:            log,
	}, nil
}

type nftListedEvent struct {
	ListingId   *big.Int
	Seller      common.Address
	NftContract common.Address
	TokenId     *big.Int
	Price       *big.Int
	ImageURL    string
}

type nftPurchasedEvent struct {
	ListingId *big.Int
	Buyer     common.Address
	TokenId   *big.Int
	Price     *big.Int
}

func (m *Marketplace) List(ctx context.Context, seller common.Address, asset ledger.AssetRef, price *big.Int, imageURI string) (uint64, error) {
	return m.submitListing(ctx, seller, "listNFT", asset.Contract, new(big.Int).SetUint64(asset.TokenID), price, imageURI)
}

func (m *Marketplace) CreateAndList(ctx context.Context, seller common.Address, price *big.Int, imageURI string) (uint64, error) {
	return m.submitListing(ctx, seller, "createAndListNFT", price, imageURI)
}

func (m *Marketplace) submitListing(ctx context.Context, seller common.Address, method string, args ...interface{}) (uint64, error) {
	opts, err := m.signers.TransactorFor(seller)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ledger.ErrNotOwner, err)
	}
	opts.Context = ctx

	tx, err := m.bound.Transact(opts, method, args...)
	if err != nil {
		return 0, m.mapSubmitError(err)
	}

	receipt, err := m.waitConfirmed(ctx, tx)
	if err != nil {
		return 0, err
	}

	var ev nftListedEvent
	if err := m.unpackFromReceipt(&ev, "NFTListed", receipt); err != nil {
		return 0, fmt.Errorf("transaction %s confirmed but NFTListed event missing: %w", tx.Hash(), err)
	}

	m.log.Infof("Listing %d confirmed on ledger in tx %s", ev.ListingId.Uint64(), tx.Hash())
	return ev.ListingId.Uint64(), nil
}

func (m *Marketplace) Buy(ctx context.Context, buyer common.Address, listingID uint64, payment *big.Int) (*ledger.PurchaseEvent, error) {
	opts, err := m.signers.TransactorFor(buyer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrNotOwner, err)
	}
	opts.Context = ctx
	opts.Value = payment

	tx, err := m.bound.Transact(opts, "buyNFT", new(big.Int).SetUint64(listingID))
	if err != nil {
		return nil, m.mapSubmitError(err)
	}

	receipt, err := m.waitConfirmed(ctx, tx)
	if err != nil {
		return nil, err
	}

	var ev nftPurchasedEvent
	if err := m.unpackFromReceipt(&ev, "NFTPurchased", receipt); err != nil {
		return nil, fmt.Errorf("transaction %s confirmed but NFTPurchased event missing: %w", tx.Hash(), err)
	}

	ts, err := m.blockTime(ctx, receipt.BlockNumber)
	if err != nil {
		return nil, err
	}

	m.log.Infof("Purchase of listing %d by %s confirmed in tx %s", listingID, buyer.Hex(), tx.Hash())
	return &ledger.PurchaseEvent{
		ListingID: ev.ListingId.Uint64(),
		Buyer:     ev.Buyer,
		TokenID:   ev.TokenId.Uint64(),
		Price:     ev.Price,
		TxHash:    tx.Hash(),
		Timestamp: ts,
	}, nil
}

func (m *Marketplace) Relist(ctx context.Context, owner common.Address, listingID uint64, newPrice *big.Int) error {
	return m.submitSimple(ctx, owner, "relistNFT", new(big.Int).SetUint64(listingID), newPrice)
}

func (m *Marketplace) Redeem(ctx context.Context, caller common.Address, listingID uint64) error {
	return m.submitSimple(ctx, caller, "redeemNFT", new(big.Int).SetUint64(listingID))
}

func (m *Marketplace) submitSimple(ctx context.Context, caller common.Address, method string, args ...interface{}) error {
	opts, err := m.signers.TransactorFor(caller)
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrNotOwner, err)
	}
	opts.Context = ctx

	tx, err := m.bound.Transact(opts, method, args...)
	if err != nil {
		return m.mapSubmitError(err)
	}

	if _, err := m.waitConfirmed(ctx, tx); err != nil {
		return err
	}
	m.log.Infof("%s confirmed in tx %s", method, tx.Hash())
	return nil
}

func (m *Marketplace) GetListing(ctx context.Context, listingID uint64) (*ledger.Listing, error) {
	var out []interface{}
	err := m.bound.Call(&bind.CallOpts{Context: ctx}, &out, "listings", new(big.Int).SetUint64(listingID))
	if err != nil {
		return nil, fmt.Errorf("%w: reading listing %d: %v", ledger.ErrUnavailable, listingID, err)
	}

	seller := out[0].(common.Address)
	if seller == (common.Address{}) {
		return nil, ledger.ErrNotFound
	}

	return &ledger.Listing{
		ID:     listingID,
		Seller: seller,
		Asset: ledger.AssetRef{
			Contract: out[1].(common.Address),
			TokenID:  out[2].(*big.Int).Uint64(),
		},
		Price:    out[3].(*big.Int),
		ImageURI: out[4].(string),
		Sold:     out[5].(bool),
		Buyer:    out[6].(common.Address),
		Redeemed: out[7].(bool),
	}, nil
}

func (m *Marketplace) PurchasesByBuyer(ctx context.Context, buyer common.Address) ([]ledger.PurchaseEvent, error) {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{m.address},
		Topics: [][]common.Hash{
			{m.abi.Events["NFTPurchased"].ID},
			nil,
			{common.BytesToHash(common.LeftPadBytes(buyer.Bytes(), 32))},
		},
	}

	logs, err := m.backend.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: filtering purchases for %s: %v", ledger.ErrUnavailable, buyer.Hex(), err)
	}

	blockTimes := make(map[uint64]time.Time)
	events := make([]ledger.PurchaseEvent, 0, len(logs))
	for _, lg := range logs {
		var ev nftPurchasedEvent
		if err := m.bound.UnpackLog(&ev, "NFTPurchased", lg); err != nil {
			m.log.Warnf("Skipping undecodable NFTPurchased log in tx %s: %v", lg.TxHash, err)
			continue
		}

		ts, ok := blockTimes[lg.BlockNumber]
		if !ok {
			ts, err = m.blockTime(ctx, new(big.Int).SetUint64(lg.BlockNumber))
			if err != nil {
				return nil, err
			}
			blockTimes[lg.BlockNumber] = ts
		}

		events = append(events, ledger.PurchaseEvent{
			ListingID: ev.ListingId.Uint64(),
			Buyer:     ev.Buyer,
			TokenID:   ev.TokenId.Uint64(),
			Price:     ev.Price,
			TxHash:    lg.TxHash,
			Timestamp: ts,
		})
	}
	return events, nil
}

func (m *Marketplace) RelistedListings(ctx context.Context) ([]ledger.Listing, error) {
	var out []interface{}
	err := m.bound.Call(&bind.CallOpts{Context: ctx}, &out, "getRelistedListings")
	if err != nil {
		return nil, fmt.Errorf("%w: reading relisted listings: %v", ledger.ErrUnavailable, err)
	}

	ids := out[0].([]*big.Int)
	listings := make([]ledger.Listing, 0, len(ids))
	for _, id := range ids {
		l, err := m.GetListing(ctx, id.Uint64())
		if err != nil {
			return nil, err
		}
		listings = append(listings, *l)
	}
	return listings, nil
}

func (m *Marketplace) unpackFromReceipt(out interface{}, event string, receipt *types.Receipt) error {
	eventID := m.abi.Events[event].ID
	for _, lg := range receipt.Logs {
		if lg == nil || lg.Address != m.address || len(lg.Topics) == 0 || lg.Topics[0] != eventID {
			continue
		}
		return m.bound.UnpackLog(out, event, *lg)
	}
	return fmt.Errorf("no %s log emitted", event)
}

// waitConfirmed blocks until the transaction is mined with a successful
// receipt and buried under the configured confirmation depth. A timeout is
// reported as ErrUnavailable: the transaction may still confirm later.
func (m *Marketplace) waitConfirmed(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, m.confirmTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, m.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("%w: waiting for tx %s: %v", ledger.ErrUnavailable, tx.Hash(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction %s reverted on chain", tx.Hash())
	}

	for m.confirmations > 1 {
		head, err := m.backend.HeaderByNumber(waitCtx, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: fetching head: %v", ledger.ErrUnavailable, err)
		}
		depth := new(big.Int).Sub(head.Number, receipt.BlockNumber)
		depth.Add(depth, big.NewInt(1))
		if depth.Cmp(new(big.Int).SetUint64(m.confirmations)) >= 0 {
			break
		}

		select {
		case <-waitCtx.Done():
			return nil, fmt.Errorf("%w: tx %s mined but not confirmed to depth %d", ledger.ErrUnavailable, tx.Hash(), m.confirmations)
		case <-time.After(confirmPollInterval):
		}
	}

	return receipt, nil
}

func (m *Marketplace) blockTime(ctx context.Context, number *big.Int) (time.Time, error) {
	header, err := m.backend.HeaderByNumber(ctx, number)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: fetching block %s header: %v", ledger.ErrUnavailable, number, err)
	}
	return time.Unix(int64(header.Time), 0).UTC(), nil
}

// mapSubmitError translates the contract's revert reasons, surfaced during
// gas estimation, into ledger errors. Anything that is not a recognizable
// revert is a transport failure and therefore ErrUnavailable.
func (m *Marketplace) mapSubmitError(err error) error {
	msg := err.Error()
	switch {
	case containsAny(msg, "You are not the owner", "Only the owner can relist", "Only the buyer can redeem"):
		return fmt.Errorf("%w: %v", ledger.ErrNotOwner, err)
	case containsAny(msg, "Incorrect price sent"):
		return fmt.Errorf("%w: %v", ledger.ErrWrongAmount, err)
	case containsAny(msg, "Already sold"):
		return fmt.Errorf("%w: %v", ledger.ErrAlreadySold, err)
	case containsAny(msg, "Already redeemed"):
		return fmt.Errorf("%w: %v", ledger.ErrAlreadyRedeemed, err)
	case containsAny(msg, "Not sold yet"):
		return fmt.Errorf("%w: %v", ledger.ErrNotSold, err)
	case containsAny(msg, "Listing does not exist"):
		return fmt.Errorf("%w: %v", ledger.ErrNotFound, err)
	case strings.Contains(msg, "execution reverted"):
		return err
	default:
		return fmt.Errorf("%w: %v", ledger.ErrUnavailable, err)
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
