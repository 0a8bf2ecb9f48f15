package ledger

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// AssetRef identifies the asset behind a listing. A zero contract address
// is the sentinel for a marketplace-minted placeholder with token id 0.
type AssetRef struct {
	Contract common.Address
	TokenID  uint64
}

// External reports whether the asset lives in an external NFT contract.
func (a AssetRef) External() bool {
	return a.Contract != (common.Address{})
}

// Listing is the ledger's authoritative view of one listing lineage.
// Relisting reuses the id: seller/price/sold/buyer describe the current
// epoch, redeemed is permanent for the lineage.
type Listing struct {
	ID       uint64
	Seller   common.Address
	Asset    AssetRef
	Price    *big.Int // wei
	ImageURI string
	Sold     bool
	Buyer    common.Address
	Redeemed bool
}

// PurchaseEvent is a confirmed settlement event emitted by the ledger.
type PurchaseEvent struct {
	ListingID uint64
	Buyer     common.Address
	TokenID   uint64
	Price     *big.Int // wei
	TxHash    common.Hash
	Timestamp time.Time
}

// Ledger is the consensus-ordered settlement record the engine consumes.
// State-changing operations return only after the submitted transaction is
// confirmed; the ledger itself serializes conflicting transitions, so the
// engine never emulates its check-and-set with a client-side lock.
type Ledger interface {
	// List escrows an externally-owned asset and opens a new lineage.
	List(ctx context.Context, seller common.Address, asset AssetRef, price *big.Int, imageURI string) (uint64, error)
	// CreateAndList mints a placeholder asset and opens a new lineage.
	CreateAndList(ctx context.Context, seller common.Address, price *big.Int, imageURI string) (uint64, error)
	// Buy settles a purchase. Payment must equal the listed price exactly.
	Buy(ctx context.Context, buyer common.Address, listingID uint64, payment *big.Int) (*PurchaseEvent, error)
	// Relist starts a new epoch of an already-sold lineage.
	Relist(ctx context.Context, owner common.Address, listingID uint64, newPrice *big.Int) error
	// Redeem permanently marks a sold, externally-owned listing as redeemed.
	Redeem(ctx context.Context, caller common.Address, listingID uint64) error

	GetListing(ctx context.Context, listingID uint64) (*Listing, error)
	PurchasesByBuyer(ctx context.Context, buyer common.Address) ([]PurchaseEvent, error)
	RelistedListings(ctx context.Context) ([]Listing, error)
}

var weiPerEther = decimal.New(1, 18)

// EtherToWei converts an ether-denominated decimal into the ledger's
// native wei unit. Sub-wei precision is truncated.
func EtherToWei(d decimal.Decimal) *big.Int {
	return d.Mul(weiPerEther).BigInt()
}

// WeiToEther converts a wei amount to an exact ether-denominated decimal.
func WeiToEther(wei *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(wei, -18)
}
