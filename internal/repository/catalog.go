package repository

import (
	"context"

	"github.com/bunnyexe1/AUTHENTIX/internal/domain/entity"
)

type CreateRecordParams struct {
	Seller      string
	Name        string
	Description string
	Category    entity.Category
	SaleType    entity.SaleType
	ImageURLs   []string
	Price       string
}

// CatalogRepository is the mutable off-chain catalog store. It is a cache
// for discovery, never a veto over settlement-affecting reads: every write
// here follows a confirmed ledger operation, and AppendPurchase is
// idempotent so confirmed events can be re-delivered safely.
type CatalogRepository interface {
	// Create inserts a Pending intent record and returns its record id.
	// The ledger-assigned listing id is attached later via Promote.
	Create(ctx context.Context, params CreateRecordParams) (string, error)
	// Promote attaches the confirmed listing id to a Pending record and
	// moves it to Listed.
	Promote(ctx context.Context, recordID string, listingID uint64) error
	// CancelPending moves a Pending record to Cancelled.
	CancelPending(ctx context.Context, recordID string) error

	UpdateStatus(ctx context.Context, listingID uint64, status entity.Status) error
	// UpdateSale rewrites the current-epoch sale fields after a confirmed
	// relist: new seller, new price, Resell sale type.
	UpdateSale(ctx context.Context, listingID uint64, seller, price string, saleType entity.SaleType) error
	// AppendPurchase appends one purchase record, idempotent on the
	// (buyer, price, token_id, timestamp) tuple.
	AppendPurchase(ctx context.Context, listingID uint64, rec entity.PurchaseRecord) error

	FindByListingID(ctx context.Context, listingID uint64) (*entity.CatalogRecord, error)
	FindByRecordID(ctx context.Context, recordID string) (*entity.CatalogRecord, error)
	FindByStatus(ctx context.Context, status entity.Status) ([]entity.CatalogRecord, error)
	FindByBuyerInHistory(ctx context.Context, buyer string) ([]entity.CatalogRecord, error)

	// DeleteByListingID removes a record unconditionally. Used when the
	// engine has already judged ownership against a fresh ledger read; a
	// possibly stale catalog seller field must not override that verdict.
	DeleteByListingID(ctx context.Context, listingID uint64) error
	// DeleteIfUnsold removes a record only when the requester is its
	// recorded seller. Used when the ledger holds no trace of the lineage
	// and the catalog row is the only evidence of sellership; whether the
	// current epoch carries a confirmed sale is always decided against a
	// fresh ledger read by the engine.
	DeleteIfUnsold(ctx context.Context, listingID uint64, requester string) error
}
