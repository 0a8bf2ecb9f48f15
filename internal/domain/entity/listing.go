package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the catalog-local workflow state of a listing record. It is
// distinct from the ledger's sold/redeemed flags: Pending records exist
// before the on-chain listing is confirmed and must never be surfaced as
// purchasable.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusListed    Status = "Listed"
	StatusCancelled Status = "Cancelled"
)

type Category string

const (
	CategorySneakers Category = "Sneakers"
	CategoryApparel  Category = "Apparel"
	CategoryWatches  Category = "Watches"
)

type SaleType string

const (
	SaleTypeRetail SaleType = "Retail"
	SaleTypeResell SaleType = "Resell"
)

var (
	ErrInvalidStatus   = errors.New("invalid listing status")
	ErrInvalidCategory = errors.New("invalid product category")
	ErrInvalidSaleType = errors.New("invalid sale type")
	ErrInvalidPrice    = errors.New("price must be positive")
	ErrMissingImages   = errors.New("at least one image reference is required")
	ErrMissingFields   = errors.New("missing required fields")
	ErrInvalidAddress  = errors.New("invalid wallet address")
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusListed, StatusCancelled:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategorySneakers, CategoryApparel, CategoryWatches:
		return Category(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

func ParseSaleType(s string) (SaleType, error) {
	switch SaleType(s) {
	case SaleTypeRetail, SaleTypeResell:
		return SaleType(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSaleType, s)
}

// NormalizeAddress lowercases a hex wallet address so catalog comparisons
// are case-insensitive, matching how the ledger reports addresses.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// PurchaseRecord is one entry of a listing's append-only purchase history.
// The (buyer, price, token_id, timestamp) tuple is the idempotency key for
// catalog appends: re-delivering the same confirmation never duplicates it.
type PurchaseRecord struct {
	Buyer     string    `bson:"buyer" json:"buyer"`
	Price     string    `bson:"price" json:"price"` // ether-denominated decimal string
	TokenID   uint64    `bson:"token_id" json:"tokenId"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// Same reports whether two records refer to the same confirmed purchase.
func (p PurchaseRecord) Same(o PurchaseRecord) bool {
	return p.Buyer == o.Buyer && p.Price == o.Price && p.TokenID == o.TokenID && p.Timestamp.Equal(o.Timestamp)
}

// CatalogRecord is the off-chain projection of a listing lineage: rich
// metadata for discovery plus a denormalized status/purchase-history view.
// It is never authoritative for ownership or payment.
type CatalogRecord struct {
	ID              string           `bson:"_id,omitempty" json:"id"`
	ListingID       *uint64          `bson:"listing_id,omitempty" json:"listingId,omitempty"`
	Name            string           `bson:"name" json:"name"`
	Description     string           `bson:"description" json:"description"`
	Category        Category         `bson:"category" json:"category,omitempty"`
	SaleType        SaleType         `bson:"sale_type" json:"saleType,omitempty"`
	ImageURLs       []string         `bson:"image_urls" json:"imageUrls"`
	Seller          string           `bson:"seller" json:"seller"`
	Price           string           `bson:"price" json:"price"`
	Status          Status           `bson:"status" json:"status"`
	PurchaseHistory []PurchaseRecord `bson:"purchase_history" json:"purchaseHistory"`
	CreatedAt       time.Time        `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time        `bson:"updated_at" json:"updatedAt"`
}

// HasPurchase reports whether the history already contains the given record.
func (r *CatalogRecord) HasPurchase(rec PurchaseRecord) bool {
	for _, p := range r.PurchaseHistory {
		if p.Same(rec) {
			return true
		}
	}
	return false
}

// ListingIntent is a validated seller intent to put an asset up for sale.
// An empty ContractRef means the marketplace mints a placeholder asset
// (token id 0) instead of escrowing an externally-owned token.
type ListingIntent struct {
	Seller      string
	Name        string
	Description string
	Category    Category
	SaleType    SaleType
	ImageURLs   []string
	Price       decimal.Decimal
	ContractRef string
	TokenID     uint64
}

// External reports whether the intent points at an externally-owned asset.
func (i ListingIntent) External() bool {
	return i.ContractRef != ""
}

// Validate runs the pure intent checks shared by the submission path and
// the reconciliation job. Out-of-enum values are rejected, never coerced.
func (i ListingIntent) Validate() error {
	if strings.TrimSpace(i.Seller) == "" {
		return fmt.Errorf("%w: seller", ErrMissingFields)
	}
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("%w: name", ErrMissingFields)
	}
	if strings.TrimSpace(i.Description) == "" {
		return fmt.Errorf("%w: description", ErrMissingFields)
	}
	if _, err := ParseCategory(string(i.Category)); err != nil {
		return err
	}
	if _, err := ParseSaleType(string(i.SaleType)); err != nil {
		return err
	}
	if !i.Price.IsPositive() {
		return ErrInvalidPrice
	}
	if !hasImage(i.ImageURLs) {
		return ErrMissingImages
	}
	return nil
}

func hasImage(urls []string) bool {
	for _, u := range urls {
		if strings.TrimSpace(u) != "" {
			return true
		}
	}
	return false
}
