package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bunnyexe1/AUTHENTIX/internal/adapter/nats"
	"github.com/bunnyexe1/AUTHENTIX/internal/domain/entity"
	"github.com/bunnyexe1/AUTHENTIX/internal/ledger"
	"github.com/bunnyexe1/AUTHENTIX/internal/platform/logger"
	"github.com/bunnyexe1/AUTHENTIX/internal/repository"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// CatalogCache is the read cache the engine invalidates after confirmed
// transitions. Cache failures are logged, never surfaced.
type CatalogCache interface {
	Get(ctx context.Context, listingID uint64) (*entity.CatalogRecord, error)
	Set(ctx context.Context, record *entity.CatalogRecord) error
	Delete(ctx context.Context, listingID uint64) error
}

// ListingResult reports an accepted listing intent: the catalog record id
// and the ledger-assigned lineage id.
type ListingResult struct {
	RecordID  string
	ListingID uint64
}

// Engine owns the listing lifecycle: it validates proposed transitions,
// issues ledger operations, and projects confirmed transitions into the
// catalog. The catalog write always follows the ledger confirmation,
// never precedes it.
type Engine struct {
	ledger    ledger.Ledger
	catalog   repository.CatalogRepository
	cache     CatalogCache
	publisher nats.MessagePublisher
	log       logger.Logger
}

func NewEngine(
	l ledger.Ledger,
	catalog repository.CatalogRepository,
	cache CatalogCache,
	publisher nats.MessagePublisher,
	log logger.Logger,
) *Engine {
	return &Engine{
		ledger:    l,
		catalog:   catalog,
		cache:     cache,
		publisher: publisher,
		log:       log,
	}
}

// List submits an externally-owned asset for sale. The seller must hold
// the asset and have approved the marketplace for transfer; the ledger
// rejects the listing otherwise.
func (e *Engine) List(ctx context.Context, intent entity.ListingIntent) (*ListingResult, error) {
	if !intent.External() {
		return nil, fmt.Errorf("%w: listing an external asset requires a contract reference", ErrValidation)
	}
	if !common.IsHexAddress(intent.ContractRef) {
		return nil, fmt.Errorf("%w: %v", ErrValidation, entity.ErrInvalidAddress)
	}
	return e.submitListing(ctx, intent)
}

// CreateAndList mints a marketplace placeholder asset and lists it.
func (e *Engine) CreateAndList(ctx context.Context, intent entity.ListingIntent) (*ListingResult, error) {
	if intent.External() {
		return nil, fmt.Errorf("%w: placeholder listings carry no contract reference", ErrValidation)
	}
	return e.submitListing(ctx, intent)
}

func (e *Engine) submitListing(ctx context.Context, intent entity.ListingIntent) (*ListingResult, error) {
	if err := intent.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	seller, err := parseAddress(intent.Seller)
	if err != nil {
		return nil, err
	}

	// Optimistic Pending record first: it marks seller intent but is
	// invisible to every "available for purchase" view until promoted.
	recordID, err := e.catalog.Create(ctx, repository.CreateRecordParams{
		Seller:      intent.Seller,
		Name:        intent.Name,
		Description: intent.Description,
		Category:    intent.Category,
		SaleType:    intent.SaleType,
		ImageURLs:   intent.ImageURLs,
		Price:       intent.Price.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record listing intent: %w", err)
	}

	price := ledger.EtherToWei(intent.Price)
	imageRef := firstImage(intent.ImageURLs)

	var listingID uint64
	if intent.External() {
		asset := ledger.AssetRef{Contract: common.HexToAddress(intent.ContractRef), TokenID: intent.TokenID}
		listingID, err = e.ledger.List(ctx, seller, asset, price, imageRef)
	} else {
		listingID, err = e.ledger.CreateAndList(ctx, seller, price, imageRef)
	}
	if err != nil {
		mapped := fromLedger(err)
		if errors.Is(mapped, ErrLedgerUnavailable) {
			// The submission may still confirm; the record stays Pending
			// and the read-through fallback keeps it out of sale views.
			e.log.Warnf("Listing submission for record %s unconfirmed: %v", recordID, err)
			return nil, mapped
		}
		if cancelErr := e.catalog.CancelPending(ctx, recordID); cancelErr != nil {
			e.log.Errorf("Failed to cancel rejected intent record %s: %v", recordID, cancelErr)
		}
		return nil, mapped
	}

	if err := e.catalog.Promote(ctx, recordID, listingID); err != nil {
		// The ledger listing is confirmed; a failed promotion heals on
		// the next read-through against the ledger.
		e.log.Errorf("Failed to promote record %s to listing %d: %v", recordID, listingID, err)
	}

	ev := newListingEvent("listed", listingID)
	ev.Seller = entity.NormalizeAddress(intent.Seller)
	ev.Price = intent.Price.String()
	e.publish(ctx, subjectListingListed, ev)

	e.log.Infof("Listing %d confirmed and promoted for seller %s", listingID, intent.Seller)
	return &ListingResult{RecordID: recordID, ListingID: listingID}, nil
}

// Buy settles a purchase. Payment must equal the current epoch's price
// exactly; any deviation is rejected rather than refunded or pocketed.
func (e *Engine) Buy(ctx context.Context, buyer string, listingID uint64, payment decimal.Decimal) (*entity.PurchaseRecord, error) {
	buyerAddr, err := parseAddress(buyer)
	if err != nil {
		return nil, err
	}

	listing, err := e.ledger.GetListing(ctx, listingID)
	if err != nil {
		return nil, fromLedger(err)
	}
	if listing.Sold {
		return nil, ErrAlreadySold
	}

	paymentWei := ledger.EtherToWei(payment)
	if paymentWei.Cmp(listing.Price) != 0 {
		return nil, fmt.Errorf("%w: sent %s wei, listing price is %s wei", ErrWrongAmount, paymentWei, listing.Price)
	}

	// The ledger's own atomic check-and-set arbitrates concurrent buys;
	// a losing submission surfaces as AlreadySold here.
	event, err := e.ledger.Buy(ctx, buyerAddr, listingID, paymentWei)
	if err != nil {
		return nil, fromLedger(err)
	}

	record := entity.PurchaseRecord{
		Buyer:     entity.NormalizeAddress(buyer),
		Price:     ledger.WeiToEther(event.Price).String(),
		TokenID:   event.TokenID,
		Timestamp: event.Timestamp,
	}
	if err := e.catalog.AppendPurchase(ctx, listingID, record); err != nil {
		// Projection failure is not a settlement failure: the purchase is
		// confirmed on the ledger and the history heals on reconciliation.
		e.log.Warnf("Failed to append purchase for listing %d: %v", listingID, err)
	}
	e.invalidate(ctx, listingID)

	ev := newListingEvent("sold", listingID)
	ev.Buyer = record.Buyer
	ev.Price = record.Price
	ev.TokenID = record.TokenID
	e.publish(ctx, subjectListingSold, ev)

	e.log.Infof("Listing %d sold to %s for %s", listingID, buyer, record.Price)
	return &record, nil
}

// Relist starts a new epoch of a sold lineage: the current buyer becomes
// the seller at a new price, reusing the listing id so the purchase
// history stays attached to one catalog row.
func (e *Engine) Relist(ctx context.Context, owner string, listingID uint64, newPrice decimal.Decimal) error {
	ownerAddr, err := parseAddress(owner)
	if err != nil {
		return err
	}
	if !newPrice.IsPositive() {
		return fmt.Errorf("%w: %v", ErrValidation, entity.ErrInvalidPrice)
	}

	listing, err := e.ledger.GetListing(ctx, listingID)
	if err != nil {
		return fromLedger(err)
	}
	// A redeemed asset has left marketplace custody; nobody can re-approve
	// it for transfer, so the relist is an ownership failure.
	if listing.Redeemed {
		return fmt.Errorf("%w: lineage %d is redeemed", ErrNotOwner, listingID)
	}
	if !listing.Sold || listing.Buyer != ownerAddr {
		return fmt.Errorf("%w: %s is not the current holder of listing %d", ErrNotOwner, owner, listingID)
	}

	if err := e.ledger.Relist(ctx, ownerAddr, listingID, ledger.EtherToWei(newPrice)); err != nil {
		return fromLedger(err)
	}

	if err := e.catalog.UpdateSale(ctx, listingID, owner, newPrice.String(), entity.SaleTypeResell); err != nil {
		e.log.Warnf("Failed to project relist of listing %d: %v", listingID, err)
	}
	e.invalidate(ctx, listingID)

	ev := newListingEvent("relisted", listingID)
	ev.Seller = entity.NormalizeAddress(owner)
	ev.Price = newPrice.String()
	e.publish(ctx, subjectListingRelisted, ev)

	e.log.Infof("Listing %d relisted by %s at %s", listingID, owner, newPrice)
	return nil
}

// Redeem permanently marks a sold, externally-owned listing as redeemed.
func (e *Engine) Redeem(ctx context.Context, caller string, listingID uint64) error {
	callerAddr, err := parseAddress(caller)
	if err != nil {
		return err
	}

	listing, err := e.ledger.GetListing(ctx, listingID)
	if err != nil {
		return fromLedger(err)
	}
	if !listing.Asset.External() {
		return fmt.Errorf("%w: placeholder assets cannot be redeemed", ErrValidation)
	}
	if listing.Redeemed {
		return fmt.Errorf("%w: lineage %d", ErrAlreadyRedeemed, listingID)
	}
	if !listing.Sold || listing.Buyer != callerAddr {
		return fmt.Errorf("%w: only the confirmed buyer may redeem listing %d", ErrNotOwner, listingID)
	}

	if err := e.ledger.Redeem(ctx, callerAddr, listingID); err != nil {
		return fromLedger(err)
	}
	e.invalidate(ctx, listingID)

	ev := newListingEvent("redeemed", listingID)
	ev.Buyer = entity.NormalizeAddress(caller)
	e.publish(ctx, subjectListingRedeemed, ev)

	e.log.Infof("Listing %d redeemed by %s", listingID, caller)
	return nil
}

// Delete removes the catalog record of an unsold listing. The ledger is
// re-checked at delete time: a sale confirmed after the catalog was last
// read must fail the delete, and sellership is judged against the current
// ledger epoch, whatever the stale catalog row says.
func (e *Engine) Delete(ctx context.Context, requester string, listingID uint64) error {
	requesterAddr, err := parseAddress(requester)
	if err != nil {
		return err
	}

	listing, err := e.ledger.GetListing(ctx, listingID)
	switch {
	case err == nil:
		if listing.Sold {
			return fmt.Errorf("%w: cannot delete listing %d", ErrAlreadySold, listingID)
		}
		// A relist the catalog never projected moves sellership to the new
		// holder; the catalog's seller field has no say here.
		if listing.Seller != requesterAddr {
			return fmt.Errorf("%w: only the current seller may delete listing %d", ErrNotOwner, listingID)
		}
		if err := e.catalog.DeleteByListingID(ctx, listingID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: listing %d", ErrNotFound, listingID)
			}
			return err
		}
	case errors.Is(err, ledger.ErrNotFound):
		// Nothing confirmed for this id; the catalog row is the only
		// evidence of sellership, so the repository enforces the match.
		if err := e.catalog.DeleteIfUnsold(ctx, listingID, requester); err != nil {
			switch {
			case errors.Is(err, repository.ErrNotFound):
				return fmt.Errorf("%w: listing %d", ErrNotFound, listingID)
			case errors.Is(err, repository.ErrDeleteForbidden):
				return fmt.Errorf("%w: only the seller may delete listing %d", ErrNotOwner, listingID)
			default:
				return err
			}
		}
	default:
		return fromLedger(err)
	}
	e.invalidate(ctx, listingID)

	e.log.Infof("Catalog record for listing %d deleted by %s", listingID, requester)
	return nil
}

// CancelIntent cancels a Pending record that never reached the ledger.
func (e *Engine) CancelIntent(ctx context.Context, requester, recordID string) error {
	record, err := e.catalog.FindByRecordID(ctx, recordID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: record %s", ErrNotFound, recordID)
		}
		return err
	}
	if record.Seller != entity.NormalizeAddress(requester) {
		return fmt.Errorf("%w: only the seller may cancel record %s", ErrNotOwner, recordID)
	}
	if record.Status != entity.StatusPending {
		return fmt.Errorf("%w: record %s is %s", ErrValidation, recordID, record.Status)
	}

	if err := e.catalog.CancelPending(ctx, recordID); err != nil {
		return err
	}
	e.log.Infof("Pending record %s cancelled by %s", recordID, requester)
	return nil
}

func (e *Engine) publish(ctx context.Context, subject string, ev ListingEvent) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, subject, ev); err != nil {
		e.log.Warnf("Failed to publish %s event for listing %d: %v", ev.Type, ev.ListingID, err)
	}
}

func (e *Engine) invalidate(ctx context.Context, listingID uint64) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Delete(ctx, listingID); err != nil {
		e.log.Warnf("Failed to invalidate cache for listing %d: %v", listingID, err)
	}
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %v: %q", ErrValidation, entity.ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

func firstImage(urls []string) string {
	for _, u := range urls {
		if strings.TrimSpace(u) != "" {
			return u
		}
	}
	return ""
}
