package service

import (
	"context"
	"errors"

	"github.com/bunnyexe1/AUTHENTIX/internal/domain/entity"
	"github.com/bunnyexe1/AUTHENTIX/internal/ledger"
	"github.com/bunnyexe1/AUTHENTIX/internal/platform/logger"
	"github.com/bunnyexe1/AUTHENTIX/internal/repository"
)

// Reconciler owns the read paths and the repair rules that keep the
// catalog projection a safe approximation of ledger truth. The catalog is
// a discovery cache: whenever it is silent or ambiguous about state that
// affects money movement, the answer comes from a fresh ledger read, and
// any detected disagreement triggers a corrective catalog write instead
// of a user-facing error.
type Reconciler struct {
	ledger  ledger.Ledger
	catalog repository.CatalogRepository
	cache   CatalogCache
	log     logger.Logger
}

func NewReconciler(l ledger.Ledger, catalog repository.CatalogRepository, cache CatalogCache, log logger.Logger) *Reconciler {
	return &Reconciler{ledger: l, catalog: catalog, cache: cache, log: log}
}

// GetListing returns the catalog view of a lineage. A missing catalog row
// is never taken at face value: the ledger is consulted before concluding
// non-existence, and a ledger-known listing the catalog lost is served
// from the ledger directly.
func (r *Reconciler) GetListing(ctx context.Context, listingID uint64) (*entity.CatalogRecord, error) {
	if record := r.cached(ctx, listingID); record != nil {
		return record, nil
	}

	record, err := r.catalog.FindByListingID(ctx, listingID)
	if err == nil {
		r.cacheSet(ctx, record)
		return record, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	onChain, lerr := r.ledger.GetListing(ctx, listingID)
	if lerr != nil {
		return nil, fromLedger(lerr)
	}

	r.log.Warnf("Catalog has no record for ledger-confirmed listing %d, serving ledger view", listingID)
	return recordFromLedger(onChain), nil
}

// Purchasable answers "can this id be bought right now". The catalog may
// vote yes only when the ledger agrees; a silent or ambiguous catalog
// falls through to the lineage's relisted-items view and a direct ledger
// read before the id is declared non-existent.
func (r *Reconciler) Purchasable(ctx context.Context, listingID uint64) (bool, error) {
	record, err := r.catalog.FindByListingID(ctx, listingID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}

	if err == nil && record.Status == entity.StatusListed {
		onChain, lerr := r.ledger.GetListing(ctx, listingID)
		if lerr != nil {
			// A Listed row the ledger denies is treated the same as a
			// missing row: never purchasable, never an error.
			if errors.Is(lerr, ledger.ErrNotFound) {
				return false, nil
			}
			return false, fromLedger(lerr)
		}
		if onChain.Sold || onChain.Redeemed {
			r.repair(ctx, listingID, onChain)
			return false, nil
		}
		return true, nil
	}

	// Catalog row missing, Pending, or Cancelled. Absence of confirmation
	// is not cancellation: check the relisted lineages first, then the
	// listing itself.
	relisted, lerr := r.ledger.RelistedListings(ctx)
	if lerr == nil {
		for i := range relisted {
			if relisted[i].ID == listingID && !relisted[i].Sold && !relisted[i].Redeemed {
				r.repair(ctx, listingID, &relisted[i])
				return true, nil
			}
		}
	}

	onChain, lerr := r.ledger.GetListing(ctx, listingID)
	if lerr != nil {
		if errors.Is(lerr, ledger.ErrNotFound) {
			return false, nil
		}
		return false, fromLedger(lerr)
	}
	if onChain.Sold || onChain.Redeemed {
		return false, nil
	}

	r.repair(ctx, listingID, onChain)
	return true, nil
}

// ActiveListings returns everything the catalog shows as Listed. Pending
// intent records are never included.
func (r *Reconciler) ActiveListings(ctx context.Context) ([]entity.CatalogRecord, error) {
	return r.catalog.FindByStatus(ctx, entity.StatusListed)
}

// Collection returns every catalog record whose purchase history contains
// the wallet. Display-only: settlement decisions never read from here.
func (r *Reconciler) Collection(ctx context.Context, wallet string) ([]entity.CatalogRecord, error) {
	if _, err := parseAddress(wallet); err != nil {
		return nil, err
	}
	return r.catalog.FindByBuyerInHistory(ctx, wallet)
}

// Reconcile re-derives one lineage's projection from a fresh ledger read.
// It is the resolution for out-of-order or lost catalog updates: status
// and history are rebuilt from ledger truth, never from arrival order.
func (r *Reconciler) Reconcile(ctx context.Context, listingID uint64) error {
	onChain, err := r.ledger.GetListing(ctx, listingID)
	if err != nil {
		return fromLedger(err)
	}
	r.repair(ctx, listingID, onChain)
	return nil
}

// repair issues the corrective catalog writes for one lineage. All writes
// are idempotent, so concurrent repairs and duplicate confirmations are
// harmless.
func (r *Reconciler) repair(ctx context.Context, listingID uint64, onChain *ledger.Listing) {
	record, err := r.catalog.FindByListingID(ctx, listingID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			r.log.Errorf("Repair of listing %d could not read catalog: %v", listingID, err)
		}
		return
	}

	if record.Status != entity.StatusListed {
		r.log.Warnf("Catalog status %s disagrees with live ledger listing %d, repairing", record.Status, listingID)
		if err := r.catalog.UpdateStatus(ctx, listingID, entity.StatusListed); err != nil {
			r.log.Errorf("Repair of listing %d failed to update status: %v", listingID, err)
		}
	}

	if seller := entity.NormalizeAddress(onChain.Seller.Hex()); record.Seller != seller {
		price := ledger.WeiToEther(onChain.Price).String()
		saleType := record.SaleType
		if len(record.PurchaseHistory) > 0 {
			saleType = entity.SaleTypeResell
		}
		r.log.Warnf("Catalog seller for listing %d is stale, repairing to current epoch", listingID)
		if err := r.catalog.UpdateSale(ctx, listingID, seller, price, saleType); err != nil {
			r.log.Errorf("Repair of listing %d failed to update sale fields: %v", listingID, err)
		}
	}

	if onChain.Sold {
		r.ensureSaleRecorded(ctx, listingID, record, onChain)
	}

	r.cacheDelete(ctx, listingID)
}

// ensureSaleRecorded backfills the current epoch's purchase event when the
// catalog history missed it.
func (r *Reconciler) ensureSaleRecorded(ctx context.Context, listingID uint64, record *entity.CatalogRecord, onChain *ledger.Listing) {
	events, err := r.ledger.PurchasesByBuyer(ctx, onChain.Buyer)
	if err != nil {
		r.log.Errorf("Repair of listing %d could not read purchase events: %v", listingID, err)
		return
	}

	for i := len(events) - 1; i >= 0; i-- {
		if events[i].ListingID != listingID {
			continue
		}
		rec := entity.PurchaseRecord{
			Buyer:     entity.NormalizeAddress(events[i].Buyer.Hex()),
			Price:     ledger.WeiToEther(events[i].Price).String(),
			TokenID:   events[i].TokenID,
			Timestamp: events[i].Timestamp,
		}
		if record.HasPurchase(rec) {
			return
		}
		r.log.Warnf("Catalog history for listing %d missed a confirmed sale, backfilling", listingID)
		if err := r.catalog.AppendPurchase(ctx, listingID, rec); err != nil {
			r.log.Errorf("Repair of listing %d failed to backfill purchase: %v", listingID, err)
		}
		return
	}
}

// recordFromLedger builds the view served when the catalog lost a
// ledger-confirmed listing. Catalog-only metadata the ledger does not
// carry (name, category, sale type) stays unset and is omitted from the
// rendered record rather than filled with out-of-enum placeholders.
func recordFromLedger(onChain *ledger.Listing) *entity.CatalogRecord {
	listingID := onChain.ID
	status := entity.StatusListed
	record := &entity.CatalogRecord{
		ListingID: &listingID,
		Seller:    entity.NormalizeAddress(onChain.Seller.Hex()),
		Price:     ledger.WeiToEther(onChain.Price).String(),
		Status:    status,
		ImageURLs: []string{onChain.ImageURI},
	}
	if onChain.Sold {
		buyer := entity.NormalizeAddress(onChain.Buyer.Hex())
		record.PurchaseHistory = []entity.PurchaseRecord{{
			Buyer:   buyer,
			Price:   record.Price,
			TokenID: onChain.Asset.TokenID,
		}}
	}
	return record
}

func (r *Reconciler) cached(ctx context.Context, listingID uint64) *entity.CatalogRecord {
	if r.cache == nil {
		return nil
	}
	record, err := r.cache.Get(ctx, listingID)
	if err != nil {
		r.log.Warnf("Cache read for listing %d failed: %v", listingID, err)
		return nil
	}
	return record
}

func (r *Reconciler) cacheSet(ctx context.Context, record *entity.CatalogRecord) {
	if r.cache == nil || record.ListingID == nil {
		return
	}
	if err := r.cache.Set(ctx, record); err != nil {
		r.log.Warnf("Cache write for listing %d failed: %v", *record.ListingID, err)
	}
}

func (r *Reconciler) cacheDelete(ctx context.Context, listingID uint64) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, listingID); err != nil {
		r.log.Warnf("Cache invalidation for listing %d failed: %v", listingID, err)
	}
}
