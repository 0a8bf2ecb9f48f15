package service

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/bunnyexe1/AUTHENTIX/internal/domain/entity"
	"github.com/bunnyexe1/AUTHENTIX/internal/ledger"
	"github.com/bunnyexe1/AUTHENTIX/internal/platform/logger"
	"github.com/bunnyexe1/AUTHENTIX/internal/repository"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sellerAddr   = "0x1111111111111111111111111111111111111111"
	buyerAddr    = "0x2222222222222222222222222222222222222222"
	thirdAddr    = "0x3333333333333333333333333333333333333333"
	nftContract  = "0x4444444444444444444444444444444444444444"
	externalBase = uint64(7)
)

// fakeLedger reproduces the marketplace contract's check-and-set rules in
// memory so lifecycle scenarios exercise the real transition guards.
type fakeLedger struct {
	nextID      uint64
	listings    map[uint64]*ledger.Listing
	events      []ledger.PurchaseEvent
	relisted    map[uint64]bool
	clock       time.Time
	unavailable bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		listings: make(map[uint64]*ledger.Listing),
		relisted: make(map[uint64]bool),
		clock:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeLedger) open(seller common.Address, asset ledger.AssetRef, price *big.Int, imageURI string) (uint64, error) {
	if f.unavailable {
		return 0, fmt.Errorf("%w: node unreachable", ledger.ErrUnavailable)
	}
	f.nextID++
	f.listings[f.nextID] = &ledger.Listing{
		ID:       f.nextID,
		Seller:   seller,
		Asset:    asset,
		Price:    new(big.Int).Set(price),
		ImageURI: imageURI,
	}
	return f.nextID, nil
}

func (f *fakeLedger) List(_ context.Context, seller common.Address, asset ledger.AssetRef, price *big.Int, imageURI string) (uint64, error) {
	return f.open(seller, asset, price, imageURI)
}

func (f *fakeLedger) CreateAndList(_ context.Context, seller common.Address, price *big.Int, imageURI string) (uint64, error) {
	return f.open(seller, ledger.AssetRef{}, price, imageURI)
}

func (f *fakeLedger) Buy(_ context.Context, buyer common.Address, listingID uint64, payment *big.Int) (*ledger.PurchaseEvent, error) {
	if f.unavailable {
		return nil, fmt.Errorf("%w: node unreachable", ledger.ErrUnavailable)
	}
	l, ok := f.listings[listingID]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	if l.Sold {
		return nil, ledger.ErrAlreadySold
	}
	if payment.Cmp(l.Price) != 0 {
		return nil, ledger.ErrWrongAmount
	}
	l.Sold = true
	l.Buyer = buyer
	f.clock = f.clock.Add(12 * time.Second)
	ev := ledger.PurchaseEvent{
		ListingID: listingID,
		Buyer:     buyer,
		TokenID:   l.Asset.TokenID,
		Price:     new(big.Int).Set(l.Price),
		Timestamp: f.clock,
	}
	f.events = append(f.events, ev)
	return &ev, nil
}

func (f *fakeLedger) Relist(_ context.Context, owner common.Address, listingID uint64, newPrice *big.Int) error {
	l, ok := f.listings[listingID]
	if !ok {
		return ledger.ErrNotFound
	}
	if l.Redeemed {
		return ledger.ErrAlreadyRedeemed
	}
	if !l.Sold {
		return ledger.ErrNotSold
	}
	if l.Buyer != owner {
		return ledger.ErrNotOwner
	}
	l.Seller = owner
	l.Price = new(big.Int).Set(newPrice)
	l.Sold = false
	l.Buyer = common.Address{}
	f.relisted[listingID] = true
	return nil
}

func (f *fakeLedger) Redeem(_ context.Context, caller common.Address, listingID uint64) error {
	l, ok := f.listings[listingID]
	if !ok {
		return ledger.ErrNotFound
	}
	if l.Redeemed {
		return ledger.ErrAlreadyRedeemed
	}
	if !l.Sold {
		return ledger.ErrNotSold
	}
	if l.Buyer != caller {
		return ledger.ErrNotOwner
	}
	l.Redeemed = true
	return nil
}

func (f *fakeLedger) GetListing(_ context.Context, listingID uint64) (*ledger.Listing, error) {
	if f.unavailable {
		return nil, fmt.Errorf("%w: node unreachable", ledger.ErrUnavailable)
	}
	l, ok := f.listings[listingID]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	cp := *l
	cp.Price = new(big.Int).Set(l.Price)
	return &cp, nil
}

func (f *fakeLedger) PurchasesByBuyer(_ context.Context, buyer common.Address) ([]ledger.PurchaseEvent, error) {
	var out []ledger.PurchaseEvent
	for _, ev := range f.events {
		if ev.Buyer == buyer {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeLedger) RelistedListings(_ context.Context) ([]ledger.Listing, error) {
	var out []ledger.Listing
	for id := range f.relisted {
		out = append(out, *f.listings[id])
	}
	return out, nil
}

// fakeCatalog is an in-memory CatalogRepository with the same idempotency
// and guard semantics as the Mongo adapter.
type fakeCatalog struct {
	seq     int
	records map[string]*entity.CatalogRecord
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{records: make(map[string]*entity.CatalogRecord)}
}

func (f *fakeCatalog) Create(_ context.Context, params repository.CreateRecordParams) (string, error) {
	f.seq++
	id := fmt.Sprintf("record-%d", f.seq)
	f.records[id] = &entity.CatalogRecord{
		ID:          id,
		Name:        params.Name,
		Description: params.Description,
		Category:    params.Category,
		SaleType:    params.SaleType,
		ImageURLs:   params.ImageURLs,
		Seller:      entity.NormalizeAddress(params.Seller),
		Price:       params.Price,
		Status:      entity.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	return id, nil
}

func (f *fakeCatalog) Promote(_ context.Context, recordID string, listingID uint64) error {
	r, ok := f.records[recordID]
	if !ok || r.Status != entity.StatusPending {
		return repository.ErrUpdateFailed
	}
	r.ListingID = &listingID
	r.Status = entity.StatusListed
	return nil
}

func (f *fakeCatalog) CancelPending(_ context.Context, recordID string) error {
	r, ok := f.records[recordID]
	if !ok || r.Status != entity.StatusPending {
		return repository.ErrUpdateFailed
	}
	r.Status = entity.StatusCancelled
	return nil
}

func (f *fakeCatalog) byListing(listingID uint64) *entity.CatalogRecord {
	for _, r := range f.records {
		if r.ListingID != nil && *r.ListingID == listingID {
			return r
		}
	}
	return nil
}

func (f *fakeCatalog) UpdateStatus(_ context.Context, listingID uint64, status entity.Status) error {
	r := f.byListing(listingID)
	if r == nil {
		return repository.ErrNotFound
	}
	r.Status = status
	return nil
}

func (f *fakeCatalog) UpdateSale(_ context.Context, listingID uint64, seller, price string, saleType entity.SaleType) error {
	r := f.byListing(listingID)
	if r == nil {
		return repository.ErrNotFound
	}
	r.Seller = entity.NormalizeAddress(seller)
	r.Price = price
	r.SaleType = saleType
	return nil
}

func (f *fakeCatalog) AppendPurchase(_ context.Context, listingID uint64, rec entity.PurchaseRecord) error {
	r := f.byListing(listingID)
	if r == nil {
		return repository.ErrNotFound
	}
	if r.HasPurchase(rec) {
		return nil
	}
	r.PurchaseHistory = append(r.PurchaseHistory, rec)
	return nil
}

func (f *fakeCatalog) FindByListingID(_ context.Context, listingID uint64) (*entity.CatalogRecord, error) {
	r := f.byListing(listingID)
	if r == nil {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeCatalog) FindByRecordID(_ context.Context, recordID string) (*entity.CatalogRecord, error) {
	r, ok := f.records[recordID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeCatalog) FindByStatus(_ context.Context, status entity.Status) ([]entity.CatalogRecord, error) {
	var out []entity.CatalogRecord
	for _, r := range f.records {
		if r.Status == status {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeCatalog) FindByBuyerInHistory(_ context.Context, buyer string) ([]entity.CatalogRecord, error) {
	needle := entity.NormalizeAddress(buyer)
	var out []entity.CatalogRecord
	for _, r := range f.records {
		for _, p := range r.PurchaseHistory {
			if p.Buyer == needle {
				out = append(out, *r)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeCatalog) DeleteByListingID(_ context.Context, listingID uint64) error {
	r := f.byListing(listingID)
	if r == nil {
		return repository.ErrNotFound
	}
	delete(f.records, r.ID)
	return nil
}

func (f *fakeCatalog) DeleteIfUnsold(_ context.Context, listingID uint64, requester string) error {
	r := f.byListing(listingID)
	if r == nil {
		return repository.ErrNotFound
	}
	if r.Seller != entity.NormalizeAddress(requester) {
		return repository.ErrDeleteForbidden
	}
	delete(f.records, r.ID)
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *fakeLedger, *fakeCatalog) {
	t.Helper()
	fl := newFakeLedger()
	fc := newFakeCatalog()
	return NewEngine(fl, fc, nil, nil, logger.NewNop()), fl, fc
}

func placeholderIntent(price string) entity.ListingIntent {
	return entity.ListingIntent{
		Seller:      sellerAddr,
		Name:        "Air Max 97",
		Description: "Deadstock, size 42",
		Category:    entity.CategorySneakers,
		SaleType:    entity.SaleTypeRetail,
		ImageURLs:   []string{"https://img.example/airmax.png"},
		Price:       decimal.RequireFromString(price),
	}
}

func externalIntent(price string) entity.ListingIntent {
	intent := placeholderIntent(price)
	intent.ContractRef = nftContract
	intent.TokenID = externalBase
	return intent
}

func TestCreateAndListConfirmsAndPromotes(t *testing.T) {
	engine, fl, fc := newTestEngine(t)

	result, err := engine.CreateAndList(context.Background(), placeholderIntent("0.05"))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, uint64(1), result.ListingID)

	record, err := fc.FindByListingID(context.Background(), result.ListingID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusListed, record.Status)
	assert.Equal(t, entity.NormalizeAddress(sellerAddr), record.Seller)
	assert.Equal(t, "0.05", record.Price)

	onChain := fl.listings[result.ListingID]
	require.NotNil(t, onChain)
	assert.False(t, onChain.Asset.External())
	assert.Equal(t, ledger.EtherToWei(decimal.RequireFromString("0.05")), onChain.Price)
}

func TestListRequiresContractReference(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.List(context.Background(), placeholderIntent("0.05"))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = engine.CreateAndList(context.Background(), externalIntent("0.05"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSubmitRejectsInvalidIntent(t *testing.T) {
	engine, _, fc := newTestEngine(t)

	for name, mutate := range map[string]func(*entity.ListingIntent){
		"empty name":       func(i *entity.ListingIntent) { i.Name = " " },
		"unknown category": func(i *entity.ListingIntent) { i.Category = "Electronics" },
		"unknown saletype": func(i *entity.ListingIntent) { i.SaleType = "Auction" },
		"zero price":       func(i *entity.ListingIntent) { i.Price = decimal.Zero },
		"no images":        func(i *entity.ListingIntent) { i.ImageURLs = []string{"  "} },
		"bad seller":       func(i *entity.ListingIntent) { i.Seller = "not-an-address" },
	} {
		t.Run(name, func(t *testing.T) {
			intent := placeholderIntent("0.05")
			mutate(&intent)
			_, err := engine.CreateAndList(context.Background(), intent)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Empty(t, fc.records, "rejected intents must not leave records behind")
}

func TestSubmitLeavesPendingWhenLedgerUnavailable(t *testing.T) {
	engine, fl, fc := newTestEngine(t)
	fl.unavailable = true

	_, err := engine.CreateAndList(context.Background(), placeholderIntent("0.05"))
	require.ErrorIs(t, err, ErrLedgerUnavailable)

	require.Len(t, fc.records, 1)
	for _, r := range fc.records {
		assert.Equal(t, entity.StatusPending, r.Status)
		assert.Nil(t, r.ListingID)
	}
}

func TestBuyRequiresExactPayment(t *testing.T) {
	engine, _, fc := newTestEngine(t)

	result, err := engine.CreateAndList(context.Background(), placeholderIntent("0.05"))
	require.NoError(t, err)

	_, err = engine.Buy(context.Background(), buyerAddr, result.ListingID, decimal.RequireFromString("0.04"))
	require.ErrorIs(t, err, ErrWrongAmount)

	_, err = engine.Buy(context.Background(), buyerAddr, result.ListingID, decimal.RequireFromString("0.06"))
	require.ErrorIs(t, err, ErrWrongAmount)

	record, err := fc.FindByListingID(context.Background(), result.ListingID)
	require.NoError(t, err)
	assert.Empty(t, record.PurchaseHistory, "rejected payments must not touch the history")

	purchase, err := engine.Buy(context.Background(), buyerAddr, result.ListingID, decimal.RequireFromString("0.05"))
	require.NoError(t, err)
	assert.Equal(t, entity.NormalizeAddress(buyerAddr), purchase.Buyer)
	assert.Equal(t, "0.05", purchase.Price)

	record, err = fc.FindByListingID(context.Background(), result.ListingID)
	require.NoError(t, err)
	require.Len(t, record.PurchaseHistory, 1)
	assert.True(t, record.PurchaseHistory[0].Same(*purchase))
}

func TestBuyRejectsSoldListing(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	result, err := engine.CreateAndList(context.Background(), placeholderIntent("0.05"))
	require.NoError(t, err)

	_, err = engine.Buy(context.Background(), buyerAddr, result.ListingID, decimal.RequireFromString("0.05"))
	require.NoError(t, err)

	_, err = engine.Buy(context.Background(), thirdAddr, result.ListingID, decimal.RequireFromString("0.05"))
	assert.ErrorIs(t, err, ErrAlreadySold)
}

func TestBuyUnknownListing(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.Buy(context.Background(), buyerAddr, 42, decimal.RequireFromString("0.05"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRelistStartsNewEpoch(t *testing.T) {
	engine, fl, fc := newTestEngine(t)

	result, err := engine.CreateAndList(context.Background(), placeholderIntent("0.05"))
	require.NoError(t, err)
	_, err = engine.Buy(context.Background(), buyerAddr, result.ListingID, decimal.RequireFromString("0.05"))
	require.NoError(t, err)

	err = engine.Relist(context.Background(), buyerAddr, result.ListingID, decimal.RequireFromString("0.08"))
	require.NoError(t, err)

	record, err := fc.FindByListingID(context.Background(), result.ListingID)
	require.NoError(t, err)
	assert.Equal(t, entity.NormalizeAddress(buyerAddr), record.Seller)
	assert.Equal(t, "0.08", record.Price)
	assert.Equal(t, entity.SaleTypeResell, record.SaleType)
	require.Len(t, record.PurchaseHistory, 1, "relist must keep the prior epoch's history")

	// Old price is gone with the old epoch.
	_, err = engine.Buy(context.Background(), thirdAddr, result.ListingID, decimal.RequireFromString("0.05"))
	require.ErrorIs(t, err, ErrWrongAmount)

	purchase, err := engine.Buy(context.Background(), thirdAddr, result.ListingID, decimal.RequireFromString("0.08"))
	require.NoError(t, err)
	assert.Equal(t, "0.08", purchase.Price)

	record, err = fc.FindByListingID(context.Background(), result.ListingID)
	require.NoError(t, err)
	require.Len(t, record.PurchaseHistory, 2)
	assert.True(t, fl.listings[result.ListingID].Sold)
}

func TestRelistRequiresCurrentHolder(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	result, err := engine.CreateAndList(context.Background(), placeholderIntent("0.05"))
	require.NoError(t, err)

	// Unsold: even the seller cannot relist.
	err = engine.Relist(context.Background(), sellerAddr, result.ListingID, decimal.RequireFromString("0.08"))
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = engine.Buy(context.Background(), buyerAddr, result.ListingID, decimal.RequireFromString("0.05"))
	require.NoError(t, err)

	err = engine.Relist(context.Background(), thirdAddr, result.ListingID, decimal.RequireFromString("0.08"))
	assert.ErrorIs(t, err, ErrNotOwner)

	err = engine.Relist(context.Background(), buyerAddr, result.ListingID, decimal.Zero)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRelistRedeemedLineageIsOwnershipFailure(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	result, err := engine.List(context.Background(), externalIntent("0.05"))
	require.NoError(t, err)
	_, err = engine.Buy(context.Background(), buyerAddr, result.ListingID, decimal.RequireFromString("0.05"))
	require.NoError(t, err)
	require.NoError(t, engine.Redeem(context.Background(), buyerAddr, result.ListingID))

	err = engine.Relist(context.Background(), buyerAddr, result.ListingID, decimal.RequireFromString("0.08"))
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestRedeemGuards(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	placeholder, err := engine.CreateAndList(context.Background(), placeholderIntent("0.05"))
	require.NoError(t, err)
	_, err = engine.Buy(context.Background(), buyerAddr, placeholder.ListingID, decimal.RequireFromString("0.05"))
	require.NoError(t, err)

	err = engine.Redeem(context.Background(), buyerAddr, placeholder.ListingID)
	assert.ErrorIs(t, err, ErrValidation, "placeholder assets carry nothing to redeem")

	external, err := engine.List(context.Background(), externalIntent("0.1"))
	require.NoError(t, err)

	err = engine.Redeem(context.Background(), buyerAddr, external.ListingID)
	assert.ErrorIs(t, err, ErrNotOwner, "unsold listings have no buyer to redeem")

	_, err = engine.Buy(context.Background(), buyerAddr, external.ListingID, decimal.RequireFromString("0.1"))
	require.NoError(t, err)

	err = engine.Redeem(context.Background(), thirdAddr, external.ListingID)
	assert.ErrorIs(t, err, ErrNotOwner)

	require.NoError(t, engine.Redeem(context.Background(), buyerAddr, external.ListingID))

	err = engine.Redeem(context.Background(), buyerAddr, external.ListingID)
	assert.ErrorIs(t, err, ErrAlreadyRedeemed)
}

func TestDeleteRechecksLedgerBeforeRemoving(t *testing.T) {
	engine, fl, fc := newTestEngine(t)

	result, err := engine.CreateAndList(context.Background(), placeholderIntent("0.05"))
	require.NoError(t, err)

	// A buy confirms on the ledger without the catalog hearing about it.
	_, err = fl.Buy(context.Background(), common.HexToAddress(buyerAddr), result.ListingID, ledger.EtherToWei(decimal.RequireFromString("0.05")))
	require.NoError(t, err)

	err = engine.Delete(context.Background(), sellerAddr, result.ListingID)
	require.ErrorIs(t, err, ErrAlreadySold)

	_, err = fc.FindByListingID(context.Background(), result.ListingID)
	assert.NoError(t, err, "the record must survive a refused delete")
}

func TestDeleteUnsoldBySellerOnly(t *testing.T) {
	engine, fl, fc := newTestEngine(t)

	result, err := engine.CreateAndList(context.Background(), placeholderIntent("0.05"))
	require.NoError(t, err)

	err = engine.Delete(context.Background(), thirdAddr, result.ListingID)
	assert.ErrorIs(t, err, ErrNotOwner)

	require.NoError(t, engine.Delete(context.Background(), sellerAddr, result.ListingID))

	_, err = fc.FindByListingID(context.Background(), result.ListingID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	fl.unavailable = true
	err = engine.Delete(context.Background(), sellerAddr, result.ListingID)
	assert.ErrorIs(t, err, ErrLedgerUnavailable, "an unverifiable ledger must refuse the delete")
}

func TestDeleteJudgesSellershipAgainstLedgerEpoch(t *testing.T) {
	engine, fl, fc := newTestEngine(t)

	result, err := engine.CreateAndList(context.Background(), placeholderIntent("0.05"))
	require.NoError(t, err)

	_, err = engine.Buy(context.Background(), buyerAddr, result.ListingID, decimal.RequireFromString("0.05"))
	require.NoError(t, err)

	// The relist confirms on the ledger while the catalog projection is
	// lost: the row still names the original seller.
	require.NoError(t, fl.Relist(context.Background(), common.HexToAddress(buyerAddr), result.ListingID, ledger.EtherToWei(decimal.RequireFromString("0.08"))))

	err = engine.Delete(context.Background(), sellerAddr, result.ListingID)
	require.ErrorIs(t, err, ErrNotOwner, "the ex-seller must not delete a live relisted lineage")

	record, err := fc.FindByListingID(context.Background(), result.ListingID)
	require.NoError(t, err, "the record and its history must survive")
	assert.Len(t, record.PurchaseHistory, 1)

	// The current holder may delete even though the catalog seller field
	// is stale.
	require.NoError(t, engine.Delete(context.Background(), buyerAddr, result.ListingID))
	_, err = fc.FindByListingID(context.Background(), result.ListingID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCancelIntent(t *testing.T) {
	engine, fl, fc := newTestEngine(t)

	fl.unavailable = true
	_, err := engine.CreateAndList(context.Background(), placeholderIntent("0.05"))
	require.ErrorIs(t, err, ErrLedgerUnavailable)

	var recordID string
	for id := range fc.records {
		recordID = id
	}
	require.NotEmpty(t, recordID)

	err = engine.CancelIntent(context.Background(), thirdAddr, recordID)
	assert.ErrorIs(t, err, ErrNotOwner)

	require.NoError(t, engine.CancelIntent(context.Background(), sellerAddr, recordID))
	assert.Equal(t, entity.StatusCancelled, fc.records[recordID].Status)

	err = engine.CancelIntent(context.Background(), sellerAddr, recordID)
	assert.ErrorIs(t, err, ErrValidation, "only Pending records can be cancelled")

	err = engine.CancelIntent(context.Background(), sellerAddr, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendPurchaseRedeliveryIsIdempotent(t *testing.T) {
	engine, _, fc := newTestEngine(t)

	result, err := engine.CreateAndList(context.Background(), placeholderIntent("0.05"))
	require.NoError(t, err)
	purchase, err := engine.Buy(context.Background(), buyerAddr, result.ListingID, decimal.RequireFromString("0.05"))
	require.NoError(t, err)

	// Re-delivering the identical confirmation tuple changes nothing.
	require.NoError(t, fc.AppendPurchase(context.Background(), result.ListingID, *purchase))
	require.NoError(t, fc.AppendPurchase(context.Background(), result.ListingID, *purchase))

	record, err := fc.FindByListingID(context.Background(), result.ListingID)
	require.NoError(t, err)
	assert.Len(t, record.PurchaseHistory, 1)
}
