package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bunnyexe1/AUTHENTIX/internal/app/config"
	"github.com/bunnyexe1/AUTHENTIX/internal/domain/entity"
	"github.com/bunnyexe1/AUTHENTIX/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const listingCollectionName = "listings"

type catalogRepository struct {
	collection *mongo.Collection
}

func NewCatalogRepository(client *mongo.Client, cfg config.MongoDBConfig) repository.CatalogRepository {
	return &catalogRepository{
		collection: client.Database(cfg.Database).Collection(listingCollectionName),
	}
}

// EnsureIndexes creates the lookup indexes the read paths depend on.
func EnsureIndexes(ctx context.Context, client *mongo.Client, cfg config.MongoDBConfig) error {
	collection := client.Database(cfg.Database).Collection(listingCollectionName)
	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "listing_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "purchase_history.buyer", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create listing indexes: %w", err)
	}
	return nil
}

func (r *catalogRepository) Create(ctx context.Context, params repository.CreateRecordParams) (string, error) {
	now := time.Now().UTC()
	record := entity.CatalogRecord{
		Seller:          entity.NormalizeAddress(params.Seller),
		Name:            params.Name,
		Description:     params.Description,
		Category:        params.Category,
		SaleType:        params.SaleType,
		ImageURLs:       params.ImageURLs,
		Price:           params.Price,
		Status:          entity.StatusPending,
		PurchaseHistory: []entity.PurchaseRecord{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	res, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		return "", fmt.Errorf("failed to create catalog record: %w", err)
	}

	objectID, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("failed to convert inserted ID to ObjectID")
	}
	return objectID.Hex(), nil
}

func (r *catalogRepository) Promote(ctx context.Context, recordID string, listingID uint64) error {
	objID, err := primitive.ObjectIDFromHex(recordID)
	if err != nil {
		return fmt.Errorf("invalid record ID format: %w", repository.ErrNotFound)
	}

	// Only a Pending intent record may be promoted; a record that already
	// carries a listing id keeps it for the lifetime of the lineage.
	filter := bson.M{"_id": objID, "status": entity.StatusPending}
	update := bson.M{"$set": bson.M{
		"listing_id": listingID,
		"status":     entity.StatusListed,
		"updated_at": time.Now().UTC(),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to promote record %s: %w", recordID, err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrUpdateFailed
	}
	return nil
}

func (r *catalogRepository) CancelPending(ctx context.Context, recordID string) error {
	objID, err := primitive.ObjectIDFromHex(recordID)
	if err != nil {
		return fmt.Errorf("invalid record ID format: %w", repository.ErrNotFound)
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objID, "status": entity.StatusPending},
		bson.M{"$set": bson.M{"status": entity.StatusCancelled, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("failed to cancel record %s: %w", recordID, err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *catalogRepository) UpdateStatus(ctx context.Context, listingID uint64, status entity.Status) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"listing_id": listingID},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("failed to update status for listing %d: %w", listingID, err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *catalogRepository) UpdateSale(ctx context.Context, listingID uint64, seller, price string, saleType entity.SaleType) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"listing_id": listingID},
		bson.M{"$set": bson.M{
			"seller":     entity.NormalizeAddress(seller),
			"price":      price,
			"sale_type":  saleType,
			"status":     entity.StatusListed,
			"updated_at": time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update sale fields for listing %d: %w", listingID, err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *catalogRepository) AppendPurchase(ctx context.Context, listingID uint64, rec entity.PurchaseRecord) error {
	rec.Buyer = entity.NormalizeAddress(rec.Buyer)

	// The $elemMatch exclusion makes the append idempotent on the
	// (buyer, price, token_id, timestamp) tuple: a duplicate delivery
	// matches zero documents and the follow-up read reports success.
	filter := bson.M{
		"listing_id": listingID,
		"purchase_history": bson.M{"$not": bson.M{"$elemMatch": bson.M{
			"buyer":     rec.Buyer,
			"price":     rec.Price,
			"token_id":  rec.TokenID,
			"timestamp": rec.Timestamp,
		}}},
	}
	update := bson.M{
		"$push": bson.M{"purchase_history": rec},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to append purchase for listing %d: %w", listingID, err)
	}
	if result.MatchedCount == 0 {
		existing, findErr := r.FindByListingID(ctx, listingID)
		if findErr != nil {
			return findErr
		}
		if existing.HasPurchase(rec) {
			return nil
		}
		return repository.ErrUpdateFailed
	}
	return nil
}

func (r *catalogRepository) FindByListingID(ctx context.Context, listingID uint64) (*entity.CatalogRecord, error) {
	var record entity.CatalogRecord
	err := r.collection.FindOne(ctx, bson.M{"listing_id": listingID}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get catalog record for listing %d: %w", listingID, err)
	}
	return &record, nil
}

func (r *catalogRepository) FindByRecordID(ctx context.Context, recordID string) (*entity.CatalogRecord, error) {
	objID, err := primitive.ObjectIDFromHex(recordID)
	if err != nil {
		return nil, fmt.Errorf("invalid record ID format: %w", repository.ErrNotFound)
	}

	var record entity.CatalogRecord
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get catalog record %s: %w", recordID, err)
	}
	return &record, nil
}

func (r *catalogRepository) FindByStatus(ctx context.Context, status entity.Status) ([]entity.CatalogRecord, error) {
	return r.find(ctx, bson.M{"status": status})
}

func (r *catalogRepository) FindByBuyerInHistory(ctx context.Context, buyer string) ([]entity.CatalogRecord, error) {
	return r.find(ctx, bson.M{"purchase_history.buyer": entity.NormalizeAddress(buyer)})
}

func (r *catalogRepository) find(ctx context.Context, filter bson.M) ([]entity.CatalogRecord, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []entity.CatalogRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode catalog records: %w", err)
	}
	return records, nil
}

func (r *catalogRepository) DeleteByListingID(ctx context.Context, listingID uint64) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"listing_id": listingID})
	if err != nil {
		return fmt.Errorf("failed to delete catalog record for listing %d: %w", listingID, err)
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *catalogRepository) DeleteIfUnsold(ctx context.Context, listingID uint64, requester string) error {
	requester = entity.NormalizeAddress(requester)

	result, err := r.collection.DeleteOne(ctx, bson.M{"listing_id": listingID, "seller": requester})
	if err != nil {
		return fmt.Errorf("failed to delete catalog record for listing %d: %w", listingID, err)
	}
	if result.DeletedCount == 0 {
		if _, findErr := r.FindByListingID(ctx, listingID); findErr != nil {
			return findErr
		}
		return repository.ErrDeleteForbidden
	}
	return nil
}
