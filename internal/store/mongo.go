package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/healthstats-bd/healthstats-sync/internal/model"
	"github.com/healthstats-bd/healthstats-sync/internal/status"
)

const (
	// RegionsCollection holds one document per region keyed by name
	RegionsCollection = "regions"

	// MetaCollection holds the aggregate counters and sync state singletons
	MetaCollection = "meta"

	statsDocumentID     = "aggregate_stats"
	syncStateDocumentID = "sync_state"
)

// ---- Abstractions for Testability ----

// Collection is the subset of *mongo.Collection used by MongoStore
type Collection interface {
	FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) *mongo.SingleResult
	Find(ctx context.Context, filter any, opts ...*options.FindOptions) (*mongo.Cursor, error)
	ReplaceOne(
		ctx context.Context,
		filter any,
		replacement any,
		opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
}

// CollectionProvider returns collections by name
type CollectionProvider interface {
	Collection(name string) Collection
}

// mongoProvider adapts a *mongo.Database to CollectionProvider
type mongoProvider struct {
	db *mongo.Database
}

// Collection returns the named collection of the database
func (p *mongoProvider) Collection(name string) Collection {
	return p.db.Collection(name)
}

// regionDocument stores a region keyed by its name
type regionDocument struct {
	Name          string    `bson:"_id"`
	Count         int64     `bson:"count"`
	PreviousCount int64     `bson:"previous_count"`
	LastUpdate    time.Time `bson:"last_update"`
}

func (d *regionDocument) toModel() model.Region {
	return model.Region{
		Name:          d.Name,
		Count:         d.Count,
		PreviousCount: d.PreviousCount,
		LastUpdate:    d.LastUpdate.UTC(),
	}
}

type statsDocument struct {
	ID                  string `bson:"_id"`
	model.AggregateStat `bson:",inline"`
}

type syncStateDocument struct {
	ID               string `bson:"_id"`
	status.SyncState `bson:",inline"`
}

// MongoStore keeps records in MongoDB
type MongoStore struct {
	provider CollectionProvider
	client   *mongo.Client
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore creates a store over the collections returned by provider
func NewMongoStore(provider CollectionProvider) *MongoStore {
	return &MongoStore{provider: provider}
}

// ConnectMongoStore connects to uri, verifies the connection and returns a store on database
func ConnectMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	slog.DebugContext(ctx, "Attempting to connect to MongoDB", "database", database)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to MongoDB: %w", ErrStorage, err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%w: failed to ping MongoDB: %w", ErrStorage, err)
	}

	slog.InfoContext(ctx, "Successfully established connection to MongoDB", "database", database)

	s := NewMongoStore(&mongoProvider{db: client.Database(database)})
	s.client = client
	return s, nil
}

// FindRegionByName returns the named region
func (m *MongoStore) FindRegionByName(ctx context.Context, name string) (*model.Region, error) {
	var doc regionDocument
	err := m.provider.Collection(RegionsCollection).FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("region %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("%w: failed to load region %q: %w", ErrStorage, name, err)
	}
	region := doc.toModel()
	return &region, nil
}

// UpsertRegion replaces the region document keyed by name, inserting it if absent
func (m *MongoStore) UpsertRegion(ctx context.Context, region *model.Region) error {
	if region == nil || region.Name == "" {
		return fmt.Errorf("%w: region name is required", ErrStorage)
	}

	doc := regionDocument{
		Name:          region.Name,
		Count:         region.Count,
		PreviousCount: region.PreviousCount,
		LastUpdate:    region.LastUpdate,
	}
	_, err := m.provider.Collection(RegionsCollection).
		ReplaceOne(ctx, bson.M{"_id": region.Name}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: failed to upsert region %q: %w", ErrStorage, region.Name, err)
	}
	return nil
}

// ListRegions returns all regions ordered by name
func (m *MongoStore) ListRegions(ctx context.Context) ([]model.Region, error) {
	cursor, err := m.provider.Collection(RegionsCollection).
		Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list regions: %w", ErrStorage, err)
	}

	var docs []regionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: failed to decode regions: %w", ErrStorage, err)
	}

	regions := make([]model.Region, 0, len(docs))
	for i := range docs {
		regions = append(regions, docs[i].toModel())
	}
	return regions, nil
}

// GetStats returns the aggregate counters
func (m *MongoStore) GetStats(ctx context.Context) (*model.AggregateStat, error) {
	var doc statsDocument
	err := m.provider.Collection(MetaCollection).FindOne(ctx, bson.M{"_id": statsDocumentID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("aggregate stats: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: failed to load aggregate stats: %w", ErrStorage, err)
	}
	stats := doc.AggregateStat
	stats.UpdatedAt = stats.UpdatedAt.UTC()
	return &stats, nil
}

// SaveStats replaces the aggregate counters document
func (m *MongoStore) SaveStats(ctx context.Context, stats *model.AggregateStat) error {
	if stats == nil {
		return fmt.Errorf("%w: stats cannot be nil", ErrStorage)
	}

	doc := statsDocument{ID: statsDocumentID, AggregateStat: *stats}
	_, err := m.provider.Collection(MetaCollection).
		ReplaceOne(ctx, bson.M{"_id": statsDocumentID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: failed to save aggregate stats: %w", ErrStorage, err)
	}
	return nil
}

// GetSyncState returns the sync state
func (m *MongoStore) GetSyncState(ctx context.Context) (*status.SyncState, error) {
	var doc syncStateDocument
	err := m.provider.Collection(MetaCollection).FindOne(ctx, bson.M{"_id": syncStateDocumentID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("sync state: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: failed to load sync state: %w", ErrStorage, err)
	}
	return doc.SyncState.Copy(), nil
}

// SaveSyncState replaces the sync state document
func (m *MongoStore) SaveSyncState(ctx context.Context, state *status.SyncState) error {
	if state == nil {
		return fmt.Errorf("%w: sync state cannot be nil", ErrStorage)
	}

	doc := syncStateDocument{ID: syncStateDocumentID, SyncState: *state}
	_, err := m.provider.Collection(MetaCollection).
		ReplaceOne(ctx, bson.M{"_id": syncStateDocumentID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: failed to save sync state: %w", ErrStorage, err)
	}
	return nil
}

// Close disconnects the client when the store owns one
func (m *MongoStore) Close() error {
	if m.client == nil {
		return nil
	}
	slog.Info("Closing MongoDB connection")
	return m.client.Disconnect(context.Background())
}
