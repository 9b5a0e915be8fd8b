package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/vyrodovalexey/region-catalog/internal/model"
)

// Collection names.
const (
	ItemsCollection   = "items"
	RegionsCollection = "regions"
)

type mongoCollection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) mongoSingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (mongoCursor, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	Indexes() mongoIndexView
}

type mongoSingleResult interface {
	Decode(v interface{}) error
}

type mongoCursor interface {
	All(ctx context.Context, results interface{}) error
	Close(ctx context.Context) error
}

type mongoIndexView interface {
	CreateMany(ctx context.Context, models []mongo.IndexModel, opts ...*options.CreateIndexesOptions) ([]string, error)
}

type mongoDatabase interface {
	Collection(name string) mongoCollection
	StartSession() (mongoSession, error)
	Ping(ctx context.Context) error
}

type mongoSession interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	EndSession(ctx context.Context)
}

type mongoDatabaseWrapper struct {
	db *mongo.Database
}

func (w mongoDatabaseWrapper) Collection(name string) mongoCollection {
	return mongoCollectionWrapper{collection: w.db.Collection(name)}
}

func (w mongoDatabaseWrapper) StartSession() (mongoSession, error) {
	session, err := w.db.Client().StartSession()
	if err != nil {
		return nil, err
	}
	return mongoSessionWrapper{session: session}, nil
}

func (w mongoDatabaseWrapper) Ping(ctx context.Context) error {
	return w.db.Client().Ping(ctx, readpref.Primary())
}

type mongoCollectionWrapper struct {
	collection *mongo.Collection
}

func (w mongoCollectionWrapper) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	return w.collection.InsertOne(ctx, document, opts...)
}

func (w mongoCollectionWrapper) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) mongoSingleResult {
	return w.collection.FindOne(ctx, filter, opts...)
}

func (w mongoCollectionWrapper) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (mongoCursor, error) {
	cursor, err := w.collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return cursor, nil
}

func (w mongoCollectionWrapper) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return w.collection.UpdateOne(ctx, filter, update, opts...)
}

func (w mongoCollectionWrapper) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	return w.collection.DeleteOne(ctx, filter, opts...)
}

func (w mongoCollectionWrapper) Indexes() mongoIndexView {
	return w.collection.Indexes()
}

type mongoSessionWrapper struct {
	session mongo.Session
}

func (w mongoSessionWrapper) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := w.session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

func (w mongoSessionWrapper) EndSession(ctx context.Context) {
	w.session.EndSession(ctx)
}

// itemDocument is the persisted form of model.Item.
type itemDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Price     string             `bson:"price"`
	Regions   []string           `bson:"regions"`
	Schutzart string             `bson:"schutzart"`
	BWS       string             `bson:"bws"`
	Typ       string             `bson:"typ"`
	Art       string             `bson:"art"`
	Serie     string             `bson:"serie"`
	Material  string             `bson:"material"`
	Order     int                `bson:"order"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func newItemDocument(item *model.Item) itemDocument {
	return itemDocument{
		Name:      item.Name,
		Price:     item.Price.String(),
		Regions:   item.Regions,
		Schutzart: item.Schutzart,
		BWS:       item.BWS,
		Typ:       item.Typ,
		Art:       item.Art,
		Serie:     item.Serie,
		Material:  item.Material,
		Order:     item.Order,
	}
}

func (d itemDocument) toModel() model.Item {
	// Unparseable legacy prices read as zero.
	price, _ := decimal.NewFromString(d.Price)
	regions := d.Regions
	if regions == nil {
		regions = []string{}
	}
	return model.Item{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Price:     price,
		Regions:   regions,
		Schutzart: d.Schutzart,
		BWS:       d.BWS,
		Typ:       d.Typ,
		Art:       d.Art,
		Serie:     d.Serie,
		Material:  d.Material,
		Order:     d.Order,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type regionDocument struct {
	ID   string `bson:"_id"`
	Name string `bson:"name"`
}

// MongoStore implements Store and RegionStore on top of MongoDB.
type MongoStore struct {
	db      mongoDatabase
	items   mongoCollection
	regions mongoCollection
}

// NewMongoStore creates a MongoStore for the given database and ensures its indexes.
func NewMongoStore(ctx context.Context, db *mongo.Database) (*MongoStore, error) {
	s := newMongoStore(mongoDatabaseWrapper{db: db})
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func newMongoStore(db mongoDatabase) *MongoStore {
	return &MongoStore{
		db:      db,
		items:   db.Collection(ItemsCollection),
		regions: db.Collection(RegionsCollection),
	}
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "regions", Value: 1}}},
		{Keys: bson.D{{Key: "regions", Value: 1}, {Key: "order", Value: 1}}},
	}
	if _, err := s.items.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create item indexes: %w", err)
	}
	return nil
}

// List returns all items ordered by creation time.
func (s *MongoStore) List(ctx context.Context) ([]model.Item, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := s.items.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []itemDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}

	items := make([]model.Item, 0, len(docs))
	for _, d := range docs {
		items = append(items, d.toModel())
	}
	return items, nil
}

// Get retrieves an item by its ID.
func (s *MongoStore) Get(ctx context.Context, id string) (*model.Item, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	var doc itemDocument
	if err := s.items.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get item: %w", err)
	}

	item := doc.toModel()
	return &item, nil
}

// Create inserts a new item document.
func (s *MongoStore) Create(ctx context.Context, item *model.Item) (*model.Item, error) {
	if item == nil {
		return nil, fmt.Errorf("create item: %w", ErrNilItem)
	}

	now := time.Now().UTC()
	doc := newItemDocument(item)
	doc.ID = primitive.NewObjectID()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if _, err := s.items.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	created := doc.toModel()
	return &created, nil
}

// Update merges the item fields into the stored document.
func (s *MongoStore) Update(ctx context.Context, id string, item *model.Item) (*model.Item, error) {
	if item == nil {
		return nil, fmt.Errorf("update item: %w", ErrNilItem)
	}

	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	doc := newItemDocument(item)
	update := bson.M{"$set": bson.M{
		"name":      doc.Name,
		"price":     doc.Price,
		"regions":   doc.Regions,
		"schutzart": doc.Schutzart,
		"bws":       doc.BWS,
		"typ":       doc.Typ,
		"art":       doc.Art,
		"serie":     doc.Serie,
		"material":  doc.Material,
		"order":     doc.Order,
		"updatedAt": time.Now().UTC(),
	}}

	result, err := s.items.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, ErrNotFound
	}

	return s.Get(ctx, id)
}

// Delete removes an item document.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}

	result, err := s.items.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetOrder sets the order field of a single item.
func (s *MongoStore) SetOrder(ctx context.Context, id string, order int) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	return s.setOrder(ctx, oid, order)
}

// SwapOrder exchanges the order values of a and b in one transaction.
// Transactions require MongoDB to run as a replica set.
func (s *MongoStore) SwapOrder(ctx context.Context, a, b model.Item) error {
	aID, err := parseObjectID(a.ID)
	if err != nil {
		return err
	}
	bID, err := parseObjectID(b.ID)
	if err != nil {
		return err
	}

	session, err := s.db.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	err = session.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.setOrder(txCtx, aID, b.Order); err != nil {
			return fmt.Errorf("swap order %s: %w", a.ID, err)
		}
		if err := s.setOrder(txCtx, bID, a.Order); err != nil {
			return fmt.Errorf("swap order %s: %w", b.ID, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("swap order transaction: %w", err)
	}
	return nil
}

func (s *MongoStore) setOrder(ctx context.Context, oid primitive.ObjectID, order int) error {
	update := bson.M{"$set": bson.M{"order": order, "updatedAt": time.Now().UTC()}}

	result, err := s.items.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("set order: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks the connection to the primary.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// ListRegions returns all regions sorted by name.
func (s *MongoStore) ListRegions(ctx context.Context) ([]model.Region, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := s.regions.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []regionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode regions: %w", err)
	}

	regions := make([]model.Region, 0, len(docs))
	for _, d := range docs {
		regions = append(regions, model.Region{ID: d.ID, Name: d.Name})
	}
	return regions, nil
}

// GetRegion retrieves a region by its ID.
func (s *MongoStore) GetRegion(ctx context.Context, id string) (*model.Region, error) {
	var doc regionDocument
	if err := s.regions.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRegionNotFound
		}
		return nil, fmt.Errorf("get region: %w", err)
	}
	return &model.Region{ID: doc.ID, Name: doc.Name}, nil
}

// UpsertRegion inserts or replaces a region.
func (s *MongoStore) UpsertRegion(ctx context.Context, region model.Region) error {
	if region.ID == "" {
		return ErrInvalidID
	}

	opts := options.Update().SetUpsert(true)
	update := bson.M{"$set": bson.M{"name": region.Name}}

	if _, err := s.regions.UpdateOne(ctx, bson.M{"_id": region.ID}, update, opts); err != nil {
		return fmt.Errorf("upsert region: %w", err)
	}
	return nil
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	if id == "" {
		return primitive.NilObjectID, ErrInvalidID
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", ErrInvalidID, id)
	}
	return oid, nil
}
