package registry

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/starford/citypages/internal/apperr"
	"github.com/starford/citypages/internal/category"
	"github.com/starford/citypages/internal/models"
)

// MongoConfig holds connection settings for the Mongo backend.
type MongoConfig struct {
	URI      string
	Database string
	Username string
	Password string
}

// Mongo is a Backend storing each category in its own collection.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

var _ Backend = (*Mongo)(nil)

// caseInsensitive makes the unique name index ignore letter case.
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// OpenMongo connects, pings and ensures the unique indexes of every category.
func OpenMongo(ctx context.Context, cfg MongoConfig) (*Mongo, error) {
	clientOptions := options.Client().ApplyURI(cfg.URI)
	if cfg.Username != "" && cfg.Password != "" {
		clientOptions.SetAuth(options.Credential{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("registry: mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("registry: mongo ping: %w", err)
	}

	m := &Mongo{
		client: client,
		db:     client.Database(cfg.Database),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, cat := range category.All() {
		if err := m.ensureIndexes(ctx, cat); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
	}
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context, cat category.Category) error {
	_, err := m.db.Collection(cat.Collection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true).SetCollation(caseInsensitive),
		},
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "component", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "createdAt", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("registry: create %s indexes: %w", cat, err)
	}
	return nil
}

// Registry returns the registry of cat.
func (m *Mongo) Registry(cat category.Category) Registry {
	return &mongoRegistry{Mongo: m, cat: cat, coll: m.db.Collection(cat.Collection)}
}

// Close disconnects the client.
func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

type mongoRegistry struct {
	*Mongo
	cat  category.Category
	coll *mongo.Collection
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

func (r *mongoRegistry) list(ctx context.Context, filter bson.M) ([]models.City, error) {
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("registry: list %s: %w", r.cat, err)
	}
	defer cursor.Close(ctx)

	var out []models.City
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("registry: decode %s: %w", r.cat, err)
	}
	return nonNil(out), nil
}

func (r *mongoRegistry) ListActive(ctx context.Context) ([]models.City, error) {
	return r.list(ctx, bson.M{"isActive": true})
}

func (r *mongoRegistry) ListAll(ctx context.Context) ([]models.City, error) {
	return r.list(ctx, bson.M{})
}

func (r *mongoRegistry) findOne(ctx context.Context, filter bson.M) (*models.City, error) {
	var c models.City
	if err := r.coll.FindOne(ctx, filter).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *mongoRegistry) FindBySlug(ctx context.Context, s string, includeInactive bool) (*models.City, error) {
	l := resolve(s, r.cat)
	var filters []bson.M
	for _, cand := range l.slugs {
		filters = append(filters, bson.M{"slug": cand})
	}
	for _, cand := range l.names {
		filters = append(filters, bson.M{"name": nameFilter(cand)})
	}
	for _, f := range filters {
		if !includeInactive {
			f["isActive"] = true
		}
		c, err := r.findOne(ctx, f)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("registry: find %s city: %w", r.cat, err)
		}
	}
	return nil, fmt.Errorf("%w: %s city %q", apperr.ErrNotFound, r.cat.Title, s)
}

// nameFilter matches name exactly, ignoring case. The value is escaped so
// request input never becomes a pattern.
func nameFilter(name string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(name) + "$", Options: "i"}
}

func (r *mongoRegistry) FindByID(ctx context.Context, id string) (*models.City, error) {
	c, err := r.findOne(ctx, bson.M{"_id": id})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s city %s", apperr.ErrNotFound, r.cat.Title, id)
	}
	if err != nil {
		return nil, fmt.Errorf("registry: find %s by id: %w", r.cat, err)
	}
	return c, nil
}

func (r *mongoRegistry) Create(ctx context.Context, c *models.City) error {
	now := r.now()
	c.ID = uuid.NewString()
	c.Category = r.cat.Key
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.ProvisionState == "" {
		c.ProvisionState = models.ProvisionPending
	}
	if _, err := r.coll.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("registry: create %s city: %w", r.cat, mapMongoErr(err))
	}
	return nil
}

func (r *mongoRegistry) Update(ctx context.Context, c *models.City) error {
	c.UpdatedAt = r.now()
	c.Category = r.cat.Key
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": c.ID}, c)
	if err != nil {
		return fmt.Errorf("registry: update %s city: %w", r.cat, mapMongoErr(err))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s city %s", apperr.ErrNotFound, r.cat.Title, c.ID)
	}
	return nil
}

func (r *mongoRegistry) SetProvisionState(ctx context.Context, id, state string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"provisionState": state}})
	if err != nil {
		return fmt.Errorf("registry: set provision state: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s city %s", apperr.ErrNotFound, r.cat.Title, id)
	}
	return nil
}

func (r *mongoRegistry) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("registry: delete %s city: %w", r.cat, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s city %s", apperr.ErrNotFound, r.cat.Title, id)
	}
	return nil
}

func mapMongoErr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: duplicate city", apperr.ErrConflict)
	}
	return err
}
