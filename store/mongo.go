package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/use-agent/pagescrape/models"
)

var _ Store = (*Mongo)(nil)

// mongoCollection holds one document per record.
const mongoCollection = "scraped_data"

// Mongo stores records as native documents with ObjectID keys; the result
// is an embedded document.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoRecord struct {
	ID           primitive.ObjectID   `bson:"_id"`
	URL          string               `bson:"url"`
	Title        string               `bson:"title"`
	Status       string               `bson:"status"`
	ErrorMessage string               `bson:"error_message,omitempty"`
	CreatedAt    time.Time            `bson:"created_at"`
	CompletedAt  *time.Time           `bson:"completed_at,omitempty"`
	Result       *models.ScrapeResult `bson:"result,omitempty"`
}

func (r *mongoRecord) toModel() *models.ScrapeRecord {
	rec := &models.ScrapeRecord{
		ID:           r.ID.Hex(),
		URL:          r.URL,
		Title:        r.Title,
		Status:       models.Status(r.Status),
		ErrorMessage: r.ErrorMessage,
		CreatedAt:    r.CreatedAt.UTC(),
		Result:       r.Result,
	}
	if r.CompletedAt != nil {
		t := r.CompletedAt.UTC()
		rec.CompletedAt = &t
	}
	if rec.Result != nil {
		rec.Result.ScrapedAt = rec.Result.ScrapedAt.UTC()
		rec.Result.Normalize()
	}
	return rec
}

// OpenMongo connects to uri and uses the scraped_data collection of database.
func OpenMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	coll := client.Database(database).Collection(mongoCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &Mongo{client: client, coll: coll}, nil
}

func (s *Mongo) CreatePending(ctx context.Context, url string) (*models.ScrapeRecord, error) {
	doc := &mongoRecord{
		ID:        primitive.NewObjectID(),
		URL:       url,
		Status:    string(models.StatusPending),
		CreatedAt: now(),
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to insert record: %w", err)
	}
	return doc.toModel(), nil
}

func (s *Mongo) MarkSuccess(ctx context.Context, id string, result *models.ScrapeResult) error {
	if result == nil {
		return errNilResult(id)
	}
	return s.complete(ctx, id, bson.M{
		"status":       string(models.StatusSuccess),
		"title":        models.RecordTitle(result),
		"result":       result,
		"completed_at": now(),
	})
}

func (s *Mongo) MarkError(ctx context.Context, id, message string) error {
	return s.complete(ctx, id, bson.M{
		"status":        string(models.StatusError),
		"error_message": message,
		"completed_at":  now(),
	})
}

func (s *Mongo) complete(ctx context.Context, id string, set bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return errNotFound(id)
	}

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "status": string(models.StatusPending)},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return errInvalidState(id, rec.Status)
}

func (s *Mongo) Get(ctx context.Context, id string) (*models.ScrapeRecord, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errNotFound(id)
	}

	raw, err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load record: %w", err)
	}
	return decodeRecord(id, raw)
}

func (s *Mongo) ListRecent(ctx context.Context, limit int) ([]*models.ScrapeRecord, error) {
	records := []*models.ScrapeRecord{}
	if limit <= 0 {
		return records, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		id, _ := cur.Current.Lookup("_id").ObjectIDOK()
		rec, err := decodeRecord(id.Hex(), cur.Current)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Close disconnects the client.
func (s *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// decodeRecord unmarshals a raw document; a document that does not fit the
// record shape is SERIALIZATION_FAILED.
func decodeRecord(id string, raw bson.Raw) (*models.ScrapeRecord, error) {
	var doc mongoRecord
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeSerialization,
			fmt.Sprintf("stored record %s cannot be decoded", id), err)
	}
	return doc.toModel(), nil
}
