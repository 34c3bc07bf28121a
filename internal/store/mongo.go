package store

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AnshRaj112/visitrace-backend/internal/models"
)

const (
	requestsCollection   = "requests"
	reputationCollection = "ip_reputation"
)

// Document keys per search field, matching the bson tags on RequestEvent.
var requestKeys = map[models.SearchField]string{
	models.FieldVisitorToken: "visitor_token",
	models.FieldHost:         "host",
	models.FieldUserAgent:    "user_agent",
	models.FieldIP:           "ip",
}

// MongoStore implements Store on a MongoDB database.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore wraps a connected database. client may be nil when the caller
// owns the connection lifecycle.
func NewMongoStore(client *mongo.Client, db *mongo.Database) *MongoStore {
	return &MongoStore{client: client, db: db}
}

// EnsureIndexes configures indexes for both collections.
// Called on startup after Mongo has connected.
func (m *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		requestsCollection: {
			{Keys: bson.D{{Key: "timestamp", Value: -1}}, Options: options.Index().SetName("idx_timestamp")},
			{Keys: bson.D{{Key: "visitor_token", Value: 1}, {Key: "timestamp", Value: -1}}, Options: options.Index().SetName("idx_visitor_timestamp")},
			{Keys: bson.D{{Key: "host", Value: 1}, {Key: "timestamp", Value: -1}}, Options: options.Index().SetName("idx_host_timestamp")},
			{Keys: bson.D{{Key: "ip", Value: 1}, {Key: "timestamp", Value: -1}}, Options: options.Index().SetName("idx_ip_timestamp")},
		},
		reputationCollection: {
			{Keys: bson.D{{Key: "ip", Value: 1}, {Key: "timestamp", Value: 1}}, Options: options.Index().SetName("idx_ip_timestamp")},
			{Keys: bson.D{{Key: "timestamp", Value: 1}}, Options: options.Index().SetName("idx_timestamp")},
		},
	}

	for name, idx := range indexes {
		if _, err := m.db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("ensure %s indexes: %w", name, err)
		}
	}
	return nil
}

func (m *MongoStore) InsertRequest(ctx context.Context, e *models.RequestEvent) error {
	if _, err := m.db.Collection(requestsCollection).InsertOne(ctx, e); err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (m *MongoStore) QueryRequests(ctx context.Context, q models.RequestQuery) ([]models.RequestEvent, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	key, ok := requestKeys[q.Field]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSearchField, q.Field)
	}

	filter := requestFilter(key, q.Value, q.Fragment)
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetSkip(int64(q.Offset)).
		SetLimit(int64(q.Limit))

	cursor, err := m.db.Collection(requestsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer cursor.Close(ctx)

	events := make([]models.RequestEvent, 0, q.Limit)
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode requests: %w", err)
	}
	return events, nil
}

// requestFilter builds an exact or case-sensitive substring filter.
func requestFilter(key, value string, fragment bool) bson.M {
	if fragment {
		return bson.M{key: primitive.Regex{Pattern: regexp.QuoteMeta(value)}}
	}
	return bson.M{key: value}
}

func (m *MongoStore) InsertReputation(ctx context.Context, e *models.ReputationEntry) error {
	if _, err := m.db.Collection(reputationCollection).InsertOne(ctx, e); err != nil {
		return fmt.Errorf("insert reputation: %w", err)
	}
	return nil
}

func (m *MongoStore) FindFreshReputation(ctx context.Context, ip string, cutoff time.Time) (*models.ReputationEntry, error) {
	var e models.ReputationEntry
	err := m.db.Collection(reputationCollection).FindOne(ctx, bson.M{
		"ip":        ip,
		"timestamp": bson.M{"$gt": cutoff},
	}, options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: 1}})).Decode(&e)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find reputation: %w", err)
	}
	return &e, nil
}

func (m *MongoStore) DeleteStaleReputation(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := m.db.Collection(reputationCollection).DeleteMany(ctx, bson.M{
		"timestamp": bson.M{"$lte": cutoff},
	})
	if err != nil {
		return 0, fmt.Errorf("delete stale reputation: %w", err)
	}
	return res.DeletedCount, nil
}

func (m *MongoStore) Close(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}
