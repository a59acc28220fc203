package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/tirecost/internal/domain/models"
	"github.com/mamadbah2/tirecost/internal/service/metricbus"
)

const metricsCollection = "metric_snapshots"

// metricDocument mirrors models.MetricSnapshot. BSON dates only keep
// milliseconds, so the comparison runs on computed_at_ns.
type metricDocument struct {
	Key          string    `bson:"_id"`
	Value        float64   `bson:"value"`
	ComputedAt   time.Time `bson:"computed_at"`
	ComputedAtNs int64     `bson:"computed_at_ns"`
	Source       string    `bson:"source"`
}

func toDocument(snap models.MetricSnapshot) metricDocument {
	return metricDocument{
		Key:          snap.Key,
		Value:        snap.Value,
		ComputedAt:   snap.ComputedAt,
		ComputedAtNs: snap.ComputedAt.UnixNano(),
		Source:       snap.Source,
	}
}

func (d metricDocument) snapshot() models.MetricSnapshot {
	return models.MetricSnapshot{
		Key:        d.Key,
		Value:      d.Value,
		ComputedAt: time.Unix(0, d.ComputedAtNs).UTC(),
		Source:     d.Source,
	}
}

// MetricStore persists metric snapshots in MongoDB, one document per key.
type MetricStore struct {
	client   *mongo.Client
	dbName   string
	collName string
	logger   *zap.Logger
}

var _ metricbus.Store = (*MetricStore)(nil)

// NewMetricStore connects to MongoDB and verifies the connection.
func NewMetricStore(ctx context.Context, uri string, dbName string, logger *zap.Logger) (*MetricStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MetricStore{
		client:   client,
		dbName:   dbName,
		collName: metricsCollection,
		logger:   logger,
	}, nil
}

func (s *MetricStore) collection() *mongo.Collection {
	return s.client.Database(s.dbName).Collection(s.collName)
}

// Get implements metricbus.Store.
func (s *MetricStore) Get(ctx context.Context, key string) (models.MetricSnapshot, error) {
	var doc metricDocument
	err := s.collection().FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.MetricSnapshot{}, metricbus.ErrUnknownMetric
	}
	if err != nil {
		return models.MetricSnapshot{}, fmt.Errorf("failed to read metric %s: %w", key, err)
	}
	return doc.snapshot(), nil
}

// CompareAndSet implements metricbus.Store with a conditional upsert. When
// the stored document is not older the filter misses, the upsert collides
// on _id and the write is reported as stale.
func (s *MetricStore) CompareAndSet(ctx context.Context, snap models.MetricSnapshot) (bool, error) {
	doc := toDocument(snap)
	filter := bson.M{"_id": doc.Key, "computed_at_ns": bson.M{"$lt": doc.ComputedAtNs}}
	update := bson.M{"$set": bson.M{
		"value":          doc.Value,
		"computed_at":    doc.ComputedAt,
		"computed_at_ns": doc.ComputedAtNs,
		"source":         doc.Source,
	}}

	_, err := s.collection().UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to upsert metric %s: %w", snap.Key, err)
	}

	s.logger.Debug("metric stored", zap.String("key", snap.Key), zap.Float64("value", snap.Value))
	return true, nil
}

// Close closes the MongoDB connection.
func (s *MetricStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
