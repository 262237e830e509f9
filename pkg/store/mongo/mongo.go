package mongo

import (
	"context"
	"fmt"
	"sync"

	"visitd/pkg/models"
	"visitd/pkg/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	// DefaultDatabase is used when the caller does not name one.
	DefaultDatabase = "visitd"

	visitsCollection = "visits"
)

// Store is the document visit backend on top of the official MongoDB
// driver. Visits live in one collection, one document per visit.
type Store struct {
	uri      string
	database string

	mu     sync.Mutex
	client *mongo.Client
}

// New creates a store for the given connection URI. No connection is made
// until Connect.
func New(uri, database string) *Store {
	if database == "" {
		database = DefaultDatabase
	}
	return &Store{uri: uri, database: database}
}

// Connect establishes the client session on first use and verifies it
// with a ping. Later calls ping the existing session.
func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client.Ping(ctx, readpref.Primary())
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(s.uri))
	if err != nil {
		return fmt.Errorf("connect mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return fmt.Errorf("ping mongodb: %w", err)
	}

	s.client = client
	return nil
}

// Close tears down the client session.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Disconnect(ctx)
	s.client = nil
	return err
}

func (s *Store) visits() (*mongo.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil, store.ErrNotConnected
	}
	return s.client.Database(s.database).Collection(visitsCollection), nil
}

// InsertVisit persists one visit document.
func (s *Store) InsertVisit(ctx context.Context, visit models.VisitRecord) error {
	coll, err := s.visits()
	if err != nil {
		return err
	}

	if _, err := coll.InsertOne(ctx, visit); err != nil {
		return fmt.Errorf("insert visit: %w", err)
	}
	return nil
}

// CountVisits returns the total number of visit documents.
func (s *Store) CountVisits(ctx context.Context) (int64, error) {
	coll, err := s.visits()
	if err != nil {
		return 0, err
	}

	count, err := coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count visits: %w", err)
	}
	return count, nil
}

// RecentVisits returns up to limit visits, most recent first.
func (s *Store) RecentVisits(ctx context.Context, limit int) ([]models.VisitRecord, error) {
	coll, err := s.visits()
	if err != nil {
		return nil, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("query recent visits: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var visits []models.VisitRecord
	if err := cursor.All(ctx, &visits); err != nil {
		return nil, fmt.Errorf("decode visits: %w", err)
	}
	return visits, nil
}

// Info returns the collection names and the visit count.
func (s *Store) Info(ctx context.Context) (*models.BackendInfo, error) {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()

	if client == nil {
		return nil, store.ErrNotConnected
	}

	collections, err := client.Database(s.database).ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	info := &models.BackendInfo{
		Database:    s.database,
		Collections: collections,
	}
	if count, err := s.CountVisits(ctx); err == nil {
		info.VisitCount = count
	}
	return info, nil
}
