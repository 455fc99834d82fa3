// Package mongo stores claims in a MongoDB collection written by the
// claim-harvesting backend.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/ppiankov/claimcheck/internal/model"
)

const connectTimeout = 10 * time.Second

var (
	connectMongo = func(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
		return mongo.Connect(ctx, opts)
	}
	pingMongo = func(ctx context.Context, cli *mongo.Client) error {
		return cli.Ping(ctx, readpref.Primary())
	}
)

// claimDoc is the subset of a claim document this service reads
type claimDoc struct {
	ID            any    `bson:"_id"`
	ResolvedClaim string `bson:"resolvedClaim"`
}

// Store reads and flags documents in the claims collection
type Store struct {
	client *mongo.Client
	col    *mongo.Collection

	// ids maps a claim ID to the _id value it was read with
	ids sync.Map
}

// Open connects to uri and uses the given database and collection
func Open(ctx context.Context, uri, database, collection string) (*Store, error) {
	if uri == "" {
		return nil, errors.New("mongo URI is required")
	}
	if collection == "" {
		collection = "claims"
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	cli, err := connectMongo(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := pingMongo(ctx, cli); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Store{client: cli, col: cli.Database(database).Collection(collection)}, nil
}

// NewWithCollection wraps an existing collection. Close is a no-op for it.
func NewWithCollection(col *mongo.Collection) *Store {
	return &Store{col: col}
}

// FetchUnverified returns claims whose verified flag is not true
func (s *Store) FetchUnverified(ctx context.Context) ([]model.Claim, error) {
	filter := bson.M{"verified": bson.M{"$ne": true}}
	opts := options.Find().SetProjection(bson.M{"_id": 1, "resolvedClaim": 1})

	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find unverified claims: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var claims []model.Claim
	for cur.Next(ctx) {
		var doc claimDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode claim: %w", err)
		}
		if doc.ResolvedClaim == "" {
			continue
		}
		id := idString(doc.ID)
		s.ids.Store(id, doc.ID)
		claims = append(claims, model.Claim{ID: id, Text: doc.ResolvedClaim})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate claims: %w", err)
	}

	return claims, nil
}

// MarkVerified sets verified=true on the claim with id. A claim returned by
// FetchUnverified is matched by the _id value it was read with. Unknown hex
// ids are matched as ObjectIDs, anything else as a plain string id.
func (s *Store) MarkVerified(ctx context.Context, id string) error {
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": s.rawID(id)}, bson.M{"$set": bson.M{"verified": true}})
	if err != nil {
		return fmt.Errorf("mark claim %s verified: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("mark claim %s verified: %w", id, mongo.ErrNoDocuments)
	}
	s.ids.Delete(id)
	return nil
}

// Close disconnects the client opened by Open
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func idString(id any) string {
	switch v := id.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func (s *Store) rawID(id string) any {
	if raw, ok := s.ids.Load(id); ok {
		return raw
	}
	return idValue(id)
}

func idValue(id string) any {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}
