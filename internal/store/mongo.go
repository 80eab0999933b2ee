package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/bhagwatcoding/cms-winfoa-sub000/internal/models"
)

// SessionsCollection is the MongoDB collection holding session documents.
const SessionsCollection = "sessions"

// MongoSessionStore keeps sessions as documents with nested device, location
// and security sub-documents.
type MongoSessionStore struct {
	coll *mongo.Collection
}

var _ SessionStore = (*MongoSessionStore)(nil)

// NewMongoSessionStore binds the store to db and ensures its indexes exist.
func NewMongoSessionStore(ctx context.Context, db *mongo.Database) (*MongoSessionStore, error) {
	if db == nil {
		return nil, errors.New("session store: mongo database is required")
	}
	s := &MongoSessionStore{coll: db.Collection(SessionsCollection)}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MongoSessionStore) ensureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}},
	})
	if err != nil {
		return unavailable("create indexes", err)
	}
	return nil
}

// Create inserts a new session document.
func (s *MongoSessionStore) Create(ctx context.Context, session *models.Session) error {
	if session == nil {
		return errors.New("session store: session is required")
	}
	session.EnsureID()
	now := utcNow()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = session.CreatedAt
	}

	if _, err := s.coll.InsertOne(ctx, session); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return unavailable("create", err)
	}
	return nil
}

// FindByTokenHash loads the session bound to hash.
func (s *MongoSessionStore) FindByTokenHash(ctx context.Context, hash string, opts LookupOptions) (*models.Session, error) {
	filter := bson.D{{Key: "token_hash", Value: hash}}
	if opts.ActiveOnly {
		filter = append(filter,
			bson.E{Key: "is_active", Value: true},
			bson.E{Key: "status", Value: models.SessionStatusActive},
		)
	}
	if !opts.NotExpiredAt.IsZero() {
		filter = append(filter, bson.E{Key: "expires_at", Value: bson.D{{Key: "$gt", Value: opts.NotExpiredAt.UTC()}}})
	}
	return s.findOne(ctx, filter, "find by token hash")
}

// FindByID loads a session by its identifier.
func (s *MongoSessionStore) FindByID(ctx context.Context, id string) (*models.Session, error) {
	return s.findOne(ctx, bson.D{{Key: "_id", Value: id}}, "find by id")
}

func (s *MongoSessionStore) findOne(ctx context.Context, filter bson.D, op string) (*models.Session, error) {
	var session models.Session
	if err := s.coll.FindOne(ctx, filter).Decode(&session); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, unavailable(op, err)
	}
	return &session, nil
}

// FindByUser lists every session of the user, newest first.
func (s *MongoSessionStore) FindByUser(ctx context.Context, userID string) ([]models.Session, error) {
	return s.FindWhere(ctx, Filter{UserID: userID})
}

// FindWhere lists matching sessions, newest first.
func (s *MongoSessionStore) FindWhere(ctx context.Context, filter Filter) ([]models.Session, error) {
	cursor, err := s.coll.Find(ctx, filterDocument(filter),
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, unavailable("find", err)
	}
	sessions := make([]models.Session, 0)
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, unavailable("decode", err)
	}
	return sessions, nil
}

// UpdateFields applies update to one session.
func (s *MongoSessionStore) UpdateFields(ctx context.Context, id string, update Update) error {
	if update.Empty() {
		return nil
	}
	result, err := s.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, setDocument(update))
	if err != nil {
		return unavailable("update", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateWhere applies update to every matching session and returns how many changed.
func (s *MongoSessionStore) UpdateWhere(ctx context.Context, filter Filter, update Update) (int64, error) {
	if !filter.Scoped() {
		return 0, ErrUnscoped
	}
	if update.Empty() {
		return 0, nil
	}
	result, err := s.coll.UpdateMany(ctx, filterDocument(filter), setDocument(update))
	if err != nil {
		return 0, unavailable("bulk update", err)
	}
	return result.ModifiedCount, nil
}

// DeleteWhere removes matching sessions and returns how many were deleted.
func (s *MongoSessionStore) DeleteWhere(ctx context.Context, filter Filter) (int64, error) {
	if !filter.Scoped() {
		return 0, ErrUnscoped
	}
	result, err := s.coll.DeleteMany(ctx, filterDocument(filter))
	if err != nil {
		return 0, unavailable("delete", err)
	}
	return result.DeletedCount, nil
}

// Count returns the number of matching sessions.
func (s *MongoSessionStore) Count(ctx context.Context, filter Filter) (int64, error) {
	total, err := s.coll.CountDocuments(ctx, filterDocument(filter))
	if err != nil {
		return 0, unavailable("count", err)
	}
	return total, nil
}

// CountBy groups the user's sessions by dimension with a $match/$group pipeline.
func (s *MongoSessionStore) CountBy(ctx context.Context, userID string, dimension Dimension) (map[string]int64, error) {
	mapping, ok := dimensions[dimension]
	if !ok {
		return nil, unknownDimension(dimension)
	}

	match := bson.D{}
	if userID != "" {
		match = append(match, bson.E{Key: "user_id", Value: userID})
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + mapping.field},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, unavailable("count by "+string(dimension), err)
	}
	var rows []struct {
		Bucket string `bson:"_id"`
		Total  int64  `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, unavailable("decode", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Bucket] += row.Total
	}
	return counts, nil
}

// Ping checks the MongoDB deployment.
func (s *MongoSessionStore) Ping(ctx context.Context) error {
	if err := s.coll.Database().Client().Ping(ctx, readpref.Primary()); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func filterDocument(filter Filter) bson.D {
	doc := bson.D{}
	if filter.UserID != "" {
		doc = append(doc, bson.E{Key: "user_id", Value: filter.UserID})
	}
	if filter.ExcludeID != "" {
		doc = append(doc, bson.E{Key: "_id", Value: bson.D{{Key: "$ne", Value: filter.ExcludeID}}})
	}
	if filter.Status != "" {
		doc = append(doc, bson.E{Key: "status", Value: filter.Status})
	}
	if filter.IsActive != nil {
		doc = append(doc, bson.E{Key: "is_active", Value: *filter.IsActive})
	}
	if filter.Verified != nil {
		doc = append(doc, bson.E{Key: "security.is_verified", Value: *filter.Verified})
	}
	if len(filter.RiskLevels) > 0 {
		doc = append(doc, bson.E{Key: "security.risk_level", Value: bson.D{{Key: "$in", Value: filter.RiskLevels}}})
	}
	if filter.MissingLocation {
		doc = append(doc,
			bson.E{Key: "location.country", Value: ""},
			bson.E{Key: "location.ip_address", Value: ""},
		)
	}

	expires := bson.D{}
	if !filter.ExpiresBefore.IsZero() {
		expires = append(expires, bson.E{Key: "$lt", Value: filter.ExpiresBefore.UTC()})
	}
	if !filter.ExpiresAfter.IsZero() {
		expires = append(expires, bson.E{Key: "$gt", Value: filter.ExpiresAfter.UTC()})
	}
	if len(expires) > 0 {
		doc = append(doc, bson.E{Key: "expires_at", Value: expires})
	}
	if !filter.CreatedAfter.IsZero() {
		doc = append(doc, bson.E{Key: "created_at", Value: bson.D{{Key: "$gte", Value: filter.CreatedAfter.UTC()}}})
	}
	return doc
}

func setDocument(update Update) bson.D {
	set := bson.D{{Key: "updated_at", Value: utcNow()}}
	if update.LastAccessedAt != nil {
		set = append(set, bson.E{Key: "last_accessed_at", Value: update.LastAccessedAt.UTC()})
	}
	if update.Status != nil {
		set = append(set, bson.E{Key: "status", Value: *update.Status})
	}
	if update.IsActive != nil {
		set = append(set, bson.E{Key: "is_active", Value: *update.IsActive})
	}
	if update.ExpiresAt != nil {
		set = append(set, bson.E{Key: "expires_at", Value: update.ExpiresAt.UTC()})
	}
	if update.LastSecurityCheck != nil {
		set = append(set, bson.E{Key: "security.last_security_check", Value: update.LastSecurityCheck.UTC()})
	}
	return bson.D{{Key: "$set", Value: set}}
}
