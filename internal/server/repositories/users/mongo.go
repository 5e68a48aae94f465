package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/slange/storefront/internal/common"
	"github.com/slange/storefront/internal/server/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CollectionName is the MongoDB collection holding user documents.
const CollectionName = "users"

// secretFields are stripped from every read except GetCredentialsByEmail.
var secretFields = []string{"passwordHash", "passwordResetToken", "passwordResetExpires", "emailVerificationToken", "emailVerificationExpires"}

type MongoRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(CollectionName), now: time.Now}
}

// EnsureIndexes creates the unique email index. It is idempotent.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("users_email_key"),
	})
	if err != nil {
		return fmt.Errorf("mongo error: %w", err)
	}
	return nil
}

func (r *MongoRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	now := r.now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("mongo error: %w", err)
	}

	return user, nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}}, publicProjection())
}

func (r *MongoRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}}, publicProjection())
}

func (r *MongoRepository) GetCredentialsByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}}, nil)
}

func (r *MongoRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.updateOne(ctx, bson.D{{Key: "_id", Value: id}}, passwordUpdate(passwordHash, r.now()))
}

func (r *MongoRepository) SetPasswordReset(ctx context.Context, id, tokenHash string, expires time.Time) error {
	return r.updateOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: bson.D{
		{Key: "passwordResetToken", Value: tokenHash},
		{Key: "passwordResetExpires", Value: expires.UTC()},
		{Key: "updatedAt", Value: r.now().UTC()},
	}}})
}

func (r *MongoRepository) ConsumePasswordReset(ctx context.Context, id, tokenHash, passwordHash string, now time.Time) error {
	return r.updateOne(ctx, resetFilter(id, tokenHash, now), passwordUpdate(passwordHash, r.now()))
}

func (r *MongoRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.set(ctx, id, bson.D{{Key: "lastLogin", Value: at.UTC()}})
}

func (r *MongoRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.set(ctx, id, bson.D{{Key: "isActive", Value: active}, {Key: "updatedAt", Value: r.now().UTC()}})
}

func (r *MongoRepository) SetRole(ctx context.Context, id string, role models.Role) error {
	return r.set(ctx, id, bson.D{{Key: "role", Value: role}, {Key: "updatedAt", Value: r.now().UTC()}})
}

func (r *MongoRepository) List(ctx context.Context, offset, limit int) ([]*models.User, error) {
	opts := options.Find().
		SetProjection(publicProjection()).
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo error: %w", err)
	}

	result := make([]*models.User, 0, limit)
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("mongo error: %w", err)
	}

	return result, nil
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.D, projection bson.D) (*models.User, error) {
	opts := options.FindOne()
	if projection != nil {
		opts.SetProjection(projection)
	}

	user := &models.User{}
	if err := r.coll.FindOne(ctx, filter, opts).Decode(user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("mongo error: %w", err)
	}

	return user, nil
}

func (r *MongoRepository) set(ctx context.Context, id string, fields bson.D) error {
	return r.updateOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: fields}})
}

func (r *MongoRepository) updateOne(ctx context.Context, filter, update bson.D) error {
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("mongo error: %w", err)
	}
	if res.MatchedCount == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func publicProjection() bson.D {
	p := make(bson.D, 0, len(secretFields))
	for _, f := range secretFields {
		p = append(p, bson.E{Key: f, Value: 0})
	}
	return p
}

func passwordUpdate(passwordHash string, now time.Time) bson.D {
	return bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "passwordHash", Value: passwordHash},
			{Key: "updatedAt", Value: now.UTC()},
		}},
		{Key: "$unset", Value: bson.D{
			{Key: "passwordResetToken", Value: ""},
			{Key: "passwordResetExpires", Value: ""},
		}},
	}
}

func resetFilter(id, tokenHash string, now time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "passwordResetToken", Value: tokenHash},
		{Key: "passwordResetExpires", Value: bson.D{{Key: "$gt", Value: now.UTC()}}},
	}
}
