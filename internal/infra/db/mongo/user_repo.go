package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"telegram-legal-assistant/internal/config"
	"telegram-legal-assistant/internal/domain"
	"telegram-legal-assistant/internal/domain/model"
	"telegram-legal-assistant/internal/domain/ports/repository"
)

// Compile-time check
var _ repository.UserRepository = (*UserRepo)(nil)

// Client wraps the mongo connection so main owns its lifecycle.
type Client struct {
	cli *mongo.Client
	db  *mongo.Database
}

func NewClient(ctx context.Context, cfg config.MongoConfig) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := cli.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Client{cli: cli, db: cli.Database(cfg.Database)}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.cli.Disconnect(ctx)
}

// UserRepo stores user documents keyed by the stringified Telegram id.
type UserRepo struct {
	col *mongo.Collection
	log *zerolog.Logger
}

func NewUserRepo(c *Client, collection string, logger *zerolog.Logger) *UserRepo {
	repoLog := logger.With().Str("component", "MongoUserRepo").Logger()
	return &UserRepo{col: c.db.Collection(collection), log: &repoLog}
}

// Save upserts the user. Profile fields are refreshed on conflict; fields
// absent from the $set (subscription state, history) keep their stored value.
func (r *UserRepo) Save(ctx context.Context, u *model.User) error {
	if u.IsZero() {
		return domain.ErrInvalidArgument
	}
	update := bson.M{
		"$set": bson.M{
			"first_name": u.FirstName,
			"last_name":  u.LastName,
			"username":   u.Username,
		},
		"$setOnInsert": bson.M{
			"subscription_active": u.SubscriptionActive,
			"subscription_info":   u.Subscription,
			"previous_requests":   u.Sessions,
			"registered_at":       u.RegisteredAt,
		},
	}
	_, err := r.col.UpdateByID(ctx, u.ID, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", u.ID, err)
	}
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", id, err)
	}
	return &u, nil
}

func (r *UserRepo) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}
	res, err := r.col.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update user %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepo) PushToArray(ctx context.Context, id string, field string, item any) error {
	res, err := r.col.UpdateByID(ctx, id, bson.M{"$push": bson.M{field: item}})
	if err != nil {
		return fmt.Errorf("push to %s for user %s: %w", field, id, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepo) ReplaceArray(ctx context.Context, id string, field string, items any) error {
	res, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{field: items}})
	if err != nil {
		return fmt.Errorf("replace %s for user %s: %w", field, id, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepo) FindActiveSubscribers(ctx context.Context) ([]*model.User, error) {
	cur, err := r.col.Find(ctx, bson.M{"subscription_active": true})
	if err != nil {
		return nil, fmt.Errorf("find active subscribers: %w", err)
	}
	defer cur.Close(ctx)

	var out []*model.User
	for cur.Next(ctx) {
		var u model.User
		if err := cur.Decode(&u); err != nil {
			r.log.Warn().Err(err).Msg("skipping undecodable user document")
			continue
		}
		out = append(out, &u)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate active subscribers: %w", err)
	}
	return out, nil
}
