package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/suatgpt/suatgpt-backend/internal/core/domain"
)

const turnsCollection = "chat_messages"

// TurnRepository implements ports.TurnRepository using MongoDB.
type TurnRepository struct {
	coll *mongo.Collection
}

func NewTurnRepository(db *mongo.Database) *TurnRepository {
	return &TurnRepository{coll: db.Collection(turnsCollection)}
}

type mongoTurn struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"user_id"`
	Sender    string             `bson:"sender"`
	Content   string             `bson:"content"`
	CreatedAt int64              `bson:"created_at"`
}

// EnsureIndexes creates the index backing history reads.
func (r *TurnRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}},
	})
	return err
}

func (r *TurnRepository) Append(ctx context.Context, turn *domain.Turn) (*domain.Turn, error) {
	createdAt := turn.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	doc := mongoTurn{
		UserID:    turn.UserID,
		Sender:    string(turn.Sender),
		Content:   turn.Content,
		CreatedAt: createdAt.UnixMicro(),
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("append turn: %w", err)
	}

	saved := *turn
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		saved.ID = oid.Hex()
	}
	saved.CreatedAt = microToTime(doc.CreatedAt)
	return &saved, nil
}

func (r *TurnRepository) ListByUser(ctx context.Context, userID string) ([]domain.Turn, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cur, err := r.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer cur.Close(ctx)

	turns := make([]domain.Turn, 0)
	for cur.Next(ctx) {
		var mt mongoTurn
		if err := cur.Decode(&mt); err != nil {
			return nil, fmt.Errorf("list turns: decode: %w", err)
		}
		turns = append(turns, domain.Turn{
			ID:        mt.ID.Hex(),
			UserID:    mt.UserID,
			Sender:    domain.Sender(mt.Sender),
			Content:   mt.Content,
			CreatedAt: microToTime(mt.CreatedAt),
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	return turns, nil
}
