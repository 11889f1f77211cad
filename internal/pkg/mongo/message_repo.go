package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MessageRepo interface {
	SaveMessage(ctx context.Context, msg *Message) error
	GetConversation(ctx context.Context, listingID *uint64, userA, userB uint64) ([]*Message, error)
	GetByParticipant(ctx context.Context, userID uint64) ([]*Message, error)
}

type messageRepoImpl struct {
	col *mongo.Collection
}

func NewMessageRepo(db *mongo.Database) MessageRepo {
	return &messageRepoImpl{
		col: db.Collection(MessageCollection),
	}
}

// SaveMessage 追加一条消息，ID 为空时生成 ObjectID
func (s *messageRepoImpl) SaveMessage(ctx context.Context, msg *Message) error {
	if msg.ID == "" {
		msg.ID = primitive.NewObjectID().Hex()
	}
	if msg.Media == nil {
		msg.Media = []MediaAttachment{}
	}
	_, err := s.col.InsertOne(ctx, msg)
	return err
}

// GetConversation 两人在某个房源下的全部消息，按时间升序；listingID 为 nil 时查无房源的私聊
func (s *messageRepoImpl) GetConversation(ctx context.Context, listingID *uint64, userA, userB uint64) ([]*Message, error) {
	filter := bson.M{
		"listing_id": nil,
		"$or": bson.A{
			bson.M{"sender_id": userA, "receiver_id": userB},
			bson.M{"sender_id": userB, "receiver_id": userA},
		},
	}
	if listingID != nil {
		filter["listing_id"] = *listingID
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	return s.find(ctx, filter, findOptions)
}

// GetByParticipant userID 作为发送方或接收方的全部消息，按时间倒序
func (s *messageRepoImpl) GetByParticipant(ctx context.Context, userID uint64) ([]*Message, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"sender_id": userID},
			bson.M{"receiver_id": userID},
		},
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	return s.find(ctx, filter, findOptions)
}

func (s *messageRepoImpl) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*Message, error) {
	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	messages := make([]*Message, 0)
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}
