package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"darkroom/internal/chat"
	"darkroom/internal/models"
	"darkroom/internal/thread"
	"darkroom/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB is the Adapter backed by MongoDB. Insert events ride on change
// streams; comment deletes are published locally after the confirmed remote
// delete, since delete stream events do not carry the document fields needed
// to route them to a photo channel.
type MongoDB struct {
	Client   *mongo.Client
	logger   *slog.Logger
	feed     *feed
	cancel   context.CancelFunc
	photos   *mongo.Collection
	comments *mongo.Collection
	messages *mongo.Collection
	profiles *mongo.Collection
	accounts *mongo.Collection
}

func NewMongoDB(uri string, logger *slog.Logger) (*MongoDB, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	db := client.Database("darkroom")
	watchCtx, watchCancel := context.WithCancel(context.Background())
	m := &MongoDB{
		Client:   client,
		logger:   logger,
		feed:     newFeed(),
		cancel:   watchCancel,
		photos:   db.Collection("photos"),
		comments: db.Collection("comments"),
		messages: db.Collection("messages"),
		profiles: db.Collection("profiles"),
		accounts: db.Collection("accounts"),
	}

	go m.watchInserts(watchCtx, m.comments, func(raw bson.Raw) (string, any) {
		var c models.Comment
		if err := bson.Unmarshal(raw, &c); err != nil {
			return "", nil
		}
		return CommentsChannel(c.PhotoID), &c
	})
	go m.watchInserts(watchCtx, m.messages, func(raw bson.Raw) (string, any) {
		var msg models.Message
		if err := bson.Unmarshal(raw, &msg); err != nil {
			return "", nil
		}
		return chat.ConversationID(msg.SenderID, msg.ReceiverID), &msg
	})

	logger.Info("connected to MongoDB")
	return m, nil
}

// watchInserts tails a collection's change stream and publishes insert
// events on the channel the router derives from the document.
func (m *MongoDB) watchInserts(ctx context.Context, coll *mongo.Collection, route func(bson.Raw) (string, any)) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "operationType", Value: "insert"}}}},
	}
	stream, err := coll.Watch(ctx, pipeline)
	if err != nil {
		m.logger.Warn("change stream unavailable; realtime limited to this instance",
			"collection", coll.Name(), "error", err)
		return
	}
	defer stream.Close(context.Background())

	for stream.Next(ctx) {
		var change struct {
			FullDocument bson.Raw `bson:"fullDocument"`
		}
		if err := stream.Decode(&change); err != nil {
			m.logger.Warn("failed to decode change event", "error", err)
			continue
		}
		channel, record := route(change.FullDocument)
		if channel == "" {
			continue
		}
		m.publishRecord(channel, OpInsert, record)
	}
}

func (m *MongoDB) Close(ctx context.Context) error {
	m.cancel()
	return m.Client.Disconnect(ctx)
}

func (m *MongoDB) Photos(ctx context.Context) ([]*models.Photo, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := m.photos.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, utils.NewDataAccessError("list photos", err)
	}
	var photos []*models.Photo
	if err := cursor.All(ctx, &photos); err != nil {
		return nil, utils.NewDataAccessError("decode photos", err)
	}
	return photos, nil
}

func (m *MongoDB) Photo(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	var photo models.Photo
	err := m.photos.FindOne(ctx, bson.M{"_id": id}).Decode(&photo)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewNotFoundError("photo")
	}
	if err != nil {
		return nil, utils.NewDataAccessError("get photo", err)
	}
	return &photo, nil
}

func (m *MongoDB) InsertPhoto(ctx context.Context, p *models.Photo) error {
	if _, err := m.photos.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.NewAppError(utils.ErrDuplicate, "photo already exists", err)
		}
		return utils.NewDataAccessError("insert photo", err)
	}
	return nil
}

func (m *MongoDB) Comments(ctx context.Context, photoID uuid.UUID) ([]*models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := m.comments.Find(ctx, bson.M{"photo_id": photoID}, opts)
	if err != nil {
		return nil, utils.NewDataAccessError("list comments", err)
	}
	var comments []*models.Comment
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, utils.NewDataAccessError("decode comments", err)
	}
	return comments, nil
}

func (m *MongoDB) InsertComment(ctx context.Context, c *models.Comment) error {
	if _, err := m.comments.InsertOne(ctx, c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.NewAppError(utils.ErrDuplicate, "comment already exists", err)
		}
		return utils.NewDataAccessError("insert comment", err)
	}
	return nil
}

func (m *MongoDB) DeleteComment(ctx context.Context, id uuid.UUID) error {
	var target models.Comment
	err := m.comments.FindOne(ctx, bson.M{"_id": id}).Decode(&target)
	if err == mongo.ErrNoDocuments {
		return utils.NewNotFoundError("comment")
	}
	if err != nil {
		return utils.NewDataAccessError("get comment for delete", err)
	}

	// No server-side cascade here: compute the subtree from the photo's
	// flat collection and delete every member.
	flat, err := m.Comments(ctx, target.PhotoID)
	if err != nil {
		return err
	}
	removed := thread.Descendants(id, flat)
	ids := make([]uuid.UUID, 0, len(removed))
	for rid := range removed {
		ids = append(ids, rid)
	}
	if _, err := m.comments.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return utils.NewDataAccessError("delete comment subtree", err)
	}

	m.publishRecord(CommentsChannel(target.PhotoID), OpDelete, &target)
	return nil
}

func (m *MongoDB) Conversation(ctx context.Context, a, b uuid.UUID) ([]*models.Message, error) {
	filter := bson.M{"$or": []bson.M{
		{"sender_id": a, "receiver_id": b},
		{"sender_id": b, "receiver_id": a},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := m.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, utils.NewDataAccessError("load conversation", err)
	}
	var messages []*models.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, utils.NewDataAccessError("decode messages", err)
	}
	return messages, nil
}

func (m *MongoDB) InsertMessage(ctx context.Context, msg *models.Message) error {
	if _, err := m.messages.InsertOne(ctx, msg); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.NewAppError(utils.ErrDuplicate, "message already exists", err)
		}
		return utils.NewDataAccessError("insert message", err)
	}
	return nil
}

func (m *MongoDB) Profile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := m.profiles.FindOne(ctx, bson.M{"_id": id}).Decode(&profile)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewNotFoundError("profile")
	}
	if err != nil {
		return nil, utils.NewDataAccessError("get profile", err)
	}
	return &profile, nil
}

func (m *MongoDB) InsertProfile(ctx context.Context, p *models.Profile) error {
	if _, err := m.profiles.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.NewAppError(utils.ErrDuplicate, "profile already exists", err)
		}
		return utils.NewDataAccessError("insert profile", err)
	}
	return nil
}

func (m *MongoDB) UpdateProfile(ctx context.Context, p *models.Profile) error {
	update := bson.M{"$set": bson.M{
		"display_name": p.DisplayName,
		"avatar_url":   p.AvatarURL,
		"updated_at":   p.UpdatedAt,
	}}
	res, err := m.profiles.UpdateOne(ctx, bson.M{"_id": p.ID}, update)
	if err != nil {
		return utils.NewDataAccessError("update profile", err)
	}
	if res.MatchedCount == 0 {
		return utils.NewNotFoundError("profile")
	}
	return nil
}

func (m *MongoDB) Account(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	err := m.accounts.FindOne(ctx, bson.M{"_id": id}).Decode(&account)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewAppError(utils.ErrAccountNotFound, "account not found", err)
	}
	if err != nil {
		return nil, utils.NewDataAccessError("get account", err)
	}
	return &account, nil
}

func (m *MongoDB) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := m.accounts.FindOne(ctx, bson.M{"email": email}).Decode(&account)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewAppError(utils.ErrAccountNotFound, "account not found", err)
	}
	if err != nil {
		return nil, utils.NewDataAccessError("get account by email", err)
	}
	return &account, nil
}

func (m *MongoDB) InsertAccount(ctx context.Context, a *models.Account) error {
	if _, err := m.accounts.InsertOne(ctx, a); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.NewAppError(utils.ErrAccountAlreadyExists, "email already registered", err)
		}
		return utils.NewDataAccessError("insert account", err)
	}
	return nil
}

func (m *MongoDB) Subscribe(channel string) (<-chan Event, func()) {
	return m.feed.subscribe(channel)
}

func (m *MongoDB) publishRecord(channel, op string, record any) {
	payload, err := json.Marshal(record)
	if err != nil {
		return
	}
	m.feed.publish(Event{Channel: channel, Op: op, Payload: payload})
}
