package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chat-backend/internal/database"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection names match the ones the previous mongoose models wrote to, so an
// existing database can be served without migrating it.
const (
	usersCollection    = "users"
	chatsCollection    = "chats"
	messagesCollection = "chatmessages"
)

type mongoUser struct {
	Id        bson.ObjectID `bson:"_id,omitempty"`
	Email     string        `bson:"email"`
	CreatedAt time.Time     `bson:"created_at"`
}

type mongoChat struct {
	Id        bson.ObjectID `bson:"_id,omitempty"`
	User      bson.ObjectID `bson:"user"`
	CreatedAt time.Time     `bson:"created_at"`
}

type mongoMessage struct {
	Id        bson.ObjectID     `bson:"_id,omitempty"`
	Chat      bson.ObjectID     `bson:"chat"`
	Role      string            `bson:"role"`
	Text      string            `bson:"text"`
	CreatedAt time.Time         `bson:"created_at"`
	Metadata  map[string]string `bson:"metadata,omitempty"`
}

type MongoStore struct {
	client   *mongo.Client
	users    *mongo.Collection
	chats    *mongo.Collection
	messages *mongo.Collection
}

func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("unable to connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("unable to ping mongodb: %w", err)
	}

	db := client.Database(dbName)
	store := &MongoStore{
		client:   client,
		users:    db.Collection(usersCollection),
		chats:    db.Collection(chatsCollection),
		messages: db.Collection(messagesCollection),
	}

	if err := store.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	slog.Info("mongodb store ready", "database", dbName)

	return store, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	unique := []struct {
		coll *mongo.Collection
		key  string
	}{
		{s.users, "email"},
		{s.chats, "user"},
	}
	for _, idx := range unique {
		_, err := idx.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: idx.key, Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return fmt.Errorf("error creating unique index on %s.%s: %w", idx.coll.Name(), idx.key, err)
		}
	}

	_, err := s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "chat", Value: 1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("error creating chat message index: %w", err)
	}

	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// upsert returns the document matching filter, inserting it first when absent.
// Two racing upserts can both miss and one of them fails on the unique index;
// that one simply reads the winner.
func upsert(ctx context.Context, coll *mongo.Collection, filter bson.D, onInsert bson.D, dest any) error {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	update := bson.D{{Key: "$setOnInsert", Value: onInsert}}

	err := coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(dest)
	if mongo.IsDuplicateKeyError(err) {
		err = coll.FindOne(ctx, filter).Decode(dest)
	}
	return err
}

func (s *MongoStore) ResolveChat(ctx context.Context, email string) (ChatRef, error) {
	now := time.Now().UTC()

	var user mongoUser
	if err := upsert(ctx, s.users,
		bson.D{{Key: "email", Value: email}},
		bson.D{{Key: "created_at", Value: now}},
		&user,
	); err != nil {
		return ChatRef{}, fmt.Errorf("error upserting user: %w", err)
	}

	var chat mongoChat
	if err := upsert(ctx, s.chats,
		bson.D{{Key: "user", Value: user.Id}},
		bson.D{{Key: "created_at", Value: now}},
		&chat,
	); err != nil {
		return ChatRef{}, fmt.Errorf("error upserting chat: %w", err)
	}

	return ChatRef{ChatId: chat.Id.Hex(), UserId: user.Id.Hex(), Email: user.Email}, nil
}

func parseObjectID(chatId string) (bson.ObjectID, error) {
	id, err := bson.ObjectIDFromHex(chatId)
	if err != nil {
		return bson.ObjectID{}, fmt.Errorf("invalid chat id '%s': %w", chatId, err)
	}
	return id, nil
}

func (s *MongoStore) ListMessages(ctx context.Context, chatId string) ([]Message, error) {
	id, err := parseObjectID(chatId)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.messages.Find(ctx, bson.D{{Key: "chat", Value: id}}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing chat messages: %w", err)
	}

	var docs []mongoMessage
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("error decoding chat messages: %w", err)
	}

	messages := make([]Message, 0, len(docs))
	for _, doc := range docs {
		messages = append(messages, Message{Role: doc.Role, Text: doc.Text, CreatedAt: doc.CreatedAt})
	}
	return messages, nil
}

func (s *MongoStore) AppendExchange(ctx context.Context, chatId string, exchange Exchange) error {
	id, err := parseObjectID(chatId)
	if err != nil {
		return err
	}

	// ObjectIDs generated in order keep the prompt ahead of the reply when both
	// share a timestamp.
	prompt := mongoMessage{Id: bson.NewObjectID(), Chat: id, Role: database.RoleUser, Text: exchange.Prompt, CreatedAt: exchange.At}
	reply := mongoMessage{Id: bson.NewObjectID(), Chat: id, Role: database.RoleAI, Text: exchange.Answer, CreatedAt: exchange.At,
		Metadata: map[string]string{"generator": exchange.Generator}}

	if _, err := s.messages.InsertMany(ctx, []any{prompt, reply}); err != nil {
		// Without a replica set there are no transactions, so whatever part of
		// the ordered insert landed is removed by hand.
		ids := bson.A{prompt.Id, reply.Id}
		if _, delErr := s.messages.DeleteMany(context.WithoutCancel(ctx), bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}); delErr != nil {
			slog.Error("error removing partially stored exchange", "chat_id", chatId, "error", delErr)
		}
		return fmt.Errorf("error saving chat messages: %w", err)
	}

	return nil
}
