package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"ticket-bot/ticket"
)

const mongoTimeout = 5 * time.Second

type MongoStore struct {
	URI    string
	DBName string

	client      *mongo.Client
	tickets     *mongo.Collection
	panels      *mongo.Collection
	transcripts *mongo.Collection
	feedback    *mongo.Collection
}

type mongoTicket struct {
	ID        string     `bson:"_id"`
	ChannelID string     `bson:"channel_id"`
	UserID    string     `bson:"user_id"`
	Category  string     `bson:"category"`
	ClaimedBy string     `bson:"claimed_by"`
	Status    string     `bson:"status"`
	Version   int64      `bson:"version"`
	CreatedAt time.Time  `bson:"created_at"`
	ClosedAt  *time.Time `bson:"closed_at,omitempty"`
}

func (s *MongoStore) Init() error {
	client, err := mongo.Connect(options.Client().ApplyURI(s.URI))
	if err != nil {
		return fmt.Errorf("mongodb connect: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongodb ping: %w", err)
	}

	s.client = client
	db := client.Database(s.DBName)
	s.tickets = db.Collection("tickets")
	s.panels = db.Collection("ticket_panels")
	s.transcripts = db.Collection("transcripts")
	s.feedback = db.Collection("feedback")
	return nil
}

func (s *MongoStore) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Insert(t ticket.Ticket) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	_, err := s.tickets.InsertOne(ctx, toMongoTicket(t))
	return err
}

func (s *MongoStore) GetOpenByChannel(channelID string) (*ticket.Ticket, error) {
	return s.findOne(bson.M{"channel_id": channelID, "status": string(ticket.StatusOpen)}, nil)
}

func (s *MongoStore) GetAnyByChannel(channelID string) (*ticket.Ticket, error) {
	sort := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return s.findOne(bson.M{"channel_id": channelID}, sort)
}

func (s *MongoStore) GetByID(id string) (*ticket.Ticket, error) {
	return s.findOne(bson.M{"_id": id}, nil)
}

func (s *MongoStore) GetOpenByUser(userID string) (*ticket.Ticket, error) {
	return s.findOne(bson.M{"user_id": userID, "status": string(ticket.StatusOpen)}, nil)
}

func (s *MongoStore) ListOpen() ([]ticket.Ticket, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	cur, err := s.tickets.Find(ctx, bson.M{"status": string(ticket.StatusOpen)})
	if err != nil {
		return nil, err
	}
	var docs []mongoTicket
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]ticket.Ticket, 0, len(docs))
	for _, d := range docs {
		out = append(out, fromMongoTicket(d))
	}
	return out, nil
}

func (s *MongoStore) SetClaimedBy(channelID, userID string) (bool, error) {
	return s.cond(
		bson.M{"channel_id": channelID, "status": string(ticket.StatusOpen), "claimed_by": ""},
		bson.M{"$set": bson.M{"claimed_by": userID}, "$inc": bson.M{"version": 1}},
	)
}

func (s *MongoStore) SetCategory(channelID string, cat ticket.Category) (bool, error) {
	return s.cond(
		bson.M{"channel_id": channelID, "status": string(ticket.StatusOpen)},
		bson.M{"$set": bson.M{"category": string(cat)}, "$inc": bson.M{"version": 1}},
	)
}

func (s *MongoStore) CloseTicket(channelID string) (bool, error) {
	return s.cond(
		bson.M{"channel_id": channelID, "status": string(ticket.StatusOpen)},
		bson.M{
			"$set": bson.M{"status": string(ticket.StatusClosed), "closed_at": time.Now().UTC()},
			"$inc": bson.M{"version": 1},
		},
	)
}

func (s *MongoStore) CloseTicketByID(id string) (bool, error) {
	return s.cond(
		bson.M{"_id": id, "status": string(ticket.StatusOpen)},
		bson.M{
			"$set": bson.M{"status": string(ticket.StatusClosed), "closed_at": time.Now().UTC()},
			"$inc": bson.M{"version": 1},
		},
	)
}

func (s *MongoStore) ReopenTicket(channelID string) (bool, error) {
	return s.cond(
		bson.M{"channel_id": channelID, "status": string(ticket.StatusClosed)},
		bson.M{
			"$set":   bson.M{"status": string(ticket.StatusOpen), "claimed_by": ""},
			"$unset": bson.M{"closed_at": ""},
			"$inc":   bson.M{"version": 1},
		},
	)
}

func (s *MongoStore) RepointChannel(id, newChannelID string) (bool, error) {
	return s.cond(
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"channel_id": newChannelID}, "$inc": bson.M{"version": 1}},
	)
}

func (s *MongoStore) SavePanel(p ticket.Panel) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	_, err := s.panels.ReplaceOne(ctx,
		bson.M{"_id": p.GuildID},
		bson.M{"_id": p.GuildID, "channel_id": p.ChannelID, "message_id": p.MessageID, "created_at": time.Now().UTC()},
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *MongoStore) GetPanel(guildID string) (*ticket.Panel, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	var doc struct {
		GuildID   string `bson:"_id"`
		ChannelID string `bson:"channel_id"`
		MessageID string `bson:"message_id"`
	}
	err := s.panels.FindOne(ctx, bson.M{"_id": guildID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ticket.Panel{GuildID: doc.GuildID, ChannelID: doc.ChannelID, MessageID: doc.MessageID}, nil
}

func (s *MongoStore) SaveTranscript(ticketID, content string) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	_, err := s.transcripts.ReplaceOne(ctx,
		bson.M{"_id": ticketID},
		bson.M{"_id": ticketID, "content": content, "created_at": time.Now().UTC()},
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *MongoStore) SaveFeedback(f ticket.Feedback) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	doc := bson.M{
		"ticket_id":  f.TicketID,
		"user_id":    f.UserID,
		"comment":    f.Comment,
		"created_at": time.Now().UTC(),
	}
	if f.Rating > 0 {
		doc["rating"] = f.Rating
	}
	_, err := s.feedback.InsertOne(ctx, doc)
	return err
}

func (s *MongoStore) cond(filter, update bson.M) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	res, err := s.tickets.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (s *MongoStore) findOne(filter bson.M, opts *options.FindOneOptionsBuilder) (*ticket.Ticket, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	var doc mongoTicket
	var err error
	if opts != nil {
		err = s.tickets.FindOne(ctx, filter, opts).Decode(&doc)
	} else {
		err = s.tickets.FindOne(ctx, filter).Decode(&doc)
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t := fromMongoTicket(doc)
	return &t, nil
}

func toMongoTicket(t ticket.Ticket) mongoTicket {
	doc := mongoTicket{
		ID:        t.ID,
		ChannelID: t.ChannelID,
		UserID:    t.UserID,
		Category:  string(t.Category),
		ClaimedBy: t.ClaimedBy,
		Status:    string(t.Status),
		Version:   t.Version,
		CreatedAt: t.CreatedAt.UTC(),
	}
	if !t.ClosedAt.IsZero() {
		closed := t.ClosedAt.UTC()
		doc.ClosedAt = &closed
	}
	return doc
}

func fromMongoTicket(d mongoTicket) ticket.Ticket {
	t := ticket.Ticket{
		ID:        d.ID,
		ChannelID: d.ChannelID,
		UserID:    d.UserID,
		Category:  ticket.Category(d.Category),
		ClaimedBy: d.ClaimedBy,
		Status:    ticket.Status(d.Status),
		Version:   d.Version,
		CreatedAt: d.CreatedAt,
	}
	if d.ClosedAt != nil {
		t.ClosedAt = *d.ClosedAt
	}
	return t
}
