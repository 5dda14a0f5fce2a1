package services

import (
	"context"
	"fmt"
	"time"

	"github.com/KHABI-TEQ/console-admin/internal/db"
	"github.com/KHABI-TEQ/console-admin/internal/models"
	"github.com/KHABI-TEQ/console-admin/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const notificationCollection = "notifications"

type INotificationService interface {
	Record(ctx context.Context, kind string, message string, subjectID utils.ShortID) error
	List(ctx context.Context, unreadOnly bool, limit int64) ([]models.Notification, error)
	MarkRead(ctx context.Context, id utils.ShortID) error
	MarkAllRead(ctx context.Context) error
}

type notificationService struct {
	db *mongo.Database
}

func NewNotificationService(database *mongo.Database) INotificationService {
	return &notificationService{db: database}
}

func (s *notificationService) Record(ctx context.Context, kind string, message string, subjectID utils.ShortID) error {
	n := &models.Notification{
		Kind:      kind,
		Message:   message,
		SubjectID: subjectID,
		CreatedAt: time.Now(),
	}
	err := db.Try(func() error {
		n.ID = utils.NewShortID()
		_, err := s.db.Collection(notificationCollection).InsertOne(ctx, n)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}

func (s *notificationService) List(ctx context.Context, unreadOnly bool, limit int64) ([]models.Notification, error) {
	filter := bson.M{}
	if unreadOnly {
		filter["read"] = false
	}
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(limit)
	cursor, err := s.db.Collection(notificationCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Notification
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return out, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id utils.ShortID) error {
	res, err := s.db.Collection(notificationCollection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context) error {
	_, err := s.db.Collection(notificationCollection).UpdateMany(ctx,
		bson.M{"read": false},
		bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}
