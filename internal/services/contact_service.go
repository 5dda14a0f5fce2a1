package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/KHABI-TEQ/console-admin/internal/config"
	"github.com/KHABI-TEQ/console-admin/internal/db"
	"github.com/KHABI-TEQ/console-admin/internal/models"
	"github.com/KHABI-TEQ/console-admin/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const contactCollection = "contacts"

// ContactPage is the pagination envelope for contact lists.
type ContactPage struct {
	Data       []models.Contact `json:"data"`
	Total      int64            `json:"total"`
	TotalPages int64            `json:"totalPages"`
}

type IContactService interface {
	List(ctx context.Context, search string, page, limit int) (*ContactPage, error)
	FindByID(ctx context.Context, id utils.ShortID) (*models.Contact, error)
	Create(ctx context.Context, contact *models.Contact) error
	AddNote(ctx context.Context, id utils.ShortID, adminID utils.ShortID, body string) error
	Delete(ctx context.Context, id utils.ShortID) error
}

type contactService struct {
	db  *mongo.Database
	cfg *config.Config
}

func NewContactService(database *mongo.Database, cfg *config.Config) IContactService {
	return &contactService{db: database, cfg: cfg}
}

func (s *contactService) List(ctx context.Context, search string, page, limit int) (*ContactPage, error) {
	if limit <= 0 {
		limit = s.cfg.DefaultPageLimit
	}
	if limit > s.cfg.MaxPageLimit {
		limit = s.cfg.MaxPageLimit
	}
	if page <= 0 {
		page = 1
	}

	query := bson.M{"deleted": false}
	if search != "" {
		escaped := regexp.QuoteMeta(search)
		query["$or"] = bson.A{
			bson.M{"email": bson.M{"$regex": escaped, "$options": "i"}},
			bson.M{"name": bson.M{"$regex": escaped, "$options": "i"}},
			bson.M{"subject": bson.M{"$regex": escaped, "$options": "i"}},
		}
	}

	coll := s.db.Collection(contactCollection)
	total, err := coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count contacts: %w", err)
	}

	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(page-1) * int64(limit)).
		SetLimit(int64(limit))
	cursor, err := coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer cursor.Close(ctx)

	contacts := []models.Contact{}
	if err := cursor.All(ctx, &contacts); err != nil {
		return nil, fmt.Errorf("failed to decode contacts: %w", err)
	}

	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}
	return &ContactPage{Data: contacts, Total: total, TotalPages: totalPages}, nil
}

func (s *contactService) FindByID(ctx context.Context, id utils.ShortID) (*models.Contact, error) {
	var contact models.Contact
	err := s.db.Collection(contactCollection).FindOne(ctx, bson.M{"_id": id, "deleted": false}).Decode(&contact)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find contact: %w", err)
	}
	return &contact, nil
}

func (s *contactService) Create(ctx context.Context, contact *models.Contact) error {
	now := time.Now()
	contact.CreatedAt = now
	contact.UpdatedAt = now
	contact.Deleted = false

	err := db.Try(func() error {
		contact.ID = utils.NewShortID()
		_, err := s.db.Collection(contactCollection).InsertOne(ctx, contact)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

func (s *contactService) AddNote(ctx context.Context, id utils.ShortID, adminID utils.ShortID, body string) error {
	note := models.ContactNote{AdminID: adminID, Body: body, CreatedAt: time.Now()}
	res, err := s.db.Collection(contactCollection).UpdateOne(ctx,
		bson.M{"_id": id, "deleted": false},
		bson.M{"$push": bson.M{"notes": note}, "$set": bson.M{"updated_at": time.Now()}})
	if err != nil {
		return fmt.Errorf("failed to add contact note: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *contactService) Delete(ctx context.Context, id utils.ShortID) error {
	res, err := s.db.Collection(contactCollection).UpdateOne(ctx,
		bson.M{"_id": id, "deleted": false},
		bson.M{"$set": bson.M{"deleted": true, "updated_at": time.Now()}})
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
