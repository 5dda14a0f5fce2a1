package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/KHABI-TEQ/console-admin/internal/cache"
	"github.com/KHABI-TEQ/console-admin/internal/config"
	"github.com/KHABI-TEQ/console-admin/internal/db"
	"github.com/KHABI-TEQ/console-admin/internal/models"
	"github.com/KHABI-TEQ/console-admin/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const propertyCollection = "properties"

const propertyListCachePrefix = "properties:list:"

// PropertyPage is the pagination envelope for property lists.
type PropertyPage struct {
	Data       []models.Property `json:"data"`
	Total      int64             `json:"total"`
	TotalPages int64             `json:"totalPages"`
}

type IPropertyService interface {
	List(ctx context.Context, filter models.PropertyFilter) (*PropertyPage, error)
	FindByID(ctx context.Context, id utils.ShortID) (*models.Property, error)
	Create(ctx context.Context, property *models.Property) error
	SetState(ctx context.Context, id utils.ShortID, state models.PropertyState, reason string) (*models.Property, error)
	AddImage(ctx context.Context, id utils.ShortID, s3Key string) error
	Delete(ctx context.Context, id utils.ShortID) error
}

type propertyService struct {
	db    *mongo.Database
	cfg   *config.Config
	cache *cache.QueryCache
}

func NewPropertyService(database *mongo.Database, cfg *config.Config, qc *cache.QueryCache) IPropertyService {
	return &propertyService{db: database, cfg: cfg, cache: qc}
}

func (s *propertyService) collection() *mongo.Collection {
	return s.db.Collection(propertyCollection)
}

func (s *propertyService) List(ctx context.Context, filter models.PropertyFilter) (*PropertyPage, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultPageLimit
	}
	if limit > s.cfg.MaxPageLimit {
		limit = s.cfg.MaxPageLimit
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}

	cacheKey := fmt.Sprintf("%ssearch=%s&state=%s&brief=%s&page=%d&limit=%d",
		propertyListCachePrefix, filter.Search, filter.State, filter.BriefType, page, limit)
	var cached PropertyPage
	if err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	query := bson.M{"deleted": false}
	if filter.State != "" {
		query["state"] = filter.State
	}
	if filter.BriefType != "" {
		query["brief_type"] = filter.BriefType
	}
	if filter.Search != "" {
		escaped := regexp.QuoteMeta(filter.Search)
		query["$or"] = bson.A{
			bson.M{"address": bson.M{"$regex": escaped, "$options": "i"}},
			bson.M{"local_govt": bson.M{"$regex": escaped, "$options": "i"}},
			bson.M{"state_region": bson.M{"$regex": escaped, "$options": "i"}},
		}
	}

	total, err := s.collection().CountDocuments(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count properties: %w", err)
	}

	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(page-1) * int64(limit)).
		SetLimit(int64(limit))
	cursor, err := s.collection().Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer cursor.Close(ctx)

	properties := []models.Property{}
	if err := cursor.All(ctx, &properties); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}

	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}

	result := &PropertyPage{Data: properties, Total: total, TotalPages: totalPages}
	s.cache.SetJSON(ctx, cacheKey, result)
	return result, nil
}

func (s *propertyService) FindByID(ctx context.Context, id utils.ShortID) (*models.Property, error) {
	var property models.Property
	err := s.collection().FindOne(ctx, bson.M{"_id": id, "deleted": false}).Decode(&property)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find property: %w", err)
	}
	return &property, nil
}

func (s *propertyService) Create(ctx context.Context, property *models.Property) error {
	property.State = models.PropertyPending
	now := time.Now()
	property.CreatedAt = now
	property.UpdatedAt = now
	property.Deleted = false
	if property.Images == nil {
		property.Images = []string{}
	}

	err := db.Try(func() error {
		property.ID = utils.NewShortID()
		_, err := s.collection().InsertOne(ctx, property)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create property: %w", err)
	}
	s.cache.Invalidate(ctx, propertyListCachePrefix+"*")
	return nil
}

// SetState is the admin review action: approve, reject or flag a brief.
// Approving and rejecting apply only to pending briefs; flagging applies to
// approved ones. The precondition rides in the update filter.
func (s *propertyService) SetState(ctx context.Context, id utils.ShortID, state models.PropertyState, reason string) (*models.Property, error) {
	var from []models.PropertyState
	set := bson.M{"state": state, "updated_at": time.Now()}
	switch state {
	case models.PropertyApproved:
		from = []models.PropertyState{models.PropertyPending, models.PropertyFlagged}
	case models.PropertyRejected:
		from = []models.PropertyState{models.PropertyPending}
		set["rejection_reason"] = reason
	case models.PropertyFlagged:
		from = []models.PropertyState{models.PropertyApproved}
		set["flag_reason"] = reason
	default:
		return nil, fmt.Errorf("state %q cannot be set directly", state)
	}

	res, err := s.collection().UpdateOne(ctx,
		bson.M{"_id": id, "deleted": false, "state": bson.M{"$in": from}},
		bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("failed to update property state: %w", err)
	}
	if res.MatchedCount == 0 {
		current, ferr := s.FindByID(ctx, id)
		if ferr != nil {
			return nil, ferr
		}
		return nil, fmt.Errorf("property %s is %s, cannot move to %s", id, current.State, state)
	}

	s.cache.Invalidate(ctx, propertyListCachePrefix+"*")
	return s.FindByID(ctx, id)
}

// AddImage appends a processed image key to a property. Called from the
// image pipeline worker after resizing and upload.
func (s *propertyService) AddImage(ctx context.Context, id utils.ShortID, s3Key string) error {
	res, err := s.collection().UpdateOne(ctx,
		bson.M{"_id": id, "deleted": false},
		bson.M{"$push": bson.M{"images": s3Key}, "$set": bson.M{"updated_at": time.Now()}})
	if err != nil {
		return fmt.Errorf("failed to attach image to property: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	s.cache.Invalidate(ctx, propertyListCachePrefix+"*")
	return nil
}

func (s *propertyService) Delete(ctx context.Context, id utils.ShortID) error {
	res, err := s.collection().UpdateOne(ctx,
		bson.M{"_id": id, "deleted": false},
		bson.M{"$set": bson.M{"deleted": true, "updated_at": time.Now()}})
	if err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	s.cache.Invalidate(ctx, propertyListCachePrefix+"*")
	return nil
}
