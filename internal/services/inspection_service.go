package services

import (
	"context"
	"errors"
	"fmt"
	"log"
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

const inspectionCollection = "inspection_bookings"

const inspectionListCachePrefix = "inspections:list:"

// PartyAction describes a buyer- or seller-driven lifecycle move relayed
// through the console. To names the target status; the remaining fields are
// required only for specific targets (a counter needs an offer, a reschedule
// needs a new slot).
type PartyAction struct {
	To                models.InspectionStatus `json:"to"`
	Offer             *models.Price           `json:"offer,omitempty"`
	CounterOffer      *models.Price           `json:"counterOffer,omitempty"`
	NewDate           string                  `json:"newDate,omitempty"` // YYYY-MM-DD
	NewTime           string                  `json:"newTime,omitempty"` // HH:MM
	LetterOfIntention string                  `json:"letterOfIntention,omitempty"`
	Reason            string                  `json:"reason,omitempty"`
}

type IInspectionService interface {
	List(ctx context.Context, filter models.InspectionFilter) (*models.PageResult, error)
	FindByID(ctx context.Context, id utils.ShortID) (*models.InspectionBooking, error)
	Create(ctx context.Context, booking *models.InspectionBooking) error
	Approve(ctx context.Context, id utils.ShortID) (*models.InspectionBooking, error)
	Reject(ctx context.Context, id utils.ShortID, reason string) (*models.InspectionBooking, error)
	RecordPartyAction(ctx context.Context, id utils.ShortID, action PartyAction) (*models.InspectionBooking, error)
	FindStalePending(ctx context.Context, olderThan time.Duration) ([]models.InspectionBooking, error)
}

type inspectionService struct {
	db       *mongo.Database
	cfg      *config.Config
	cache    *cache.QueryCache
	notifier INotificationService
}

func NewInspectionService(database *mongo.Database, cfg *config.Config, qc *cache.QueryCache, notifier INotificationService) IInspectionService {
	return &inspectionService{db: database, cfg: cfg, cache: qc, notifier: notifier}
}

func (s *inspectionService) collection() *mongo.Collection {
	return s.db.Collection(inspectionCollection)
}

// List runs the filtered, paginated booking query behind the console's
// inspection table. Results are cached under the filter's canonical query
// key; any mutation invalidates the whole prefix.
func (s *inspectionService) List(ctx context.Context, filter models.InspectionFilter) (*models.PageResult, error) {
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
	filter.Page = page
	filter.Limit = limit

	cacheKey := inspectionListCachePrefix + filter.QueryKey()
	var cached models.PageResult
	if err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	query := bson.M{"deleted": false}
	if len(filter.Statuses) > 0 {
		query["status"] = bson.M{"$in": filter.Statuses}
	}
	if filter.Stage != "" {
		if filter.Stage == models.StageLOI {
			// LOI is a display stage: any booking with a submitted letter of
			// intent, regardless of its status-derived stage.
			query["letter_of_intention"] = bson.M{"$gt": ""}
		} else {
			query["stage"] = filter.Stage
			query["letter_of_intention"] = bson.M{"$in": bson.A{nil, ""}}
		}
	}
	if filter.PendingResponseFrom != "" {
		query["pending_response_from"] = filter.PendingResponseFrom
	}
	if filter.Search != "" {
		escaped := regexp.QuoteMeta(filter.Search)
		query["$or"] = bson.A{
			bson.M{"property_address": bson.M{"$regex": escaped, "$options": "i"}},
			bson.M{"buyer_email": bson.M{"$regex": escaped, "$options": "i"}},
		}
	}

	total, err := s.collection().CountDocuments(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count inspection bookings: %w", err)
	}

	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(page-1) * int64(limit)).
		SetLimit(int64(limit))
	cursor, err := s.collection().Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list inspection bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []models.InspectionBooking{}
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode inspection bookings: %w", err)
	}

	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}

	result := &models.PageResult{Data: bookings, Total: total, TotalPages: totalPages}
	s.cache.SetJSON(ctx, cacheKey, result)
	return result, nil
}

func (s *inspectionService) FindByID(ctx context.Context, id utils.ShortID) (*models.InspectionBooking, error) {
	var booking models.InspectionBooking
	err := s.collection().FindOne(ctx, bson.M{"_id": id, "deleted": false}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find inspection booking: %w", err)
	}
	return &booking, nil
}

// Create records a new booking. Bookings always enter at
// pending_transaction; derived fields are normalized before the write.
func (s *inspectionService) Create(ctx context.Context, booking *models.InspectionBooking) error {
	booking.Status = models.StatusPendingTransaction
	booking.Normalize()
	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Deleted = false

	err := db.Try(func() error {
		booking.ID = utils.NewShortID()
		_, err := s.collection().InsertOne(ctx, booking)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create inspection booking: %w", err)
	}
	s.cache.Invalidate(ctx, inspectionListCachePrefix+"*")
	return nil
}

// Approve moves a booking from pending_transaction to pending_inspection.
// The status check rides in the update filter so two admins racing on the
// same booking cannot both succeed.
func (s *inspectionService) Approve(ctx context.Context, id utils.ShortID) (*models.InspectionBooking, error) {
	return s.adminTransition(ctx, id, models.StatusPendingInspection, "")
}

// Reject moves a booking from pending_transaction to transaction_failed and
// records the admin's reason.
func (s *inspectionService) Reject(ctx context.Context, id utils.ShortID, reason string) (*models.InspectionBooking, error) {
	return s.adminTransition(ctx, id, models.StatusTransactionFailed, reason)
}

func (s *inspectionService) adminTransition(ctx context.Context, id utils.ShortID, to models.InspectionStatus, reason string) (*models.InspectionBooking, error) {
	next := models.InspectionBooking{Status: to}
	next.Normalize()

	set := bson.M{
		"status":                to,
		"stage":                 next.Stage,
		"pending_response_from": next.PendingResponseFrom,
		"updated_at":            time.Now(),
	}
	if reason != "" {
		set["rejection_reason"] = reason
	}

	res, err := s.collection().UpdateOne(ctx,
		bson.M{"_id": id, "deleted": false, "status": models.StatusPendingTransaction},
		bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("failed to update inspection booking: %w", err)
	}
	if res.MatchedCount == 0 {
		// Distinguish a missing booking from one that moved on.
		current, ferr := s.FindByID(ctx, id)
		if ferr != nil {
			return nil, ferr
		}
		return nil, &IllegalTransitionError{From: current.Status, To: to}
	}

	s.cache.Invalidate(ctx, inspectionListCachePrefix+"*")
	booking, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, booking, to)
	return booking, nil
}

// RecordPartyAction applies a buyer- or seller-driven transition relayed by
// an admin. The transition table is enforced twice: up front for a clean
// error, and in the update filter for atomicity.
func (s *inspectionService) RecordPartyAction(ctx context.Context, id utils.ShortID, action PartyAction) (*models.InspectionBooking, error) {
	if _, err := models.ParseInspectionStatus(string(action.To)); err != nil {
		return nil, NewValidationError(err)
	}

	booking, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := booking.Status
	if !models.CanTransition(from, action.To) {
		return nil, &IllegalTransitionError{From: from, To: action.To}
	}

	next := models.InspectionBooking{Status: action.To, NegotiationPrice: booking.NegotiationPrice}
	set := bson.M{
		"status":     action.To,
		"updated_at": time.Now(),
	}

	switch action.To {
	case models.StatusInspectionRescheduled:
		if action.NewDate == "" || action.NewTime == "" {
			return nil, NewValidationError(fmt.Errorf("rescheduling requires a new date and time"))
		}
		set["inspection_date"] = action.NewDate
		set["inspection_time"] = action.NewTime
	case models.StatusNegotiationCountered:
		if action.Offer == nil || action.CounterOffer == nil {
			return nil, NewValidationError(fmt.Errorf("a counter offer requires both the buyer offer and the seller counter"))
		}
		next.NegotiationPrice = action.Offer
		set["negotiation_price"] = action.Offer
		set["seller_counter_offer"] = action.CounterOffer
	case models.StatusInspectionRejectedSeller, models.StatusInspectionRejectedBuyer,
		models.StatusNegotiationRejected, models.StatusNegotiationCancelled,
		models.StatusCancelled:
		if action.Reason != "" {
			set["rejection_reason"] = action.Reason
		}
	}
	if action.LetterOfIntention != "" {
		set["letter_of_intention"] = action.LetterOfIntention
	}

	next.Normalize()
	set["stage"] = next.Stage
	set["pending_response_from"] = next.PendingResponseFrom
	set["is_negotiating"] = next.IsNegotiating

	res, err := s.collection().UpdateOne(ctx,
		bson.M{"_id": id, "deleted": false, "status": from},
		bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("failed to update inspection booking: %w", err)
	}
	if res.MatchedCount == 0 {
		current, ferr := s.FindByID(ctx, id)
		if ferr != nil {
			return nil, ferr
		}
		return nil, &IllegalTransitionError{From: current.Status, To: action.To}
	}

	s.cache.Invalidate(ctx, inspectionListCachePrefix+"*")
	updated, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, updated, action.To)
	return updated, nil
}

// FindStalePending returns pending_transaction bookings untouched for longer
// than olderThan. The background reminder sweep feeds on this.
func (s *inspectionService) FindStalePending(ctx context.Context, olderThan time.Duration) ([]models.InspectionBooking, error) {
	cutoff := time.Now().Add(-olderThan)
	cursor, err := s.collection().Find(ctx, bson.M{
		"deleted":    false,
		"status":     models.StatusPendingTransaction,
		"updated_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query stale pending bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.InspectionBooking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode stale pending bookings: %w", err)
	}
	return bookings, nil
}

func (s *inspectionService) notify(ctx context.Context, booking *models.InspectionBooking, to models.InspectionStatus) {
	if s.notifier == nil {
		return
	}
	msg := fmt.Sprintf("Inspection for %s is now %s", booking.PropertyAddress, models.StatusLabel(to))
	if err := s.notifier.Record(ctx, "inspection_"+string(to), msg, booking.ID); err != nil {
		log.Printf("InspectionService: failed to record notification for %s: %v", booking.ID, err)
	}
}
