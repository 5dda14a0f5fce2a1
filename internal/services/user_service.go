package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/KHABI-TEQ/console-admin/internal/auth"
	"github.com/KHABI-TEQ/console-admin/internal/config"
	"github.com/KHABI-TEQ/console-admin/internal/db"
	"github.com/KHABI-TEQ/console-admin/internal/models"
	"github.com/KHABI-TEQ/console-admin/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	userCollection  = "users"
	adminCollection = "admins"
)

// UserPage is the pagination envelope for user lists.
type UserPage struct {
	Data       []models.User `json:"data"`
	Total      int64         `json:"total"`
	TotalPages int64         `json:"totalPages"`
}

type IUserService interface {
	List(ctx context.Context, filter models.UserFilter) (*UserPage, error)
	FindByID(ctx context.Context, id utils.ShortID) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	SetOnboarded(ctx context.Context, id utils.ShortID, onboarded bool) error
	SetFlagged(ctx context.Context, id utils.ShortID, flagged bool, reason string) error
	Delete(ctx context.Context, id utils.ShortID) error
}

type userService struct {
	db  *mongo.Database
	cfg *config.Config
}

func NewUserService(database *mongo.Database, cfg *config.Config) IUserService {
	return &userService{db: database, cfg: cfg}
}

func (s *userService) List(ctx context.Context, filter models.UserFilter) (*UserPage, error) {
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

	query := bson.M{"deleted": false}
	if filter.Type != "" {
		query["type"] = filter.Type
	}
	if filter.Flagged != nil {
		query["flagged"] = *filter.Flagged
	}
	if filter.Search != "" {
		escaped := regexp.QuoteMeta(filter.Search)
		query["$or"] = bson.A{
			bson.M{"email": bson.M{"$regex": escaped, "$options": "i"}},
			bson.M{"first_name": bson.M{"$regex": escaped, "$options": "i"}},
			bson.M{"last_name": bson.M{"$regex": escaped, "$options": "i"}},
			bson.M{"phone_number": bson.M{"$regex": escaped, "$options": "i"}},
		}
	}

	coll := s.db.Collection(userCollection)
	total, err := coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(page-1) * int64(limit)).
		SetLimit(int64(limit))
	cursor, err := coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}
	return &UserPage{Data: users, Total: total, TotalPages: totalPages}, nil
}

func (s *userService) FindByID(ctx context.Context, id utils.ShortID) (*models.User, error) {
	var user models.User
	err := s.db.Collection(userCollection).FindOne(ctx, bson.M{"_id": id, "deleted": false}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (s *userService) Create(ctx context.Context, user *models.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Deleted = false
	// Buyers skip onboarding review.
	if user.Type == models.UserBuyer {
		user.Onboarded = true
	}
	if err := db.InsertOne(ctx, s.db.Collection(userCollection), user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *userService) SetOnboarded(ctx context.Context, id utils.ShortID, onboarded bool) error {
	return s.setFields(ctx, id, bson.M{"onboarded": onboarded})
}

func (s *userService) SetFlagged(ctx context.Context, id utils.ShortID, flagged bool, reason string) error {
	set := bson.M{"flagged": flagged}
	if flagged {
		set["flag_reason"] = reason
	} else {
		set["flag_reason"] = ""
	}
	return s.setFields(ctx, id, set)
}

func (s *userService) Delete(ctx context.Context, id utils.ShortID) error {
	return s.setFields(ctx, id, bson.M{"deleted": true})
}

func (s *userService) setFields(ctx context.Context, id utils.ShortID, set bson.M) error {
	set["updated_at"] = time.Now()
	res, err := s.db.Collection(userCollection).UpdateOne(ctx,
		bson.M{"_id": id, "deleted": false},
		bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// IAdminService manages console operator accounts and authentication.
type IAdminService interface {
	Authenticate(ctx context.Context, email, password string) (*models.Admin, error)
	FindByID(ctx context.Context, id utils.ShortID) (*models.Admin, error)
	List(ctx context.Context) ([]models.Admin, error)
	Create(ctx context.Context, admin *models.Admin, password string) error
	UpdateProfile(ctx context.Context, id utils.ShortID, firstName, lastName, password string) (*models.Admin, error)
	Delete(ctx context.Context, id utils.ShortID) error
}

type adminService struct {
	db *mongo.Database
}

func NewAdminService(database *mongo.Database) IAdminService {
	return &adminService{db: database}
}

func (s *adminService) Authenticate(ctx context.Context, email, password string) (*models.Admin, error) {
	var admin models.Admin
	err := s.db.Collection(adminCollection).FindOne(ctx, bson.M{"email": email, "deleted": false}).Decode(&admin)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up admin: %w", err)
	}
	if !auth.CheckPasswordHash(password, admin.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return &admin, nil
}

func (s *adminService) FindByID(ctx context.Context, id utils.ShortID) (*models.Admin, error) {
	var admin models.Admin
	err := s.db.Collection(adminCollection).FindOne(ctx, bson.M{"_id": id, "deleted": false}).Decode(&admin)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find admin: %w", err)
	}
	return &admin, nil
}

func (s *adminService) List(ctx context.Context) ([]models.Admin, error) {
	cursor, err := s.db.Collection(adminCollection).Find(ctx,
		bson.M{"deleted": false},
		options.Find().SetSort(bson.M{"created_at": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	defer cursor.Close(ctx)

	admins := []models.Admin{}
	if err := cursor.All(ctx, &admins); err != nil {
		return nil, fmt.Errorf("failed to decode admins: %w", err)
	}
	return admins, nil
}

func (s *adminService) Create(ctx context.Context, admin *models.Admin, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	admin.PasswordHash = hash
	now := time.Now()
	admin.CreatedAt = now
	admin.UpdatedAt = now
	admin.Deleted = false
	if err := db.InsertOne(ctx, s.db.Collection(adminCollection), admin); err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	return nil
}

// UpdateProfile changes an admin's own display name and, when a new password
// is supplied, rehashes it. Empty fields are left untouched.
func (s *adminService) UpdateProfile(ctx context.Context, id utils.ShortID, firstName, lastName, password string) (*models.Admin, error) {
	set := bson.M{"updated_at": time.Now()}
	if firstName != "" {
		set["first_name"] = firstName
	}
	if lastName != "" {
		set["last_name"] = lastName
	}
	if password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		set["password_hash"] = hash
	}

	res, err := s.db.Collection(adminCollection).UpdateOne(ctx,
		bson.M{"_id": id, "deleted": false},
		bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("failed to update admin profile: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return s.FindByID(ctx, id)
}

func (s *adminService) Delete(ctx context.Context, id utils.ShortID) error {
	res, err := s.db.Collection(adminCollection).UpdateOne(ctx,
		bson.M{"_id": id, "deleted": false},
		bson.M{"$set": bson.M{"deleted": true, "updated_at": time.Now()}})
	if err != nil {
		return fmt.Errorf("failed to delete admin: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
