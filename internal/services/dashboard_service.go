package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/KHABI-TEQ/console-admin/internal/cache"
	"github.com/KHABI-TEQ/console-admin/internal/models"
)

const dashboardCacheKey = "dashboard:summary"

// DashboardSummary backs the console's landing page tiles.
type DashboardSummary struct {
	InspectionsByStatus map[models.InspectionStatus]int64 `json:"inspectionsByStatus"`
	InspectionsByStage  map[models.InspectionStage]int64  `json:"inspectionsByStage"`
	PendingApprovals    int64                             `json:"pendingApprovals"`
	PropertiesByState   map[models.PropertyState]int64    `json:"propertiesByState"`
	UsersByType         map[models.UserType]int64         `json:"usersByType"`
	OpenContacts        int64                             `json:"openContacts"`
}

type IDashboardService interface {
	Summary(ctx context.Context) (*DashboardSummary, error)
}

type dashboardService struct {
	db    *mongo.Database
	cache *cache.QueryCache
}

func NewDashboardService(database *mongo.Database, qc *cache.QueryCache) IDashboardService {
	return &dashboardService{db: database, cache: qc}
}

func (s *dashboardService) Summary(ctx context.Context) (*DashboardSummary, error) {
	var cached DashboardSummary
	if err := s.cache.GetJSON(ctx, dashboardCacheKey, &cached); err == nil {
		return &cached, nil
	}

	summary := &DashboardSummary{
		InspectionsByStatus: make(map[models.InspectionStatus]int64),
		InspectionsByStage:  make(map[models.InspectionStage]int64),
		PropertiesByState:   make(map[models.PropertyState]int64),
		UsersByType:         make(map[models.UserType]int64),
	}

	inspectionCounts, err := s.countBy(ctx, inspectionCollection, "$status")
	if err != nil {
		return nil, err
	}
	for key, n := range inspectionCounts {
		status := models.InspectionStatus(key)
		summary.InspectionsByStatus[status] = n
		summary.InspectionsByStage[models.StageFor(status)] += n
	}
	summary.PendingApprovals = summary.InspectionsByStatus[models.StatusPendingTransaction]

	propertyCounts, err := s.countBy(ctx, propertyCollection, "$state")
	if err != nil {
		return nil, err
	}
	for key, n := range propertyCounts {
		summary.PropertiesByState[models.PropertyState(key)] = n
	}

	userCounts, err := s.countBy(ctx, userCollection, "$type")
	if err != nil {
		return nil, err
	}
	for key, n := range userCounts {
		summary.UsersByType[models.UserType(key)] = n
	}

	summary.OpenContacts, err = s.db.Collection(contactCollection).CountDocuments(ctx, bson.M{"deleted": false})
	if err != nil {
		return nil, fmt.Errorf("failed to count contacts: %w", err)
	}

	s.cache.SetJSON(ctx, dashboardCacheKey, summary)
	return summary, nil
}

func (s *dashboardService) countBy(ctx context.Context, collection, field string) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"deleted": false}}},
		{{Key: "$group", Value: bson.M{"_id": field, "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := s.db.Collection(collection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID    string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode %s counts: %w", collection, err)
	}

	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.ID] = r.Count
	}
	return out, nil
}
