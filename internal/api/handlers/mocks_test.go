package handlers_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/KHABI-TEQ/console-admin/internal/models"
	"github.com/KHABI-TEQ/console-admin/internal/services"
	"github.com/KHABI-TEQ/console-admin/internal/utils"
)

// MockInspectionService implements services.IInspectionService.
type MockInspectionService struct {
	mock.Mock
}

func (m *MockInspectionService) List(ctx context.Context, filter models.InspectionFilter) (*models.PageResult, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PageResult), args.Error(1)
}

func (m *MockInspectionService) FindByID(ctx context.Context, id utils.ShortID) (*models.InspectionBooking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InspectionBooking), args.Error(1)
}

func (m *MockInspectionService) Create(ctx context.Context, booking *models.InspectionBooking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockInspectionService) Approve(ctx context.Context, id utils.ShortID) (*models.InspectionBooking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InspectionBooking), args.Error(1)
}

func (m *MockInspectionService) Reject(ctx context.Context, id utils.ShortID, reason string) (*models.InspectionBooking, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InspectionBooking), args.Error(1)
}

func (m *MockInspectionService) RecordPartyAction(ctx context.Context, id utils.ShortID, action services.PartyAction) (*models.InspectionBooking, error) {
	args := m.Called(ctx, id, action)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InspectionBooking), args.Error(1)
}

func (m *MockInspectionService) FindStalePending(ctx context.Context, olderThan time.Duration) ([]models.InspectionBooking, error) {
	args := m.Called(ctx, olderThan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.InspectionBooking), args.Error(1)
}

// MockPropertyService implements services.IPropertyService.
type MockPropertyService struct {
	mock.Mock
}

func (m *MockPropertyService) List(ctx context.Context, filter models.PropertyFilter) (*services.PropertyPage, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PropertyPage), args.Error(1)
}

func (m *MockPropertyService) FindByID(ctx context.Context, id utils.ShortID) (*models.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyService) Create(ctx context.Context, property *models.Property) error {
	args := m.Called(ctx, property)
	return args.Error(0)
}

func (m *MockPropertyService) SetState(ctx context.Context, id utils.ShortID, state models.PropertyState, reason string) (*models.Property, error) {
	args := m.Called(ctx, id, state, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyService) AddImage(ctx context.Context, id utils.ShortID, s3Key string) error {
	args := m.Called(ctx, id, s3Key)
	return args.Error(0)
}

func (m *MockPropertyService) Delete(ctx context.Context, id utils.ShortID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
