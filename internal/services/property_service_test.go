package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KHABI-TEQ/console-admin/internal/models"
	"github.com/KHABI-TEQ/console-admin/internal/utils"
)

func newTestPropertyService(t *testing.T) IPropertyService {
	db := utils.SetupTestDB(t, "console_admin_property_test", propertyCollection)
	return NewPropertyService(db, testConfig(), nil)
}

func seedProperty(t *testing.T, svc IPropertyService, address string, briefType models.BriefType) *models.Property {
	t.Helper()
	property := &models.Property{
		OwnerID:      utils.NewShortID(),
		BriefType:    briefType,
		PropertyType: "duplex",
		Address:      address,
		LocalGovt:    "Eti-Osa",
		StateRegion:  "Lagos",
		Price:        &models.Price{Value: 120_000_000, CurrencyCode: "NGN"},
	}
	require.NoError(t, svc.Create(context.Background(), property))
	return property
}

func TestPropertyReviewFlow(t *testing.T) {
	svc := newTestPropertyService(t)
	ctx := context.Background()
	property := seedProperty(t, svc, "9 Freedom Way, Lekki", models.BriefSell)
	assert.Equal(t, models.PropertyPending, property.State)

	approved, err := svc.SetState(ctx, property.ID, models.PropertyApproved, "")
	require.NoError(t, err)
	assert.Equal(t, models.PropertyApproved, approved.State)

	// Approved briefs can be flagged, and a flagged one re-approved.
	flagged, err := svc.SetState(ctx, property.ID, models.PropertyFlagged, "duplicate listing")
	require.NoError(t, err)
	assert.Equal(t, "duplicate listing", flagged.FlagReason)

	_, err = svc.SetState(ctx, property.ID, models.PropertyApproved, "")
	require.NoError(t, err)

	// Rejection only applies to pending briefs.
	_, err = svc.SetState(ctx, property.ID, models.PropertyRejected, "bad photos")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot move")
}

func TestPropertyRejectPending(t *testing.T) {
	svc := newTestPropertyService(t)
	property := seedProperty(t, svc, "9 Freedom Way, Lekki", models.BriefRent)

	rejected, err := svc.SetState(context.Background(), property.ID, models.PropertyRejected, "no title documents")
	require.NoError(t, err)
	assert.Equal(t, models.PropertyRejected, rejected.State)
	assert.Equal(t, "no title documents", rejected.RejectionReason)
}

func TestPropertyListFilters(t *testing.T) {
	svc := newTestPropertyService(t)
	ctx := context.Background()

	sell := seedProperty(t, svc, "9 Freedom Way, Lekki", models.BriefSell)
	rent := seedProperty(t, svc, "3 Awolowo Rd, Ikoyi", models.BriefRent)
	_, err := svc.SetState(ctx, sell.ID, models.PropertyApproved, "")
	require.NoError(t, err)

	page, err := svc.List(ctx, models.PropertyFilter{State: models.PropertyPending})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, rent.ID, page.Data[0].ID)

	page, err = svc.List(ctx, models.PropertyFilter{BriefType: models.BriefSell})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, sell.ID, page.Data[0].ID)

	page, err = svc.List(ctx, models.PropertyFilter{Search: "awolowo"})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, rent.ID, page.Data[0].ID)
}

func TestPropertyAddImageAndDelete(t *testing.T) {
	svc := newTestPropertyService(t)
	ctx := context.Background()
	property := seedProperty(t, svc, "9 Freedom Way, Lekki", models.BriefSell)

	require.NoError(t, svc.AddImage(ctx, property.ID, "properties/abc/front.jpg"))
	found, err := svc.FindByID(ctx, property.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"properties/abc/front.jpg"}, found.Images)

	require.NoError(t, svc.Delete(ctx, property.ID))
	_, err = svc.FindByID(ctx, property.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleted properties reject further writes.
	assert.ErrorIs(t, svc.AddImage(ctx, property.ID, "properties/abc/back.jpg"), ErrNotFound)
}
