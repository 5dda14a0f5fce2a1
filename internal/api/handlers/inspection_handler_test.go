package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/KHABI-TEQ/console-admin/internal/api/handlers"
	"github.com/KHABI-TEQ/console-admin/internal/models"
	"github.com/KHABI-TEQ/console-admin/internal/services"
	"github.com/KHABI-TEQ/console-admin/internal/utils"
)

func setupInspectionRouter(svc services.IInspectionService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := handlers.NewInspectionHandler(svc, nil)
	r.GET("/v1/admin/inspections", h.ListInspections)
	r.GET("/v1/admin/inspections/status-model", h.GetStatusModel)
	r.GET("/v1/admin/inspections/:id", h.GetInspection)
	r.POST("/v1/admin/inspections/:id/approve", h.ApproveInspection)
	r.POST("/v1/admin/inspections/:id/reject", h.RejectInspection)
	r.POST("/v1/admin/inspections/:id/action", h.RecordAction)
	return r
}

func sampleBooking(status models.InspectionStatus) *models.InspectionBooking {
	b := &models.InspectionBooking{
		ID:              utils.NewShortID(),
		PropertyID:      utils.NewShortID(),
		RequestedBy:     utils.NewShortID(),
		Owner:           utils.NewShortID(),
		Status:          status,
		InspectionDate:  "2026-09-15",
		InspectionTime:  "10:00",
		PropertyAddress: "12 Admiralty Way, Lekki",
		BuyerEmail:      "buyer@example.com",
	}
	b.Normalize()
	return b
}

func TestListInspections_RepeatedStatusParams(t *testing.T) {
	mockSvc := new(MockInspectionService)
	router := setupInspectionRouter(mockSvc)

	expected := &models.PageResult{
		Data:       []models.InspectionBooking{*sampleBooking(models.StatusPendingTransaction)},
		Total:      1,
		TotalPages: 1,
	}
	mockSvc.On("List", mock.Anything, mock.MatchedBy(func(f models.InspectionFilter) bool {
		return len(f.Statuses) == 2 &&
			f.Statuses[0] == models.StatusPendingTransaction &&
			f.Statuses[1] == models.StatusPendingInspection &&
			f.Page == 2
	})).Return(expected, nil)

	q := url.Values{}
	q.Add("status", "pending_transaction")
	q.Add("status", "pending_inspection")
	q.Set("page", "2")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/admin/inspections?"+q.Encode(), nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data       []models.InspectionBooking `json:"data"`
		Total      int64                      `json:"total"`
		TotalPages int64                      `json:"totalPages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body.Total)
	assert.EqualValues(t, 1, body.TotalPages)
	assert.Len(t, body.Data, 1)
	mockSvc.AssertExpectations(t)
}

func TestListInspections_CommaJoinedStatusRejected(t *testing.T) {
	mockSvc := new(MockInspectionService)
	router := setupInspectionRouter(mockSvc)

	// A comma-joined value is not a member of the closed set.
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/admin/inspections?status=pending_transaction%2Cpending_inspection", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestListInspections_UnknownStatusRejected(t *testing.T) {
	mockSvc := new(MockInspectionService)
	router := setupInspectionRouter(mockSvc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/admin/inspections?status=approved", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "unknown inspection status")
}

func TestGetInspection_Decorated(t *testing.T) {
	mockSvc := new(MockInspectionService)
	router := setupInspectionRouter(mockSvc)

	booking := sampleBooking(models.StatusPendingTransaction)
	mockSvc.On("FindByID", mock.Anything, booking.ID).Return(booking, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/admin/inspections/"+booking.ID.String(), nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body.Data["canApprove"])
	assert.Equal(t, true, body.Data["canReject"])
	assert.Equal(t, "Pending Transaction Approval", body.Data["statusLabel"])
	assert.Equal(t, "inspection", body.Data["displayStage"])
}

func TestGetInspection_TerminalHasNoActions(t *testing.T) {
	mockSvc := new(MockInspectionService)
	router := setupInspectionRouter(mockSvc)

	booking := sampleBooking(models.StatusCompleted)
	mockSvc.On("FindByID", mock.Anything, booking.ID).Return(booking, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/admin/inspections/"+booking.ID.String(), nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body.Data["canApprove"])
	assert.Equal(t, false, body.Data["canReject"])
	assert.Equal(t, "none", body.Data["pendingResponseFrom"])
}

func TestApproveInspection(t *testing.T) {
	mockSvc := new(MockInspectionService)
	router := setupInspectionRouter(mockSvc)

	booking := sampleBooking(models.StatusPendingInspection)
	mockSvc.On("Approve", mock.Anything, booking.ID).Return(booking, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/admin/inspections/"+booking.ID.String()+"/approve", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestApproveInspection_IllegalTransitionConflicts(t *testing.T) {
	mockSvc := new(MockInspectionService)
	router := setupInspectionRouter(mockSvc)

	id := utils.NewShortID()
	mockSvc.On("Approve", mock.Anything, id).Return(nil, &services.IllegalTransitionError{
		From: models.StatusCompleted,
		To:   models.StatusPendingInspection,
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/admin/inspections/"+id.String()+"/approve", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "illegal inspection transition")
}

func TestApproveInspection_NotFound(t *testing.T) {
	mockSvc := new(MockInspectionService)
	router := setupInspectionRouter(mockSvc)

	id := utils.NewShortID()
	mockSvc.On("Approve", mock.Anything, id).Return(nil, services.ErrNotFound)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/admin/inspections/"+id.String()+"/approve", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRejectInspection_WithReason(t *testing.T) {
	mockSvc := new(MockInspectionService)
	router := setupInspectionRouter(mockSvc)

	booking := sampleBooking(models.StatusTransactionFailed)
	mockSvc.On("Reject", mock.Anything, booking.ID, "card declined").Return(booking, nil)

	payload, _ := json.Marshal(map[string]string{"reason": "card declined"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/admin/inspections/"+booking.ID.String()+"/reject", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestRecordAction(t *testing.T) {
	mockSvc := new(MockInspectionService)
	router := setupInspectionRouter(mockSvc)

	booking := sampleBooking(models.StatusInspectionRescheduled)
	booking.InspectionDate = "2026-09-20"
	booking.InspectionTime = "14:00"
	mockSvc.On("RecordPartyAction", mock.Anything, booking.ID, mock.MatchedBy(func(a services.PartyAction) bool {
		return a.To == models.StatusInspectionRescheduled && a.NewDate == "2026-09-20" && a.NewTime == "14:00"
	})).Return(booking, nil)

	payload, _ := json.Marshal(map[string]string{
		"to":      "inspection_rescheduled",
		"newDate": "2026-09-20",
		"newTime": "14:00",
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/admin/inspections/"+booking.ID.String()+"/action", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestRecordAction_ValidationErrorsAre400(t *testing.T) {
	mockSvc := new(MockInspectionService)
	router := setupInspectionRouter(mockSvc)

	id := utils.NewShortID()
	mockSvc.On("RecordPartyAction", mock.Anything, id, mock.Anything).
		Return(nil, services.NewValidationError(errors.New("rescheduling requires a new date and time")))

	payload, _ := json.Marshal(map[string]string{"to": "inspection_rescheduled"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/admin/inspections/"+id.String()+"/action", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "new date and time")
}

func TestRecordAction_UnexpectedErrorsAre500(t *testing.T) {
	mockSvc := new(MockInspectionService)
	router := setupInspectionRouter(mockSvc)

	id := utils.NewShortID()
	mockSvc.On("RecordPartyAction", mock.Anything, id, mock.Anything).
		Return(nil, errors.New("connection reset"))

	payload, _ := json.Marshal(map[string]string{"to": "completed"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/admin/inspections/"+id.String()+"/action", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestGetStatusModel(t *testing.T) {
	mockSvc := new(MockInspectionService)
	router := setupInspectionRouter(mockSvc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/admin/inspections/status-model", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			Statuses []struct {
				Status     string   `json:"status"`
				Label      string   `json:"label"`
				CanApprove bool     `json:"canApprove"`
				CanReject  bool     `json:"canReject"`
				Terminal   bool     `json:"terminal"`
				Next       []string `json:"next"`
			} `json:"statuses"`
			Stages map[string]interface{} `json:"stages"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data.Statuses, len(models.AllInspectionStatuses))
	assert.Len(t, body.Data.Stages, 3)

	for _, entry := range body.Data.Statuses {
		if entry.Status == string(models.StatusPendingTransaction) {
			assert.True(t, entry.CanApprove)
			assert.True(t, entry.CanReject)
			assert.ElementsMatch(t, []string{"transaction_failed", "pending_inspection"}, entry.Next)
		} else {
			assert.False(t, entry.CanApprove, entry.Status)
			assert.False(t, entry.CanReject, entry.Status)
		}
		if entry.Terminal {
			assert.Empty(t, entry.Next, entry.Status)
		}
	}
}

func TestGetInspection_BadID(t *testing.T) {
	mockSvc := new(MockInspectionService)
	router := setupInspectionRouter(mockSvc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/admin/inspections/!!!notanid!!!", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
