package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/joho/godotenv"

	"github.com/KHABI-TEQ/console-admin/internal/auth"
	"github.com/KHABI-TEQ/console-admin/internal/models"
	"github.com/KHABI-TEQ/console-admin/internal/utils"
)

const (
	testAppBinary         = "./console_admin_test_app"
	testAppPort           = "8089"
	testServiceApiPortApi = "8091"
	testServiceApiPortBg  = "8092"
	testAppURL            = "http://localhost:" + testAppPort
	testServiceApiURL     = "http://localhost:" + testServiceApiPortApi
	startupTimeout        = 15 * time.Second
	pingEndpoint          = testAppURL + "/v1/ping"

	testAdminEmail    = "itest_admin@example.com"
	testAdminPassword = "integration-test-password"
)

// TestMain builds the binary, seeds an admin account, starts the API and
// background worker processes, and tears everything down afterwards.
func TestMain(m *testing.M) {
	defer func() {
		log.Println("Integration Test Teardown: Cleaning up test binary...")
		_ = os.Remove(testAppBinary)
	}()

	log.Println("Integration Test Setup: Building application...")
	godotenv.Load()
	buildCmd := exec.Command("go", "build", "-o", testAppBinary, ".")
	buildOutput, err := buildCmd.CombinedOutput()
	if err != nil {
		log.Printf("Failed to build application: %v\nOutput:\n%s", err, string(buildOutput))
		os.Exit(1)
	}
	log.Printf("Integration Test Setup: Build successful: %s", testAppBinary)

	if err := seedTestData(); err != nil {
		log.Printf("Failed to seed test data: %v", err)
		os.Exit(1)
	}
	defer cleanupTestData()

	commonEnv := []string{
		"JWT_SECRET=integration-test-secret",
		"GIN_MODE=release",
		"MOCK_SERVICES=true",
		"REDIS_ADDR=localhost:6379",
		"SMTP_FROM_ADDRESS=console@example.com",
		"CLOUDFLARE_TURNSTILE_SECRET_KEY=",
		"PENDING_SWEEP_ENABLED=false",
	}

	apiCmd := exec.Command(testAppBinary, "-m", "api")
	apiCmd.Env = append(append(os.Environ(), commonEnv...),
		"API_PORT="+testAppPort,
		"SERVICE_API_PORT="+testServiceApiPortApi,
		"RATE_LIMIT_SOFT_BUCKET_SIZE=100",
		"RATE_LIMIT_SOFT_REFILL_RATE=100",
		"RATE_LIMIT_HARD_BUCKET_SIZE=200",
		"RATE_LIMIT_HARD_REFILL_RATE=200",
	)
	apiCmd.Stderr = os.Stderr
	apiCmd.Stdout = os.Stdout

	log.Println("Integration Test Setup: Starting API process...")
	if err := apiCmd.Start(); err != nil {
		log.Printf("Failed to start API process: %v", err)
		os.Exit(1)
	}
	log.Printf("Integration Test Setup: API process started (PID: %d)...", apiCmd.Process.Pid)

	bgCmd := exec.Command(testAppBinary, "-m", "bg")
	bgCmd.Env = append(append(os.Environ(), commonEnv...),
		"SERVICE_API_PORT="+testServiceApiPortBg,
	)
	bgCmd.Stderr = os.Stderr
	bgCmd.Stdout = os.Stdout

	log.Println("Integration Test Setup: Starting Background Worker process...")
	if err := bgCmd.Start(); err != nil {
		_ = apiCmd.Process.Kill()
		log.Printf("Failed to start Background Worker process: %v", err)
		os.Exit(1)
	}
	log.Printf("Integration Test Setup: Background Worker process started (PID: %d)...", bgCmd.Process.Pid)

	defer func() {
		log.Println("Integration Test Teardown: Shutting down application processes...")
		for _, cmd := range []*exec.Cmd{bgCmd, apiCmd} {
			if processErr := cmd.Process.Signal(syscall.SIGTERM); processErr != nil {
				log.Printf("Integration Test Teardown: Failed to send SIGTERM: %v. Killing.", processErr)
				_ = cmd.Process.Kill()
			} else {
				_, waitErr := cmd.Process.Wait()
				if waitErr != nil && waitErr.Error() != "signal: killed" && waitErr.Error() != "exit status 1" {
					log.Printf("Integration Test Teardown: Error waiting for process exit: %v", waitErr)
				}
			}
		}
		log.Println("Integration Test Teardown: Application processes stopped.")
	}()

	log.Printf("Integration Test Setup: Waiting for API application to become ready at %s...", pingEndpoint)
	startTime := time.Now()
	ready := false
	for time.Since(startTime) < startupTimeout {
		resp, err := http.Get(pingEndpoint)
		if err == nil && resp.StatusCode == http.StatusOK {
			bodyBytes, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if string(bodyBytes) == "pong" {
				log.Println("Integration Test Setup: Application is ready!")
				ready = true
				break
			}
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(200 * time.Millisecond)
	}

	if !ready {
		log.Printf("Application failed to start within %v", startupTimeout)
		os.Exit(1)
	}

	// Give the background worker a moment to register its queues.
	time.Sleep(2 * time.Second)

	log.Println("Integration Test Setup: Running tests...")
	exitCode := m.Run()
	log.Printf("Integration Test Teardown: Tests finished with exit code %d.", exitCode)
}

func TestIntegration_Ping(t *testing.T) {
	resp, err := http.Get(pingEndpoint)
	require.NoError(t, err, "Request to %s should not fail", pingEndpoint)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	bodyBytes, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	assert.Equal(t, "pong", string(bodyBytes))
}

func TestIntegration_LoginRejectsBadPassword(t *testing.T) {
	payload := map[string]interface{}{
		"email":    testAdminEmail,
		"password": "definitely-not-the-password",
	}
	respBody, resp := postJSON(t, testAppURL+"/v1/auth/login", payload, "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, respBody["error"])
}

func TestIntegration_ApproveFlow(t *testing.T) {
	token := loginAsAdmin(t)
	bookingID, buyerEmail := seedBooking(t, models.StatusPendingTransaction, "12 Itest Close, Lekki")

	// Approve moves the booking to pending_inspection and the response
	// reflects the post-transition gating.
	respBody, resp := postJSON(t, fmt.Sprintf("%s/v1/admin/inspections/%s/approve", testAppURL, bookingID), nil, token)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "approve should succeed: %+v", respBody)

	data, ok := respBody["data"].(map[string]interface{})
	require.True(t, ok, "approve response data should be a map: %+v", respBody)
	assert.Equal(t, string(models.StatusPendingInspection), data["status"])
	assert.Equal(t, false, data["canApprove"])
	assert.Equal(t, false, data["canReject"])
	assert.Equal(t, string(models.PendingSeller), data["pendingResponseFrom"])

	// The background worker should deliver the approval email.
	emailData := getEmailFromServiceAPI(t, "inspection_approved", buyerEmail)
	assert.Contains(t, emailData["subject"], "Inspection Request Approved")

	// A second approve is no longer legal and must conflict, not re-apply.
	conflictBody, conflictResp := postJSON(t, fmt.Sprintf("%s/v1/admin/inspections/%s/approve", testAppURL, bookingID), nil, token)
	defer conflictResp.Body.Close()
	assert.Equal(t, http.StatusConflict, conflictResp.StatusCode)
	assert.Contains(t, conflictBody["error"], "illegal inspection transition")
}

func TestIntegration_RejectFlow(t *testing.T) {
	token := loginAsAdmin(t)
	bookingID, buyerEmail := seedBooking(t, models.StatusPendingTransaction, "7 Itest Avenue, Yaba")

	payload := map[string]interface{}{"reason": "payment evidence unreadable"}
	respBody, resp := postJSON(t, fmt.Sprintf("%s/v1/admin/inspections/%s/reject", testAppURL, bookingID), payload, token)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "reject should succeed: %+v", respBody)

	data, ok := respBody["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, string(models.StatusTransactionFailed), data["status"])
	assert.Equal(t, string(models.PendingNone), data["pendingResponseFrom"])
	assert.Equal(t, "payment evidence unreadable", data["rejectionReason"])

	emailData := getEmailFromServiceAPI(t, "inspection_rejected", buyerEmail)
	assert.Contains(t, emailData["subject"], "Inspection Request Rejected")
}

func TestIntegration_ListFiltersByRepeatedStatus(t *testing.T) {
	token := loginAsAdmin(t)
	marker := fmt.Sprintf("Filtermark %d", time.Now().UnixNano())
	pendingID, _ := seedBooking(t, models.StatusPendingTransaction, marker+" North")
	failedID, _ := seedBooking(t, models.StatusTransactionFailed, marker+" South")
	seedBooking(t, models.StatusCompleted, marker+" East")

	v := url.Values{}
	v.Add("status", string(models.StatusPendingTransaction))
	v.Add("status", string(models.StatusTransactionFailed))
	v.Set("search", marker)

	respBody, resp := getJSON(t, testAppURL+"/v1/admin/inspections?"+v.Encode(), token)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "list should succeed: %+v", respBody)

	items, ok := respBody["data"].([]interface{})
	require.True(t, ok, "list data should be an array: %+v", respBody)
	require.Len(t, items, 2)
	gotIDs := map[string]bool{}
	for _, item := range items {
		booking := item.(map[string]interface{})
		gotIDs[booking["id"].(string)] = true
	}
	assert.True(t, gotIDs[pendingID])
	assert.True(t, gotIDs[failedID])

	// Comma-joined status values are a malformed filter, not a multi-select.
	badBody, badResp := getJSON(t, testAppURL+"/v1/admin/inspections?status="+url.QueryEscape("pending_transaction,completed"), token)
	defer badResp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, badResp.StatusCode)
	assert.Contains(t, badBody["error"], "unknown inspection status")
}

func TestIntegration_StatusModel(t *testing.T) {
	token := loginAsAdmin(t)
	respBody, resp := getJSON(t, testAppURL+"/v1/admin/inspections/status-model", token)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, ok := respBody["data"].(map[string]interface{})
	require.True(t, ok)
	statuses, ok := data["statuses"].([]interface{})
	require.True(t, ok)
	assert.Len(t, statuses, len(models.AllInspectionStatuses))
}

// --- Helpers ---

func loginAsAdmin(t *testing.T) string {
	t.Helper()
	payload := map[string]interface{}{
		"email":    testAdminEmail,
		"password": testAdminPassword,
	}
	respBody, resp := postJSON(t, testAppURL+"/v1/auth/login", payload, "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "admin login failed: %+v", respBody)
	data, ok := respBody["data"].(map[string]interface{})
	require.True(t, ok, "login response data should be a map: %+v", respBody)
	token, ok := data["token"].(string)
	require.True(t, ok && token != "", "login response should carry a token: %+v", respBody)
	return token
}

func postJSON(t *testing.T, endpoint string, payload interface{}, token string) (map[string]interface{}, *http.Response) {
	t.Helper()
	var bodyReader io.Reader
	if payload != nil {
		bodyBytes, err := json.Marshal(payload)
		require.NoError(t, err)
		bodyReader = bytes.NewReader(bodyBytes)
	}
	req, err := http.NewRequest("POST", endpoint, bodyReader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return doJSON(t, req)
}

func getJSON(t *testing.T, endpoint string, token string) (map[string]interface{}, *http.Response) {
	t.Helper()
	req, err := http.NewRequest("GET", endpoint, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return doJSON(t, req)
}

func doJSON(t *testing.T, req *http.Request) (map[string]interface{}, *http.Response) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "request to %s failed", req.URL)

	respBodyBytes, readErr := io.ReadAll(resp.Body)
	require.NoError(t, readErr)
	resp.Body = io.NopCloser(bytes.NewReader(respBodyBytes))

	var respBody map[string]interface{}
	if unmarshalErr := json.Unmarshal(respBodyBytes, &respBody); unmarshalErr != nil {
		respBody = map[string]interface{}{"raw_body": string(respBodyBytes)}
	}
	return respBody, resp
}

// seedBooking inserts an inspection booking directly into MongoDB and
// returns its ID and the buyer email it notifies.
func seedBooking(t *testing.T, status models.InspectionStatus, address string) (string, string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, db := connectSeedDB(t, ctx)
	defer client.Disconnect(ctx)

	buyerEmail := fmt.Sprintf("buyer_%d@example.com", time.Now().UnixNano())
	booking := &models.InspectionBooking{
		ID:              utils.NewShortID(),
		PropertyID:      utils.NewShortID(),
		RequestedBy:     utils.NewShortID(),
		Owner:           utils.NewShortID(),
		Status:          status,
		PropertyAddress: address,
		BuyerEmail:      buyerEmail,
		InspectionDate:  "2026-09-15",
		InspectionTime:  "11:00",
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	booking.Normalize()

	_, err := db.Collection("inspection_bookings").InsertOne(ctx, booking)
	require.NoError(t, err, "failed to seed inspection booking")
	return booking.ID.String(), buyerEmail
}

func connectSeedDB(t *testing.T, ctx context.Context) (*mongo.Client, *mongo.Database) {
	t.Helper()
	mongoURI := os.Getenv("MONGO_URI")
	dbName := os.Getenv("MONGO_DB_NAME")
	if dbName == "" {
		dbName = "khabiteq_console"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	require.NoError(t, err, "failed to connect to MongoDB for seeding")
	return client, client.Database(dbName)
}

// seedTestData inserts the admin account the tests log in with.
func seedTestData() error {
	log.Println("Seeding test data...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mongoURI := os.Getenv("MONGO_URI")
	dbName := os.Getenv("MONGO_DB_NAME")
	if dbName == "" {
		dbName = "khabiteq_console"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB for seeding: %w", err)
	}
	defer func() {
		if err := client.Disconnect(ctx); err != nil {
			log.Printf("Error disconnecting seeding client: %v", err)
		}
	}()

	db := client.Database(dbName)
	adminCollection := db.Collection("admins")

	if _, err := adminCollection.DeleteMany(ctx, bson.M{"email": testAdminEmail}); err != nil {
		return fmt.Errorf("failed to delete existing test admin: %w", err)
	}

	hash, err := auth.HashPassword(testAdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash test admin password: %w", err)
	}
	admin := models.Admin{
		Email:        testAdminEmail,
		FirstName:    "Integration",
		LastName:     "Admin",
		PasswordHash: hash,
		SuperAdmin:   true,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	admin.GenID()
	if _, err := adminCollection.InsertOne(ctx, admin); err != nil {
		return fmt.Errorf("failed to seed test admin: %w", err)
	}
	log.Printf("Successfully seeded test admin '%s'.", testAdminEmail)
	return nil
}

func cleanupTestData() {
	log.Println("Cleaning up seeded test data...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mongoURI := os.Getenv("MONGO_URI")
	dbName := os.Getenv("MONGO_DB_NAME")
	if dbName == "" {
		dbName = "khabiteq_console"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Printf("Failed to connect to MongoDB for cleanup: %v", err)
		return
	}
	defer func() {
		if err := client.Disconnect(ctx); err != nil {
			log.Printf("Error disconnecting cleanup client: %v", err)
		}
	}()

	db := client.Database(dbName)
	if res, err := db.Collection("admins").DeleteMany(ctx, bson.M{"email": testAdminEmail}); err != nil {
		log.Printf("Failed to delete seeded admin during cleanup: %v", err)
	} else {
		log.Printf("Deleted %d seeded admins during cleanup.", res.DeletedCount)
	}
	if res, err := db.Collection("inspection_bookings").DeleteMany(ctx, bson.M{"buyer_email": bson.M{"$regex": "^buyer_.*@example\\.com$"}}); err != nil {
		log.Printf("Failed to delete seeded bookings during cleanup: %v", err)
	} else {
		log.Printf("Deleted %d seeded bookings during cleanup.", res.DeletedCount)
	}
	log.Println("Finished cleaning up seeded data.")
}

// --- Service API Helper ---

// getEmailFromServiceAPI polls the service API until the mock email sender
// has stored the requested notification in Redis.
func getEmailFromServiceAPI(t *testing.T, kind string, emailAddr string) map[string]interface{} {
	t.Helper()
	var emailData map[string]interface{}
	found := false
	pollTimeout := time.After(10 * time.Second)
	pollTicker := time.NewTicker(500 * time.Millisecond)
	defer pollTicker.Stop()

	log.Printf("Polling Service API for email: Kind=%s, Email=%s", kind, emailAddr)

	for !found {
		select {
		case <-pollTimeout:
			t.Fatalf("Timeout waiting for email via Service API (Kind: %s, Email: %s)", kind, emailAddr)
		case <-pollTicker.C:
			payload := map[string]interface{}{
				"method":    "getTestEmail",
				"arguments": []string{kind, emailAddr},
			}
			bodyBytes, err := json.Marshal(payload)
			require.NoError(t, err)

			resp, err := http.Post(testServiceApiURL+"/api", "application/json", bytes.NewReader(bodyBytes))
			if err != nil {
				log.Printf("Error calling getTestEmail Service API: %v", err)
				continue
			}
			respBodyBytes, _ := io.ReadAll(resp.Body)
			resp.Body.Close()

			if resp.StatusCode == http.StatusOK {
				var respBody map[string]interface{}
				if err := json.Unmarshal(respBodyBytes, &respBody); err != nil {
					log.Printf("Failed to unmarshal service API response: %v. Body: %s", err, string(respBodyBytes))
					continue
				}
				if success, _ := respBody["success"].(bool); success {
					if actualEmailPayload, ok := respBody["data"].(map[string]interface{}); ok {
						log.Printf("Found email via Service API: To=%s Subject=%s", actualEmailPayload["to"], actualEmailPayload["subject"])
						emailData = actualEmailPayload
						found = true
					}
				}
			} else if resp.StatusCode != http.StatusNotFound {
				log.Printf("getTestEmail returned status %d. Polling...", resp.StatusCode)
			}
		}
	}
	require.True(t, found, "Failed to find email via Service API")
	return emailData
}
