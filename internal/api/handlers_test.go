package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"example.com/coach/internal/domain"
	"example.com/coach/internal/plangen"
	"example.com/coach/internal/webhook"
)

const signingKey = "handler-test-signing-key"

func newTestHandler(t *testing.T, completer plangen.Completer, store *mockStore) *Handler {
	t.Helper()
	secret := "whsec_" + base64.StdEncoding.EncodeToString([]byte(signingKey))
	verifier, err := webhook.NewVerifier(secret, 0)
	if err != nil {
		t.Fatalf("failed to build verifier: %v", err)
	}
	service := domain.NewService(store)
	dispatcher := webhook.NewDispatcher(service)
	pipeline := plangen.NewPipeline(completer, service)
	return NewHandler(verifier, dispatcher, pipeline, service)
}

func signedWebhookRequest(body []byte) *http.Request {
	id := "msg_test_1"
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(signingKey))
	fmt.Fprintf(mac, "%s.%s.", id, timestamp)
	mac.Write(body)

	req := httptest.NewRequest(http.MethodPost, "/clerk-webhook", strings.NewReader(string(body)))
	req.Header.Set("svix-id", id)
	req.Header.Set("svix-timestamp", timestamp)
	req.Header.Set("svix-signature", "v1,"+base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	return req
}

func TestClerkWebhookValidDeliverySyncsUser(t *testing.T) {
	store := &mockStore{}
	handler := newTestHandler(t, &fixedCompleter{}, store)

	body := []byte(`{"type":"user.created","data":{"id":"user_1","first_name":"Jane","last_name":"Doe","image_url":"https://img.example/1.png","email_addresses":[{"email_address":"jane@example.com"}]}}`)
	rr := httptest.NewRecorder()
	handler.clerkWebhook(rr, signedWebhookRequest(body))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Body.String() != "Webhook received" {
		t.Fatalf("unexpected ack body %q", rr.Body.String())
	}
	if len(store.synced) != 1 {
		t.Fatalf("expected 1 synced user got %d", len(store.synced))
	}
	if store.synced[0].ClerkID != "user_1" || store.synced[0].Email != "jane@example.com" {
		t.Fatalf("unexpected synced user %+v", store.synced[0])
	}
}

func TestClerkWebhookMissingHeaders(t *testing.T) {
	store := &mockStore{}
	handler := newTestHandler(t, &fixedCompleter{}, store)

	req := httptest.NewRequest(http.MethodPost, "/clerk-webhook", strings.NewReader(`{"type":"user.created"}`))
	rr := httptest.NewRecorder()
	handler.clerkWebhook(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
	if rr.Body.String() != "No svix headers found" {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}
	if len(store.synced) != 0 {
		t.Fatalf("expected no sync on rejected delivery")
	}
}

func TestClerkWebhookInvalidSignature(t *testing.T) {
	store := &mockStore{}
	handler := newTestHandler(t, &fixedCompleter{}, store)

	req := signedWebhookRequest([]byte(`{"type":"user.created","data":{"id":"user_1","email_addresses":[{"email_address":"a@b.c"}]}}`))
	req.Header.Set("svix-signature", "v1,bm90LXRoZS1zaWduYXR1cmU=")
	rr := httptest.NewRecorder()
	handler.clerkWebhook(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
	if rr.Body.String() != "Error verifying webhook" {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}
	if len(store.synced) != 0 {
		t.Fatalf("expected no sync on rejected delivery")
	}
}

func TestClerkWebhookAcksDespiteDispatchFailure(t *testing.T) {
	store := &mockStore{updateErr: domain.ErrUserNotFound}
	handler := newTestHandler(t, &fixedCompleter{}, store)

	body := []byte(`{"type":"user.updated","data":{"id":"ghost","email_addresses":[{"email_address":"g@b.c"}]}}`)
	rr := httptest.NewRecorder()
	handler.clerkWebhook(rr, signedWebhookRequest(body))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 despite dispatch failure got %d", rr.Code)
	}
}

func TestClerkWebhookRejectsNonPost(t *testing.T) {
	handler := newTestHandler(t, &fixedCompleter{}, &mockStore{})

	req := httptest.NewRequest(http.MethodGet, "/clerk-webhook", nil)
	rr := httptest.NewRecorder()
	handler.clerkWebhook(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", rr.Code)
	}
}

func TestGenerateProgramSuccess(t *testing.T) {
	completer := &fixedCompleter{
		responses: []string{
			"```json\n{\"schedule\": [\"Monday\", \"Thursday\"], \"exercises\": [" +
				"{\"day\": \"Monday\", \"routines\": [{\"name\": \"Squats\", \"sets\": \"4\", \"reps\": 8}]}," +
				"{\"day\": \"Thursday\", \"routines\": [{\"name\": \"Rows\", \"sets\": 3}]}]}\n```",
			`{"dailyCalories": "2400", "meals": [{"name": "Breakfast", "foods": ["Oats"]}]}`,
		},
	}
	store := &mockStore{}
	handler := newTestHandler(t, completer, store)

	payload := `{"user_id":"user_1","age":30,"height":180,"weight":78,"workout_days":2,"fitness_goal":"Fat Loss","fitness_level":"beginner"}`
	req := httptest.NewRequest(http.MethodPost, "/vapi/generate-program", strings.NewReader(payload))
	rr := httptest.NewRecorder()
	handler.generateProgram(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp generateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success envelope, got error %q", resp.Error)
	}
	if resp.Data == nil || resp.Data.PlanID == "" {
		t.Fatalf("expected plan id in response data")
	}
	if len(resp.Data.WorkoutPlan.Schedule) != len(resp.Data.WorkoutPlan.Exercises) {
		t.Fatalf("schedule/exercises mismatch: %d vs %d",
			len(resp.Data.WorkoutPlan.Schedule), len(resp.Data.WorkoutPlan.Exercises))
	}
	if resp.Data.WorkoutPlan.Exercises[1].Routines[0].Reps != 10 {
		t.Fatalf("expected defaulted reps 10 got %d", resp.Data.WorkoutPlan.Exercises[1].Routines[0].Reps)
	}
	if resp.Data.DietPlan.DailyCalories != 2400 {
		t.Fatalf("expected dailyCalories 2400 got %f", resp.Data.DietPlan.DailyCalories)
	}
	if len(store.plans) != 1 {
		t.Fatalf("expected 1 persisted plan got %d", len(store.plans))
	}
	if !store.plans[0].IsActive {
		t.Fatalf("expected persisted plan to be active")
	}
}

func TestGenerateProgramInvalidRequest(t *testing.T) {
	completer := &fixedCompleter{}
	store := &mockStore{}
	handler := newTestHandler(t, completer, store)

	req := httptest.NewRequest(http.MethodPost, "/vapi/generate-program", strings.NewReader(`{"user_id":""}`))
	rr := httptest.NewRecorder()
	handler.generateProgram(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}

	var resp generateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Success || resp.Error == "" {
		t.Fatalf("expected failure envelope with error, got %+v", resp)
	}
	if completer.calls != 0 {
		t.Fatalf("expected no completions for invalid request, got %d", completer.calls)
	}
}

func TestGenerateProgramProviderFailure(t *testing.T) {
	completer := &fixedCompleter{err: errors.New("provider down")}
	store := &mockStore{}
	handler := newTestHandler(t, completer, store)

	payload := `{"user_id":"user_1","age":30,"height":180,"weight":78,"workout_days":3,"fitness_goal":"Fat Loss","fitness_level":"beginner"}`
	req := httptest.NewRequest(http.MethodPost, "/vapi/generate-program", strings.NewReader(payload))
	rr := httptest.NewRecorder()
	handler.generateProgram(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rr.Code)
	}

	var resp generateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Success {
		t.Fatalf("expected failure envelope")
	}
	if completer.calls != 1 {
		t.Fatalf("expected the diet prompt to be skipped, got %d calls", completer.calls)
	}
	if len(store.plans) != 0 {
		t.Fatalf("expected no persisted plan on failure")
	}
}

func TestGenerateProgramRejectsMalformedBody(t *testing.T) {
	handler := newTestHandler(t, &fixedCompleter{}, &mockStore{})

	req := httptest.NewRequest(http.MethodPost, "/vapi/generate-program", strings.NewReader("not json"))
	rr := httptest.NewRecorder()
	handler.generateProgram(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestListPlansRequiresUserID(t *testing.T) {
	handler := newTestHandler(t, &fixedCompleter{}, &mockStore{})

	req := httptest.NewRequest(http.MethodGet, "/vapi/plans", nil)
	rr := httptest.NewRecorder()
	handler.listPlans(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestListPlansReturnsStoredPlans(t *testing.T) {
	store := &mockStore{
		plans: []domain.Plan{
			{ID: "plan-1", UserID: "user_1", Name: "Fat Loss Plan - 2026-03-14", IsActive: true, CreatedAt: time.Now().UTC()},
			{ID: "plan-2", UserID: "user_1", Name: "Muscle Gain Plan - 2026-01-02", IsActive: false, CreatedAt: time.Now().UTC().Add(-time.Hour)},
		},
	}
	handler := newTestHandler(t, &fixedCompleter{}, store)

	req := httptest.NewRequest(http.MethodGet, "/vapi/plans?user_id=user_1", nil)
	rr := httptest.NewRecorder()
	handler.listPlans(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp listPlansResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success || len(resp.Data) != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Data[0].PlanID != "plan-1" || !resp.Data[0].IsActive {
		t.Fatalf("unexpected first plan %+v", resp.Data[0])
	}
}

type fixedCompleter struct {
	responses []string
	err       error
	calls     int
}

func (f *fixedCompleter) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	i := f.calls
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New("unexpected completion call")
}

type mockStore struct {
	synced    []domain.User
	updated   []domain.User
	plans     []domain.Plan
	updateErr error
}

func (m *mockStore) SyncUser(ctx context.Context, user domain.User) error {
	m.synced = append(m.synced, user)
	return nil
}

func (m *mockStore) UpdateUser(ctx context.Context, user domain.User) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updated = append(m.updated, user)
	return nil
}

func (m *mockStore) CreatePlan(ctx context.Context, plan domain.Plan) error {
	m.plans = append(m.plans, plan)
	return nil
}

func (m *mockStore) ListPlansByUser(ctx context.Context, userID string) ([]domain.Plan, error) {
	return m.plans, nil
}
