package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cathandler "entrant/internal/catalog/handler"
	catmodels "entrant/internal/catalog/models"
	catservice "entrant/internal/catalog/service"
	catstore "entrant/internal/catalog/store"
	"entrant/internal/jwttoken"
	"entrant/internal/platform/logger"
	reghandler "entrant/internal/registration/handler"
	regservice "entrant/internal/registration/service"
	regstore "entrant/internal/registration/store"
	"entrant/internal/roster"
	id "entrant/pkg/domain"
)

// Uses real components end to end: memory stores, real services, real JWT.

type env struct {
	router    http.Handler
	jwt       *jwttoken.Service
	catalog   *catstore.MemoryStore
	rosters   *roster.MemoryStore
	regs      *regstore.MemoryStore
	segment   catmodels.Segment
	profile   id.Profile
	organizer id.UserID
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := logger.New()

	e := &env{
		jwt:       jwttoken.NewService("test-signing-key", "entrant", "entrant"),
		catalog:   catstore.NewMemory(),
		rosters:   roster.NewMemory(),
		regs:      regstore.NewMemory(),
		organizer: id.NewUserID(),
	}

	e.segment = catmodels.Segment{
		ID:       id.NewSegmentID(),
		EventID:  id.NewEventID(),
		Name:     "Open Division",
		Capacity: 10,
		// Free segment keeps the happy path one request long.
		RegistrationFee: 0,
		CreatedAt:       time.Now(),
	}
	e.catalog.PutSegment(e.segment)
	e.regs.SeedSegment(e.segment.ID, e.segment.Capacity)

	e.profile = id.Profile{
		UserID:      id.NewUserID(),
		Email:       "participant@mit.edu",
		DateOfBirth: time.Date(2004, time.June, 15, 0, 0, 0, 0, time.UTC),
		Gender:      id.GenderFemale,
		Status:      id.StatusUndergraduate,
	}
	e.rosters.PutProfile(e.profile)

	catSvc := catservice.New(e.catalog)
	regSvc := regservice.New(e.regs, catSvc, roster.NewService(e.rosters))

	e.router = NewRouter(Deps{
		Registrations: reghandler.New(regSvc, log),
		Catalog:       cathandler.New(catSvc, log),
		Auth:          e.jwt,
		Logger:        log,
		Health:        map[string]HealthChecker{"self": HealthFunc(func(context.Context) error { return nil })},
	})
	return e
}

func (e *env) token(t *testing.T, userID id.UserID, role jwttoken.Role) string {
	t.Helper()
	token, err := e.jwt.GenerateAccessToken(uuid.UUID(userID), role, time.Hour)
	require.NoError(t, err)
	return token
}

func (e *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateRegistration_RequiresAuth(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/registrations", "", map[string]string{
		"segment_id": e.segment.ID.String(),
		"user_id":    e.profile.UserID.String(),
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateRegistration_EndToEnd(t *testing.T) {
	e := newEnv(t)
	token := e.token(t, e.profile.UserID, jwttoken.RoleParticipant)

	rec := e.do(t, http.MethodPost, "/registrations", token, map[string]string{
		"segment_id": e.segment.ID.String(),
		"user_id":    e.profile.UserID.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "confirmed", resp.Status, "free segment confirms immediately")

	// The registrant can read it back.
	rec = e.do(t, http.MethodGet, "/registrations/"+resp.ID, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// A stranger cannot.
	stranger := e.token(t, id.NewUserID(), jwttoken.RoleParticipant)
	rec = e.do(t, http.MethodGet, "/registrations/"+resp.ID, stranger, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateRegistration_ValidationErrors(t *testing.T) {
	e := newEnv(t)
	token := e.token(t, e.profile.UserID, jwttoken.RoleParticipant)

	rec := e.do(t, http.MethodPost, "/registrations", token, map[string]string{
		"user_id": e.profile.UserID.String(),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing segment_id")

	rec = e.do(t, http.MethodPost, "/registrations", token, map[string]string{
		"segment_id": e.segment.ID.String(),
		"user_id":    e.profile.UserID.String(),
		"team_id":    uuid.NewString(),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "both principals set")
}

// paidSegment seeds a second segment with a fee so registrations start in
// pending_payment.
func (e *env) paidSegment(t *testing.T) catmodels.Segment {
	t.Helper()
	seg := catmodels.Segment{
		ID:              id.NewSegmentID(),
		EventID:         id.NewEventID(),
		Name:            "Paid Division",
		Capacity:        10,
		RegistrationFee: 2500,
		CreatedAt:       time.Now(),
	}
	e.catalog.PutSegment(seg)
	e.regs.SeedSegment(seg.ID, seg.Capacity)
	return seg
}

func TestCancelRegistration_EndToEnd(t *testing.T) {
	e := newEnv(t)
	paid := e.paidSegment(t)
	token := e.token(t, e.profile.UserID, jwttoken.RoleParticipant)

	rec := e.do(t, http.MethodPost, "/registrations", token, map[string]string{
		"segment_id": paid.ID.String(),
		"user_id":    e.profile.UserID.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = e.do(t, http.MethodDelete, "/registrations/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"rejected"`)
}

func TestCancelRegistration_ConfirmedIsRefused(t *testing.T) {
	e := newEnv(t)
	token := e.token(t, e.profile.UserID, jwttoken.RoleParticipant)

	// The env segment is free, so the registration confirms immediately.
	rec := e.do(t, http.MethodPost, "/registrations", token, map[string]string{
		"segment_id": e.segment.ID.String(),
		"user_id":    e.profile.UserID.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "confirmed", created.Status)

	rec = e.do(t, http.MethodDelete, "/registrations/"+created.ID, token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_transition")

	// The registration is untouched.
	rec = e.do(t, http.MethodGet, "/registrations/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"confirmed"`)
}

func TestConfirmPayment_RequiresGatewayCredential(t *testing.T) {
	e := newEnv(t)
	paid := e.paidSegment(t)
	participant := e.token(t, e.profile.UserID, jwttoken.RoleParticipant)

	rec := e.do(t, http.MethodPost, "/registrations", participant, map[string]string{
		"segment_id": paid.ID.String(),
		"user_id":    e.profile.UserID.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	path := "/registrations/" + created.ID + "/confirm-payment"

	// A participant cannot settle their own registration.
	rec = e.do(t, http.MethodPost, path, participant, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	gateway := e.token(t, id.NewUserID(), jwttoken.RoleGateway)
	rec = e.do(t, http.MethodPost, path, gateway, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"confirmed"`)
}

func TestOrganizerEndpoints_RequireRole(t *testing.T) {
	e := newEnv(t)
	participant := e.token(t, e.profile.UserID, jwttoken.RoleParticipant)
	organizer := e.token(t, e.organizer, jwttoken.RoleOrganizer)

	path := "/segments/" + e.segment.ID.String() + "/toggle-pause"

	rec := e.do(t, http.MethodPatch, path, participant, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodPatch, path, organizer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"paused":true`)

	// Paused segment refuses new registrations with 422.
	rec = e.do(t, http.MethodPost, "/registrations", participant, map[string]string{
		"segment_id": e.segment.ID.String(),
		"user_id":    e.profile.UserID.String(),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestListBySegment_OrganizerOnly(t *testing.T) {
	e := newEnv(t)
	participant := e.token(t, e.profile.UserID, jwttoken.RoleParticipant)
	organizer := e.token(t, e.organizer, jwttoken.RoleOrganizer)

	rec := e.do(t, http.MethodPost, "/registrations", participant, map[string]string{
		"segment_id": e.segment.ID.String(),
		"user_id":    e.profile.UserID.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	path := "/segments/" + e.segment.ID.String() + "/registrations"

	rec = e.do(t, http.MethodGet, path, participant, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodGet, path, organizer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Registrations []json.RawMessage `json:"registrations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Len(t, listing.Registrations, 1)
}
