package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studenthub/internal/fallback"
	"studenthub/internal/middleware"
	"studenthub/internal/model"
	"studenthub/internal/repository"
	"studenthub/internal/service"
	"studenthub/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testAPI struct {
	router   *gin.Engine
	tokens   *middleware.Tokens
	listings *repository.ListingRepository
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repository.EnsureSchema(ctx, db))

	fb, err := fallback.Load()
	require.NoError(t, err)

	lr := repository.NewListingRepository(db)
	rr := repository.NewReviewRepository(db)
	pr := repository.NewProfileRepository(db)
	tokens := middleware.NewTokens("test-secret", time.Hour)
	policy := service.RetryPolicy{MaxAttempts: 2, Timeout: time.Second}
	listings := service.NewListingService(lr, fb, policy, nil)
	sessions := session.NewStore(listings, "Rajampeta", time.Hour, nil)
	t.Cleanup(sessions.Close)

	router := NewRouter(Deps{
		Tokens:      tokens,
		Listings:    listings,
		Detail:      service.NewDetailService(lr, rr, repository.NewBookingRepository(db), fb, nil),
		Auth:        service.NewAuthService(pr, tokens, nil),
		Profiles:    service.NewProfileService(pr, repository.NewCardRepository(db)),
		Media:       service.NewMediaService(nil, lr, pr, "listing-images", "avatars", nil),
		Sessions:    sessions,
		ListingRepo: lr,
	})
	return &testAPI{router: router, tokens: tokens, listings: lr}
}

type call struct {
	method, path string
	body         interface{}
	token        string
	cookie       *http.Cookie
}

func (a *testAPI) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) token(t *testing.T, id, role string) string {
	t.Helper()
	tok, err := a.tokens.Issue(model.Actor{ID: id, Roles: []string{role}})
	require.NoError(t, err)
	return tok
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestListingPageFallsBackWhenStoreIsEmpty(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, call{method: http.MethodGet, path: "/api/listings/hostel?location=Rajampeta&hostel_type=boys"})
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Rows       []map[string]interface{} `json:"rows"`
		TotalCount int                      `json:"totalCount"`
		Source     string                   `json:"source"`
		Offline    bool                     `json:"offline"`
	}
	decode(t, w, &page)
	assert.Equal(t, "fallback", page.Source)
	assert.True(t, page.Offline)
	assert.Equal(t, 2, page.TotalCount)
	assert.Equal(t, "fallback-hostel-1", page.Rows[0]["id"])
}

func TestListingPageFromStore(t *testing.T) {
	api := newTestAPI(t)
	require.NoError(t, api.listings.Create(context.Background(), model.Restaurant{
		ID: "r-1", Name: "Campus Canteen", City: "Bangalore", Cuisine: "South Indian", Rating: 4.1,
	}))

	w := api.do(t, call{method: http.MethodGet, path: "/api/listings/restaurant?location=bengaluru"})
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		TotalCount int          `json:"totalCount"`
		Source     model.Source `json:"source"`
	}
	decode(t, w, &page)
	assert.Equal(t, model.SourceRemote, page.Source)
	assert.Equal(t, 1, page.TotalCount)

	status := api.do(t, call{method: http.MethodGet, path: "/api/status"})
	require.Equal(t, http.StatusOK, status.Code)
	assert.Contains(t, status.Body.String(), `"offline":false`)
}

func TestListingPageErrors(t *testing.T) {
	api := newTestAPI(t)

	assert.Equal(t, http.StatusBadRequest, api.do(t, call{method: http.MethodGet, path: "/api/listings/cinema"}).Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, call{method: http.MethodGet, path: "/api/listings/hostel/nope"}).Code)

	w := api.do(t, call{method: http.MethodGet, path: "/api/listings/place"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"source":"none"`)
}

func TestReviewFlow(t *testing.T) {
	api := newTestAPI(t)
	require.NoError(t, api.listings.Create(context.Background(), model.Place{ID: "p-1", Name: "Gandikota", City: "Kadapa"}))
	path := "/api/listings/place/p-1/reviews"
	review := ReviewRequestDTO{Rating: 5, Comment: "Grand canyon of India"}

	assert.Equal(t, http.StatusUnauthorized, api.do(t, call{method: http.MethodPost, path: path, body: review}).Code)

	user := api.token(t, "u-1", model.RoleUser)
	w := api.do(t, call{method: http.MethodPost, path: path, body: ReviewRequestDTO{Rating: 9, Comment: "x"}, token: user})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"rating"`)

	w = api.do(t, call{method: http.MethodPost, path: path, body: review, token: user})
	require.Equal(t, http.StatusCreated, w.Code)

	w = api.do(t, call{method: http.MethodGet, path: "/api/listings/place/p-1"})
	require.Equal(t, http.StatusOK, w.Code)
	var view struct {
		Entity  model.Place    `json:"entity"`
		Reviews []model.Review `json:"reviews"`
	}
	decode(t, w, &view)
	assert.Equal(t, 5.0, view.Entity.Rating)
	assert.Len(t, view.Reviews, 1)
}

func TestSignupAndBooking(t *testing.T) {
	api := newTestAPI(t)
	require.NoError(t, api.listings.Create(context.Background(), model.Hostel{
		ID: "h-1", Name: "Sri Sai Boys Hostel", City: "Rajampeta", ContactPhone: "9848012345",
	}))

	w := api.do(t, call{method: http.MethodPost, path: "/api/auth/signup", body: service.SignupInput{
		Email: "ravi@example.com", Password: "hunter2hunter2", FullName: "Ravi",
	}})
	require.Equal(t, http.StatusCreated, w.Code)
	var auth authResponse
	decode(t, w, &auth)
	require.NotEmpty(t, auth.Token)

	w = api.do(t, call{method: http.MethodPost, path: "/api/auth/signup", body: service.SignupInput{
		Email: "ravi@example.com", Password: "hunter2hunter2",
	}})
	assert.Equal(t, http.StatusConflict, w.Code)

	for field, in := range map[string]service.SignupInput{
		"email":    {Email: "ravi-at-example", Password: "hunter2hunter2"},
		"password": {Email: "sita@example.com", Password: "short"},
	} {
		w = api.do(t, call{method: http.MethodPost, path: "/api/auth/signup", body: in})
		assert.Equal(t, http.StatusBadRequest, w.Code, field)
		assert.Contains(t, w.Body.String(), `"field":"`+field+`"`)
	}

	w = api.do(t, call{method: http.MethodPost, path: "/api/auth/signin", body: signinDTO{Email: "ravi@example.com", Password: "nope-nope"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(t, call{method: http.MethodPost, path: "/api/hostels/h-1/bookings", body: BookingRequestDTO{}, token: auth.Token})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"message"`)

	w = api.do(t, call{method: http.MethodPost, path: "/api/hostels/h-1/bookings", body: BookingRequestDTO{Message: "Room for June?"}, token: auth.Token})
	require.Equal(t, http.StatusCreated, w.Code)
	var receipt service.BookingReceipt
	decode(t, w, &receipt)
	assert.True(t, strings.HasPrefix(receipt.ChatLink, "https://wa.me/9848012345?text="), receipt.ChatLink)

	w = api.do(t, call{method: http.MethodGet, path: "/api/bookings", token: auth.Token})
	require.Equal(t, http.StatusOK, w.Code)
	var bookings []model.BookingRequest
	decode(t, w, &bookings)
	assert.Len(t, bookings, 1)

	w = api.do(t, call{method: http.MethodGet, path: "/api/profile", token: auth.Token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestAdminListingCRUD(t *testing.T) {
	api := newTestAPI(t)
	body := map[string]interface{}{"name": "Tallapaka", "city": "Rajampeta", "category": "heritage"}

	w := api.do(t, call{method: http.MethodPost, path: "/api/admin/listings/place", body: body, token: api.token(t, "u-1", model.RoleUser)})
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := api.token(t, "a-1", model.RoleAdmin)
	w = api.do(t, call{method: http.MethodPost, path: "/api/admin/listings/place", body: map[string]interface{}{"city": "x"}, token: admin})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, call{method: http.MethodPost, path: "/api/admin/listings/place", body: body, token: admin})
	require.Equal(t, http.StatusCreated, w.Code)
	var created model.Place
	decode(t, w, &created)
	require.NotEmpty(t, created.ID)

	body["description"] = "Birthplace of Annamacharya"
	w = api.do(t, call{method: http.MethodPut, path: "/api/admin/listings/place/" + created.ID, body: body, token: admin})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Annamacharya")

	w = api.do(t, call{method: http.MethodDelete, path: "/api/admin/listings/place/" + created.ID, token: admin})
	assert.Equal(t, http.StatusOK, w.Code)
	w = api.do(t, call{method: http.MethodDelete, path: "/api/admin/listings/place/" + created.ID, token: admin})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBrowseSession(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, call{method: http.MethodGet, path: "/api/browse/hostel"})
	require.Equal(t, http.StatusOK, w.Code)
	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Contains(t, w.Body.String(), `"location":"Rajampeta"`)
	assert.Contains(t, w.Body.String(), `"offline":true`)

	w = api.do(t, call{method: http.MethodPost, path: "/api/browse/hostel/filter", body: filterDTO{Name: "cuisine", Value: "x"}, cookie: cookie})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, call{method: http.MethodPost, path: "/api/browse/hostel/search", body: searchDTO{Term: "ladies"}, cookie: cookie})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "fallback-hostel-2")
	assert.Empty(t, w.Result().Cookies(), "existing session keeps its cookie")

	w = api.do(t, call{method: http.MethodPut, path: "/api/session/location", body: setLocationDTO{Location: "Bangalor"}, cookie: cookie})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"suggestion":"Bengaluru"`)

	w = api.do(t, call{method: http.MethodPut, path: "/api/session/location", body: setLocationDTO{}, cookie: cookie})
	require.Equal(t, http.StatusOK, w.Code)
	require.Eventually(t, func() bool {
		w := api.do(t, call{method: http.MethodGet, path: "/api/browse/hostel", cookie: cookie})
		return bytes.Contains(w.Body.Bytes(), []byte(`"display":"no_location"`))
	}, time.Second, 10*time.Millisecond)
}

func TestStorageUnavailableWithoutMongo(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, call{method: http.MethodGet, path: "/api/storage/avatars/665f1c2e9b1e8a3d4c5b6a79"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestLocations(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, call{method: http.MethodGet, path: "/api/locations"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Rajampeta")

	w = api.do(t, call{method: http.MethodGet, path: "/api/locations?q=tirupathi"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"suggestion":"Tirupati"`)
}
