package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talespin/internal/app"
	"talespin/pkg/auth"
	"talespin/pkg/domain"
	"talespin/pkg/store"
)

type stubText struct{ response string }

func (s *stubText) GenerateText(context.Context, string, string) (string, error) {
	return s.response, nil
}

type stubImage struct{ url string }

func (s *stubImage) GenerateImage(context.Context, string) (string, error) {
	return s.url, nil
}

type stubSpeech struct{}

func (s *stubSpeech) GenerateSpeech(context.Context, string, string) ([]byte, error) {
	return []byte("mp3"), nil
}

type stubObjects struct{}

func (s *stubObjects) Put(_ context.Context, _ string, r io.Reader, _ int64, _ string) error {
	_, err := io.Copy(io.Discard, r)
	return err
}

func (s *stubObjects) URL(key string) string { return "https://cdn.test/" + key }

func (s *stubObjects) Delete(context.Context, string) error { return nil }

func newTestServer(t *testing.T) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	memStore := store.NewMemoryStore()
	imageBackend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "png")
	}))
	t.Cleanup(imageBackend.Close)

	application, err := app.New(app.Config{
		RefreshTTL: 30 * 24 * time.Hour,
		Store:      memStore,
		Tokens:     auth.NewTokenManager("test-secret", 5*time.Minute),
		Text:       &stubText{response: "Title: The Moon Garden\nPlants glowed at night."},
		Image:      &stubImage{url: imageBackend.URL + "/temp.png"},
		Speech:     &stubSpeech{},
		Objects:    &stubObjects{},
	})
	require.NoError(t, err)

	ts := httptest.NewServer(New(Config{App: application}).Router())
	t.Cleanup(ts.Close)
	return ts, memStore
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 && json.Valid(data) {
		_ = json.Unmarshal(data, &decoded)
	}
	return resp, decoded
}

func registerUser(t *testing.T, ts *httptest.Server, email string) (string, domain.TokenPair) {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/auth/register", "", map[string]string{
		"email": email, "password": "password123", "name": "Tester",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	pair := domain.TokenPair{
		AccessToken:  body["accessToken"].(string),
		RefreshToken: body["refreshToken"].(string),
	}
	userID, err := auth.NewTokenManager("test-secret", 5*time.Minute).Verify(pair.AccessToken)
	require.NoError(t, err)
	return userID, pair
}

func TestRegisterEndpoint(t *testing.T) {
	ts, memStore := newTestServer(t)
	userID, pair := registerUser(t, ts, "a@example.com")
	assert.NotEmpty(t, pair.RefreshToken)

	user, ok, err := memStore.GetUserByID(userID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a@example.com", user.Email)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/auth/register", "", map[string]string{
		"email": "a@example.com", "password": "password123", "name": "Tester",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "User already exists.", body["error"])

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/auth/register", "", map[string]string{"email": "x@example.com"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoginEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	registerUser(t, ts, "a@example.com")

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/auth/login", "", map[string]string{
		"email": "a@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["accessToken"])

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/auth/login", "", map[string]string{
		"email": "a@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid login credentials.", body["error"])

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/auth/login", "", map[string]string{
		"email": "missing@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRefreshEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	_, pair := registerUser(t, ts, "a@example.com")

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/auth/refresh-token", "", map[string]string{
		"refreshToken": pair.RefreshToken,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEqual(t, pair.RefreshToken, body["refreshToken"])

	// Single use: replaying the spent token fails.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/auth/refresh-token", "", map[string]string{
		"refreshToken": pair.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRevokeEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	_, pair := registerUser(t, ts, "a@example.com")
	otherID, _ := registerUser(t, ts, "b@example.com")

	// Unauthenticated revoke is rejected.
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/auth/revoke-refresh-tokens", "", map[string]string{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Revoking another user's tokens is forbidden.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/auth/revoke-refresh-tokens", pair.AccessToken, map[string]string{
		"userId": otherID,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/auth/revoke-refresh-tokens", pair.AccessToken, map[string]string{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Refresh tokens revoked.", body["message"])

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/auth/refresh-token", "", map[string]string{
		"refreshToken": pair.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateStoryEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	userID, pair := registerUser(t, ts, "a@example.com")

	payload := map[string]string{
		"title": "The Moon Garden", "content": "Plants glowed.", "ageRange": "4-6", "userId": userID,
	}
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/stories/", "", payload)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/stories/", pair.AccessToken, payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, body["id"])
	user, ok := body["user"].(map[string]any)
	require.True(t, ok, "response must embed the owner")
	assert.Equal(t, "a@example.com", user["email"])

	// Unknown owner is 404 before the ownership check.
	payload["userId"] = "ghost"
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/stories/", pair.AccessToken, payload)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStoryReadEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)
	userID, pair := registerUser(t, ts, "a@example.com")

	resp, created := doJSON(t, http.MethodPost, ts.URL+"/stories/generate-story", pair.AccessToken, map[string]string{
		"ageRange": "4-6",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "The Moon Garden", created["title"])
	storyID := created["id"].(string)

	resp, got := doJSON(t, http.MethodGet, ts.URL+"/stories/"+storyID, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "The Moon Garden", got["title"])

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/stories/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/stories/user/"+userID, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/stories/user/nobody", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "No stories found for this user", body["error"])
}

func TestDeleteStoryEndpoint(t *testing.T) {
	ts, memStore := newTestServer(t)
	_, owner := registerUser(t, ts, "a@example.com")
	_, intruder := registerUser(t, ts, "b@example.com")

	resp, created := doJSON(t, http.MethodPost, ts.URL+"/stories/generate-story", owner.AccessToken, map[string]string{
		"ageRange": "4-6",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	storyID := created["id"].(string)

	resp, ilBody := doJSON(t, http.MethodPost, ts.URL+"/illustrations/generate", owner.AccessToken, map[string]string{
		"storyId": storyID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	ilID := ilBody["id"].(string)

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/stories/"+storyID, intruder.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := doJSON(t, http.MethodDelete, ts.URL+"/stories/"+storyID, owner.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Story deleted successfully", body["message"])

	if _, ok, _ := memStore.GetStory(storyID); ok {
		t.Fatal("story survived delete")
	}
	if _, ok, _ := memStore.GetIllustration(ilID); ok {
		t.Fatal("illustration survived delete")
	}
}

func TestIllustrationEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)
	_, pair := registerUser(t, ts, "a@example.com")

	resp, created := doJSON(t, http.MethodPost, ts.URL+"/stories/generate-story", pair.AccessToken, map[string]string{
		"ageRange": "4-6",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	storyID := created["id"].(string)

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/illustrations/generate", pair.AccessToken, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, il := doJSON(t, http.MethodPost, ts.URL+"/illustrations/generate", pair.AccessToken, map[string]string{
		"storyId": storyID, "prompt": "the garden at night",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "illustration", il["type"])

	resp, cover := doJSON(t, http.MethodPost, ts.URL+"/illustrations/cover/"+storyID, pair.AccessToken, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "cover", cover["type"])

	resp, one := doJSON(t, http.MethodGet, ts.URL+"/illustrations/"+il["id"].(string), "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, il["url"], one["url"])

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/illustrations/story/"+storyID, nil)
	require.NoError(t, err)
	listResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer listResp.Body.Close()
	assert.Equal(t, http.StatusOK, listResp.StatusCode)
	var list []map[string]any
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&list))
	assert.Len(t, list, 2)
}

func TestAudioEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	_, pair := registerUser(t, ts, "a@example.com")
	resp, created := doJSON(t, http.MethodPost, ts.URL+"/stories/generate-story", pair.AccessToken, map[string]string{
		"ageRange": "4-6",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	storyID := created["id"].(string)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/stories/generate-audio/"+storyID, pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Audio generated successfully", body["message"])
	audio, ok := body["audio"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, audio["url"])
	assert.NotEmpty(t, audio["s3Key"])
}

func TestAuthRejections(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/stories/generate-story", "", map[string]string{"ageRange": "4-6"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Unauthorized", body["error"])

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/stories/generate-story", "garbage-token", map[string]string{"ageRange": "4-6"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Expired tokens are rejected too.
	expired := auth.NewTokenManager("test-secret", time.Nanosecond)
	token, err := expired.Access("user-1")
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/stories/generate-story", token, map[string]string{"ageRange": "4-6"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}
