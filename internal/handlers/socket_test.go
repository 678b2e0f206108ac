package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/nrednav/cuid2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"uk.co.dudmesh.liveusers/internal/broadcast"
	"uk.co.dudmesh.liveusers/internal/model"
	"uk.co.dudmesh.liveusers/internal/presence"
	presencerouter "uk.co.dudmesh.liveusers/internal/service/presence"
	"uk.co.dudmesh.liveusers/internal/service/reconcile"
	"uk.co.dudmesh.liveusers/internal/service/user"
	"uk.co.dudmesh.liveusers/internal/session"
	"uk.co.dudmesh.liveusers/internal/userstore"
)

type testServer struct {
	*httptest.Server
	cache *presence.Cache
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := userstore.NewSQLite("file:" + cuid2.Generate() + "?mode=memory&cache=shared")
	require.NoError(t, err)

	hub := broadcast.NewHub(testLogger)
	cache, err := presence.New(hub)
	require.NoError(t, err)

	issuer := session.NewIssuer("s3cret", time.Hour)
	engine := reconcile.New(store, cache, time.Hour, nil, testLogger)
	router := presencerouter.New(cache, engine, hub, issuer, testLogger)
	users := user.New(store, cache, issuer, bcrypt.MinCost, testLogger)

	e := echo.New()
	e.GET("/", Liveness())
	e.POST("/users", CreateUser(users))
	e.GET("/users", ListUsers(users))
	e.GET("/users/:id", GetUser(users))
	e.GET("/sync-users", SyncUsers(engine, cache))
	e.POST("/auth/login", Login(users))
	e.POST("/auth/logout", Logout(router))
	e.GET("/ws", Socket(hub, router, testLogger))

	srv := httptest.NewServer(e)
	t.Cleanup(func() {
		srv.Close()
		hub.Close()
		cache.Close()
		store.Close()
	})
	return &testServer{Server: srv, cache: cache}
}

func (s *testServer) post(t *testing.T, path string, body string) (int, map[string]interface{}) {
	t.Helper()
	res, err := http.Post(s.URL+path, echo.MIMEApplicationJSON, strings.NewReader(body))
	require.NoError(t, err)
	defer res.Body.Close()
	out := map[string]interface{}{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return res.StatusCode, out
}

func (s *testServer) get(t *testing.T, path string, out interface{}) int {
	t.Helper()
	res, err := http.Get(s.URL + path)
	require.NoError(t, err)
	defer res.Body.Close()
	require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	return res.StatusCode
}

func (s *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(s.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil discards frames until one named event arrives.
func readUntil(t *testing.T, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		frame, err := broadcast.Decode(raw)
		require.NoError(t, err)
		if frame.Name == event {
			return frame.Data
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, event string, data interface{}) {
	t.Helper()
	payload, err := broadcast.Encode(event, data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))
}

func TestLivePresence(t *testing.T) {
	assert := assert.New(t)
	srv := newTestServer(t)

	status, body := srv.post(t, "/users", `{
		"firstName": "Ann", "lastName": "Lee", "mobile": "5551234567",
		"email": "ann@x.com", "loginId": "annlee2024", "password": "Abc123!@",
		"address": {"street": "1 High St", "city": "Leeds", "state": "West Yorkshire", "country": "UK"}
	}`)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal("user created", body["message"])
	assert.Equal(1, srv.cache.Len())

	var listed []model.User
	require.Equal(t, http.StatusOK, srv.get(t, "/users", &listed))
	require.Len(t, listed, 1)

	var fetched model.User
	require.Equal(t, http.StatusOK, srv.get(t, "/users/"+string(listed[0].ID), &fetched))
	assert.Equal(listed[0].ID, fetched.ID)
	assert.Equal("Ann", fetched.FirstName)
	assert.Equal("Lee", fetched.LastName)
	assert.Equal("5551234567", fetched.Mobile)
	assert.Equal("ann@x.com", fetched.Email)
	assert.Equal("annlee2024", fetched.LoginID)
	assert.Equal(model.Address{Street: "1 High St", City: "Leeds", State: "West Yorkshire", Country: "UK"}, fetched.Address)
	assert.Empty(fetched.Password)

	var missing map[string]interface{}
	assert.Equal(http.StatusNotFound, srv.get(t, "/users/nobody", &missing))

	status, body = srv.post(t, "/auth/login", `{"loginId":"annlee2024","password":"Abc123!@"}`)
	require.Equal(t, http.StatusOK, status)
	token, _ := body["token"].(string)
	assert.NotEmpty(token)
	loggedIn, _ := body["user"].(map[string]interface{})
	userID, _ := loggedIn["_id"].(string)
	require.NotEmpty(t, userID)
	assert.NotContains(loggedIn, "password")

	a := srv.dial(t)
	b := srv.dial(t)

	var snapshot []model.PresenceEntry
	require.NoError(t, json.Unmarshal(readUntil(t, a, model.EventInitialUsers), &snapshot))
	require.Len(t, snapshot, 1)
	assert.Equal("Ann Lee", snapshot[0].Name)
	readUntil(t, b, model.EventInitialUsers)

	t.Run("Announce", func(t *testing.T) {
		send(t, a, model.EventAnnounceLogin, model.AnnounceLoginParams{UserID: model.UserID(userID), Token: token})

		var entry model.PresenceEntry
		require.NoError(t, json.Unmarshal(readUntil(t, b, model.EventPresenceUpdated), &entry))
		assert.Equal(model.UserID(userID), entry.ID)
		assert.True(entry.IsOnline())
	})

	t.Run("Disconnect", func(t *testing.T) {
		a.Close()

		var entry model.PresenceEntry
		require.NoError(t, json.Unmarshal(readUntil(t, b, model.EventPresenceUpdated), &entry))
		assert.Equal(model.UserID(userID), entry.ID)
		assert.False(entry.IsOnline())
	})

	t.Run("Refresh", func(t *testing.T) {
		send(t, b, model.EventRefreshUsers, nil)

		var entries []model.PresenceEntry
		require.NoError(t, json.Unmarshal(readUntil(t, b, model.EventInitialUsers), &entries))
		assert.Len(entries, 1)
	})

	t.Run("Logout", func(t *testing.T) {
		status, body := srv.post(t, "/auth/logout", `{"userId":"nobody"}`)
		assert.Equal(http.StatusBadRequest, status)
		assert.Equal("User not found", body["message"])

		status, _ = srv.post(t, "/auth/logout", `{"userId":"`+userID+`"}`)
		assert.Equal(http.StatusOK, status)

		var entry model.PresenceEntry
		require.NoError(t, json.Unmarshal(readUntil(t, b, model.EventPresenceUpdated), &entry))
		assert.False(entry.IsOnline())
	})

	t.Run("Sync", func(t *testing.T) {
		out := syncResponse{}
		assert.Equal(http.StatusOK, srv.get(t, "/sync-users", &out))
		assert.Equal(1, out.TotalUsers)
	})
}

func TestAnnounceParams(t *testing.T) {
	assert := assert.New(t)

	params, err := announceParams(json.RawMessage(`"u1"`))
	assert.NoError(err)
	assert.Equal(model.UserID("u1"), params.UserID)

	params, err = announceParams(json.RawMessage(`{"userId":"u2","token":"t"}`))
	assert.NoError(err)
	assert.Equal(model.UserID("u2"), params.UserID)
	assert.Equal("t", params.Token)

	_, err = announceParams(json.RawMessage(`[1]`))
	assert.Error(err)
}

