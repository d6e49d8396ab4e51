package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Baaaki/chapterhub/internal/config"
	"github.com/Baaaki/chapterhub/internal/models"
	"github.com/Baaaki/chapterhub/internal/server"
	"github.com/Baaaki/chapterhub/internal/testutil"
	"github.com/Baaaki/chapterhub/internal/utils"
	"github.com/Baaaki/chapterhub/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

const testJWTSecret = "test-secret-key"

// HandlerIntegrationTestSuite drives the complete router against SQLite and
// miniredis.
type HandlerIntegrationTestSuite struct {
	suite.Suite
	testDB    *testutil.TestDatabase
	testRedis *testutil.TestRedis
	router    *gin.Engine
}

type pageResponse struct {
	Messages   []models.Message `json:"messages"`
	NextCursor *string          `json:"next_cursor"`
	HasMore    bool             `json:"has_more"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *HandlerIntegrationTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	logger.Init(false)

	s.testDB = testutil.SetupTestDatabase(s.T())
	s.testRedis = testutil.SetupTestRedis(s.T())

	cfg := &config.Config{
		JWTSecret:            testJWTSecret,
		JWTExpiry:            time.Hour,
		Environment:          "development",
		RequestTimeout:       5 * time.Second,
		DefaultPageSize:      50,
		CORSAllowedOrigins:   []string{"http://localhost:5173"},
		RateLimitMaxRequests: 10000,
		RateLimitWindow:      time.Minute,
		RateLimitBlockTime:   time.Minute,
	}
	s.router = server.NewRouter(cfg, s.testDB.DB, s.testRedis.Client)
}

func (s *HandlerIntegrationTestSuite) TearDownSuite() {
	s.testRedis.Teardown(s.T())
	s.testDB.Teardown(s.T())
}

func (s *HandlerIntegrationTestSuite) SetupTest() {
	testutil.CleanDatabase(s.T(), s.testDB.DB)
	s.testRedis.Server.FlushAll()
}

func (s *HandlerIntegrationTestSuite) tokenFor(user *models.User) string {
	token, err := utils.GenerateToken(user, testJWTSecret, time.Hour)
	s.Require().NoError(err)
	return token
}

// do sends body as JSON (when non-nil) with token as bearer (when non-empty).
func (s *HandlerIntegrationTestSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerIntegrationTestSuite) decode(w *httptest.ResponseRecorder, out any) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

// chapterWithMembers creates a chapter joined by the given users.
func (s *HandlerIntegrationTestSuite) chapterWithMembers(members ...*models.User) *models.Chapter {
	owner := testutil.CreateUser(s.T(), s.testDB.DB, "owner_"+uuid.NewString()[:8], models.RoleUser)
	chapter := testutil.CreateChapter(s.T(), s.testDB.DB, "Chapter "+owner.Username, owner.ID)
	for _, m := range members {
		testutil.AddChapterMember(s.T(), s.testDB.DB, chapter.ID, m.ID)
	}
	return chapter
}

func messagesPath(kind string, roomID fmt.Stringer) string {
	return fmt.Sprintf("/api/%s/%s/messages", kind, roomID)
}

func (s *HandlerIntegrationTestSuite) TestRegisterAndLogin() {
	w := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "newuser",
		"email":    "newuser@example.com",
		"password": "SecurePass123",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.Contains(w.Header().Get("Set-Cookie"), "token=")
	s.Contains(w.Header().Get("Set-Cookie"), "HttpOnly")

	var registered struct {
		Token string `json:"token"`
		User  struct {
			ID          string `json:"id"`
			DisplayName string `json:"display_name"`
			Role        string `json:"role"`
		} `json:"user"`
	}
	s.decode(w, &registered)
	s.NotEmpty(registered.Token)
	s.Equal("newuser", registered.User.DisplayName)
	s.Equal("user", registered.User.Role)
	testutil.ParseUUID(s.T(), registered.User.ID)

	w = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "newuser@example.com",
		"password": "SecurePass123",
	})
	s.Equal(http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "newuser@example.com",
		"password": "WrongPassword1",
	})
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "nobody@example.com",
		"password": "SecurePass123",
	})
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *HandlerIntegrationTestSuite) TestRegisterRejectsBadInput() {
	testutil.CreateUser(s.T(), s.testDB.DB, "taken", models.RoleUser)

	cases := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{"missing password", map[string]string{"username": "u1", "email": "u1@example.com"}, http.StatusBadRequest},
		{"bad email", map[string]string{"username": "user1", "email": "nope", "password": "SecurePass123"}, http.StatusBadRequest},
		{"short password", map[string]string{"username": "user1", "email": "u1@example.com", "password": "short"}, http.StatusBadRequest},
		{"duplicate email", map[string]string{"username": "other", "email": "taken@example.com", "password": "SecurePass123"}, http.StatusConflict},
		{"duplicate username", map[string]string{"username": "taken", "email": "new@example.com", "password": "SecurePass123"}, http.StatusConflict},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			w := s.do(http.MethodPost, "/api/auth/register", "", tc.body)
			s.Equal(tc.status, w.Code, w.Body.String())
		})
	}
}

func (s *HandlerIntegrationTestSuite) TestMessagesRequireAuthentication() {
	chapter := s.chapterWithMembers()
	w := s.do(http.MethodGet, messagesPath("chapters", chapter.ID), "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *HandlerIntegrationTestSuite) TestPostAndListMessages() {
	alice := testutil.CreateUser(s.T(), s.testDB.DB, "alice", models.RoleUser)
	chapter := s.chapterWithMembers(alice)
	token := s.tokenFor(alice)

	w := s.do(http.MethodPost, messagesPath("chapters", chapter.ID), token, map[string]string{"content": "Merhaba!"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var posted models.Message
	s.decode(w, &posted)
	s.NotZero(posted.ID)
	s.Equal("Merhaba!", posted.Content)
	s.Equal("alice", posted.SenderName)

	w = s.do(http.MethodGet, messagesPath("chapters", chapter.ID), token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("no-store", w.Header().Get("Cache-Control"))

	var page pageResponse
	s.decode(w, &page)
	s.Require().Len(page.Messages, 1)
	s.Equal(posted.ID, page.Messages[0].ID)
	s.False(page.HasMore)
	s.Nil(page.NextCursor)
	s.Contains(w.Body.String(), `"next_cursor":null`)
}

func (s *HandlerIntegrationTestSuite) TestPaginationOverHTTP() {
	alice := testutil.CreateUser(s.T(), s.testDB.DB, "alice", models.RoleUser)
	chapter := s.chapterWithMembers(alice)
	token := s.tokenFor(alice)

	for i := 1; i <= 5; i++ {
		w := s.do(http.MethodPost, messagesPath("chapters", chapter.ID), token, map[string]string{"content": fmt.Sprintf("m%d", i)})
		s.Require().Equal(http.StatusCreated, w.Code)
	}

	var contents []string
	path := messagesPath("chapters", chapter.ID) + "?limit=2"
	for pages := 0; ; pages++ {
		s.Require().Less(pages, 10)
		w := s.do(http.MethodGet, path, token, nil)
		s.Require().Equal(http.StatusOK, w.Code)

		var page pageResponse
		s.decode(w, &page)
		batch := make([]string, 0, len(page.Messages))
		for _, m := range page.Messages {
			batch = append(batch, m.Content)
		}
		contents = append(batch, contents...)

		if !page.HasMore {
			break
		}
		path = messagesPath("chapters", chapter.ID) + "?limit=2&cursor=" + *page.NextCursor
	}

	s.Equal([]string{"m1", "m2", "m3", "m4", "m5"}, contents)
}

func (s *HandlerIntegrationTestSuite) TestNonMemberGetsForbidden() {
	alice := testutil.CreateUser(s.T(), s.testDB.DB, "alice", models.RoleUser)
	mallory := testutil.CreateUser(s.T(), s.testDB.DB, "mallory", models.RoleUser)
	chapter := s.chapterWithMembers(alice)
	token := s.tokenFor(mallory)

	for _, w := range []*httptest.ResponseRecorder{
		s.do(http.MethodGet, messagesPath("chapters", chapter.ID), token, nil),
		s.do(http.MethodPost, messagesPath("chapters", chapter.ID), token, map[string]string{"content": "hi"}),
	} {
		s.Equal(http.StatusForbidden, w.Code)
		var body errorResponse
		s.decode(w, &body)
		s.Equal("forbidden", body.Code)
	}
}

func (s *HandlerIntegrationTestSuite) TestContentValidation() {
	alice := testutil.CreateUser(s.T(), s.testDB.DB, "alice", models.RoleUser)
	chapter := s.chapterWithMembers(alice)
	token := s.tokenFor(alice)
	path := messagesPath("chapters", chapter.ID)

	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, path, token, map[string]string{"content": ""}).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, path, token, map[string]string{"content": strings.Repeat("x", 4001)}).Code)
	s.Equal(http.StatusCreated, s.do(http.MethodPost, path, token, map[string]string{"content": strings.Repeat("x", 4000)}).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/api/chapters/not-a-uuid/messages", token, map[string]string{"content": "x"}).Code)
}

func (s *HandlerIntegrationTestSuite) TestDeleteMessage() {
	alice := testutil.CreateUser(s.T(), s.testDB.DB, "alice", models.RoleUser)
	bob := testutil.CreateUser(s.T(), s.testDB.DB, "bob", models.RoleUser)
	admin := testutil.DefaultAdminUser(s.T(), s.testDB.DB)
	chapter := s.chapterWithMembers(alice, bob)

	post := func() int64 {
		w := s.do(http.MethodPost, messagesPath("chapters", chapter.ID), s.tokenFor(alice), map[string]string{"content": "delete me"})
		s.Require().Equal(http.StatusCreated, w.Code)
		var msg models.Message
		s.decode(w, &msg)
		return msg.ID
	}
	deletePath := func(id int64) string {
		return fmt.Sprintf("%s/%d", messagesPath("chapters", chapter.ID), id)
	}

	id := post()
	s.Equal(http.StatusForbidden, s.do(http.MethodDelete, deletePath(id), s.tokenFor(bob), nil).Code)
	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, deletePath(id), s.tokenFor(alice), nil).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, deletePath(id), s.tokenFor(alice), nil).Code)

	id = post()
	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, deletePath(id), s.tokenFor(admin), nil).Code)

	s.Equal(http.StatusBadRequest, s.do(http.MethodDelete, messagesPath("chapters", chapter.ID)+"/abc", s.tokenFor(alice), nil).Code)
}

func (s *HandlerIntegrationTestSuite) TestProfileUpdateIsRetroactive() {
	alice := testutil.CreateUser(s.T(), s.testDB.DB, "alice", models.RoleUser)
	chapter := s.chapterWithMembers(alice)
	token := s.tokenFor(alice)

	s.Require().Equal(http.StatusCreated, s.do(http.MethodPost, messagesPath("chapters", chapter.ID), token, map[string]string{"content": "before rename"}).Code)

	w := s.do(http.MethodPatch, "/api/me", token, map[string]string{
		"display_name": "Alice Yılmaz",
		"avatar_url":   "https://cdn.example.com/a.png",
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, messagesPath("chapters", chapter.ID), token, nil)
	var page pageResponse
	s.decode(w, &page)
	s.Require().Len(page.Messages, 1)
	s.Equal("Alice Yılmaz", page.Messages[0].SenderName)
	s.Equal("https://cdn.example.com/a.png", page.Messages[0].SenderAvatarURL)

	s.Equal(http.StatusBadRequest, s.do(http.MethodPatch, "/api/me", token, map[string]string{"display_name": "   "}).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPatch, "/api/me", token, map[string]string{"display_name": "A", "avatar_url": "javascript:alert(1)"}).Code)
}

func (s *HandlerIntegrationTestSuite) TestAdminRoutesRequireAdmin() {
	user := testutil.DefaultTestUser(s.T(), s.testDB.DB)
	s.Equal(http.StatusForbidden, s.do(http.MethodGet, "/api/admin/users", s.tokenFor(user), nil).Code)

	admin := testutil.DefaultAdminUser(s.T(), s.testDB.DB)
	w := s.do(http.MethodGet, "/api/admin/users", s.tokenFor(admin), nil)
	s.Equal(http.StatusOK, w.Code)
	s.NotContains(w.Body.String(), "password")
}

func (s *HandlerIntegrationTestSuite) TestGroupLifecycle() {
	admin := testutil.DefaultAdminUser(s.T(), s.testDB.DB)
	user := testutil.DefaultTestUser(s.T(), s.testDB.DB)
	adminToken, userToken := s.tokenFor(admin), s.tokenFor(user)

	w := s.do(http.MethodPost, "/api/admin/groups", adminToken, map[string]string{"name": "Book Club"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Group      models.SecretGroup `json:"group"`
		InviteCode string             `json:"invite_code"`
	}
	s.decode(w, &created)
	s.Require().NotEmpty(created.InviteCode)
	groupPath := messagesPath("groups", created.Group.ID)

	s.Equal(http.StatusForbidden, s.do(http.MethodGet, groupPath, userToken, nil).Code)

	w = s.do(http.MethodPost, "/api/groups/join", userToken, map[string]string{"invite_code": created.InviteCode})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.NotContains(w.Body.String(), created.InviteCode)

	s.Equal(http.StatusCreated, s.do(http.MethodPost, groupPath, userToken, map[string]string{"content": "secret"}).Code)

	w = s.do(http.MethodGet, fmt.Sprintf("/api/admin/users/%s/activity", user.ID), adminToken, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var activity struct {
		GroupMessages int64 `json:"group_messages"`
	}
	s.decode(w, &activity)
	s.Equal(int64(1), activity.GroupMessages)

	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, "/api/admin/groups/"+created.Group.ID.String(), adminToken, nil).Code)
	s.Equal(http.StatusForbidden, s.do(http.MethodGet, groupPath, userToken, nil).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, "/api/admin/groups/"+created.Group.ID.String(), adminToken, nil).Code)
}

func (s *HandlerIntegrationTestSuite) TestAdminMembershipAndChapterJoin() {
	admin := testutil.DefaultAdminUser(s.T(), s.testDB.DB)
	user := testutil.DefaultTestUser(s.T(), s.testDB.DB)
	adminToken, userToken := s.tokenFor(admin), s.tokenFor(user)

	w := s.do(http.MethodPost, "/api/admin/chapters", adminToken, map[string]string{"name": "Trabzon", "city": "Trabzon"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var chapter models.Chapter
	s.decode(w, &chapter)

	membersPath := fmt.Sprintf("/api/admin/chapters/%s/members", chapter.ID)
	s.Equal(http.StatusNoContent, s.do(http.MethodPost, membersPath, adminToken, map[string]string{"user_id": user.ID.String()}).Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, messagesPath("chapters", chapter.ID), userToken, nil).Code)

	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, membersPath+"/"+user.ID.String(), adminToken, nil).Code)
	s.Equal(http.StatusForbidden, s.do(http.MethodGet, messagesPath("chapters", chapter.ID), userToken, nil).Code)

	s.Equal(http.StatusNoContent, s.do(http.MethodPost, fmt.Sprintf("/api/chapters/%s/join", chapter.ID), userToken, nil).Code)
	w = s.do(http.MethodGet, "/api/me/rooms", userToken, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), chapter.ID.String())

	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, membersPath, adminToken, map[string]string{"user_id": "nope"}).Code)
}

func (s *HandlerIntegrationTestSuite) TestCreateScheduledEvent() {
	admin := testutil.DefaultAdminUser(s.T(), s.testDB.DB)
	chapter := s.chapterWithMembers()
	publishAt := time.Now().Add(time.Hour).UTC()

	w := s.do(http.MethodPost, fmt.Sprintf("/api/admin/chapters/%s/events", chapter.ID), s.tokenFor(admin), map[string]any{
		"title":      "Autumn reading night",
		"starts_at":  time.Now().Add(48 * time.Hour).UTC(),
		"publish_at": publishAt,
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var event models.Event
	s.decode(w, &event)
	s.Equal(models.StatusScheduled, event.Status)
	s.Nil(event.PublishedAt)
}

func (s *HandlerIntegrationTestSuite) TestBanIP() {
	admin := testutil.DefaultAdminUser(s.T(), s.testDB.DB)
	token := s.tokenFor(admin)

	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/api/admin/bans", token, map[string]string{"ip": "not-an-ip"}).Code)
	s.Equal(http.StatusNoContent, s.do(http.MethodPost, "/api/admin/bans", token, map[string]string{"ip": "198.51.100.9"}).Code)
	s.True(s.testRedis.Server.Exists("banned_ips"))
	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, "/api/admin/bans/198.51.100.9", token, nil).Code)
}

func (s *HandlerIntegrationTestSuite) TestHealthz() {
	w := s.do(http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusOK, w.Code)
}

func TestHandlerIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerIntegrationTestSuite))
}
