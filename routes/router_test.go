package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/lireddit/config"
	"github.com/cppla/lireddit/models"
	"github.com/cppla/lireddit/services"
	"github.com/cppla/lireddit/utils"
)

type envelope struct {
	Code    int                `json:"code"`
	Message string             `json:"message"`
	Data    json.RawMessage    `json:"data"`
	Errors  []utils.FieldError `json:"errors"`
}

type apiClient struct {
	t      *testing.T
	router *gin.Engine
}

func newTestRouter(t *testing.T) *apiClient {
	t.Helper()
	config.Set(config.AppConfig{JWTSecret: "router-test", GinMode: "test", RateLimitPerMinute: 10000})

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(
		sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)),
		config.GormConfig(logger.Default.LogMode(logger.Silent)),
	)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	r := NewRouter(db, utils.NewLRUCache(100), utils.NewTokenBlacklistWith(utils.NewLRUCache(100)))
	return &apiClient{t: t, router: r}
}

func (c *apiClient) do(method, path, token string, body interface{}) (int, envelope) {
	c.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (c *apiClient) register(username string) string {
	c.t.Helper()
	status, env := c.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": username,
		"password": "longenough",
	})
	require.Equal(c.t, http.StatusOK, status, env.Message)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(c.t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(c.t, data.Token)
	return data.Token
}

func (c *apiClient) createPost(token, title string) uint {
	c.t.Helper()
	status, env := c.do(http.MethodPost, "/api/v1/posts", token, gin.H{"title": title, "text": "body"})
	require.Equal(c.t, http.StatusOK, status, env.Message)
	var data struct {
		Post services.FeedItem `json:"post"`
	}
	require.NoError(c.t, json.Unmarshal(env.Data, &data))
	return data.Post.ID
}

func voteResult(t *testing.T, env envelope) services.VoteResult {
	t.Helper()
	var res services.VoteResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	return res
}

func TestVoteFlowOverHTTP(t *testing.T) {
	api := newTestRouter(t)
	alice := api.register("alicia")
	bob := api.register("robert")
	postID := api.createPost(alice, "first")
	votePath := fmt.Sprintf("/api/v1/posts/%d/vote", postID)

	status, env := api.do(http.MethodPost, votePath, bob, gin.H{"is_positive": true})
	require.Equal(t, http.StatusOK, status)
	res := voteResult(t, env)
	assert.Equal(t, services.OutcomeCreated, res.Outcome)
	assert.Equal(t, 1, res.Points)
	assert.Equal(t, models.VoteUp, res.VoteState)

	_, env = api.do(http.MethodPost, votePath, bob, gin.H{"is_positive": true})
	assert.Equal(t, services.OutcomeUnchanged, voteResult(t, env).Outcome)

	_, env = api.do(http.MethodPost, votePath, bob, gin.H{"is_positive": false})
	res = voteResult(t, env)
	assert.Equal(t, services.OutcomeFlipped, res.Outcome)
	assert.Equal(t, -2, res.Delta)
	assert.Equal(t, -1, res.Points)

	status, env = api.do(http.MethodDelete, votePath, bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, services.OutcomeRetracted, voteResult(t, env).Outcome)

	status, env = api.do(http.MethodDelete, votePath, bob, nil)
	require.Equal(t, http.StatusOK, status, "retracting nothing is a success")
	assert.Equal(t, services.OutcomeNone, voteResult(t, env).Outcome)

	status, env = api.do(http.MethodPost, votePath, bob, gin.H{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 40030, env.Code)

	status, _ = api.do(http.MethodPost, "/api/v1/posts/9999/vote", bob, gin.H{"is_positive": true})
	assert.Equal(t, http.StatusNotFound, status)

	status, env = api.do(http.MethodPost, votePath, "", gin.H{"is_positive": true})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 40101, env.Code)
}

func TestFeedOverHTTP(t *testing.T) {
	api := newTestRouter(t)
	alice := api.register("alicia")
	var ids []uint
	for i := 0; i < 3; i++ {
		ids = append(ids, api.createPost(alice, fmt.Sprintf("post %d", i)))
	}
	_, _ = api.do(http.MethodPost, fmt.Sprintf("/api/v1/posts/%d/vote", ids[0]), alice, gin.H{"is_positive": true})

	status, env := api.do(http.MethodGet, "/api/v1/posts?limit=2", alice, nil)
	require.Equal(t, http.StatusOK, status)
	var page services.Page
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, "alicia", page.Items[0].Author.Username)

	status, env = api.do(http.MethodGet, "/api/v1/posts?limit=2&cursor="+page.NextCursor, alice, nil)
	require.Equal(t, http.StatusOK, status)
	var rest services.Page
	require.NoError(t, json.Unmarshal(env.Data, &rest))
	require.Len(t, rest.Items, 1)
	assert.False(t, rest.HasMore)
	assert.Equal(t, ids[0], rest.Items[0].ID)
	assert.Equal(t, models.VoteUp, rest.Items[0].VoteState)
	assert.Equal(t, 1, rest.Items[0].Points)

	status, env = api.do(http.MethodGet, "/api/v1/posts?limit=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "limit", env.Errors[0].Field)

	status, _ = api.do(http.MethodGet, "/api/v1/posts?cursor=garbage", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = api.do(http.MethodGet, "/api/v1/posts", "", nil)
	require.Equal(t, http.StatusOK, status)
	var anon services.Page
	require.NoError(t, json.Unmarshal(env.Data, &anon))
	assert.Len(t, anon.Items, 3)
	for _, item := range anon.Items {
		assert.Equal(t, models.VoteNone, item.VoteState)
	}
}

func TestAuthOverHTTP(t *testing.T) {
	api := newTestRouter(t)

	status, env := api.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": "ab", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, status)
	require.Len(t, env.Errors, 2)
	assert.Equal(t, "username", env.Errors[0].Field)
	assert.Equal(t, "password", env.Errors[1].Field)

	token := api.register("caroline")
	status, _ = api.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "caroline", "password": "longenough"})
	assert.Equal(t, http.StatusOK, status)
	status, env = api.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "caroline", "password": "wrongpass"})
	assert.Equal(t, http.StatusBadRequest, status)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "password", env.Errors[0].Field)

	status, _ = api.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = api.do(http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, env = api.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 40104, env.Code)
}

func TestPostOwnershipOverHTTP(t *testing.T) {
	api := newTestRouter(t)
	owner := api.register("poster")
	other := api.register("others")
	postID := api.createPost(owner, "mine")
	path := fmt.Sprintf("/api/v1/posts/%d", postID)

	status, _ := api.do(http.MethodPut, path, other, gin.H{"title": "stolen", "text": "x"})
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = api.do(http.MethodDelete, path, other, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env := api.do(http.MethodPut, path, owner, gin.H{"title": "edited", "text": "**new**"})
	require.Equal(t, http.StatusOK, status)
	var data struct {
		Post services.FeedItem `json:"post"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "edited", data.Post.Title)
	assert.Contains(t, data.Post.TextHTML, "<strong>new</strong>")

	status, _ = api.do(http.MethodDelete, path, owner, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = api.do(http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = api.do(http.MethodGet, "/api/v1/posts/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestUsersOverHTTP(t *testing.T) {
	api := newTestRouter(t)
	dave := api.register("davide")
	eve := api.register("evelyn")

	status, env := api.do(http.MethodGet, "/api/v1/users/davide", "", nil)
	require.Equal(t, http.StatusOK, status)
	var data struct {
		User models.PublicUser `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "davide", data.User.Username)

	path := fmt.Sprintf("/api/v1/users/%d", data.User.ID)
	status, _ = api.do(http.MethodDelete, path, eve, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = api.do(http.MethodDelete, path, dave, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = api.do(http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, env = api.do(http.MethodGet, "/api/v1/users", "", nil)
	require.Equal(t, http.StatusOK, status)
	var list struct {
		Items []models.PublicUser `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Items, 1)
}
