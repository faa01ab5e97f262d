package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"cognis/internal/app"
	"cognis/internal/config"
	"cognis/internal/database"
	"cognis/internal/domain"
)

type TestResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorDetail    `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type e2eSuite struct {
	t          *testing.T
	app        *app.App
	db         *gorm.DB
	storageDir string
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		AppEnv:          "test",
		StoragePath:     t.TempDir(),
		JWTSecret:       "e2e-secret-e2e-secret-e2e-secret",
		JWTAlgorithm:    "HS256",
		JWTAccessTTL:    time.Hour,
		MaxUploadSize:   1 << 20,
		AuditQueueSize:  64,
		LoginRateLimit:  100,
		LoginRateWindow: time.Minute,
	}
}

func newSuite(t *testing.T, mutate func(*config.Config)) *e2eSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig(t)
	if mutate != nil {
		mutate(cfg)
	}
	db := database.OpenTest(t)

	a, err := app.New(cfg, db, nil)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	return &e2eSuite{t: t, app: a, db: db, storageDir: cfg.StoragePath}
}

func (s *e2eSuite) makeRequest(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", "cognis-e2e")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)
	return w
}

func (s *e2eSuite) upload(token, filename string, content []byte, caseID string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(s.t, err)
	_, err = part.Write(content)
	require.NoError(s.t, err)
	if caseID != "" {
		require.NoError(s.t, mw.WriteField("case_id", caseID))
	}
	require.NoError(s.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/ufdr/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) TestResponse {
	t.Helper()
	var resp TestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	resp := parseResponse(t, w)
	require.True(t, resp.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(resp.Data, out))
}

func (s *e2eSuite) signup(username, password string) {
	w := s.makeRequest(http.MethodPost, "/auth/signup", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": password,
	}, "")
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
}

func (s *e2eSuite) login(username, password string) string {
	w := s.makeRequest(http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, "")
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())

	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	decodeData(s.t, w, &tok)
	require.NotEmpty(s.t, tok.AccessToken)
	return tok.AccessToken
}

func (s *e2eSuite) adminToken() string {
	_, err := s.app.Auth.CreateUser(context.Background(), "chief", "chief@example.com", "adminpass", domain.RoleAdmin)
	require.NoError(s.t, err)
	return s.login("chief", "adminpass")
}

func TestE2E_AuthFlow(t *testing.T) {
	s := newSuite(t, nil)

	t.Run("Signup", func(t *testing.T) {
		w := s.makeRequest(http.MethodPost, "/auth/signup", map[string]string{
			"username": "alice",
			"email":    "Alice@Example.com",
			"password": "secret123",
		}, "")
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var user map[string]interface{}
		decodeData(t, w, &user)
		assert.Equal(t, "alice", user["username"])
		assert.Equal(t, "alice@example.com", user["email"])
		assert.Equal(t, "investigator", user["role"])
		assert.NotContains(t, w.Body.String(), "password")
	})

	t.Run("DuplicateSignup", func(t *testing.T) {
		w := s.makeRequest(http.MethodPost, "/auth/signup", map[string]string{
			"username": "alice",
			"email":    "other@example.com",
			"password": "secret123",
		}, "")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "USER_EXISTS", parseResponse(t, w).Error.Code)
	})

	t.Run("AdminSignupForbidden", func(t *testing.T) {
		w := s.makeRequest(http.MethodPost, "/auth/signup", map[string]string{
			"username": "mallory",
			"email":    "mallory@example.com",
			"password": "secret123",
			"role":     "admin",
		}, "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("InvalidBody", func(t *testing.T) {
		w := s.makeRequest(http.MethodPost, "/auth/signup", map[string]string{"username": "x"}, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := parseResponse(t, w)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
		assert.NotEmpty(t, resp.Error.Details)
	})

	t.Run("LoginAndMe", func(t *testing.T) {
		token := s.login("alice", "secret123")

		w := s.makeRequest(http.MethodGet, "/users/me", nil, token)
		require.Equal(t, http.StatusOK, w.Code)
		var me map[string]interface{}
		decodeData(t, w, &me)
		assert.Equal(t, "alice", me["username"])
	})

	t.Run("LoginWithForm", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("username=alice&password=secret123"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		s.app.Router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("WrongPassword", func(t *testing.T) {
		w := s.makeRequest(http.MethodPost, "/auth/login", map[string]string{
			"username": "alice",
			"password": "nope-nope",
		}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	})

	t.Run("MissingToken", func(t *testing.T) {
		w := s.makeRequest(http.MethodGet, "/users/me", nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "UNAUTHENTICATED", parseResponse(t, w).Error.Code)
	})

	t.Run("GarbageToken", func(t *testing.T) {
		w := s.makeRequest(http.MethodGet, "/users/me", nil, "not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestE2E_CasesAndRoles(t *testing.T) {
	s := newSuite(t, nil)
	adminToken := s.adminToken()
	s.signup("bob", "secret123")
	investigatorToken := s.login("bob", "secret123")

	t.Run("InvestigatorCannotCreate", func(t *testing.T) {
		w := s.makeRequest(http.MethodPost, "/cases/create", map[string]string{"title": "X"}, investigatorToken)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "FORBIDDEN", parseResponse(t, w).Error.Code)
	})

	t.Run("UnauthenticatedBeforeRole", func(t *testing.T) {
		w := s.makeRequest(http.MethodPost, "/cases/create", map[string]string{"title": "X"}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("AdminCreatesNewestFirst", func(t *testing.T) {
		for _, title := range []string{"A", "B", "C"} {
			w := s.makeRequest(http.MethodPost, "/cases/create", map[string]string{"title": title}, adminToken)
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
			time.Sleep(5 * time.Millisecond)
		}

		w := s.makeRequest(http.MethodGet, "/cases/list", nil, investigatorToken)
		require.Equal(t, http.StatusOK, w.Code)
		var list []domain.Case
		decodeData(t, w, &list)
		require.Len(t, list, 3)
		assert.Equal(t, "C", list[0].Title)
		assert.Equal(t, "B", list[1].Title)
		assert.Equal(t, "A", list[2].Title)
	})

	t.Run("LegacyQueryParam", func(t *testing.T) {
		w := s.makeRequest(http.MethodPost, "/cases/create?case_name=Legacy", nil, adminToken)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var c domain.Case
		decodeData(t, w, &c)
		assert.Equal(t, "Legacy", c.Title)
	})

	t.Run("EmptyTitle", func(t *testing.T) {
		w := s.makeRequest(http.MethodPost, "/cases/create", map[string]string{"title": ""}, adminToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestE2E_UploadSearchAndChat(t *testing.T) {
	s := newSuite(t, nil)
	adminToken := s.adminToken()
	s.signup("carol", "secret123")
	carolToken := s.login("carol", "secret123")
	s.signup("dave", "secret123")
	daveToken := s.login("dave", "secret123")

	var fileID string
	content := []byte("ufdr payload bytes")

	t.Run("Upload", func(t *testing.T) {
		w := s.upload(carolToken, "phone.ufdr", content, "")
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var up struct {
			ID              string   `json:"id"`
			Filename        string   `json:"filename"`
			Hash            string   `json:"hash"`
			SizeBytes       int64    `json:"size_bytes"`
			DemoArtifactIDs []string `json:"demo_artifact_ids"`
		}
		decodeData(t, w, &up)
		fileID = up.ID
		assert.Equal(t, "phone.ufdr", up.Filename)
		assert.Len(t, up.Hash, 64)
		assert.Equal(t, int64(len(content)), up.SizeBytes)
		assert.Len(t, up.DemoArtifactIDs, 3)
	})
	require.NotEmpty(t, fileID)

	t.Run("DuplicateRejected", func(t *testing.T) {
		w := s.upload(daveToken, "copy.ufdr", content, "")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "DUPLICATE_CONTENT", parseResponse(t, w).Error.Code)

		entries, err := os.ReadDir(s.storageDir)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("UnknownCase", func(t *testing.T) {
		w := s.upload(carolToken, "other.ufdr", []byte("different"), "no-such-case")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "CASE_NOT_FOUND", parseResponse(t, w).Error.Code)
	})

	t.Run("List", func(t *testing.T) {
		w := s.makeRequest(http.MethodGet, "/ufdr/list", nil, daveToken)
		require.Equal(t, http.StatusOK, w.Code)
		var files []map[string]interface{}
		decodeData(t, w, &files)
		require.Len(t, files, 1)
		assert.Equal(t, fileID, files[0]["id"])
	})

	t.Run("ArtifactsAll", func(t *testing.T) {
		w := s.makeRequest(http.MethodGet, "/artifacts/list/"+fileID, nil, daveToken)
		require.Equal(t, http.StatusOK, w.Code)
		var list []domain.Artifact
		decodeData(t, w, &list)
		require.Len(t, list, 3)
		assert.Equal(t, domain.ArtifactMessage, list[0].Type)
		assert.Equal(t, domain.ArtifactContact, list[1].Type)
		assert.Equal(t, domain.ArtifactLog, list[2].Type)
	})

	t.Run("ArtifactsFiltered", func(t *testing.T) {
		w := s.makeRequest(http.MethodGet, "/artifacts/list/"+fileID+"?q=JOHN", nil, carolToken)
		require.Equal(t, http.StatusOK, w.Code)
		var list []domain.Artifact
		decodeData(t, w, &list)
		require.Len(t, list, 1)
		assert.Equal(t, domain.ArtifactContact, list[0].Type)
	})

	t.Run("ArtifactsUnknownFile", func(t *testing.T) {
		w := s.makeRequest(http.MethodGet, "/artifacts/list/missing", nil, carolToken)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "FILE_NOT_FOUND", parseResponse(t, w).Error.Code)
	})

	t.Run("Conversation", func(t *testing.T) {
		w := s.makeRequest(http.MethodGet, "/chat/conv/"+fileID+"?q=login", nil, carolToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var ans struct {
			Answer     string `json:"answer"`
			NumMatches int    `json:"num_matches"`
		}
		decodeData(t, w, &ans)
		assert.Equal(t, 1, ans.NumMatches)
		assert.Contains(t, ans.Answer, "I searched the UFDR file for: 'login'.")
		assert.Contains(t, ans.Answer, "[log] Log snippet from phone.ufdr")
	})

	t.Run("ConversationFallback", func(t *testing.T) {
		w := s.makeRequest(http.MethodGet, "/chat/conv/"+fileID+"?q=zzzz&limit=2", nil, carolToken)
		require.Equal(t, http.StatusOK, w.Code)
		var ans struct {
			NumMatches int `json:"num_matches"`
		}
		decodeData(t, w, &ans)
		assert.Equal(t, 2, ans.NumMatches)
	})

	t.Run("ConversationShortQuery", func(t *testing.T) {
		w := s.makeRequest(http.MethodGet, "/chat/conv/"+fileID+"?q=a", nil, carolToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Dashboard", func(t *testing.T) {
		w := s.makeRequest(http.MethodGet, "/dashboard/summary", nil, daveToken)
		require.Equal(t, http.StatusOK, w.Code)
		var sum struct {
			TotalUsers     int64 `json:"total_users"`
			TotalUFDRFiles int64 `json:"total_ufdr_files"`
			TotalArtifacts int64 `json:"total_artifacts"`
			RecentUploads  []struct {
				ID string `json:"id"`
			} `json:"recent_uploads"`
		}
		decodeData(t, w, &sum)
		assert.Equal(t, int64(3), sum.TotalUsers)
		assert.Equal(t, int64(1), sum.TotalUFDRFiles)
		assert.Equal(t, int64(3), sum.TotalArtifacts)
		require.Len(t, sum.RecentUploads, 1)
		assert.Equal(t, fileID, sum.RecentUploads[0].ID)
	})

	t.Run("DeleteByOtherInvestigatorForbidden", func(t *testing.T) {
		w := s.makeRequest(http.MethodDelete, "/ufdr/"+fileID, nil, daveToken)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("AuditVisibleToAdminOnly", func(t *testing.T) {
		w := s.makeRequest(http.MethodGet, "/audit/logs", nil, carolToken)
		assert.Equal(t, http.StatusForbidden, w.Code)

		assert.Eventually(t, func() bool {
			w := s.makeRequest(http.MethodGet, "/audit/logs", nil, adminToken)
			if w.Code != http.StatusOK {
				return false
			}
			var entries []domain.AuditLogEntry
			decodeData(t, w, &entries)
			for _, e := range entries {
				if e.Path == "/dashboard/summary" && e.StatusCode == http.StatusOK && e.UserID != nil {
					return true
				}
			}
			return false
		}, 2*time.Second, 20*time.Millisecond)
	})

	t.Run("AdminDeleteCascades", func(t *testing.T) {
		w := s.makeRequest(http.MethodDelete, "/ufdr/"+fileID, nil, adminToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = s.makeRequest(http.MethodGet, "/artifacts/list/"+fileID, nil, carolToken)
		assert.Equal(t, http.StatusNotFound, w.Code)

		var n int64
		require.NoError(t, s.db.Model(&domain.Artifact{}).Count(&n).Error)
		assert.Zero(t, n)

		entries, err := os.ReadDir(s.storageDir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestE2E_UploadTooLarge(t *testing.T) {
	s := newSuite(t, func(c *config.Config) { c.MaxUploadSize = 16 })
	s.signup("erin", "secret123")
	token := s.login("erin", "secret123")

	w := s.upload(token, "big.ufdr", bytes.Repeat([]byte("x"), 64), "")
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "FILE_TOO_LARGE", parseResponse(t, w).Error.Code)

	entries, err := os.ReadDir(s.storageDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestE2E_LoginRateLimited(t *testing.T) {
	s := newSuite(t, func(c *config.Config) { c.LoginRateLimit = 2 })

	body := map[string]string{"username": "ghost", "password": "whatever"}
	for i := 0; i < 2; i++ {
		w := s.makeRequest(http.MethodPost, "/auth/login", body, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := s.makeRequest(http.MethodPost, "/auth/login", body, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMITED", parseResponse(t, w).Error.Code)
}

func TestE2E_LoginRateLimitIgnoresForwardedFor(t *testing.T) {
	s := newSuite(t, func(c *config.Config) { c.LoginRateLimit = 2 })

	codes := make([]int, 0, 6)
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login",
			strings.NewReader(`{"username":"ghost","password":"whatever"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		w := httptest.NewRecorder()
		s.app.Router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{
		http.StatusUnauthorized, http.StatusUnauthorized,
		http.StatusTooManyRequests, http.StatusTooManyRequests,
		http.StatusTooManyRequests, http.StatusTooManyRequests,
	}, codes)
}

func TestE2E_TrustedProxyForwardedFor(t *testing.T) {
	s := newSuite(t, func(c *config.Config) {
		c.LoginRateLimit = 1
		c.TrustedProxies = []string{"192.0.2.0/24"}
	})

	login := func(clientIP string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login",
			strings.NewReader(`{"username":"ghost","password":"whatever"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", clientIP)
		w := httptest.NewRecorder()
		s.app.Router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, login("198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, login("198.51.100.1"))
	assert.Equal(t, http.StatusUnauthorized, login("198.51.100.2"), "clients behind a trusted proxy are throttled separately")
}

func TestE2E_HealthAndMetrics(t *testing.T) {
	s := newSuite(t, nil)

	w := s.makeRequest(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.makeRequest(http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cognis_http_requests_total")

	w = s.makeRequest(http.MethodGet, "/no/such/route", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", parseResponse(t, w).Error.Code)
}

func TestE2E_ChatWebSocket(t *testing.T) {
	s := newSuite(t, nil)
	s.signup("frank", "secret123")
	token := s.login("frank", "secret123")

	w := s.upload(token, "ws.ufdr", []byte("websocket payload"), "")
	require.Equal(t, http.StatusCreated, w.Code)
	var up struct {
		ID string `json:"id"`
	}
	decodeData(t, w, &up)

	srv := httptest.NewServer(s.app.Router)
	defer srv.Close()

	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws/" + up.ID

	t.Run("RejectsWithoutToken", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(base, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("AnswersFrames", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(base+"?token="+token, nil)
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.WriteJSON(map[string]interface{}{"q": "John", "limit": 3}))
		var reply struct {
			Success bool `json:"success"`
			Data    struct {
				NumMatches int    `json:"num_matches"`
				Answer     string `json:"answer"`
			} `json:"data"`
		}
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		require.NoError(t, conn.ReadJSON(&reply))
		assert.True(t, reply.Success)
		assert.Equal(t, 1, reply.Data.NumMatches)
		assert.Contains(t, reply.Data.Answer, "[contact]")

		require.NoError(t, conn.WriteJSON(map[string]interface{}{"q": "x"}))
		var bad struct {
			Success bool `json:"success"`
			Error   struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		require.NoError(t, conn.ReadJSON(&bad))
		assert.False(t, bad.Success)
		assert.Equal(t, "VALIDATION_ERROR", bad.Error.Code)
	})
}
