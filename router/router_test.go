package router_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dev-mohitbeniwal/echo/authz/controller"
	"github.com/dev-mohitbeniwal/echo/authz/middleware"
	"github.com/dev-mohitbeniwal/echo/authz/model"
	"github.com/dev-mohitbeniwal/echo/authz/pdp/authorizer"
	"github.com/dev-mohitbeniwal/echo/authz/pdp/engine"
	"github.com/dev-mohitbeniwal/echo/authz/router"
	"github.com/dev-mohitbeniwal/echo/authz/service"
	mock_service "github.com/dev-mohitbeniwal/echo/authz/test/service_mock"
)

var secret = []byte("router-secret")

const (
	admin = "urn:li:corpuser:datahub"
	bob   = "urn:li:corpuser:bob"
)

type staticStore struct {
	policies []*model.Policy
}

func (s *staticStore) ListUrns(ctx context.Context, entityType string, start, count int, actor string) (*model.ListUrnsResult, error) {
	result := &model.ListUrnsResult{Start: start, Count: count, Total: len(s.policies)}
	for i := start; i < len(s.policies) && i < start+count; i++ {
		result.Entities = append(result.Entities, s.policies[i].ID)
	}
	return result, nil
}

func (s *staticStore) BatchGet(ctx context.Context, urns []string, actor string) (map[string]*model.Entity, error) {
	out := make(map[string]*model.Entity, len(urns))
	for _, p := range s.policies {
		for _, urn := range urns {
			if p.ID == urn {
				out[urn] = &model.Entity{URN: urn, Aspects: []model.Aspect{{Name: "dataHubPolicyInfo", PolicyInfo: p}}}
			}
		}
	}
	return out, nil
}

func token(t *testing.T, actor string) string {
	signed, err := middleware.IssueActorToken(secret, actor, nil, jwt.RegisteredClaims{})
	require.NoError(t, err)
	return signed
}

func do(r http.Handler, method, path, bearer, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestSetupRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := &staticStore{policies: []*model.Policy{{
		ID:         "urn:li:dataHubPolicy:0",
		Type:       model.PolicyTypePlatform,
		State:      model.PolicyStateActive,
		Privileges: []string{model.PrivilegeManagePolicies},
		Actors:     model.ActorFilter{Users: []string{admin}},
	}}}
	manager := authorizer.NewAuthorizationManager(store, engine.NewPolicyEngine(), authorizer.Config{
		RefreshDelay:    0,
		RefreshInterval: time.Hour,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	manager.Start(ctx)
	defer manager.Stop()
	require.Eventually(t, func() bool { return manager.Snapshot().Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	ctrl := gomock.NewController(t)
	policies := mock_service.NewMockIPolicyService(ctrl)
	authzSvc := service.NewAuthorizationService(manager, nil, nil, false)
	controllers := &controller.Controllers{
		Policy:        controller.NewPolicyController(policies),
		Authorization: controller.NewAuthorizationController(authzSvc),
	}
	allowAll := func(ctx context.Context, key string, limit int, per time.Duration) (bool, error) { return true, nil }
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("# metrics")) })

	r := router.SetupRouter(controllers, authzSvc, router.Options{
		JWTSecret:         secret,
		RateLimitRequests: 100,
		RateLimitDuration: time.Minute,
		RateLimiter:       allowAll,
		MetricsHandler:    metrics,
	})

	t.Run("HealthIsPublic", func(t *testing.T) {
		w := do(r, http.MethodGet, "/healthz", "", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "ENFORCING")
	})

	t.Run("MetricsMounted", func(t *testing.T) {
		w := do(r, http.MethodGet, "/metrics", "", "")
		assert.Equal(t, "# metrics", w.Body.String())
	})

	t.Run("APIRequiresToken", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/v1/policies", "", "").Code)
	})

	t.Run("WriteDeniedWithoutPrivilege", func(t *testing.T) {
		w := do(r, http.MethodDelete, "/api/v1/policies/urn:li:dataHubPolicy:0", token(t, bob), "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("WriteAllowedByPolicy", func(t *testing.T) {
		policies.EXPECT().DeletePolicy(gomock.Any(), "urn:li:dataHubPolicy:9", admin).Return(nil)
		w := do(r, http.MethodDelete, "/api/v1/policies/urn:li:dataHubPolicy:9", token(t, admin), "")
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("AuthorizeEndpoint", func(t *testing.T) {
		w := do(r, http.MethodPost, "/api/v1/authorize", token(t, bob), `{"privilege":"MANAGE_POLICIES"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"decision":"DENY"`)

		w = do(r, http.MethodPost, "/api/v1/authorize", token(t, bob), `{"actor":"`+admin+`","privilege":"MANAGE_POLICIES"}`)
		assert.Contains(t, w.Body.String(), `"matched_policy_id":"urn:li:dataHubPolicy:0"`)
	})

	t.Run("IndexSummary", func(t *testing.T) {
		w := do(r, http.MethodGet, "/api/v1/authorization/index", token(t, bob), "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"MANAGE_POLICIES":1`)
	})
}
