package authz

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"anoa.com/attachments/pkg/token"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRemoteDeciderSendsActionAndOwner(t *testing.T) {
	var got decisionRequest
	var authHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/authorize", r.URL.Path)
		authHeader = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(decisionResponse{Can: got.Context.Owner == "user-a"})
	}))
	defer srv.Close()

	d := NewRemoteDecider(srv.URL+"/", srv.Client())

	can, err := d.UserCan(context.Background(), "tok", ActionEditAttachment, AuthContext{Owner: "user-a"})
	require.NoError(t, err)
	assert.True(t, can)
	assert.Equal(t, "Bearer tok", authHeader)
	assert.Equal(t, ActionEditAttachment, got.What)

	can, err = d.UserCan(context.Background(), "tok", ActionEditAttachment, AuthContext{Owner: "user-b"})
	require.NoError(t, err)
	assert.False(t, can)
}

func TestRemoteDeciderFailureIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewRemoteDecider(srv.URL, srv.Client()).UserCan(context.Background(), "tok", ActionEditAttachment, AuthContext{Owner: "user-a"})

	assert.ErrorContains(t, err, "503")
}

func TestRemoteDeciderUnreachableIsError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewRemoteDecider(url, nil).UserCan(context.Background(), "tok", ActionEditAttachment, AuthContext{Owner: "user-a"})

	assert.Error(t, err)
}

func signed(t *testing.T, claims *token.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func TestOwnerPolicy(t *testing.T) {
	policy := NewOwnerPolicy(token.NewHMACVerifier("secret"), zap.NewNop())
	ctx := context.Background()
	owner := AuthContext{Owner: "user-a"}

	cases := []struct {
		name   string
		tok    string
		action string
		want   bool
	}{
		{"owner", signed(t, &token.Claims{UserID: "user-a"}), ActionEditAttachment, true},
		{"stranger", signed(t, &token.Claims{UserID: "user-b"}), ActionEditAttachment, false},
		{"admin", signed(t, &token.Claims{UserID: "user-b", Role: "admin"}), ActionEditAttachment, true},
		{"bad token", "garbage", ActionEditAttachment, false},
		{"other action", signed(t, &token.Claims{UserID: "user-a"}), "attachments:publish", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			can, err := policy.UserCan(ctx, tc.tok, tc.action, owner)
			require.NoError(t, err)
			assert.Equal(t, tc.want, can)
		})
	}
}
