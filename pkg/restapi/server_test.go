package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lsmsample/lsmsample/pkg/authn"
	"github.com/lsmsample/lsmsample/pkg/lsm"
	"github.com/lsmsample/lsmsample/pkg/metrics"
)

const testSecret = "test-secret-key-must-be-at-least-32-characters-long"

func newTestServer(t *testing.T) (*httptest.Server, *authn.Manager) {
	t.Helper()
	opts := lsm.DefaultEngineOptions()
	opts.MemtableCap = 100
	engine := lsm.NewEngine(opts, nil, nil)
	t.Cleanup(engine.Close)

	auth, err := authn.NewManager(testSecret, time.Hour)
	require.NoError(t, err)
	users := authn.NewUserStore(auth)

	srv := NewServer(engine, auth, users, metrics.NewRegistry(), nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, auth
}

func authedRequest(t *testing.T, method, url, token string, body []byte) *http.Request {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, url, bytes.NewReader(body))
	} else {
		req, err = http.NewRequest(method, url, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestRecordLifecycleOverHTTP(t *testing.T) {
	ts, auth := newTestServer(t)
	token, err := auth.IssueToken("alice", authn.RoleWriter)
	require.NoError(t, err)

	putBody := []byte(`{"value":100,"weight":2.0}`)
	req := authedRequest(t, http.MethodPut, ts.URL+"/v1/records/5", token, putBody)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	req = authedRequest(t, http.MethodGet, ts.URL+"/v1/records/5", token, nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rec recordResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
	assert.Equal(t, int64(100), rec.Value)
	assert.Equal(t, 2.0, rec.Weight)
}

func TestGetRequiresAuth(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/records/5")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWriteRequiresWriterRole(t *testing.T) {
	ts, auth := newTestServer(t)
	token, err := auth.IssueToken("bob", authn.RoleReader)
	require.NoError(t, err)

	req := authedRequest(t, http.MethodPut, ts.URL+"/v1/records/5", token, []byte(`{"value":1}`))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestDeleteRequiresWriterRole(t *testing.T) {
	ts, auth := newTestServer(t)
	token, err := auth.IssueToken("carol", authn.RoleReader)
	require.NoError(t, err)

	req := authedRequest(t, http.MethodDelete, ts.URL+"/v1/records/5", token, nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRangeSampleEndpoint(t *testing.T) {
	ts, auth := newTestServer(t)
	writerToken, err := auth.IssueToken("alice", authn.RoleWriter)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		body := []byte(`{"value":1}`)
		req := authedRequest(t, http.MethodPut, ts.URL+"/v1/records/"+strconv.Itoa(i), writerToken, body)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
	}

	readerToken, err := auth.IssueToken("bob", authn.RoleReader)
	require.NoError(t, err)
	req := authedRequest(t, http.MethodGet, ts.URL+"/v1/sample?lower=0&upper=19&k=5", readerToken, nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []recordResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Len(t, out, 5)
}

func TestLoginEndpointIssuesToken(t *testing.T) {
	opts := lsm.DefaultEngineOptions()
	engine := lsm.NewEngine(opts, nil, nil)
	t.Cleanup(engine.Close)

	auth, err := authn.NewManager(testSecret, time.Hour)
	require.NoError(t, err)
	users := authn.NewUserStore(auth)
	require.NoError(t, users.CreateUser("dave", "correcthorse", authn.RoleReader))

	srv := NewServer(engine, auth, users, metrics.NewRegistry(), nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	body := []byte(`{"username":"dave","password":"correcthorse"}`)
	resp, err := http.Post(ts.URL+"/v1/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out loginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.NotEmpty(t, out.Token)

	claims, err := auth.ValidateToken(context.Background(), out.Token)
	require.NoError(t, err)
	assert.Equal(t, "dave", claims.Subject)
}

func TestLoginEndpointRejectsBadCredentials(t *testing.T) {
	ts, _ := newTestServer(t)
	body := []byte(`{"username":"ghost","password":"whatever"}`)
	resp, err := http.Post(ts.URL+"/v1/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGraphQLStatsQuery(t *testing.T) {
	ts, auth := newTestServer(t)
	token, err := auth.IssueToken("alice", authn.RoleReader)
	require.NoError(t, err)

	gqlBody := []byte(`{"query":"{ stats { recordCount height } }"}`)
	req := authedRequest(t, http.MethodPost, ts.URL+"/v1/graphql", token, gqlBody)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out graphQLResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Empty(t, out.Errors)
	assert.NotNil(t, out.Data)
}

func TestStatsEndpoint(t *testing.T) {
	ts, auth := newTestServer(t)
	token, err := auth.IssueToken("alice", authn.RoleReader)
	require.NoError(t, err)

	req := authedRequest(t, http.MethodGet, ts.URL+"/v1/stats", token, nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats statsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
}
