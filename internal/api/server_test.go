package api_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/recommender/internal/api"
	"github.com/knowledge-engine/recommender/internal/config"
	"github.com/knowledge-engine/recommender/internal/engine"
)

// Mocks

type MockSource struct {
	mock.Mock
}

func (m *MockSource) Open(ctx context.Context) (io.ReadCloser, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return io.NopCloser(strings.NewReader(args.String(0))), args.Error(1)
}

func (m *MockSource) String() string {
	return "mock://catalog"
}

const clothesCSV = `Product_Name,Category,Color,Size,Material
Shirt,Men's Clothing,Blue,M,Cotton
Hoodie,Men's Clothing,Blue,L,Cotton
Dress,Women's Clothing,Red,S,Silk
Coat,Men's Clothing,Black,M,Wool
Scarf,Accessories,Red,One Size,Silk
`

func setupServer(t *testing.T, load bool) (*api.Server, *MockSource) {
	t.Helper()
	cfg := config.Load()
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	entry := logger.WithField("test", "api")

	src := new(MockSource)
	eng := engine.NewEngine(cfg, entry, src)
	if load {
		src.On("Open", mock.Anything).Return(clothesCSV, nil).Once()
		_, err := eng.Reload(context.Background())
		require.NoError(t, err)
	}

	server := api.NewServer(eng, cfg.Ranking, entry)
	return server, src
}

func serve(server *api.Server, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, target, body)
	rr := httptest.NewRecorder()
	server.Router.ServeHTTP(rr, req)
	return rr
}

func productNames(resp api.RecommendationsResponse) []string {
	out := make([]string, len(resp.Results))
	for i, r := range resp.Results {
		out[i] = r.ProductName
	}
	return out
}

func TestHandleStatus(t *testing.T) {
	server, _ := setupServer(t, true)

	rr := serve(server, "GET", "/api/v1/status", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp api.StatusResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Ready)
	assert.Equal(t, 5, resp.Items)
	assert.Equal(t, server.Engine.Current().ID, resp.SnapshotID)
	assert.Equal(t, server.Engine.Current().Vocabulary.Len(), resp.VocabularySize)
	assert.Equal(t, int64(1), resp.Reloads)
	require.NotNil(t, resp.LoadedAt)
	assert.True(t, server.Engine.Current().BuiltAt.Equal(*resp.LoadedAt))
}

func TestHandleStatus_NotReady(t *testing.T) {
	server, _ := setupServer(t, false)

	rr := serve(server, "GET", "/api/v1/status", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp api.StatusResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Ready)
	assert.Nil(t, resp.LoadedAt)
	assert.NotContains(t, rr.Body.String(), "loaded_at")
}

func TestRankingEndpoints_NotReady(t *testing.T) {
	server, _ := setupServer(t, false)

	rr := serve(server, "GET", "/api/v1/recommendations?name=Shirt", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = serve(server, "POST", "/api/v1/recommendations/attributes", strings.NewReader(`{"attributes":["Silk"]}`))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestHandleRecommendByName(t *testing.T) {
	server, _ := setupServer(t, true)

	rr := serve(server, "GET", "/api/v1/recommendations?name=Shirt&k=2", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp api.RecommendationsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Shirt", resp.Product)
	assert.Equal(t, []string{"Hoodie", "Coat"}, productNames(resp))
	assert.Equal(t, 1.0, resp.Results[0].Score)
	assert.NotEmpty(t, resp.SnapshotID)
}

func TestHandleRecommendByName_DefaultK(t *testing.T) {
	server, _ := setupServer(t, true)

	rr := serve(server, "GET", "/api/v1/recommendations?name=Shirt", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp api.RecommendationsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.Results, 4)
	assert.NotContains(t, productNames(resp), "Shirt")
}

func TestHandleRecommendByName_Errors(t *testing.T) {
	server, _ := setupServer(t, true)

	tests := []struct {
		name   string
		target string
		code   int
	}{
		{"Missing name", "/api/v1/recommendations", http.StatusBadRequest},
		{"Unknown product", "/api/v1/recommendations?name=Tuxedo", http.StatusNotFound},
		{"Bad k", "/api/v1/recommendations?name=Shirt&k=abc", http.StatusBadRequest},
		{"Zero k", "/api/v1/recommendations?name=Shirt&k=0", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(server, "GET", tt.target, nil)
			assert.Equal(t, tt.code, rr.Code)

			var resp api.ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestHandleRecommendByAttributes(t *testing.T) {
	server, _ := setupServer(t, true)

	body := strings.NewReader(`{"attributes": ["Women's Clothing", "Red", "S", "Silk"]}`)
	rr := serve(server, "POST", "/api/v1/recommendations/attributes", body)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp api.RecommendationsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 5, "full catalog ranking")
	assert.Equal(t, "Dress", resp.Results[0].ProductName)
	assert.Equal(t, 1.0, resp.Results[0].Score)
	assert.Equal(t, []string{"Women's Clothing", "Red", "S", "Silk"}, resp.Attributes)
}

func TestHandleRecommendByAttributes_Limit(t *testing.T) {
	server, _ := setupServer(t, true)

	body := strings.NewReader(`{"attributes": ["Red", "Silk"], "limit": 2}`)
	rr := serve(server, "POST", "/api/v1/recommendations/attributes", body)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp api.RecommendationsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Dress", "Scarf"}, productNames(resp))
}

func TestHandleRecommendByAttributes_Sample(t *testing.T) {
	server, _ := setupServer(t, true)
	// Reverse instead of shuffling so the outcome is predictable
	server.Shuffle = func(n int, swap func(i, j int)) {
		for i := 0; i < n/2; i++ {
			swap(i, n-1-i)
		}
	}

	body := strings.NewReader(`{"attributes": ["Men's Clothing", "Blue", "M", "Cotton"], "sample": true, "limit": 2, "sample_from": 3}`)
	rr := serve(server, "POST", "/api/v1/recommendations/attributes", body)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp api.RecommendationsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	// top 3 are Shirt, Hoodie, Coat; reversed and cut to 2
	assert.Equal(t, []string{"Coat", "Hoodie"}, productNames(resp))
}

func TestHandleRecommendByAttributes_SampleDefaultSize(t *testing.T) {
	server, _ := setupServer(t, true)
	server.Config.SampleSize = 3

	body := strings.NewReader(`{"attributes": ["Men's Clothing"], "sample": true}`)
	rr := serve(server, "POST", "/api/v1/recommendations/attributes", body)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp api.RecommendationsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.Results, 3)

	seen := make(map[int]bool)
	for _, r := range resp.Results {
		assert.False(t, seen[r.RowIndex], "sample must not repeat items")
		seen[r.RowIndex] = true
	}
}

func TestHandleRecommendByAttributes_SampleSizeFallback(t *testing.T) {
	for _, size := range []int{0, -3} {
		server, _ := setupServer(t, true)
		server.Config.SampleSize = size

		body := strings.NewReader(`{"attributes": ["Men's Clothing"], "sample": true}`)
		rr := serve(server, "POST", "/api/v1/recommendations/attributes", body)
		require.Equal(t, http.StatusOK, rr.Code, "sample size %d", size)

		var resp api.RecommendationsResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Len(t, resp.Results, 5, "sample size %d falls back to 5", size)
	}
}

func TestHandleRecommendByAttributes_BadRequests(t *testing.T) {
	server, _ := setupServer(t, true)

	for _, body := range []string{`{not json`, `{"attributes": []}`, `{"attributes": ["Silk"], "limit": -1}`} {
		rr := serve(server, "POST", "/api/v1/recommendations/attributes", strings.NewReader(body))
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
}

func TestHandleGetProduct(t *testing.T) {
	server, _ := setupServer(t, true)

	rr := serve(server, "GET", "/api/v1/products/2", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp api.ProductResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Dress", resp.ProductName)
	assert.Equal(t, "Women's Clothing Red S Silk", resp.FeatureText)

	assert.Equal(t, http.StatusNotFound, serve(server, "GET", "/api/v1/products/99", nil).Code)
	assert.Equal(t, http.StatusBadRequest, serve(server, "GET", "/api/v1/products/abc", nil).Code)
}

func TestHandleReload(t *testing.T) {
	server, src := setupServer(t, true)
	before := server.Engine.Current()

	src.On("Open", mock.Anything).Return(nil, errors.New("unreachable")).Once()
	rr := serve(server, "POST", "/api/v1/reload", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Same(t, before, server.Engine.Current())

	src.On("Open", mock.Anything).Return(clothesCSV, nil).Once()
	rr = serve(server, "POST", "/api/v1/reload", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotSame(t, before, server.Engine.Current())

	src.AssertExpectations(t)
}

func TestMetricsEndpoint(t *testing.T) {
	server, _ := setupServer(t, true)
	serve(server, "GET", "/api/v1/recommendations?name=Shirt", nil)

	rr := serve(server, "GET", "/metrics", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "recommender_requests_total")
}
