package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/price-tracker/internal/cache"
	"github.com/iyhunko/price-tracker/internal/config"
	httpAPI "github.com/iyhunko/price-tracker/internal/http"
	"github.com/iyhunko/price-tracker/internal/http/controller"
	reposql "github.com/iyhunko/price-tracker/internal/repository/sql"
	"github.com/iyhunko/price-tracker/internal/scraper"
	"github.com/iyhunko/price-tracker/internal/service"
	"github.com/stretchr/testify/require"
)

// fakeShop serves minimal product pages whose price can be changed between requests.
type fakeShop struct {
	*httptest.Server
	mu     sync.Mutex
	prices map[string]string
}

func newFakeShop(t *testing.T) *fakeShop {
	t.Helper()
	shop := &fakeShop{prices: map[string]string{}}
	shop.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		shop.mu.Lock()
		price, ok := shop.prices[r.URL.Path]
		shop.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		name := strings.TrimPrefix(r.URL.Path, "/")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<html><head><title>%[1]s</title><meta name="description" content="About %[1]s"></head>
<body><h1>%[1]s</h1><img src="/img/%[1]s.png"><span class="product-price">%[2]s</span></body></html>`, name, price)
	}))
	t.Cleanup(shop.Close)
	return shop
}

// page registers path with the given displayed price and returns its absolute URL.
func (s *fakeShop) page(path, price string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[path] = price
	return s.URL + path
}

type trackerAPI struct {
	router *gin.Engine
}

func newTrackerAPI(t *testing.T, testDB *TestDB) *trackerAPI {
	t.Helper()

	sc, err := scraper.New(config.Scraper{UserAgent: "price-tracker-test", Timeout: 5 * time.Second, RetryTimes: 1})
	require.NoError(t, err)

	productRepo := reposql.NewProductRepository(testDB.DB)
	historyRepo := reposql.NewPriceHistoryRepository(testDB.DB)
	userRepo := reposql.NewUserRepository(testDB.DB)
	txRepo := reposql.NewTransactionalRepository(testDB.DB)

	checker := service.NewPriceChecker(productRepo, userRepo, txRepo, sc, cache.NewLocalLocker(), 0, "alerts@example.com")
	productService := service.NewProductService(productRepo, historyRepo, txRepo, sc, checker, cache.NewMemoryChartCache(time.Minute))

	gin.SetMode(gin.TestMode)
	router := httpAPI.InitRouter(&config.Config{}, gin.New(),
		controller.New(testDB.DB),
		controller.NewProductController(productService),
		controller.NewUserController(service.NewUserService(userRepo)),
	)
	return &trackerAPI{router: router}
}

func (a *trackerAPI) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
