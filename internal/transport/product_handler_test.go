package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/service"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newProductTestRouter() (http.Handler, *fakeProductService) {
	products := newFakeProductService()
	handler := NewProductHandler(products, products.ledger, zap.NewNop())
	return newTestRouter(handler), products
}

func stockOf(t *testing.T, router http.Handler, productID uuid.UUID) int64 {
	t.Helper()
	w := doJSON(t, router, http.MethodGet, "/api/products/"+productID.String()+"/stock", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary service.StockSummary
	decodeBody(t, w, &summary)
	return summary.CurrentStock
}

func TestCreateProduct(t *testing.T) {
	router, _ := newProductTestRouter()
	sellerID := uuid.New()

	w := doJSON(t, router, http.MethodPost, "/api/products", map[string]interface{}{
		"name":          "Wireless Mouse",
		"description":   "Ergonomic wireless mouse",
		"price":         2500,
		"seller_id":     sellerID.String(),
		"initial_stock": 50,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var product domain.ProductWithStock
	decodeBody(t, w, &product)
	assert.Equal(t, "Wireless Mouse", product.Name)
	assert.Equal(t, int64(50), product.Stock)
	assert.Equal(t, sellerID, product.SellerID)

	assert.Equal(t, int64(50), stockOf(t, router, product.ID))
}

func TestCreateProduct_RejectsInvalidBody(t *testing.T) {
	router, _ := newProductTestRouter()

	cases := map[string]interface{}{
		"missing price":    map[string]interface{}{"name": "Mouse", "seller_id": uuid.NewString()},
		"negative price":   map[string]interface{}{"name": "Mouse", "price": -1, "seller_id": uuid.NewString()},
		"bad seller id":    map[string]interface{}{"name": "Mouse", "price": 10, "seller_id": "nope"},
		"missing name":     map[string]interface{}{"price": 10, "seller_id": uuid.NewString()},
		"malformed json":   `{"name": `,
		"stock not number": `{"name":"Mouse","price":10,"seller_id":"` + uuid.NewString() + `","initial_stock":"many"}`,
		"negative stock":   map[string]interface{}{"name": "Mouse", "price": 10, "seller_id": uuid.NewString(), "initial_stock": -25},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/api/products", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp errorEnvelope
			decodeBody(t, w, &resp)
			assert.Equal(t, "validation failed", resp.Error.Message)
		})
	}
}

func TestCreateProduct_RejectsOutOfRangeStock(t *testing.T) {
	router, products := newProductTestRouter()

	w := doJSON(t, router, http.MethodPost, "/api/products", map[string]interface{}{
		"name":          "Mouse",
		"price":         10,
		"seller_id":     uuid.NewString(),
		"initial_stock": 1e20,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp errorEnvelope
	decodeBody(t, w, &resp)
	assert.Equal(t, service.ErrInvalidInitialStock.Error(), resp.Error.Message)
	assert.Empty(t, products.products)
}

func TestGetUpdateDeleteProduct(t *testing.T) {
	router, products := newProductTestRouter()
	p := products.add("Laptop Stand", 25)
	path := "/api/products/" + p.ID.String()

	w := doJSON(t, router, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fetched domain.ProductWithStock
	decodeBody(t, w, &fetched)
	assert.Equal(t, int64(25), fetched.Stock)

	w = doJSON(t, router, http.MethodPatch, path, map[string]interface{}{"name": "Aluminium Laptop Stand", "price": 4599.9})
	require.Equal(t, http.StatusOK, w.Code)
	var updated domain.Product
	decodeBody(t, w, &updated)
	assert.Equal(t, "Aluminium Laptop Stand", updated.Name)

	w = doJSON(t, router, http.MethodPatch, path, map[string]interface{}{"name": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(t, router, http.MethodGet, path+"/stock-events", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListProducts(t *testing.T) {
	router, products := newProductTestRouter()
	products.add("Mouse", 50)
	products.add("Keyboard", 30)

	w := doJSON(t, router, http.MethodGet, "/api/products?page=1&limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data       []domain.ProductWithStock `json:"data"`
		Pagination Pagination                `json:"pagination"`
	}
	decodeBody(t, w, &resp)
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, 2, resp.Pagination.Total)
	assert.Equal(t, 1, resp.Pagination.TotalPages)

	w = doJSON(t, router, http.MethodGet, "/api/products?seller_id=bad", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReserveScenario(t *testing.T) {
	router, products := newProductTestRouter()
	p := products.add("Wireless Mouse", 50)
	base := "/api/products/" + p.ID.String()

	w := doJSON(t, router, http.MethodPost, base+"/reserve", map[string]interface{}{"quantity": 20})
	require.Equal(t, http.StatusOK, w.Code)
	var change StockChangeResponse
	decodeBody(t, w, &change)
	assert.True(t, change.Success)
	assert.Equal(t, int64(30), change.CurrentStock)

	w = doJSON(t, router, http.MethodPost, base+"/reserve", map[string]interface{}{"quantity": 40})
	require.Equal(t, http.StatusConflict, w.Code)
	var resp errorEnvelope
	decodeBody(t, w, &resp)
	assert.Equal(t, "insufficient stock", resp.Error.Message)

	assert.Equal(t, int64(30), stockOf(t, router, p.ID))

	w = doJSON(t, router, http.MethodPost, base+"/reserve", map[string]interface{}{"quantity": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(t, router, http.MethodPost, base+"/reserve", map[string]interface{}{"quantity": -5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/products/"+uuid.NewString()+"/reserve", map[string]interface{}{"quantity": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRestockAndCancelReservation(t *testing.T) {
	router, products := newProductTestRouter()
	p := products.add("Sneakers", 10)
	base := "/api/products/" + p.ID.String()

	w := doJSON(t, router, http.MethodPost, base+"/reserve", map[string]interface{}{"quantity": 10})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(0), stockOf(t, router, p.ID))

	w = doJSON(t, router, http.MethodPost, base+"/cancel-reservation", map[string]interface{}{"quantity": 10})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(10), stockOf(t, router, p.ID))

	w = doJSON(t, router, http.MethodPost, base+"/restock", map[string]interface{}{"quantity": 2.7, "reason": "Supplier delivery"})
	require.Equal(t, http.StatusOK, w.Code)
	var change StockChangeResponse
	decodeBody(t, w, &change)
	assert.Equal(t, int64(12), change.CurrentStock)

	w = doJSON(t, router, http.MethodPost, base+"/restock", map[string]interface{}{"quantity": 0.4})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodGet, base+"/stock-events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history domain.StockHistory
	decodeBody(t, w, &history)
	assert.Equal(t, int64(12), history.CurrentStock)
	assert.Equal(t, 4, history.TotalEvents)
	require.Len(t, history.Events, 4)
	assert.Equal(t, domain.StockEventInitial, history.Events[0].Type)
	assert.Equal(t, domain.StockEventRestock, history.Events[3].Type)
	require.NotNil(t, history.Events[3].Reason)
	assert.Equal(t, "Supplier delivery", *history.Events[3].Reason)
}

func TestRecordStockEvent(t *testing.T) {
	router, products := newProductTestRouter()
	p := products.add("Jeans", 40)
	path := "/api/products/" + p.ID.String() + "/stock-events"

	w := doJSON(t, router, http.MethodPost, path, map[string]interface{}{"type": "RESTOCK", "quantity": 5, "reason": "Returned"})
	require.Equal(t, http.StatusCreated, w.Code)
	var resp StockEventResponse
	decodeBody(t, w, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, int64(5), resp.Event.Quantity)
	assert.Equal(t, int64(45), resp.CurrentStock)

	w = doJSON(t, router, http.MethodPost, path, map[string]interface{}{"type": "RESERVATION", "quantity": -45})
	require.Equal(t, http.StatusCreated, w.Code)
	decodeBody(t, w, &resp)
	assert.Equal(t, int64(0), resp.CurrentStock)

	w = doJSON(t, router, http.MethodPost, path, map[string]interface{}{"type": "RESERVATION", "quantity": -1})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodPost, path, map[string]interface{}{"type": "RESTOCK", "quantity": -3})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, path, map[string]interface{}{"type": "INITIAL", "quantity": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, path, map[string]interface{}{"type": "RESTOCK", "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, int64(0), stockOf(t, router, p.ID))
}

// Feature: storefront, Property 28: Concurrent HTTP reservations never oversell
func TestProperty_ConcurrentReservationsNeverOversell(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("accepted reservations never exceed the initial stock", prop.ForAll(
		func(stock int, qty int, workers int) bool {
			router, products := newProductTestRouter()
			p := products.add("Keyboard", float64(stock))
			path := "/api/products/" + p.ID.String() + "/reserve"

			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				accepted int
			)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					w := httptest.NewRecorder()
					req := httptest.NewRequest(http.MethodPost, path, jsonReader(map[string]int{"quantity": qty}))
					router.ServeHTTP(w, req)
					if w.Code == http.StatusOK {
						mu.Lock()
						accepted++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			expected := stock / qty
			if expected > workers {
				expected = workers
			}
			final, err := products.ledger.CurrentStock(context.Background(), p.ID)
			if err != nil {
				return false
			}
			return accepted == expected && final == int64(stock-accepted*qty) && final >= 0
		},
		gen.IntRange(0, 60),
		gen.IntRange(1, 10),
		gen.IntRange(1, 16),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
