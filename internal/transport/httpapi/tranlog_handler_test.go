package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/pos-core/internal/health"
	"github.com/vladislavdragonenkov/pos-core/internal/metrics"
	"github.com/vladislavdragonenkov/pos-core/internal/service/eventgate"
	"github.com/vladislavdragonenkov/pos-core/internal/service/status"
	"github.com/vladislavdragonenkov/pos-core/internal/service/tranlog"
	"github.com/vladislavdragonenkov/pos-core/internal/storage/memory"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	posMetrics := metrics.NewPosMetrics()
	tracker := status.NewTracker(memory.NewStatusRepository(), posMetrics, nil)
	gate := eventgate.NewGate(memory.NewProcessedEventRepository(), posMetrics, nil)
	processor := tranlog.NewProcessor(gate, tracker, nil, nil)

	return NewRouter(NewTranlogHandler(processor, nil), health.NewHandler("test"))
}

func postTranlog(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/v1/tranlog", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestReceiveEventAccepted(t *testing.T) {
	router := newTestRouter(t)

	body := `{"data":{"event_id":"evt-1","tenant_id":"tenant-1","store_code":"5825","terminal_no":9,"transaction_no":300,"transaction_type":"void_sale","target_transaction_no":100,"staff_id":"S1"}}`
	rec := postTranlog(t, router, body)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"accepted"`)

	// Повторная доставка того же события — тоже 200.
	rec = postTranlog(t, router, body)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestReceiveEventMalformedEnvelope(t *testing.T) {
	router := newTestRouter(t)

	rec := postTranlog(t, router, `{"data": broken`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"dropped"`)
}

func TestReceiveEventMissingEventID(t *testing.T) {
	router := newTestRouter(t)

	body := `{"data":{"tenant_id":"tenant-1","store_code":"5825","terminal_no":9,"transaction_no":300,"transaction_type":"void_sale","target_transaction_no":100}}`
	rec := postTranlog(t, router, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReceiveEventBusinessRejection(t *testing.T) {
	router := newTestRouter(t)

	first := `{"data":{"event_id":"evt-1","tenant_id":"tenant-1","store_code":"5825","terminal_no":9,"transaction_no":300,"transaction_type":"void_sale","target_transaction_no":100,"staff_id":"S1"}}`
	require.Equal(t, http.StatusOK, postTranlog(t, router, first).Code)

	// Вторая отмена той же продажи другим событием — бизнес-отказ, 400.
	second := `{"data":{"event_id":"evt-2","tenant_id":"tenant-1","store_code":"5825","terminal_no":9,"transaction_no":301,"transaction_type":"void_sale","target_transaction_no":100,"staff_id":"S1"}}`
	rec := postTranlog(t, router, second)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "already voided")
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/healthz", "/readyz", "/livez"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
}
