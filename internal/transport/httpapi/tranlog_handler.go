package httpapi

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos-core/internal/service/tranlog"
)

// TranlogHandler принимает события журнала транзакций по webhook.
// Контракт ответов: 200 — событие принято (или дубль), 400 — событие
// некорректно и не должно доставляться повторно, 500 — временный сбой,
// доставку нужно повторить.
type TranlogHandler struct {
	processor *tranlog.Processor
	logger    *log.Entry
}

// NewTranlogHandler создаёт webhook-обработчик событий журнала транзакций.
func NewTranlogHandler(processor *tranlog.Processor, logger *log.Entry) *TranlogHandler {
	if logger == nil {
		logger = log.WithField("component", "tranlog-webhook")
	}

	return &TranlogHandler{
		processor: processor,
		logger:    logger,
	}
}

type tranlogResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ReceiveEvent обрабатывает POST /v1/tranlog.
func (h *TranlogHandler) ReceiveEvent(w http.ResponseWriter, r *http.Request) {
	var envelope tranlog.Envelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		h.logger.WithError(err).Warn("unparseable tranlog envelope")
		respond(w, http.StatusBadRequest, tranlogResponse{Status: "dropped", Error: "malformed envelope"})
		return
	}

	err := h.processor.Process(r.Context(), envelope.Data)
	switch tranlog.Classify(err) {
	case tranlog.DispositionAccept:
		respond(w, http.StatusOK, tranlogResponse{Status: "accepted"})
	case tranlog.DispositionDrop:
		respond(w, http.StatusBadRequest, tranlogResponse{Status: "dropped", Error: err.Error()})
	default:
		h.logger.WithError(err).WithField("event_id", envelope.Data.EventID).Error("tranlog event processing failed")
		respond(w, http.StatusInternalServerError, tranlogResponse{Status: "retry", Error: "transient failure"})
	}
}

func respond(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
