package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/altynbek07/invbot/internal/service"
	"go.uber.org/zap"
)

// Callback bodies are small JSON objects; anything bigger is abuse.
const maxCallbackBody = 64 << 10

// CallbackHandler ingests payment gateway callbacks.
type CallbackHandler struct {
	callbacks *service.CallbackService
}

func NewCallbackHandler(callbacks *service.CallbackService) *CallbackHandler {
	return &CallbackHandler{callbacks: callbacks}
}

// Handle accepts a gateway callback. The gateway only understands a
// plain-text protocol: 200 "OK" acknowledges, 400 asks it to stop
// retrying a malformed delivery, 500 invites a retry.
func (h *CallbackHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	cb, err := service.ParseCallback(body)
	if err != nil {
		zap.L().Warn("malformed gateway callback", zap.Error(err))
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if _, err := h.callbacks.Handle(r.Context(), cb); err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateCallback):
			// Redelivery of something already applied; ack it so the
			// gateway stops retrying.
		case errors.Is(err, service.ErrExtNotFound), errors.Is(err, service.ErrTxNotFound):
			zap.L().Warn("unresolvable gateway callback",
				zap.String("ext", cb.ExternalID),
				zap.Int("type", cb.Type),
				zap.Error(err),
			)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		default:
			zap.L().Error("gateway callback processing failed", zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
