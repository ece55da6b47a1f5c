package telegram

import (
	"encoding/json"
	"log"
	"net/http"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookHandler accepts Bot API update deliveries. When Secret is set, the
// matching header is required and mismatches get 403.
type WebhookHandler struct {
	Handler Handler
	Secret  string
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Secret != "" && r.Header.Get(secretTokenHeader) != h.Secret {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	var upd Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	// Always ack the delivery; Telegram retries non-2xx responses and a
	// handler failure is not something a redelivery would fix.
	if err := Route(r.Context(), h.Handler, upd); err != nil {
		log.Printf("webhook: update %d: %v", upd.UpdateID, err)
	}
	w.WriteHeader(http.StatusOK)
}
