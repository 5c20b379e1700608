package web

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/JonMunkholm/contactimport/internal/logging"
	"github.com/vmihailenco/msgpack/v5"
)

// Response media types.
const (
	contentTypeJSON    = "application/json"
	contentTypeMsgpack = "application/msgpack"
)

// wantsMsgpack reports whether the client asked for MessagePack.
func wantsMsgpack(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, contentTypeMsgpack) || strings.Contains(accept, "application/x-msgpack")
}

// respond encodes v as MessagePack or JSON according to the Accept header.
// Encoding errors are logged since headers are already sent.
func respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if wantsMsgpack(r) {
		body, err := msgpack.Marshal(v)
		if err != nil {
			logging.FromContext(r.Context()).Error("msgpack encode error", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentTypeMsgpack)
		w.WriteHeader(status)
		_, _ = w.Write(body)
		return
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
