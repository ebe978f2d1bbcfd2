package httpx

import (
	"encoding/json"
	"net/http"
)

// DecodeJSON reads the request body into dst, rejecting unknown fields. On
// failure it writes a 400 error response and reports false so handlers can
// simply return.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		WriteJSON(w, http.StatusBadRequest, ErrorBody{Error: "invalid_json", Message: err.Error()})
		return false
	}
	return true
}

// WriteJSON serializes v and writes it with the given status code. Encoding
// happens before the header is committed, so a marshal failure still yields
// a clean 500 instead of a truncated body.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	// A short write here means the client went away. Nothing to do about it.
	_, _ = w.Write(body)
}
