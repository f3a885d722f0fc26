package server

import (
	"encoding/json"
	"net/http"
)

// errorBody is the JSON shape of non-streaming error responses.
type errorBody struct {
	Error string `json:"error"`
}

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body with the given status code.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// decodeBody decodes the request body into v, rejecting unknown fields.
// On failure it writes a 400 response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// ndjsonWriter streams newline-delimited JSON objects, flushing after each
// one so clients observe progress as it happens.
type ndjsonWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	enc     *json.Encoder
}

// newNDJSONWriter sets the streaming headers and returns a writer. The
// status code is committed immediately; stream errors after this point are
// reported as in-band JSON lines.
func newNDJSONWriter(w http.ResponseWriter) *ndjsonWriter {
	w.Header().Set("Content-Type", "application/x-ndjson; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	nw := &ndjsonWriter{w: w, enc: json.NewEncoder(w)}
	if f, ok := w.(http.Flusher); ok {
		nw.flusher = f
	}
	return nw
}

// Send writes one JSON line and flushes it.
func (nw *ndjsonWriter) Send(v any) error {
	if err := nw.enc.Encode(v); err != nil {
		return err
	}
	if nw.flusher != nil {
		nw.flusher.Flush()
	}
	return nil
}
