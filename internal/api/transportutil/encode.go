package transportutil

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"
)

func EncodeError(ctx context.Context, err error, w http.ResponseWriter) {
	httpErr := MakeError(err)
	if httpErr.HTTPCode >= http.StatusInternalServerError {
		if log := RequestContextLogger(ctx); log != nil {
			log.Errorf("Request failed: %s", err)
		}
	}

	w.Header().Add("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(httpErr.HTTPCode)

	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: httpErr,
	})
}

// EncodeResponse writes a JSON response. A nil response is an empty 200.
func EncodeResponse(_ context.Context, w http.ResponseWriter, resp interface{}) error {
	if isNil(resp) {
		w.WriteHeader(http.StatusOK)
		return nil
	}

	w.Header().Add("Content-Type", "application/json; charset=UTF-8")
	return json.NewEncoder(w).Encode(resp)
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}
