package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sujinchoi3/my-todolist/internal/common"
	"github.com/sujinchoi3/my-todolist/internal/logging"
)

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Status  string              `json:"status"`
	Code    common.Code         `json:"code"`
	Message string              `json:"message"`
	Details []common.FieldError `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders domain errors as-is. Anything else is logged and
// hidden behind a generic 500.
func writeError(ctx context.Context, w http.ResponseWriter, l logging.Logger, err error) {
	var appErr *common.AppError
	if !errors.As(err, &appErr) {
		l.Error(ctx, "request failed", "error", err)
		appErr = common.ErrInternal
	}

	writeJSON(w, appErr.Status, errorBody{
		Status:  "error",
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	})
}
