package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/domain"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// problem is a simplified RFC 7807 body. Type carries the error kind.
type problem struct {
	Type    string         `json:"type"`
	Title   string         `json:"title"`
	Status  int            `json:"status"`
	Detail  string         `json:"detail"`
	Context map[string]any `json:"context,omitempty"`
}

func writeProblem(w http.ResponseWriter, code int, typ, detail string, ctx map[string]any) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(problem{
		Type:    typ,
		Title:   http.StatusText(code),
		Status:  code,
		Detail:  detail,
		Context: ctx,
	})
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidOrderRequest, domain.KindInvalidOrderKind:
		return http.StatusBadRequest
	case domain.KindMenuItemNotFound, domain.KindMenuItemUnavailable, domain.KindCustomerNotFound,
		domain.KindInsufficientPayment:
		return http.StatusUnprocessableEntity
	case domain.KindOrderNotFound, domain.KindTableNotFound, domain.KindIngredientNotFound:
		return http.StatusNotFound
	case domain.KindInvalidStatusTransition, domain.KindInsufficientStock, domain.KindTableUnavailable,
		domain.KindOrderNotCompleted, domain.KindPaymentRequired, domain.KindConflict:
		return http.StatusConflict
	case domain.KindStorageTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// writeError maps a service error to a problem response. Unknown errors are logged and hidden.
func writeError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	var derr *domain.Error
	if !errors.As(err, &derr) {
		log.Ctx(r.Context()).Error("request_failed", err, map[string]any{"path": r.URL.Path, "method": r.Method})
		writeProblem(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
		return
	}
	ctx := make(map[string]any, len(derr.Fields))
	for k, v := range derr.Fields {
		if s, ok := v.(interface{ String() string }); ok {
			ctx[k] = s.String()
			continue
		}
		ctx[k] = v
	}
	detail := derr.Message
	if detail == "" {
		detail = string(derr.Kind)
	}
	writeProblem(w, statusFor(derr.Kind), string(derr.Kind), detail, ctx)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.InvalidOrderRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

func atoiDefault(s string, d int) int {
	if s == "" {
		return d
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return n
}
