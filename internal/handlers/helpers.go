package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"rental-backend/internal/apperrors"
	"rental-backend/internal/auth"
	"rental-backend/internal/middleware"
	"rental-backend/pkg/utils"
)

const maxJSONBody = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeJSON reads and validates a request body. On failure it has already written the response.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		var ae *apperrors.Error
		if errors.As(err, &ae) {
			utils.Error(w, ae)
			return false
		}
		utils.ErrorMessage(w, apperrors.KindValidation, "invalid request body: "+err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		utils.ErrorMessage(w, apperrors.KindValidation, validationMessage(err))
		return false
	}
	return true
}

// validationMessage turns validator errors into "field: rule" pairs
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, fmt.Sprintf("%s: %s", strings.ToLower(fe.Field()), rule))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// principal returns the authenticated caller or writes 401
func principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		utils.ErrorMessage(w, apperrors.KindUnauthorized, "authentication required")
	}
	return p, ok
}

// pathID parses a positive integer route variable or writes 404
func pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || id <= 0 {
		utils.ErrorMessage(w, apperrors.KindNotFound, "invalid "+name)
		return 0, false
	}
	return id, true
}

// queryInt parses an optional integer query parameter; missing means def
func queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		utils.ErrorMessage(w, apperrors.KindValidation, name+" must be an integer")
		return 0, false
	}
	return n, true
}
