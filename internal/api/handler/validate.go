package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kiranshivaraju/batchpulse/internal/api/response"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

const maxJSONBody = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("product", func(fl validator.FieldLevel) bool {
		return models.Product(fl.Field().String()).Valid()
	})
	v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := models.ParseClock(fl.Field().String())
		return err == nil
	})
	v.RegisterValidation("scope", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case models.ScopeRead, models.ScopeIngest, models.ScopeAnalyze, models.ScopeAdmin:
			return true
		}
		return false
	})
	return v
}

// decodeJSON decodes and validates the request body into dst, writing a 400
// on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return false
		}
		details := map[string][]string{}
		for _, fe := range verrs {
			details[fe.Field()] = append(details[fe.Field()], describe(fe))
		}
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Request validation failed", details)
		return false
	}
	return true
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "product":
		return fmt.Sprintf("%s must be one of %v", fe.Field(), models.Products)
	case "clock":
		return fe.Field() + " must be a time of day (HH:MM or HH:MM:SS)"
	case "scope":
		return fe.Field() + " must be read, ingest, analyze or admin"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param())
	case "min", "max", "gte", "lte":
		return fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
