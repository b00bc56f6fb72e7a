// Package validation validates request bodies and user input.
//
// Struct tag validation uses go-playground/validator and reports fields
// by their JSON names:
//
//	type refreshRequest struct {
//	    RefreshToken string `json:"refreshToken" validate:"required"`
//	}
//	if err := validation.Validate(req); err != nil { ... }
//
// Programmatic validation collects errors fluently:
//
//	v := validation.New().Required("email", email).Email("email", email)
//	if appErr := v.Validate(); appErr != nil { ... }
//
// Both return *errors.AppError; a single missing field is reported as
// MISSING_FIELD, anything else as INVALID_INPUT with per-field details.
package validation
