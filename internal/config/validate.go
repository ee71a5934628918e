package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Veraticus/mileage-audit/internal/common"
	"github.com/Veraticus/mileage-audit/internal/detect"
	"github.com/Veraticus/mileage-audit/internal/model"
)

// requiredRetain are the fields later stages read after normalization.
var requiredRetain = []model.Field{
	model.FieldClaimID,
	model.FieldEmployeeID,
	model.FieldSubmittedDate,
	model.FieldMilesClaimed,
	model.FieldTotalMileage,
	model.FieldCommuteMileage,
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks cfg. Every error wraps common.ErrInvalidConfig.
func Validate(cfg *Config) error {
	if err := newValidator().Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, len(fieldErrs))
			for i, fe := range fieldErrs {
				msgs[i] = formatFieldError(fe)
			}
			return fmt.Errorf("%w: %s", common.ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	if err := cfg.Columns.Validate(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	if err := validateNormalize(cfg); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	if cfg.Sanity.MinPaidMiles >= cfg.Sanity.MaxTotalMiles {
		return fmt.Errorf("%w: sanity.min_paid_miles must be below sanity.max_total_miles", common.ErrInvalidConfig)
	}
	return detect.ValidateFeatures(cfg.Features)
}

func validateNormalize(cfg *Config) error {
	retain := make(map[model.Field]bool, len(cfg.Normalize.Retain))
	for _, f := range cfg.Normalize.Retain {
		if !f.IsRetainable() {
			return fmt.Errorf("normalize.retain: %q cannot be retained", f)
		}
		retain[f] = true
	}
	for _, f := range requiredRetain {
		if !retain[f] {
			return fmt.Errorf("normalize.retain must include %s", f)
		}
	}

	dates := make(map[model.Field]bool, len(cfg.Normalize.Dates))
	for _, f := range cfg.Normalize.Dates {
		if !f.IsDate() {
			return fmt.Errorf("normalize.dates: %q is not a date field", f)
		}
		if !retain[f] {
			return fmt.Errorf("normalize.dates: %s is not retained", f)
		}
		dates[f] = true
	}
	for f := range retain {
		if f.IsDate() && !dates[f] {
			return fmt.Errorf("normalize.dates must include retained date field %s", f)
		}
	}
	return nil
}

func formatFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gt", "gte", "lt", "lte":
		return fmt.Sprintf("%s must be %s %s, got %v", field, fe.Tag(), fe.Param(), fe.Value())
	case "len":
		return fmt.Sprintf("%s must have length %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
