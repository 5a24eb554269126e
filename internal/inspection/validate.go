package inspection

import (
	"errors"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"car-inspection-api-server/internal/models"
)

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

	enums := map[string][]string{
		"overall_condition": {
			models.ConditionExcellent, models.ConditionVeryGood, models.ConditionGood,
			models.ConditionFair, models.ConditionPoor,
		},
		"recommendation": {
			models.RecommendationHighly, models.RecommendationRecommended,
			models.RecommendationWithRepairs, models.RecommendationNot,
		},
		"checkpoint_status": {
			models.CheckpointPass, models.CheckpointFail, models.CheckpointWarning, models.CheckpointNotChecked,
		},
		"severity":            {"minor", "moderate", "major", "critical"},
		"repair_urgency":      {"immediate", "soon", "monitor", "optional"},
		"part_category":       models.PartCategories,
		"part_condition":      models.PartConditions,
		"part_recommendation": models.PartRecommendations,
	}
	for tag, allowed := range enums {
		allowed := allowed
		// registration only fails on an empty tag or nil func
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return slices.Contains(allowed, fl.Field().String())
		})
	}
	return v
}

// validateStruct runs the struct tags and flattens failures into a
// ValidationError keyed by JSON path.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fieldPath(fe)] = describe(fe)
	}
	return out
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	default:
		return "has an invalid value"
	}
}
