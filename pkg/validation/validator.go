package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// EngineConfig mirrors lsm.EngineOptions with struct tags so it can be
// loaded from YAML and validated before being converted to an
// lsm.EngineOptions.
type EngineConfig struct {
	MemtableCount         int     `yaml:"memtable_count" validate:"required,min=2"`
	MemtableCap           int     `yaml:"memtable_cap" validate:"required,min=1"`
	MemtableTombstoneCap  int     `yaml:"memtable_tombstone_cap" validate:"required,min=1"`
	ScaleFactor           int     `yaml:"scale_factor" validate:"required,min=2"`
	Policy                string  `yaml:"policy" validate:"required,oneof=LEVELING TIERING"`
	TombstoneMaxFraction  float64 `yaml:"tombstone_max_fraction" validate:"required,gt=0,lte=1"`
	BloomFPR              float64 `yaml:"bloom_fpr" validate:"required,gt=0,lt=1"`
	BloomK                int     `yaml:"bloom_k" validate:"gte=0"`
	SampleMode            string  `yaml:"sample_mode" validate:"required,oneof=UNIFORM WIRS"`
	DeleteMode            string  `yaml:"delete_mode" validate:"required,oneof=CANCEL TAG"`
	IndexKind             string  `yaml:"index_kind" validate:"required,oneof=ISAM SPLINE NONE"`
	IndexPageSize         int     `yaml:"index_page_size" validate:"required,min=1"`
	IndexMaxError         int     `yaml:"index_max_error" validate:"required,min=1"`
	Seed                  uint64  `yaml:"seed"`
}

// ValidateEngineConfig validates a loaded EngineConfig's struct tags, plus
// the cross-field constraints a single field tag can't express.
func ValidateEngineConfig(cfg *EngineConfig) error {
	if cfg == nil {
		return errors.New("engine config cannot be nil")
	}

	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if cfg.Policy == "TIERING" && cfg.MemtableCount < 2 {
		return fmt.Errorf("memtable_count: tiering requires at least 2 rotating memtables")
	}
	if cfg.IndexKind == "ISAM" && cfg.IndexPageSize < 2 {
		return fmt.Errorf("index_page_size: ISAM fanout requires a page size of at least 2")
	}

	return nil
}

// formatValidationError converts validator errors into a user-friendly
// message naming the first failing field.
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	for _, e := range validationErrs {
		field := e.Field()
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", field, param)
		case "lt":
			return fmt.Errorf("%s: must be less than %s", field, param)
		case "lte":
			return fmt.Errorf("%s: must be at most %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", field, param)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, tag)
		}
	}

	return err
}
