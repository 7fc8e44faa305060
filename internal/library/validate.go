package library

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/storyshelf/internal/entities"
)

var validate = validator.New()

// ValidateMeta checks the field constraints of a MetaData record.
func ValidateMeta(meta *entities.MetaData) error {
	if meta == nil {
		return fmt.Errorf("%w: missing metadata", ErrInvalidMeta)
	}
	if err := validate.Struct(meta); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMeta, err)
	}
	return nil
}
