package config

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validator10() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks every struct tag constraint on RenderEngineOptions,
// returning a single aggregated error when any field is out of bounds.
func (o RenderEngineOptions) Validate() error {
	if err := validator10().Struct(o); err != nil {
		return fmt.Errorf("invalid render engine options: %w", err)
	}
	return nil
}
