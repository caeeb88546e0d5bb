package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks struct tags and the rules tags cannot express
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	seen := make(map[string]bool, len(cfg.Roots))
	for i, root := range cfg.Roots {
		if seen[root] {
			return fmt.Errorf("roots[%d]: duplicate root %q", i, root)
		}
		seen[root] = true
	}
	if cfg.Reconcile.Window > 0 && cfg.Reconcile.Window < cfg.Reconcile.Interval {
		return fmt.Errorf("reconcile.window (%s) must not be shorter than reconcile.interval (%s)",
			cfg.Reconcile.Window, cfg.Reconcile.Interval)
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		e := verrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
