// Package validation checks plugin descriptors and configuration.
//
// Struct tag validation is backed by go-playground/validator and adds the
// "identifier" tag for output and kind names:
//
//	type Descriptor struct {
//	    Provides string `validate:"required,identifier"`
//	}
//	err := validation.ValidateStruct(d)
//
// Programmatic checks collect every failure before reporting:
//
//	v := validation.New()
//	v.Custom(len(deps) > 0, "depends_on", "needs at least one dependency")
//	err := v.Error()
package validation
