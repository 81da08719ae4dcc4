package query

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/academia/portal/core"
)

var (
	uniqueAliasTag  = "uniquealias"
	uniqueAliasText = "include aliases must be unique among siblings"
)

// InitValidators registers the descriptor validations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(dataNodeStructValidation, DataNode{})
	core.RegisterCustomTranslation(validate, translator, uniqueAliasTag, uniqueAliasText)
}

// dataNodeStructValidation checks that sibling includes don't reuse an alias.
func dataNodeStructValidation(sl validator.StructLevel) {
	node, ok := sl.Current().Interface().(DataNode)
	if !ok {
		return
	}
	seen := make(map[string]bool, len(node.Include))
	for _, child := range node.Include {
		if child == nil {
			continue
		}
		alias := child.As
		if alias == "" {
			alias = child.Datasource
		}
		if seen[alias] {
			sl.ReportError(node.Include, "include", "Include", uniqueAliasTag, "")
			return
		}
		seen[alias] = true
	}
}

// Validate checks d and clamps its limit to maxLimit (when > 0).
func Validate(validate *validator.Validate, d *Descriptor, maxLimit int) error {
	if err := validate.Struct(d); err != nil {
		return err
	}
	if maxLimit > 0 && d.Limit > maxLimit {
		d.Limit = maxLimit
	}
	return nil
}
