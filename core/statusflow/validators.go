package statusflow

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/academia/portal/core"
)

var (
	uniqueStatusTag  = "uniquestatus"
	uniqueStatusText = "status names must be unique"

	knownStatusTag  = "knownstatus"
	knownStatusText = "transitions must connect declared statuses"
)

// InitValidators registers the status flow document validations.
// Interactive saves are not validated; these apply to imported flows.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(documentStructValidation, Document{})
	core.RegisterCustomTranslation(validate, translator, uniqueStatusTag, uniqueStatusText)
	core.RegisterCustomTranslation(validate, translator, knownStatusTag, knownStatusText)
}

func documentStructValidation(sl validator.StructLevel) {
	doc, ok := sl.Current().Interface().(Document)
	if !ok {
		return
	}

	names := make(map[string]bool, len(doc.PossibleStatus))
	for _, s := range doc.PossibleStatus {
		if names[s.Name] {
			sl.ReportError(doc.PossibleStatus, "possibleStatus", "PossibleStatus", uniqueStatusTag, "")
			break
		}
		names[s.Name] = true
	}

	for _, tr := range doc.PossibleStatusTransition {
		if !names[tr.From] || !names[tr.To] {
			sl.ReportError(doc.PossibleStatusTransition, "possibleStatusTransition", "PossibleStatusTransition", knownStatusTag, "")
			return
		}
	}
}
