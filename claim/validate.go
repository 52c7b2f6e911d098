package claim

import (
	"strings"

	"claimdesk/apperr"
	"claimdesk/catalog"
)

// User-facing validation messages, in the order rules are checked.
const (
	MsgMobileRequired  = "Mobile number is required"
	MsgMobileInvalid   = "Please enter a valid 10-digit mobile number"
	MsgAddressRequired = "Customer address is required"
	MsgIssueRequired   = "Issue description is required"
	MsgProductRequired = "Please select at least one product"
	MsgDocumentMissing = "Please upload a supporting document"
	MsgDocumentType    = "Supporting document must be a PDF, JPG or PNG file"
)

// ValidationError lists every rule a draft failed.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "claim: " + strings.Join(e.Problems, "; ")
}

// Kind classifies the error for apperr.KindOf.
func (e *ValidationError) Kind() apperr.Kind { return apperr.KindValidation }

// Validate checks the draft and reports all failing rules together.
func Validate(d Draft) error {
	var problems []string

	if p := mobileProblem(d.Mobile); p != "" {
		problems = append(problems, p)
	}
	if strings.TrimSpace(d.Address) == "" {
		problems = append(problems, MsgAddressRequired)
	}
	if strings.TrimSpace(d.Issue) == "" {
		problems = append(problems, MsgIssueRequired)
	}
	if len(nonBlank(d.Selected)) == 0 {
		problems = append(problems, MsgProductRequired)
	}
	switch {
	case d.Attachment == nil || len(d.Attachment.Data) == 0:
		problems = append(problems, MsgDocumentMissing)
	default:
		if _, ok := DocumentType(d.Attachment.Name); !ok {
			problems = append(problems, MsgDocumentType)
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

func mobileProblem(mobile string) string {
	mobile = strings.TrimSpace(mobile)
	switch {
	case mobile == "":
		return MsgMobileRequired
	case !catalog.ValidMobile(mobile):
		return MsgMobileInvalid
	default:
		return ""
	}
}

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
