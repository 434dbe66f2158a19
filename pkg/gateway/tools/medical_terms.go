package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/voicerelay/voicerelay/pkg/core/types"
	"github.com/voicerelay/voicerelay/pkg/knowledge"
)

var commonTerms = map[string]string{
	"DEDUCTIBLE":        "Deductible is the amount you pay for covered health care services before your insurance plan starts to pay.",
	"COPAY":             "A copay is a fixed amount you pay for a covered health care service after you've paid your deductible.",
	"HSA":               "A Health Savings Account (HSA) is a type of savings account that lets you set aside money on a pre-tax basis to pay for qualified medical expenses.",
	"OUT_OF_POCKET_MAX": "The most you have to pay for covered services in a plan year.",
}

// SearchCommonMedicalTerms answers benefits vocabulary questions from a
// built-in glossary. Inquiries outside the glossary fall through to the
// knowledge store when one is configured.
type SearchCommonMedicalTerms struct {
	store *knowledge.Store
}

// NewSearchCommonMedicalTerms builds the handler. store may be nil, in
// which case only the glossary is served.
func NewSearchCommonMedicalTerms(store *knowledge.Store) *SearchCommonMedicalTerms {
	return &SearchCommonMedicalTerms{store: store}
}

func (t *SearchCommonMedicalTerms) Definition() types.ToolDefinition {
	return types.ToolDefinition{
		Name:        "search_common_medical_terms",
		Description: "Check knowledge base for medical terms",
		Parameters: types.ObjectSchema(map[string]*types.Schema{
			"inquiry": types.StringProp(`The term to search for SHOULD BE ONE OF THE FOLLOWING: ["DEDUCTIBLE","COPAY","HSA","OUT_OF_POCKET_MAX"]`),
		}, "inquiry"),
	}
}

func (t *SearchCommonMedicalTerms) Execute(ctx context.Context, args Arguments) (Result, error) {
	inquiry := strings.TrimSpace(args.String("inquiry"))

	if definition, ok := commonTerms[strings.ToUpper(inquiry)]; ok {
		return Result{Content: definition}, nil
	}

	if t.store != nil && t.store.Len() > 0 && inquiry != "" {
		hits, err := t.store.Search(ctx, inquiry, 1)
		if err == nil && len(hits) > 0 {
			return Result{Content: hits[0].Document.Text}, nil
		}
	}

	return Result{}, errors.New("Invalid inquiry type")
}
