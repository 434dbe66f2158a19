package tools

import (
	"github.com/voicerelay/voicerelay/pkg/gateway/billing"
	"github.com/voicerelay/voicerelay/pkg/gateway/languages"
	"github.com/voicerelay/voicerelay/pkg/knowledge"
)

// NewCatalogue assembles the full tool set for a healthcare reception
// line. store may be nil to run without the knowledge base; stripeAPIKey
// may be empty to skip the Stripe invoice lookup.
func NewCatalogue(table *languages.Table, directory billing.Directory, store *knowledge.Store, stripeAPIKey string) (*Registry, error) {
	return NewRegistry(
		NewSwitchLanguage(table),
		NewVerifyUserIdentity(directory),
		NewCheckPendingBill(directory),
		NewSearchCommonMedicalTerms(store),
		NewCheckHSAAccount(directory),
		NewCheckPaymentOptions(directory, stripeAPIKey),
		HumanAgentHandoff{},
		CollectPhoneNumber{},
	)
}
