package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/voicerelay/voicerelay/pkg/core/types"
	"github.com/voicerelay/voicerelay/pkg/gateway/billing"
	"github.com/voicerelay/voicerelay/pkg/gateway/languages"
)

func execute(t *testing.T, h Handler, rawArgs string) Result {
	t.Helper()
	reg, err := NewRegistry(h)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	res, err := reg.Execute(context.Background(), types.ToolCall{
		ID:        "call_1",
		Name:      h.Definition().Name,
		Arguments: rawArgs,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return res
}

func TestSwitchLanguageSupported(t *testing.T) {
	h := NewSwitchLanguage(languages.Default())

	res := execute(t, h, `{"targetLanguage":"spanish"}`)
	if res.Content != "Language switched to spanish" {
		t.Fatalf("content = %q", res.Content)
	}
	if res.Effect == nil || res.Effect.Kind != EffectSwitchLanguage {
		t.Fatalf("effect = %+v", res.Effect)
	}
	if res.Effect.TTSLanguage != "es-US" || res.Effect.TranscriptionLanguage != "es-US" {
		t.Fatalf("effect locales = %+v", res.Effect)
	}
}

func TestSwitchLanguageUnsupported(t *testing.T) {
	h := NewSwitchLanguage(languages.Default())

	res := execute(t, h, `{"targetLanguage":"klingon"}`)
	if res.Content != "Language not supported" {
		t.Fatalf("content = %q", res.Content)
	}
	if res.Effect != nil {
		t.Fatalf("unsupported language produced an effect: %+v", res.Effect)
	}
}

func TestCollectPhoneNumberArmsCollector(t *testing.T) {
	res := execute(t, CollectPhoneNumber{}, `{}`)
	if res.Content != "Please prompt the caller to say or input their phone number" {
		t.Fatalf("content = %q", res.Content)
	}
	if res.Effect == nil || res.Effect.Kind != EffectCollectDigits || res.Effect.CollectMode != "phone_number" {
		t.Fatalf("effect = %+v", res.Effect)
	}
}

func TestHumanAgentHandoff(t *testing.T) {
	res := execute(t, HumanAgentHandoff{}, `{"reason":"user-requested","context":"billing dispute"}`)
	want := "The call has been handed off to a human agent. Reason: user-requested. Context: billing dispute"
	if res.Content != want {
		t.Fatalf("content = %q", res.Content)
	}
	if res.Effect == nil || res.Effect.Kind != EffectHandoff {
		t.Fatalf("effect = %+v", res.Effect)
	}

	var payload map[string]string
	if err := json.Unmarshal([]byte(res.Effect.HandoffData), &payload); err != nil {
		t.Fatalf("handoff data is not JSON: %v", err)
	}
	if payload["reasonCode"] != "live-agent-handoff" || payload["reason"] != "user-requested" {
		t.Fatalf("handoff payload = %v", payload)
	}
}

func TestVerifyUserIdentity(t *testing.T) {
	dir := billing.NewMemoryDirectory()
	h := NewVerifyUserIdentity(dir)

	res := execute(t, h, `{"firstName":"John","lastName":"Doe","DOB":"1985-04-12"}`)
	var out struct {
		UserID   *string `json:"userId"`
		Verified bool    `json:"verified"`
	}
	if err := json.Unmarshal([]byte(res.Content), &out); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if !out.Verified || out.UserID == nil || *out.UserID != "user_001" {
		t.Fatalf("result = %+v", out)
	}

	res = execute(t, h, `{"firstName":"Jane","lastName":"Doe","DOB":"1985-04-12"}`)
	if err := json.Unmarshal([]byte(res.Content), &out); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if out.Verified || out.UserID != nil {
		t.Fatalf("mismatched identity verified: %+v", out)
	}
}

func TestCheckPendingBill(t *testing.T) {
	h := NewCheckPendingBill(billing.NewMemoryDirectory())

	res := execute(t, h, `{"userId":"user_001"}`)
	if !strings.Contains(res.Content, `"userId":"user_001"`) || !strings.Contains(res.Content, "245.5") {
		t.Fatalf("content = %q", res.Content)
	}

	res = execute(t, h, `{"userId":"user_404"}`)
	if res.Content != "No pending bill found." {
		t.Fatalf("content = %q", res.Content)
	}
}

func TestCheckHSAAccount(t *testing.T) {
	h := NewCheckHSAAccount(billing.NewMemoryDirectory())

	res := execute(t, h, `{"userId":"user_002"}`)
	if !strings.Contains(res.Content, "350") {
		t.Fatalf("content = %q", res.Content)
	}

	res = execute(t, h, `{"userId":"user_404"}`)
	if res.Content != "No HSA account found." {
		t.Fatalf("content = %q", res.Content)
	}
}

func TestCheckPaymentOptions(t *testing.T) {
	h := NewCheckPaymentOptions(billing.NewMemoryDirectory(), "")

	res := execute(t, h, `{"userId":"user_001","hsaAccountBalance":1200,"balance":245.5}`)
	if !strings.Contains(res.Content, "[HSA Account]") {
		t.Fatalf("covered bill: content = %q", res.Content)
	}

	res = execute(t, h, `{"userId":"user_002","hsaAccountBalance":350,"balance":1880}`)
	if !strings.Contains(res.Content, "Payment Plan") {
		t.Fatalf("uncovered bill: content = %q", res.Content)
	}
}

func TestSearchCommonMedicalTermsGlossary(t *testing.T) {
	h := NewSearchCommonMedicalTerms(nil)

	res := execute(t, h, `{"inquiry":"DEDUCTIBLE"}`)
	if !strings.Contains(res.Content, "Deductible is the amount") {
		t.Fatalf("content = %q", res.Content)
	}

	// Case-insensitive lookup.
	res = execute(t, h, `{"inquiry":"copay"}`)
	if !strings.Contains(res.Content, "copay is a fixed amount") {
		t.Fatalf("content = %q", res.Content)
	}
}

func TestSearchCommonMedicalTermsInvalidInquiry(t *testing.T) {
	reg, err := NewRegistry(NewSearchCommonMedicalTerms(nil))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	_, err = reg.Execute(context.Background(), types.ToolCall{
		Name:      "search_common_medical_terms",
		Arguments: `{"inquiry":"INVALID"}`,
	})
	if err == nil || err.Error() != "Invalid inquiry type" {
		t.Fatalf("err = %v", err)
	}
}

func TestRegistryUnknownTool(t *testing.T) {
	reg, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if _, err := reg.Execute(context.Background(), types.ToolCall{Name: "nope"}); err == nil {
		t.Fatalf("expected error for unregistered tool")
	}
}

func TestRegistryMalformedArgumentsStillDispatch(t *testing.T) {
	res := execute(t, HumanAgentHandoff{}, `{not json`)
	if !strings.Contains(res.Content, "Reason: . Context: ") {
		t.Fatalf("content = %q", res.Content)
	}
}

func TestCatalogueDefinitionsOrder(t *testing.T) {
	reg, err := NewCatalogue(languages.Default(), billing.NewMemoryDirectory(), nil, "")
	if err != nil {
		t.Fatalf("NewCatalogue: %v", err)
	}

	defs := reg.Definitions()
	want := []string{
		"switch_language",
		"verify_user_identity",
		"check_pending_bill",
		"search_common_medical_terms",
		"check_hsa_account",
		"check_payment_options",
		"human_agent_handoff",
		"collect_phone_number",
	}
	if len(defs) != len(want) {
		t.Fatalf("catalogue has %d tools, want %d", len(defs), len(want))
	}
	for i, name := range want {
		if defs[i].Name != name {
			t.Fatalf("defs[%d] = %q, want %q", i, defs[i].Name, name)
		}
	}
}
