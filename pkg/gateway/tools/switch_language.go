package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/voicerelay/voicerelay/pkg/core/types"
	"github.com/voicerelay/voicerelay/pkg/gateway/languages"
)

// SwitchLanguage changes the caller's conversation language. The model
// names the target language; the effect carries the locale to push to the
// media layer.
type SwitchLanguage struct {
	table *languages.Table
}

func NewSwitchLanguage(table *languages.Table) *SwitchLanguage {
	return &SwitchLanguage{table: table}
}

func (t *SwitchLanguage) Definition() types.ToolDefinition {
	names := t.table.Names()
	return types.ToolDefinition{
		Name:        "switch_language",
		Description: "Switch the language of the conversation",
		Parameters: types.ObjectSchema(map[string]*types.Schema{
			"targetLanguage": types.StringProp(fmt.Sprintf(
				`The target language to switch to. SHOULD BE ONE OF THE FOLLOWING: ["%s"]`,
				strings.Join(names, `","`))),
		}, "targetLanguage"),
	}
}

func (t *SwitchLanguage) Execute(_ context.Context, args Arguments) (Result, error) {
	target := args.String("targetLanguage")
	opt, ok := t.table.Lookup(target)
	if !ok {
		return Result{Content: "Language not supported"}, nil
	}
	return Result{
		Content: fmt.Sprintf("Language switched to %s", target),
		Effect: &Effect{
			Kind:                  EffectSwitchLanguage,
			TTSLanguage:           opt.LocaleCode,
			TranscriptionLanguage: opt.LocaleCode,
		},
	}, nil
}
