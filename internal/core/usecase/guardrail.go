package usecase

import (
	"fmt"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
)

// Guardrail is the policy gate in front of destructive tool execution. A
// destructive tool's underlying effect runs only when its call carries an
// explicit confirmed=true argument; otherwise the orchestrator feeds the
// refusal back into the conversation as if it were the tool's own result.
// A refusal is a policy decision, not an error: the loop continues.
type Guardrail struct{}

func NewGuardrail() *Guardrail {
	return &Guardrail{}
}

// Check returns the refusal text and true when the call must not reach the
// connector.
func (g *Guardrail) Check(desc domain.ToolDescriptor, args domain.ToolArguments) (string, bool) {
	if !desc.Destructive || args.Confirmed() {
		return "", false
	}
	return refusalMessage(desc), true
}

// refusalMessage names the tool, describes its effect, and instructs the
// model on exactly two next actions. The phrasing is part of the interface:
// the model's behavior relies on it.
func refusalMessage(desc domain.ToolDescriptor) string {
	effect := desc.Effect
	if effect == "" {
		effect = desc.Description
	}
	return fmt.Sprintf(
		"Safety guardrail: the tool %q was not executed. This action would %s, which is hard to undo. "+
			"Either ask the user to confirm this action, or, if the user has already confirmed, "+
			"call the tool again with confirmed=true.",
		desc.Name, effect)
}
