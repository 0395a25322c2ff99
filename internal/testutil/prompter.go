package testutil

import "sync"

// ScriptedPrompter answers confirmations from a fixed script and records
// everything it was asked.
type ScriptedPrompter struct {
	mu        sync.Mutex
	answers   []bool
	Questions []string
	Messages  []string
	Err       error
}

// NewScriptedPrompter answers Confirm calls with answers in order; once
// they run out every further question is answered with no.
func NewScriptedPrompter(answers ...bool) *ScriptedPrompter {
	return &ScriptedPrompter{answers: answers}
}

// Confirm implements pieces.Prompter.
func (p *ScriptedPrompter) Confirm(question string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Questions = append(p.Questions, question)
	if p.Err != nil {
		return false, p.Err
	}
	if len(p.answers) == 0 {
		return false, nil
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	return answer, nil
}

// WaitForEnter implements pieces.Prompter.
func (p *ScriptedPrompter) WaitForEnter(message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Messages = append(p.Messages, message)
	return p.Err
}
