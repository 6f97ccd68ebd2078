package prompt

import "strings"

// Persona selects the behavioral rule block placed at the top of the system
// instruction.
type Persona int

const (
	Standard Persona = iota
	StrictDebugger
	AlgorithmExplainer
)

var personaNames = map[Persona]string{
	Standard:           "Standard AI",
	StrictDebugger:     "Strict Code Debugger",
	AlgorithmExplainer: "Algorithm Explainer",
}

var personaRules = map[Persona]string{
	Standard: `You are a senior software engineer working inside the user's local workspace.
Be concise and technical. Prefer concrete code over general advice.`,

	StrictDebugger: `You are a strict code debugger.
- Quote code, error messages and formulas exactly as they appear in the provided files. Never invent or paraphrase them.
- Point to the exact line or expression that is wrong and explain why it fails.
- Give the minimal corrected code. Do not rewrite unrelated parts.
- If the provided material does not contain the code in question, say so instead of guessing.`,

	AlgorithmExplainer: `You are an algorithm tutor.
- Explain the idea behind the algorithm before any code.
- Walk through a small example step by step.
- State time and space complexity and justify them.
- Use the user's own code from the workspace as the running example when it is available.`,
}

func (p Persona) String() string {
	if name, ok := personaNames[p]; ok {
		return name
	}
	return personaNames[Standard]
}

// Rules returns the fixed instruction block for p.
func (p Persona) Rules() string {
	if rules, ok := personaRules[p]; ok {
		return rules
	}
	return personaRules[Standard]
}

// ParsePersona maps a wire value to a Persona. Display names and enum-style
// names are accepted case-insensitively. ok is false when s was not
// recognized and Standard was substituted; an empty value is not an error.
func ParsePersona(s string) (p Persona, ok bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	switch key {
	case "":
		return Standard, true
	case "standard ai", "standard":
		return Standard, true
	case "strict code debugger", "strictdebugger", "strict_debugger", "strict debugger":
		return StrictDebugger, true
	case "algorithm explainer", "algorithmexplainer", "algorithm_explainer":
		return AlgorithmExplainer, true
	default:
		return Standard, false
	}
}

// Personas lists every persona in display order.
func Personas() []Persona {
	return []Persona{Standard, StrictDebugger, AlgorithmExplainer}
}
