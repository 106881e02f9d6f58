package script

import (
	"fmt"
	"strings"
)

// Script is a YAML-mappable call script definition. The rendered text is
// handed opaquely to the conversation layer; the orchestrator never
// interprets it.
type Script struct {
	Name         string            `yaml:"name"          json:"name"`
	ClinicName   string            `yaml:"clinic_name"   json:"clinic_name"`
	AgentName    string            `yaml:"agent_name"    json:"agent_name"`
	Guardrail    string            `yaml:"guardrail"     json:"guardrail"`
	Tone         Tone              `yaml:"tone"          json:"tone"`
	Stages       []Stage           `yaml:"stages"        json:"stages"`
	FormDefaults map[string]string `yaml:"form_defaults" json:"form_defaults,omitempty"`
}

// Tone describes the agent's conversational register.
type Tone struct {
	Style string `yaml:"style" json:"style"`
	Avoid string `yaml:"avoid" json:"avoid,omitempty"`
}

// Stage is one scripted step: a line to speak, or a tool the
// conversation layer should invoke at that point.
type Stage struct {
	Name      string            `yaml:"name"      json:"name,omitempty"`
	Speaker   string            `yaml:"speaker"   json:"speaker,omitempty"`
	Condition string            `yaml:"condition" json:"condition,omitempty"`
	Text      string            `yaml:"text"      json:"text,omitempty"`
	Tool      string            `yaml:"tool"      json:"tool,omitempty"`
	Params    map[string]string `yaml:"params"    json:"params,omitempty"`
}

// Validate checks the script definition for consistency.
func (s *Script) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("script: name is required")
	}
	if len(s.Stages) == 0 {
		return fmt.Errorf("script %q: at least one stage is required", s.Name)
	}
	for i, st := range s.Stages {
		if st.Text == "" && st.Tool == "" {
			return fmt.Errorf("script %q stage %d: text or tool is required", s.Name, i)
		}
	}
	return nil
}

// Instructions renders the full instruction document for one call,
// expanding placeholders from the form data merged over FormDefaults.
func (s *Script) Instructions(form map[string]string) (string, error) {
	vars := make(map[string]string, len(s.FormDefaults)+len(form)+2)
	vars["clinic_name"] = s.ClinicName
	vars["agent_name"] = s.AgentName
	for k, v := range s.FormDefaults {
		vars[k] = v
	}
	for k, v := range form {
		vars[k] = v
	}

	var b strings.Builder
	fmt.Fprintf(&b, "script: %s\n", s.Name)
	fmt.Fprintf(&b, "clinic: %s\n", s.ClinicName)
	fmt.Fprintf(&b, "agent: %s\n", s.AgentName)
	if s.Guardrail != "" {
		fmt.Fprintf(&b, "guardrail: %s\n", s.Guardrail)
	}
	if s.Tone.Style != "" {
		fmt.Fprintf(&b, "tone: %s", s.Tone.Style)
		if s.Tone.Avoid != "" {
			fmt.Fprintf(&b, " (avoid: %s)", s.Tone.Avoid)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for i, st := range s.Stages {
		if st.Condition != "" {
			fmt.Fprintf(&b, "[%d] if %s:\n", i+1, st.Condition)
		} else {
			fmt.Fprintf(&b, "[%d]\n", i+1)
		}
		if st.Text != "" {
			text, err := RenderText(st.Text, vars)
			if err != nil {
				return "", fmt.Errorf("script %q stage %d: %w", s.Name, i, err)
			}
			speaker := st.Speaker
			if speaker == "" {
				speaker = s.AgentName
			}
			fmt.Fprintf(&b, "%s: %s\n", speaker, text)
		}
		if st.Tool != "" {
			fmt.Fprintf(&b, "invoke tool: %s", st.Tool)
			if len(st.Params) > 0 {
				fmt.Fprintf(&b, " %v", st.Params)
			}
			b.WriteString("\n")
		}
	}

	return b.String(), nil
}
