package models

// AnswerSnapshot is the flat field name to value state of the answers for
// the page in view.
type AnswerSnapshot map[string]string

// RawFieldValues is the unfiltered form state handed over by the UI layer.
type RawFieldValues map[string]string

// PreflightData holds extra fields (password, access rule answers) required
// before an attempt can start or resume.
type PreflightData map[string]string

// Differs compares two snapshots key by key. Values are compared as plain
// strings, nothing is parsed.
func (s AnswerSnapshot) Differs(other AnswerSnapshot) bool {
	if len(s) != len(other) {
		return true
	}
	for k, v := range s {
		ov, ok := other[k]
		if !ok || ov != v {
			return true
		}
	}
	return false
}

func (s AnswerSnapshot) Clone() AnswerSnapshot {
	out := make(AnswerSnapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// ExtractAnswers keeps the raw fields bound to answerable questions on the
// page. Blocked questions contribute nothing.
func ExtractAnswers(page PageContent, raw RawFieldValues) AnswerSnapshot {
	answers := make(AnswerSnapshot)
	for _, q := range page.Questions {
		if q.Blocked || q.Type == QuestionTypeDescription {
			continue
		}
		for _, field := range q.Fields {
			if v, ok := raw[field]; ok {
				answers[field] = v
			}
		}
	}
	return answers
}

// Merge copies every key of more into p, overwriting existing values.
func (p PreflightData) Merge(more PreflightData) PreflightData {
	if p == nil {
		p = make(PreflightData, len(more))
	}
	for k, v := range more {
		p[k] = v
	}
	return p
}

// Missing returns the names in required that have no non-empty value.
func (p PreflightData) Missing(required []string) []string {
	var missing []string
	for _, name := range required {
		if p[name] == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

func (p PreflightData) Clone() PreflightData {
	out := make(PreflightData, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
