package scoring

import "sort"

// QuestionRef identifies a question and the unit it belongs to.
type QuestionRef struct {
	QuestionID string
	UnitID     string
}

// ResolutionRef is one historical resolution record of a learner.
type ResolutionRef struct {
	QuestionID string
	Correct    bool
}

// UnitProgress aggregates a learner's history over one subject unit.
type UnitProgress struct {
	UnitID       string
	Total        int
	Attempted    int
	Correct      int
	AttemptedPct float64
	CorrectPct   float64
}

// SubjectProgress groups questions by unit and counts, per unit, how many
// the learner has attempted and how many they have ever answered correctly.
// Resolutions for questions outside the given set are ignored. Results are
// ordered by unit ID.
func SubjectProgress(questions []QuestionRef, resolutions []ResolutionRef) []UnitProgress {
	type history struct {
		attempted bool
		correct   bool
	}
	seen := make(map[string]*history, len(resolutions))
	for _, r := range resolutions {
		h, ok := seen[r.QuestionID]
		if !ok {
			h = &history{}
			seen[r.QuestionID] = h
		}
		h.attempted = true
		// once correct, always correct
		h.correct = h.correct || r.Correct
	}

	byUnit := make(map[string]*UnitProgress)
	counted := make(map[string]bool, len(questions))
	for _, q := range questions {
		if counted[q.QuestionID] {
			continue
		}
		counted[q.QuestionID] = true

		p, ok := byUnit[q.UnitID]
		if !ok {
			p = &UnitProgress{UnitID: q.UnitID}
			byUnit[q.UnitID] = p
		}
		p.Total++
		if h, ok := seen[q.QuestionID]; ok {
			p.Attempted++
			if h.correct {
				p.Correct++
			}
		}
	}

	out := make([]UnitProgress, 0, len(byUnit))
	for _, p := range byUnit {
		p.AttemptedPct = clampPct(Percentage(p.Attempted, p.Total))
		p.CorrectPct = clampPct(Percentage(p.Correct, p.Total))
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UnitID < out[j].UnitID })
	return out
}

func clampPct(v float64) float64 {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}
