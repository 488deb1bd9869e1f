package progress

import "strings"

// Phase is a pipeline step. Anything outside the known set parses to
// PhaseUnknown.
type Phase string

const (
	PhaseValidation   Phase = "validation"
	PhaseDownload     Phase = "download"
	PhaseOCR          Phase = "ocr"
	PhaseAIExtraction Phase = "ai_extraction"
	PhaseLoading      Phase = "loading"
	PhaseGenerating   Phase = "generating"
	PhaseFallback     Phase = "fallback"
	PhaseSaving       Phase = "saving"
	PhaseCompleted    Phase = "completed"
	PhaseFailed       Phase = "failed"
	PhaseUnknown      Phase = "unknown"
)

var phaseProgress = map[Phase]int{
	PhaseValidation:   10,
	PhaseDownload:     20,
	PhaseOCR:          40,
	PhaseAIExtraction: 70,
	PhaseLoading:      15,
	PhaseGenerating:   50,
	PhaseFallback:     60,
	PhaseSaving:       90,
	PhaseCompleted:    100,
	PhaseFailed:       100,
}

func ParsePhase(s string) Phase {
	p := Phase(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := phaseProgress[p]; ok {
		return p
	}
	return PhaseUnknown
}

// Known reports whether p has an entry in the progress table.
func (p Phase) Known() bool {
	_, ok := phaseProgress[p]
	return ok
}

// Terminal reports completed or failed.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// Progress returns the 0-100 percentage for p; unknown phases map to 0.
func Progress(p Phase) int {
	return phaseProgress[p]
}
