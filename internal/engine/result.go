package engine

// CascadeResult is the outcome of a completed Run.
//
// The engine never touches a CascadeResult after returning it.
type CascadeResult struct {
	Folders      TierResult
	Macros       TierResult
	Instructions TierResult

	// SkippedMacros counts macros whose folder has no id in the target.
	SkippedMacros int

	// SkippedInstructions counts instructions whose macro has no id in
	// the target after the macro tier.
	SkippedInstructions int

	FolderIndex      *Index
	MacroIndex       *Index
	InstructionIndex *Index
}

// Tiers returns the per-tier results in dependency order.
func (r *CascadeResult) Tiers() []TierResult {
	return []TierResult{r.Folders, r.Macros, r.Instructions}
}

// Failed reports whether any payload was refused or any record skipped.
func (r *CascadeResult) Failed() bool {
	for _, t := range r.Tiers() {
		if t.Failed() > 0 {
			return true
		}
	}
	return r.SkippedMacros > 0 || r.SkippedInstructions > 0
}

// Summary is the deploy summary reported to the user.
//
// A tier's attempted/successful pair is omitted when the tier attempted
// no inserts.
type Summary struct {
	AttemptedFolderInserts            *int `json:"attemptedFolderInserts,omitempty"`
	SuccessfulFolderInserts           *int `json:"successfulFolderInserts,omitempty"`
	AttemptedMacroInserts             *int `json:"attemptedMacroInserts,omitempty"`
	SuccessfulMacroInserts            *int `json:"successfulMacroInserts,omitempty"`
	AttemptedMacroInstructionInserts  *int `json:"attemptedMacroInstructionInserts,omitempty"`
	SuccessfulMacroInstructionInserts *int `json:"successfulMacroInstructionInserts,omitempty"`
}

// Summary builds the deploy summary.
func (r *CascadeResult) Summary() Summary {
	var s Summary
	s.AttemptedFolderInserts, s.SuccessfulFolderInserts = pair(r.Folders)
	s.AttemptedMacroInserts, s.SuccessfulMacroInserts = pair(r.Macros)
	s.AttemptedMacroInstructionInserts, s.SuccessfulMacroInstructionInserts = pair(r.Instructions)
	return s
}

func pair(t TierResult) (*int, *int) {
	if t.Attempted == 0 {
		return nil, nil
	}
	attempted, succeeded := t.Attempted, t.Succeeded
	return &attempted, &succeeded
}
