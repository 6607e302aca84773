package workflow

import "time"

// TerminalMetadata is the schema for the final 004-metadata.json lineage
// artifact (spec.md §4.5 N5_Finalize; SPEC_FULL.md §12, "Metadata artifact
// contents"). The spec names the artifact but leaves its fields open; this
// is the concrete shape produced here.
type TerminalMetadata struct {
	ThreadID        string  `json:"thread_id"`
	Terminal        string  `json:"terminal"`
	ReviewRounds    int     `json:"review_rounds"`
	FiledNumber     int     `json:"filed_number,omitempty"`
	FiledURL        string  `json:"filed_url,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func newTerminalMetadata(st *State) TerminalMetadata {
	return TerminalMetadata{
		ThreadID:        st.ThreadID,
		Terminal:        st.Terminal,
		ReviewRounds:    st.VerdictCount,
		FiledNumber:     st.FiledNumber,
		FiledURL:        st.FiledURL,
		DurationSeconds: time.Since(st.StartedAt).Seconds(),
	}
}
