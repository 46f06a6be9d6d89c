package pipeline

// Job describes one video-report request. Every event in the pipeline
// carries it forward unchanged.
type Job struct {
	URL string `json:"url"`

	// Force discards cached stage outputs.
	Force bool `json:"force,omitempty"`

	// Provider names the analysis backend (e.g. "ollama", "openai").
	Provider string `json:"provider,omitempty"`

	// Language is the requested report language. Empty means the
	// transcript's language.
	Language string `json:"language,omitempty"`

	// CacheDir holds intermediate artifacts for this job.
	CacheDir string `json:"cache_dir,omitempty"`
}

// Transcript is the speech-to-text result for a job's audio.
type Transcript struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
}

// Segment is a timed span of a transcript, in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Section is a topical section of a transcript.
type Section struct {
	Name            string   `json:"name"`
	Content         string   `json:"content"`
	StartedAt       float64  `json:"started_at"`
	EndedAt         float64  `json:"ended_at"`
	KeyConcepts     []string `json:"key_concepts,omitempty"`
	ExternalContext string   `json:"external_context,omitempty"`
	Summary         string   `json:"summary"`
}

// Report is the final structured video report.
type Report struct {
	Title           string    `json:"title"`
	Summary         string    `json:"summary"`
	DurationMinutes float64   `json:"duration_minutes"`
	Language        string    `json:"language"`
	Difficulty      string    `json:"difficulty"`
	Topics          []string  `json:"topics,omitempty"`
	KeyTakeaways    []string  `json:"key_takeaways,omitempty"`
	Chapters        []Chapter `json:"chapters,omitempty"`
	Prerequisites   []string  `json:"prerequisites,omitempty"`
	TargetAudience  string    `json:"target_audience,omitempty"`
}

// Chapter is one navigable chapter of a report.
type Chapter struct {
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
	Title        string  `json:"title"`
	Summary      string  `json:"summary"`
}
