package pipeline

import (
	"github.com/randalmurphal/stagebus/pkg/stagebus/event"
	"github.com/randalmurphal/stagebus/pkg/stagebus/worker"
)

// Routing tags of the pipeline's event variants.
const (
	TypeJobRequested     event.Type = "job.requested"
	TypeVideoDownloaded  event.Type = "video.downloaded"
	TypeAudioExtracted   event.Type = "audio.extracted"
	TypeAudioTranscribed event.Type = "audio.transcribed"
	TypeSectionsAnalyzed event.Type = "sections.analyzed"
	TypeReportCompiled   event.Type = "report.compiled"
)

// JobRequested starts a pipeline run. It has no parents.
type JobRequested struct {
	event.Header
	Job Job `json:"job"`
}

// Type implements event.Event.
func (JobRequested) Type() event.Type { return TypeJobRequested }

// VideoDownloaded reports the local path of the downloaded video.
type VideoDownloaded struct {
	event.Header
	Job       Job    `json:"job"`
	VideoPath string `json:"video_path"`
}

// Type implements event.Event.
func (VideoDownloaded) Type() event.Type { return TypeVideoDownloaded }

// AudioExtracted reports the local path of the extracted audio track.
type AudioExtracted struct {
	event.Header
	Job       Job    `json:"job"`
	AudioPath string `json:"audio_path"`
}

// Type implements event.Event.
func (AudioExtracted) Type() event.Type { return TypeAudioExtracted }

// AudioTranscribed carries the transcript of the audio track.
type AudioTranscribed struct {
	event.Header
	Job        Job        `json:"job"`
	Transcript Transcript `json:"transcript"`
}

// Type implements event.Event.
func (AudioTranscribed) Type() event.Type { return TypeAudioTranscribed }

// SectionsAnalyzed carries the analyzed sections plus the transcript they
// were cut from.
type SectionsAnalyzed struct {
	event.Header
	Job        Job        `json:"job"`
	Sections   []Section  `json:"sections"`
	Transcript Transcript `json:"transcript"`
}

// Type implements event.Event.
func (SectionsAnalyzed) Type() event.Type { return TypeSectionsAnalyzed }

// ReportCompiled carries the finished report.
type ReportCompiled struct {
	event.Header
	Job    Job    `json:"job"`
	Report Report `json:"report"`
}

// Type implements event.Event.
func (ReportCompiled) Type() event.Type { return TypeReportCompiled }

// Registry returns a registry holding every pipeline variant and
// PipelineFailed.
func Registry() *event.Registry {
	r := event.NewRegistry()
	r.MustRegister(
		&JobRequested{},
		&VideoDownloaded{},
		&AudioExtracted{},
		&AudioTranscribed{},
		&SectionsAnalyzed{},
		&ReportCompiled{},
		&worker.PipelineFailed{},
	)
	return r
}
