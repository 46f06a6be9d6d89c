package pipeline

import (
	"context"

	sberrors "github.com/randalmurphal/stagebus/pkg/stagebus/errors"
)

// Downloader fetches the job's video and returns its local path.
type Downloader interface {
	Download(ctx context.Context, job Job) (string, error)
}

// AudioExtractor extracts the audio track of a video and returns its path.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, job Job, videoPath string) (string, error)
}

// Transcriber turns an audio file into a transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, job Job, audioPath string) (Transcript, error)
}

// SectionAnalyzer splits a transcript into analyzed sections.
type SectionAnalyzer interface {
	AnalyzeSections(ctx context.Context, job Job, transcript Transcript) ([]Section, error)
}

// ReportCompiler builds the final report from analyzed sections.
type ReportCompiler interface {
	CompileReport(ctx context.Context, job Job, sections []Section, transcript Transcript) (Report, error)
}

// Collaborators bundles the external dependencies of every stage.
type Collaborators struct {
	Downloader      Downloader
	AudioExtractor  AudioExtractor
	Transcriber     Transcriber
	SectionAnalyzer SectionAnalyzer
	ReportCompiler  ReportCompiler
}

// WithRetry wraps every collaborator in its Retrying decorator.
// Only errors categorized as transient are retried.
func (c Collaborators) WithRetry(cfg sberrors.RetryConfig) Collaborators {
	return Collaborators{
		Downloader:      RetryingDownloader{Next: c.Downloader, Config: cfg},
		AudioExtractor:  RetryingAudioExtractor{Next: c.AudioExtractor, Config: cfg},
		Transcriber:     RetryingTranscriber{Next: c.Transcriber, Config: cfg},
		SectionAnalyzer: RetryingSectionAnalyzer{Next: c.SectionAnalyzer, Config: cfg},
		ReportCompiler:  RetryingReportCompiler{Next: c.ReportCompiler, Config: cfg},
	}
}

func (c Collaborators) validate() error {
	switch {
	case c.Downloader == nil:
		return missingCollaborator("Downloader")
	case c.AudioExtractor == nil:
		return missingCollaborator("AudioExtractor")
	case c.Transcriber == nil:
		return missingCollaborator("Transcriber")
	case c.SectionAnalyzer == nil:
		return missingCollaborator("SectionAnalyzer")
	case c.ReportCompiler == nil:
		return missingCollaborator("ReportCompiler")
	}
	return nil
}

// RetryingDownloader retries transient download failures.
type RetryingDownloader struct {
	Next   Downloader
	Config sberrors.RetryConfig
}

// Download implements Downloader.
func (r RetryingDownloader) Download(ctx context.Context, job Job) (string, error) {
	return sberrors.Do(ctx, r.Config, "download", func(ctx context.Context) (string, error) {
		return r.Next.Download(ctx, job)
	})
}

// RetryingAudioExtractor retries transient extraction failures.
type RetryingAudioExtractor struct {
	Next   AudioExtractor
	Config sberrors.RetryConfig
}

// ExtractAudio implements AudioExtractor.
func (r RetryingAudioExtractor) ExtractAudio(ctx context.Context, job Job, videoPath string) (string, error) {
	return sberrors.Do(ctx, r.Config, "extract audio", func(ctx context.Context) (string, error) {
		return r.Next.ExtractAudio(ctx, job, videoPath)
	})
}

// RetryingTranscriber retries transient transcription failures.
type RetryingTranscriber struct {
	Next   Transcriber
	Config sberrors.RetryConfig
}

// Transcribe implements Transcriber.
func (r RetryingTranscriber) Transcribe(ctx context.Context, job Job, audioPath string) (Transcript, error) {
	return sberrors.Do(ctx, r.Config, "transcribe", func(ctx context.Context) (Transcript, error) {
		return r.Next.Transcribe(ctx, job, audioPath)
	})
}

// RetryingSectionAnalyzer retries transient analysis failures.
type RetryingSectionAnalyzer struct {
	Next   SectionAnalyzer
	Config sberrors.RetryConfig
}

// AnalyzeSections implements SectionAnalyzer.
func (r RetryingSectionAnalyzer) AnalyzeSections(ctx context.Context, job Job, transcript Transcript) ([]Section, error) {
	return sberrors.Do(ctx, r.Config, "analyze sections", func(ctx context.Context) ([]Section, error) {
		return r.Next.AnalyzeSections(ctx, job, transcript)
	})
}

// RetryingReportCompiler retries transient compile failures.
type RetryingReportCompiler struct {
	Next   ReportCompiler
	Config sberrors.RetryConfig
}

// CompileReport implements ReportCompiler.
func (r RetryingReportCompiler) CompileReport(ctx context.Context, job Job, sections []Section, transcript Transcript) (Report, error) {
	return sberrors.Do(ctx, r.Config, "compile report", func(ctx context.Context) (Report, error) {
		return r.Next.CompileReport(ctx, job, sections, transcript)
	})
}
