package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Stub implements every collaborator without side effects. It produces a
// small canned transcript and report, which makes it suitable for demos and
// tests.
type Stub struct {
	// Delay is slept (or ctx-aborted) in every call.
	Delay time.Duration

	// FailAt names a stage (e.g. StageTranscribe) whose collaborator
	// returns Err.
	FailAt string
	Err    error
}

// Collaborators returns s bound to every collaborator role.
func (s *Stub) Collaborators() Collaborators {
	return Collaborators{
		Downloader:      s,
		AudioExtractor:  s,
		Transcriber:     s,
		SectionAnalyzer: s,
		ReportCompiler:  s,
	}
}

func (s *Stub) step(ctx context.Context, stage string) error {
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	if s.FailAt == stage {
		if s.Err != nil {
			return s.Err
		}
		return fmt.Errorf("stub failure in %s", stage)
	}
	return nil
}

// Download implements Downloader.
func (s *Stub) Download(ctx context.Context, job Job) (string, error) {
	if err := s.step(ctx, StageDownload); err != nil {
		return "", err
	}
	return filepath.Join(job.CacheDir, "video.mp4"), nil
}

// ExtractAudio implements AudioExtractor.
func (s *Stub) ExtractAudio(ctx context.Context, job Job, _ string) (string, error) {
	if err := s.step(ctx, StageExtract); err != nil {
		return "", err
	}
	return filepath.Join(job.CacheDir, "audio.wav"), nil
}

// Transcribe implements Transcriber.
func (s *Stub) Transcribe(ctx context.Context, _ Job, _ string) (Transcript, error) {
	if err := s.step(ctx, StageTranscribe); err != nil {
		return Transcript{}, err
	}
	segments := []Segment{
		{Start: 0, End: 42, Text: "Welcome. Today we look at event buses."},
		{Start: 42, End: 95, Text: "Each stage subscribes to one event type."},
		{Start: 95, End: 140, Text: "Slow consumers never block the publisher."},
	}
	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}
	return Transcript{Text: strings.Join(texts, " "), Segments: segments, Language: "en"}, nil
}

// AnalyzeSections implements SectionAnalyzer.
func (s *Stub) AnalyzeSections(ctx context.Context, _ Job, transcript Transcript) ([]Section, error) {
	if err := s.step(ctx, StageAnalyze); err != nil {
		return nil, err
	}
	sections := make([]Section, 0, len(transcript.Segments))
	for i, seg := range transcript.Segments {
		sections = append(sections, Section{
			Name:      fmt.Sprintf("Part %d", i+1),
			Content:   seg.Text,
			StartedAt: seg.Start,
			EndedAt:   seg.End,
			Summary:   seg.Text,
		})
	}
	return sections, nil
}

// CompileReport implements ReportCompiler.
func (s *Stub) CompileReport(ctx context.Context, job Job, sections []Section, transcript Transcript) (Report, error) {
	if err := s.step(ctx, StageCompile); err != nil {
		return Report{}, err
	}
	lang := job.Language
	if lang == "" {
		lang = transcript.Language
	}
	report := Report{
		Title:      job.URL,
		Summary:    transcript.Text,
		Language:   lang,
		Difficulty: "beginner",
	}
	for _, sec := range sections {
		report.Chapters = append(report.Chapters, Chapter{
			StartSeconds: sec.StartedAt,
			EndSeconds:   sec.EndedAt,
			Title:        sec.Name,
			Summary:      sec.Summary,
		})
		report.DurationMinutes = sec.EndedAt / 60
	}
	return report, nil
}
