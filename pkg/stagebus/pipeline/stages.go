package pipeline

import (
	"context"
	"fmt"

	"github.com/randalmurphal/stagebus/pkg/stagebus/bus"
	"github.com/randalmurphal/stagebus/pkg/stagebus/event"
	"github.com/randalmurphal/stagebus/pkg/stagebus/queue"
	"github.com/randalmurphal/stagebus/pkg/stagebus/worker"
)

// Subscriber ids of the pipeline stages.
const (
	StageDownload   = "video.download"
	StageExtract    = "audio.extract"
	StageTranscribe = "audio.transcribe"
	StageAnalyze    = "sections.analyze"
	StageCompile    = "report.compile"
	StageSink       = "completion.sink"
)

// StageCapacity is the FIFO capacity of every processing stage's input.
const StageCapacity = 4

func stageSubscription(id string, t event.Type) bus.Subscription {
	return bus.Subscription{
		SubscriberID: id,
		Inputs:       []bus.Input{bus.On(t, queue.DropOldest(StageCapacity))},
	}
}

// DownloadStage turns JobRequested into VideoDownloaded.
type DownloadStage struct {
	Downloader Downloader
}

// SubscriberID implements worker.Worker.
func (DownloadStage) SubscriberID() string { return StageDownload }

// Subscription implements worker.Worker.
func (DownloadStage) Subscription() bus.Subscription {
	return stageSubscription(StageDownload, TypeJobRequested)
}

// Handle implements worker.Worker.
func (s DownloadStage) Handle(ctx context.Context, evt *event.Enriched, pub worker.Publisher) error {
	req, err := event.Expect[*JobRequested](evt.Event, TypeJobRequested)
	if err != nil {
		return err
	}
	path, err := s.Downloader.Download(ctx, req.Job)
	if err != nil {
		return fmt.Errorf("download %s: %w", req.Job.URL, err)
	}
	pub.Publish(ctx, &VideoDownloaded{
		Header:    event.NewHeader(event.CausedBy(req)),
		Job:       req.Job,
		VideoPath: path,
	})
	return nil
}

// ExtractStage turns VideoDownloaded into AudioExtracted.
type ExtractStage struct {
	Extractor AudioExtractor
}

// SubscriberID implements worker.Worker.
func (ExtractStage) SubscriberID() string { return StageExtract }

// Subscription implements worker.Worker.
func (ExtractStage) Subscription() bus.Subscription {
	return stageSubscription(StageExtract, TypeVideoDownloaded)
}

// Handle implements worker.Worker.
func (s ExtractStage) Handle(ctx context.Context, evt *event.Enriched, pub worker.Publisher) error {
	vd, err := event.Expect[*VideoDownloaded](evt.Event, TypeVideoDownloaded)
	if err != nil {
		return err
	}
	path, err := s.Extractor.ExtractAudio(ctx, vd.Job, vd.VideoPath)
	if err != nil {
		return fmt.Errorf("extract audio from %s: %w", vd.VideoPath, err)
	}
	pub.Publish(ctx, &AudioExtracted{
		Header:    event.NewHeader(event.CausedBy(vd)),
		Job:       vd.Job,
		AudioPath: path,
	})
	return nil
}

// TranscribeStage turns AudioExtracted into AudioTranscribed.
type TranscribeStage struct {
	Transcriber Transcriber
}

// SubscriberID implements worker.Worker.
func (TranscribeStage) SubscriberID() string { return StageTranscribe }

// Subscription implements worker.Worker.
func (TranscribeStage) Subscription() bus.Subscription {
	return stageSubscription(StageTranscribe, TypeAudioExtracted)
}

// Handle implements worker.Worker.
func (s TranscribeStage) Handle(ctx context.Context, evt *event.Enriched, pub worker.Publisher) error {
	ae, err := event.Expect[*AudioExtracted](evt.Event, TypeAudioExtracted)
	if err != nil {
		return err
	}
	transcript, err := s.Transcriber.Transcribe(ctx, ae.Job, ae.AudioPath)
	if err != nil {
		return fmt.Errorf("transcribe %s: %w", ae.AudioPath, err)
	}
	pub.Publish(ctx, &AudioTranscribed{
		Header:     event.NewHeader(event.CausedBy(ae)),
		Job:        ae.Job,
		Transcript: transcript,
	})
	return nil
}

// AnalyzeStage turns AudioTranscribed into SectionsAnalyzed.
type AnalyzeStage struct {
	Analyzer SectionAnalyzer
}

// SubscriberID implements worker.Worker.
func (AnalyzeStage) SubscriberID() string { return StageAnalyze }

// Subscription implements worker.Worker.
func (AnalyzeStage) Subscription() bus.Subscription {
	return stageSubscription(StageAnalyze, TypeAudioTranscribed)
}

// Handle implements worker.Worker.
func (s AnalyzeStage) Handle(ctx context.Context, evt *event.Enriched, pub worker.Publisher) error {
	at, err := event.Expect[*AudioTranscribed](evt.Event, TypeAudioTranscribed)
	if err != nil {
		return err
	}
	sections, err := s.Analyzer.AnalyzeSections(ctx, at.Job, at.Transcript)
	if err != nil {
		return fmt.Errorf("analyze sections: %w", err)
	}
	pub.Publish(ctx, &SectionsAnalyzed{
		Header:     event.NewHeader(event.CausedBy(at)),
		Job:        at.Job,
		Sections:   sections,
		Transcript: at.Transcript,
	})
	return nil
}

// CompileStage turns SectionsAnalyzed into ReportCompiled.
type CompileStage struct {
	Compiler ReportCompiler
}

// SubscriberID implements worker.Worker.
func (CompileStage) SubscriberID() string { return StageCompile }

// Subscription implements worker.Worker.
func (CompileStage) Subscription() bus.Subscription {
	return stageSubscription(StageCompile, TypeSectionsAnalyzed)
}

// Handle implements worker.Worker.
func (s CompileStage) Handle(ctx context.Context, evt *event.Enriched, pub worker.Publisher) error {
	sa, err := event.Expect[*SectionsAnalyzed](evt.Event, TypeSectionsAnalyzed)
	if err != nil {
		return err
	}
	report, err := s.Compiler.CompileReport(ctx, sa.Job, sa.Sections, sa.Transcript)
	if err != nil {
		return fmt.Errorf("compile report: %w", err)
	}
	pub.Publish(ctx, &ReportCompiled{
		Header: event.NewHeader(event.CausedBy(sa)),
		Job:    sa.Job,
		Report: report,
	})
	return nil
}

// Stages returns the processing stages wired to c, in pipeline order.
func Stages(c Collaborators) []worker.Worker {
	return []worker.Worker{
		DownloadStage{Downloader: c.Downloader},
		ExtractStage{Extractor: c.AudioExtractor},
		TranscribeStage{Transcriber: c.Transcriber},
		AnalyzeStage{Analyzer: c.SectionAnalyzer},
		CompileStage{Compiler: c.ReportCompiler},
	}
}
