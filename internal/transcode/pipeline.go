package transcode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"lectern/internal/config"
	"lectern/internal/lessons"
	"lectern/internal/logging"
	"lectern/internal/media"
	"lectern/internal/objectstore"
	"lectern/internal/queue"
	"lectern/internal/scratch"
	"lectern/internal/services"
)

// Stage names used in logs and failure messages.
const (
	StageValidating   = "validating"
	StageDownloading  = "downloading"
	StageProbing      = "probing"
	StageThumbnailing = "thumbnailing"
	StageSegmenting   = "segmenting"
	StageUploading    = "uploading"
	StageCommitting   = "committing"
	StageCleanup      = "cleanup"
)

// Result summarizes a successful pipeline run.
type Result struct {
	LessonID             string
	ManifestKey          string
	ThumbnailKey         string
	DurationSeconds      int
	PlaceholderThumbnail bool
	UploadedObjects      int
	FailedUploads        int
}

// Pipeline drives one lesson job through the full transcode sequence.
type Pipeline struct {
	cfg     *config.Config
	objects objectstore.Client
	adapter *media.Adapter
	scratch *scratch.Manager
	lessons *lessons.Store
	logger  *slog.Logger
}

// New constructs a pipeline from its collaborators.
func New(
	cfg *config.Config,
	objects objectstore.Client,
	adapter *media.Adapter,
	scratchMgr *scratch.Manager,
	lessonStore *lessons.Store,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		cfg:     cfg,
		objects: objects,
		adapter: adapter,
		scratch: scratchMgr,
		lessons: lessonStore,
		logger:  logging.NewComponentLogger(logger, "transcode"),
	}
}

type jobState struct {
	job       *queue.Job
	workspace scratch.Workspace

	sourcePath string
	duration   int

	thumbnailPath string
	placeholder   bool

	manifestPath string

	manifestKey  string
	thumbnailKey string

	uploaded      int
	failedUploads int
}

// Run processes the job to completion. On success the lesson record is marked
// processed and the scratch workspace is released. On failure the workspace is
// kept for the next attempt and the error classifies the failure; the caller
// decides between retry and terminal failure.
func (p *Pipeline) Run(ctx context.Context, job *queue.Job) (*Result, error) {
	ctx = services.WithLessonID(ctx, job.LessonID)
	ctx = services.WithJobID(ctx, job.ID)

	stages := []struct {
		name string
		run  func(context.Context, *jobState) error
	}{
		{StageValidating, p.validate},
		{StageDownloading, p.download},
		{StageProbing, p.probe},
		{StageThumbnailing, p.thumbnail},
		{StageSegmenting, p.segment},
		{StageUploading, p.upload},
		{StageCommitting, p.commit},
		{StageCleanup, p.cleanup},
	}

	state := &jobState{job: job}
	for _, stage := range stages {
		stageCtx := services.WithStage(ctx, stage.name)
		stageLogger := logging.WithContext(stageCtx, p.logger)
		stageLogger.Info("stage started")
		if err := stage.run(stageCtx, state); err != nil {
			if errors.Is(err, lessons.ErrAlreadyProcessed) {
				stageLogger.Info("lesson already processed, reusing committed result")
				return p.committedResult(ctx, job)
			}
			stageLogger.Error("stage failed", logging.Error(err))
			return nil, err
		}
	}

	return &Result{
		LessonID:             job.LessonID,
		ManifestKey:          state.manifestKey,
		ThumbnailKey:         state.thumbnailKey,
		DurationSeconds:      state.duration,
		PlaceholderThumbnail: state.placeholder,
		UploadedObjects:      state.uploaded,
		FailedUploads:        state.failedUploads,
	}, nil
}

// validate rejects unusable jobs before any data moves and flips the lesson to
// processing once the source is known to exist and be non-empty.
func (p *Pipeline) validate(ctx context.Context, state *jobState) error {
	sourceKey := strings.TrimSpace(state.job.SourceKey)
	if sourceKey == "" {
		return services.Wrap(services.ErrInvalidInput, StageValidating, "source key", "source key is empty", nil)
	}

	exists, err := p.objects.Exists(ctx, sourceKey)
	if err != nil {
		return services.Wrap(services.ErrStorage, StageValidating, "head source", "", err)
	}
	if !exists {
		return services.Wrap(services.ErrSourceNotFound, StageValidating, "head source",
			fmt.Sprintf("no object at %s", sourceKey), nil)
	}
	size, err := p.objects.Size(ctx, sourceKey)
	if err != nil {
		return services.Wrap(services.ErrStorage, StageValidating, "stat source", "", err)
	}
	if size == 0 {
		return services.Wrap(services.ErrEmptySource, StageValidating, "stat source",
			fmt.Sprintf("object at %s is zero bytes", sourceKey), nil)
	}

	if err := p.lessons.MarkProcessing(ctx, state.job.LessonID); err != nil {
		if errors.Is(err, lessons.ErrAlreadyProcessed) {
			return err
		}
		return services.Wrap(services.ErrTransient, StageValidating, "mark processing", "", err)
	}
	return nil
}

// committedResult rebuilds the pipeline result from a lesson that a previous
// delivery of the same job already committed.
func (p *Pipeline) committedResult(ctx context.Context, job *queue.Job) (*Result, error) {
	lesson, err := p.lessons.GetByID(ctx, job.LessonID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, StageValidating, "load lesson", "", err)
	}
	if lesson == nil {
		return nil, services.Wrap(services.ErrTransient, StageValidating, "load lesson",
			fmt.Sprintf("lesson %s disappeared after commit", job.LessonID), nil)
	}
	return &Result{
		LessonID:        job.LessonID,
		ManifestKey:     lesson.ManifestKey,
		ThumbnailKey:    lesson.ThumbnailKey,
		DurationSeconds: lesson.DurationSeconds,
	}, nil
}

// download streams the source object into the workspace.
func (p *Pipeline) download(ctx context.Context, state *jobState) error {
	ws, err := p.scratch.Allocate(state.job.LessonID)
	if err != nil {
		return services.Wrap(services.ErrTransient, StageDownloading, "allocate workspace", "", err)
	}
	state.workspace = ws

	sourceKey := strings.TrimSpace(state.job.SourceKey)
	body, err := p.objects.Get(ctx, sourceKey)
	if err != nil {
		return services.Wrap(services.ErrStorage, StageDownloading, "get source", "", err)
	}
	defer body.Close()

	name := "source" + sourceExtension(sourceKey)
	target := filepath.Join(ws.DownloadDir, name)
	file, err := os.Create(target)
	if err != nil {
		return services.Wrap(services.ErrTransient, StageDownloading, "create file", "", err)
	}
	written, err := io.Copy(file, body)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return services.Wrap(services.ErrStorage, StageDownloading, "copy source", "", err)
	}
	if written == 0 {
		return services.Wrap(services.ErrEmptySource, StageDownloading, "copy source", "downloaded zero bytes", nil)
	}
	state.sourcePath = target
	return nil
}

// probe records the duration when the tool cooperates. A probe failure
// degrades the lesson to a zero duration instead of failing the job.
func (p *Pipeline) probe(ctx context.Context, state *jobState) error {
	duration, err := p.adapter.ProbeDuration(ctx, state.sourcePath)
	if err != nil {
		p.logger.WarnContext(ctx, "duration probe failed, storing zero",
			logging.Args(append(logging.ContextFields(ctx), logging.Error(err))...)...)
		state.duration = 0
		return nil
	}
	state.duration = duration
	return nil
}

// thumbnail extracts a poster frame, falling back to the generated
// placeholder. Only a workspace write failure can surface as an error here.
func (p *Pipeline) thumbnail(ctx context.Context, state *jobState) error {
	outPath := filepath.Join(state.workspace.OutputDir, media.ThumbnailFilename)
	placeholder, err := p.adapter.ExtractThumbnail(ctx, state.sourcePath, outPath)
	if err != nil {
		return services.Wrap(services.ErrTransient, StageThumbnailing, "write thumbnail", "", err)
	}
	if placeholder {
		p.logger.WarnContext(ctx, "thumbnail degraded to placeholder",
			logging.Args(logging.ContextFields(ctx)...)...)
	}
	state.thumbnailPath = outPath
	state.placeholder = placeholder
	return nil
}

func (p *Pipeline) segment(ctx context.Context, state *jobState) error {
	manifestPath, err := p.adapter.SegmentToStreamFormat(ctx, state.sourcePath, state.workspace.OutputDir)
	if err != nil {
		return err
	}
	state.manifestPath = manifestPath
	return nil
}

// commit records the processed lesson. The update is idempotent so a crash
// between commit and queue acknowledgment stays safe on replay.
func (p *Pipeline) commit(ctx context.Context, state *jobState) error {
	err := p.lessons.MarkProcessed(ctx, state.job.LessonID, state.manifestKey, state.thumbnailKey, state.duration)
	if err != nil {
		return services.Wrap(services.ErrTransient, StageCommitting, "mark processed", "", err)
	}
	return nil
}

// cleanup releases the workspace after a successful commit. Failed jobs keep
// their workspace so a retry or an operator can inspect it; the reaper removes
// abandoned ones by age.
func (p *Pipeline) cleanup(ctx context.Context, state *jobState) error {
	if err := p.scratch.Release(state.job.LessonID); err != nil {
		p.logger.WarnContext(ctx, "workspace release failed",
			logging.Args(append(logging.ContextFields(ctx), logging.Error(err))...)...)
	}
	return nil
}

// sourceExtension preserves the source key's extension for the local copy so
// the media tools can sniff the container. Unknown keys default to .mp4.
func sourceExtension(key string) string {
	ext := path.Ext(key)
	if ext == "" || len(ext) > 8 {
		return ".mp4"
	}
	return ext
}
