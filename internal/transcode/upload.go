package transcode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"lectern/internal/logging"
	"lectern/internal/media"
	"lectern/internal/objectstore"
	"lectern/internal/services"
)

// upload mirrors the output directory into the object store under the
// lesson's namespace. The manifest and thumbnail must land; a segment upload
// failure is logged and counted but does not abort, since the manifest is the
// contract the player reads and a missing segment surfaces on playback.
func (p *Pipeline) upload(ctx context.Context, state *jobState) error {
	entries, err := os.ReadDir(state.workspace.OutputDir)
	if err != nil {
		return services.Wrap(services.ErrTransient, StageUploading, "read output directory", "", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	namespace := p.cfg.ObjectStore.Namespace
	for _, name := range names {
		key := objectstore.ArtifactKey(namespace, state.job.LessonID, name)
		if err := p.uploadFile(ctx, filepath.Join(state.workspace.OutputDir, name), key); err != nil {
			if mandatoryArtifact(name) {
				return services.Wrap(services.ErrStorage, StageUploading, "put "+name, "", err)
			}
			state.failedUploads++
			p.logger.WarnContext(ctx, "artifact upload failed, continuing",
				logging.Args(append(logging.ContextFields(ctx),
					logging.String("artifact", name),
					logging.Error(err))...)...)
			continue
		}
		state.uploaded++
		switch name {
		case media.ManifestFilename:
			state.manifestKey = key
		case media.ThumbnailFilename:
			state.thumbnailKey = key
		}
	}

	if state.manifestKey == "" {
		return services.Wrap(services.ErrConversionFailed, StageUploading, "verify artifacts",
			"no manifest produced by segmenting", nil)
	}
	if state.thumbnailKey == "" {
		return services.Wrap(services.ErrTransient, StageUploading, "verify artifacts",
			"no thumbnail in output directory", nil)
	}
	return nil
}

func (p *Pipeline) uploadFile(ctx context.Context, path, key string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat artifact: %w", err)
	}
	return p.objects.Put(ctx, key, file, info.Size(), artifactContentType(path))
}

func mandatoryArtifact(name string) bool {
	return name == media.ManifestFilename || name == media.ThumbnailFilename
}

func artifactContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/mp2t"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
