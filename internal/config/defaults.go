package config

const (
	defaultDataDir    = "~/.local/share/lectern"
	defaultScratchDir = "~/.local/share/lectern/scratch"
	defaultLogDir     = "~/.local/share/lectern/logs"

	defaultFFmpegBinary  = "ffmpeg"
	defaultFFprobeBinary = "ffprobe"
	defaultNamespace     = "lessons"
	defaultBucket        = "lectern-media"

	defaultSegmentSeconds   = 6
	defaultProbeTimeout     = 60
	defaultThumbnailTimeout = 60
	defaultSegmentTimeout   = 1500

	defaultWorkers        = 2
	defaultPollInterval   = 5
	defaultMaxAttempts    = 3
	defaultAttemptTimeout = 1800
	defaultReaperInterval = 30
	defaultReaperMaxAge   = 24

	defaultSignedURLTTL = 60

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			ScratchDir: defaultScratchDir,
			LogDir:     defaultLogDir,
		},
		ObjectStore: ObjectStore{
			Bucket:           defaultBucket,
			Region:           "us-east-1",
			UseSSL:           true,
			Namespace:        defaultNamespace,
			SignedURLTTLMins: defaultSignedURLTTL,
		},
		Transcode: Transcode{
			FFmpegBinary:          defaultFFmpegBinary,
			FFprobeBinary:         defaultFFprobeBinary,
			SegmentSeconds:        defaultSegmentSeconds,
			ProbeTimeoutSeconds:   defaultProbeTimeout,
			ThumbnailTimeoutSecs:  defaultThumbnailTimeout,
			SegmentTimeoutSeconds: defaultSegmentTimeout,
		},
		Scheduler: Scheduler{
			Workers:               defaultWorkers,
			PollIntervalSeconds:   defaultPollInterval,
			MaxAttempts:           defaultMaxAttempts,
			BackoffSeconds:        []int{60, 120, 300},
			AttemptTimeoutSeconds: defaultAttemptTimeout,
			ReaperIntervalMinutes: defaultReaperInterval,
			ReaperMaxAgeHours:     defaultReaperMaxAge,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
