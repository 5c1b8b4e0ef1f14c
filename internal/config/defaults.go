package config

const (
	defaultLogDir            = "~/.local/share/examsight/logs"
	defaultJournalDir        = "~/.local/share/examsight"
	defaultAPIBind           = "127.0.0.1:7848"
	defaultFFmpegBinary      = "ffmpeg"
	defaultFrameWidth        = 640
	defaultFrameHeight       = 360
	defaultEmptyReadLimit    = 30
	defaultBackoffInitialMS  = 500
	defaultBackoffMaxMS      = 5000
	defaultDispatchPerSecond = 2
	defaultStopJoinTimeoutMS = 1000
	defaultAudioSampleRate   = 16000
	defaultAudioChannels     = 1
	defaultAudioWindowSec    = 2.0
	defaultCountdownSeconds  = 3.0
	defaultUpdateInterval    = 1.0
	defaultMinHeartRate      = 40
	defaultMaxHeartRate      = 120
	defaultAssumedFPS        = 30.0
	defaultAnalysisTimeout   = 5
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:     defaultLogDir,
			JournalDir: defaultJournalDir,
			APIBind:    defaultAPIBind,
		},
		Ingest: Ingest{
			FFmpegBinary:      defaultFFmpegBinary,
			FrameWidth:        defaultFrameWidth,
			FrameHeight:       defaultFrameHeight,
			EmptyReadLimit:    defaultEmptyReadLimit,
			BackoffInitialMS:  defaultBackoffInitialMS,
			BackoffMaxMS:      defaultBackoffMaxMS,
			DispatchPerSecond: defaultDispatchPerSecond,
			StopJoinTimeoutMS: defaultStopJoinTimeoutMS,
		},
		Audio: Audio{
			Enabled:       true,
			SampleRate:    defaultAudioSampleRate,
			Channels:      defaultAudioChannels,
			WindowSeconds: defaultAudioWindowSec,
		},
		PPG: PPG{
			CountdownSeconds:      defaultCountdownSeconds,
			UpdateIntervalSeconds: defaultUpdateInterval,
			MinHeartRate:          defaultMinHeartRate,
			MaxHeartRate:          defaultMaxHeartRate,
			AssumedFPS:            defaultAssumedFPS,
		},
		Analysis: Analysis{
			Enabled:        false,
			TimeoutSeconds: defaultAnalysisTimeout,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
