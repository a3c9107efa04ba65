package config

const (
	defaultDataDir        = "~/.local/share/livecatalog"
	defaultLogDir         = "~/.local/share/livecatalog/logs"
	defaultDatabaseName   = "livecatalog.db"
	defaultBusyTimeoutMS  = 5000
	defaultWarnMiB        = 30
	defaultLimitMiB       = 50
	defaultMinFreeMiB     = 64
	defaultDevice         = "/dev/video0"
	defaultIntervalMS     = 5000
	defaultQuality        = 0.85
	defaultWidth          = 1280
	defaultHeight         = 720
	defaultFrameRate      = 30
	defaultThumbnailWidth = 160
	defaultPowerSupplyDir = "/sys/class/power_supply"
	defaultVideoClassDir  = "/sys/class/video4linux"
	defaultEditorQuality  = 0.9
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Store: Store{
			DatabaseName:  defaultDatabaseName,
			BusyTimeoutMS: defaultBusyTimeoutMS,
		},
		Storage: Storage{
			WarnMiB:    defaultWarnMiB,
			LimitMiB:   defaultLimitMiB,
			MinFreeMiB: defaultMinFreeMiB,
		},
		Capture: Capture{
			Device:         defaultDevice,
			IntervalMS:     defaultIntervalMS,
			Quality:        defaultQuality,
			Width:          defaultWidth,
			Height:         defaultHeight,
			FrameRate:      defaultFrameRate,
			ThumbnailWidth: defaultThumbnailWidth,
			Audio:          true,
			Adaptive:       true,
			PowerSupplyDir: defaultPowerSupplyDir,
			VideoClassDir:  defaultVideoClassDir,
			Hotplug:        true,
		},
		Editor: Editor{
			Quality: defaultEditorQuality,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
