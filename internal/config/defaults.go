package config

const (
	defaultConfigPath        = "~/.config/octowatch/config.toml"
	defaultStateDir          = "~/.local/share/octowatch"
	defaultLogDir            = "~/.local/share/octowatch/logs"
	defaultAttachmentsDir    = "~/.cache/octowatch/attachments"
	defaultAPIBind           = "127.0.0.1:7490"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 30
	defaultNotifyTimeout     = 10
	defaultImageTimeout      = 15
	defaultNotifyLanguage    = "en"
	defaultCompanionBudget   = 50
	defaultCompanionTimeout  = 10
	defaultPollInterval      = 900
	defaultPollTimeout       = 20
	defaultStreamMaxBackoff  = 60
	defaultPrinterIDScheme   = "octowatch://printer/"
	KeyModeName              = "name"
	KeyModeID                = "id"
	envNtfyTopic             = "OCTOWATCH_NTFY_TOPIC"
	envAPIToken              = "OCTOWATCH_API_TOKEN"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:       defaultStateDir,
			LogDir:         defaultLogDir,
			AttachmentsDir: defaultAttachmentsDir,
			APIBind:        defaultAPIBind,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			ImageTimeout:   defaultImageTimeout,
			Language:       defaultNotifyLanguage,
		},
		Companion: Companion{
			DailyBudget:    defaultCompanionBudget,
			RequestTimeout: defaultCompanionTimeout,
		},
		Poll: Poll{
			IntervalSeconds: defaultPollInterval,
			RequestTimeout:  defaultPollTimeout,
		},
		Stream: Stream{
			Enabled:           true,
			MaxBackoffSeconds: defaultStreamMaxBackoff,
		},
		State: State{
			KeyMode: KeyModeName,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
