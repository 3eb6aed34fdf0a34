package config

const (
	defaultConfigPath           = "~/.config/pix360/config.toml"
	defaultBaseURL              = "http://127.0.0.1:8000"
	defaultSessionCookieName    = "sessionid"
	defaultRequestTimeout       = 30
	defaultUserAgent            = "pix360-cli/0.1.0"
	defaultPollIntervalMillis   = 3000
	defaultStateDir             = "~/.local/share/pix360"
	defaultDownloadDir          = "~/Downloads/pix360"
	defaultLogDir               = "~/.local/share/pix360/logs"
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			BaseURL:           defaultBaseURL,
			SessionCookieName: defaultSessionCookieName,
			RequestTimeout:    defaultRequestTimeout,
			UserAgent:         defaultUserAgent,
		},
		Polling: Polling{
			IntervalMillis: defaultPollIntervalMillis,
		},
		Paths: Paths{
			StateDir:    defaultStateDir,
			DownloadDir: defaultDownloadDir,
			LogDir:      defaultLogDir,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
