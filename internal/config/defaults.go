package config

const (
	defaultStateDir            = "~/.local/share/slate"
	defaultLogDir              = "~/.local/share/slate/logs"
	defaultTemplatesFile       = "~/.config/slate/templates.yml"
	defaultTrackingTimeout     = 30
	defaultEntityCacheSeconds  = 300
	defaultHostBridgeURL       = "http://127.0.0.1:4242"
	defaultHostTimeout         = 15
	defaultRenderTimeout       = 60
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultTrackingScriptName  = "slate"
	defaultForceTemplate       = true
	defaultNotifyPublishEvents = true
	defaultNotifyRenderEvents  = true
	defaultNotifyErrorEvents   = true
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:      defaultStateDir,
			LogDir:        defaultLogDir,
			TemplatesFile: defaultTemplatesFile,
		},
		Tracking: Tracking{
			ScriptName:         defaultTrackingScriptName,
			TimeoutSeconds:     defaultTrackingTimeout,
			EntityCacheSeconds: defaultEntityCacheSeconds,
		},
		Host: Host{
			BridgeURL:      defaultHostBridgeURL,
			TimeoutSeconds: defaultHostTimeout,
		},
		Publish: Publish{
			ForceTemplate: defaultForceTemplate,
		},
		Render: Render{
			TimeoutSeconds: defaultRenderTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Publishes:      defaultNotifyPublishEvents,
			Renders:        defaultNotifyRenderEvents,
			Errors:         defaultNotifyErrorEvents,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
