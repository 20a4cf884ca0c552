package envvar

const (
	// ModelmemEnv is the environment variable used to determine the environment
	ModelmemEnv = "MODELMEM_ENV"

	// ModelmemConfigPath is the environment variable used to override the config file path
	ModelmemConfigPath = "MODELMEM_CONFIG_PATH"

	// ModelmemLogFile is the environment variable used to override the log file path
	ModelmemLogFile = "MODELMEM_LOG_FILE"
)
