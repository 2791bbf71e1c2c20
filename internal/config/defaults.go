package config

const (
	defaultWorkDir              = "~/.local/share/conspect/work"
	defaultLogDir               = "~/.local/share/conspect/logs"
	defaultStorePath            = "~/.local/share/conspect/tasks.db"
	defaultAPIBind              = "127.0.0.1:8080"
	defaultResolverBaseURL      = "https://cloud-api.yandex.net"
	defaultResolverTimeout      = 10
	defaultMaxSourceBytes       = 200 * 1024 * 1024
	defaultRecognizeURL         = "https://transcribe.api.cloud.yandex.net/speech/stt/v2/longRunningRecognize"
	defaultOperationURL         = "https://operation.api.cloud.yandex.net/operations"
	defaultTranscribeLanguage   = "ru-RU"
	defaultTranscribeModel      = "general"
	defaultTranscribePollSec    = 5
	defaultTranscribeMaxWaitSec = 300
	defaultCompletionURL        = "https://llm.api.cloud.yandex.net/foundationModels/v1/completion"
	defaultLLMModel             = "yandexgpt"
	defaultLLMTemperature       = 0.6
	defaultLLMTimeoutSeconds    = 120
	defaultFontPath             = "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"
	defaultBoldFontPath         = "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf"
	defaultStorageEndpoint      = "storage.yandexcloud.net"
	defaultStorageRegion        = "ru-central1"
	defaultTriggerConcurrency   = 4
	defaultWorkspaceMaxAgeHours = 24
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Store: Store{
			Path: defaultStorePath,
		},
		Resolver: Resolver{
			BaseURL:        defaultResolverBaseURL,
			RequestTimeout: defaultResolverTimeout,
			MaxSourceBytes: defaultMaxSourceBytes,
		},
		Transcribe: Transcribe{
			RecognizeURL: defaultRecognizeURL,
			OperationURL: defaultOperationURL,
			Language:     defaultTranscribeLanguage,
			Model:        defaultTranscribeModel,
			PollInterval: defaultTranscribePollSec,
			MaxWait:      defaultTranscribeMaxWaitSec,
		},
		LLM: LLM{
			CompletionURL:  defaultCompletionURL,
			Model:          defaultLLMModel,
			Temperature:    defaultLLMTemperature,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		PDF: PDF{
			FontPath:     defaultFontPath,
			BoldFontPath: defaultBoldFontPath,
		},
		Storage: Storage{
			Endpoint: defaultStorageEndpoint,
			Region:   defaultStorageRegion,
			UseSSL:   true,
		},
		Workflow: Workflow{
			TriggerConcurrency:   defaultTriggerConcurrency,
			WorkspaceMaxAgeHours: defaultWorkspaceMaxAgeHours,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
