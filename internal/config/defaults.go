package config

const (
	defaultDataDir          = "~/.local/share/curator/data"
	defaultKnowledgeBaseDir = "~/knowledge-base"
	defaultMediaCacheDir    = "~/.local/share/curator/media_cache"
	defaultLogDir           = "~/.local/share/curator/logs"
	defaultOllamaBaseURL    = "http://localhost:11434"
	defaultTextModel        = "llama3.1:8b"
	defaultVisionModel      = "llava:13b"
	defaultOllamaTimeout    = 180
	defaultGitUserName      = "curator"
	defaultGitUserEmail     = "curator@localhost"
	defaultMaxParallelItems = 4
	defaultNtfyTimeout      = 10
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:          defaultDataDir,
			KnowledgeBaseDir: defaultKnowledgeBaseDir,
			MediaCacheDir:    defaultMediaCacheDir,
			LogDir:           defaultLogDir,
		},
		Ollama: Ollama{
			BaseURL:        defaultOllamaBaseURL,
			TextModel:      defaultTextModel,
			VisionModel:    defaultVisionModel,
			TimeoutSeconds: defaultOllamaTimeout,
		},
		GitHub: GitHub{
			UserName:  defaultGitUserName,
			UserEmail: defaultGitUserEmail,
		},
		Pipeline: Pipeline{
			MaxParallelItems: defaultMaxParallelItems,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
