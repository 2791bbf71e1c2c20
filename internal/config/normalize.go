package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCloud()
	c.normalizeResolver()
	c.normalizeTranscribe()
	c.normalizeLLM()
	c.normalizeStorage()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		c.Store.Path = defaultStorePath
	}
	if c.Store.Path, err = expandPath(c.Store.Path); err != nil {
		return fmt.Errorf("store.path: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeCloud() {
	if c.Cloud.APIKey == "" {
		if value, ok := os.LookupEnv("CONSPECT_API_KEY"); ok {
			c.Cloud.APIKey = value
		}
	}
	if c.Cloud.FolderID == "" {
		if value, ok := os.LookupEnv("CONSPECT_FOLDER_ID"); ok {
			c.Cloud.FolderID = value
		}
	}
	c.Cloud.APIKey = strings.TrimSpace(c.Cloud.APIKey)
	c.Cloud.FolderID = strings.TrimSpace(c.Cloud.FolderID)
}

func (c *Config) normalizeResolver() {
	c.Resolver.BaseURL = strings.TrimRight(strings.TrimSpace(c.Resolver.BaseURL), "/")
	if c.Resolver.BaseURL == "" {
		c.Resolver.BaseURL = defaultResolverBaseURL
	}
	if c.Resolver.RequestTimeout <= 0 {
		c.Resolver.RequestTimeout = defaultResolverTimeout
	}
	if c.Resolver.MaxSourceBytes <= 0 {
		c.Resolver.MaxSourceBytes = defaultMaxSourceBytes
	}
}

func (c *Config) normalizeTranscribe() {
	c.Transcribe.RecognizeURL = strings.TrimSpace(c.Transcribe.RecognizeURL)
	if c.Transcribe.RecognizeURL == "" {
		c.Transcribe.RecognizeURL = defaultRecognizeURL
	}
	c.Transcribe.OperationURL = strings.TrimRight(strings.TrimSpace(c.Transcribe.OperationURL), "/")
	if c.Transcribe.OperationURL == "" {
		c.Transcribe.OperationURL = defaultOperationURL
	}
	if strings.TrimSpace(c.Transcribe.Language) == "" {
		c.Transcribe.Language = defaultTranscribeLanguage
	}
	if strings.TrimSpace(c.Transcribe.Model) == "" {
		c.Transcribe.Model = defaultTranscribeModel
	}
	if c.Transcribe.PollInterval <= 0 {
		c.Transcribe.PollInterval = defaultTranscribePollSec
	}
	if c.Transcribe.MaxWait <= 0 {
		c.Transcribe.MaxWait = defaultTranscribeMaxWaitSec
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.CompletionURL = strings.TrimSpace(c.LLM.CompletionURL)
	if c.LLM.CompletionURL == "" {
		c.LLM.CompletionURL = defaultCompletionURL
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.Temperature <= 0 {
		c.LLM.Temperature = defaultLLMTemperature
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeStorage() {
	if c.Storage.AccessKey == "" {
		if value, ok := os.LookupEnv("CONSPECT_S3_ACCESS_KEY"); ok {
			c.Storage.AccessKey = value
		} else if value, ok := os.LookupEnv("AWS_ACCESS_KEY_ID"); ok {
			c.Storage.AccessKey = value
		}
	}
	if c.Storage.SecretKey == "" {
		if value, ok := os.LookupEnv("CONSPECT_S3_SECRET_KEY"); ok {
			c.Storage.SecretKey = value
		} else if value, ok := os.LookupEnv("AWS_SECRET_ACCESS_KEY"); ok {
			c.Storage.SecretKey = value
		}
	}
	c.Storage.Endpoint = strings.TrimSpace(c.Storage.Endpoint)
	if c.Storage.Endpoint == "" {
		c.Storage.Endpoint = defaultStorageEndpoint
	}
	if strings.TrimSpace(c.Storage.Region) == "" {
		c.Storage.Region = defaultStorageRegion
	}
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.TriggerConcurrency <= 0 {
		c.Workflow.TriggerConcurrency = defaultTriggerConcurrency
	}
	if c.Workflow.WorkspaceMaxAgeHours <= 0 {
		c.Workflow.WorkspaceMaxAgeHours = defaultWorkspaceMaxAgeHours
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
