package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateResolver(); err != nil {
		return err
	}
	if err := c.validateTranscribe(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateResolver() error {
	if c.Resolver.MaxSourceBytes <= 0 {
		return errors.New("resolver.max_source_bytes must be positive")
	}
	if c.Resolver.RequestTimeout <= 0 {
		return errors.New("resolver.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateTranscribe() error {
	if err := ensurePositiveMap(map[string]int{
		"transcribe.poll_interval": c.Transcribe.PollInterval,
		"transcribe.max_wait":      c.Transcribe.MaxWait,
	}); err != nil {
		return err
	}
	if c.Transcribe.MaxWait < c.Transcribe.PollInterval {
		return errors.New("transcribe.max_wait must be at least transcribe.poll_interval")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 1 {
		return errors.New("llm.temperature must be between 0 and 1")
	}
	return ensurePositiveMap(map[string]int{
		"llm.timeout_seconds": c.LLM.TimeoutSeconds,
	})
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.trigger_concurrency":     c.Workflow.TriggerConcurrency,
		"workflow.workspace_max_age_hours": c.Workflow.WorkspaceMaxAgeHours,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
