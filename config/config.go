// Package config loads orchestrator settings from the environment. A .env
// file in the working directory is honored when present so local development
// and deployed environments share the same variable names.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/hupe1980/agentpipe/core"
	"github.com/hupe1980/agentpipe/logging"
)

// Config holds every externally tunable setting of the orchestrator.
type Config struct {
	LogLevel    string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string        `envconfig:"LOG_FORMAT" default:"json"`
	StepTimeout time.Duration `envconfig:"STEP_TIMEOUT" default:"60s"`

	// Webhook automation agents.
	CustomerAgentURL   string `envconfig:"N8N_CUSTOMER_AGENT"`
	ValidationAgentURL string `envconfig:"N8N_VALIDATION_AGENT"`

	// Submit-then-poll consultation agent.
	ConsultEndpointURL  string        `envconfig:"CONSULT_ENDPOINT_URL"`
	ConsultModel        string        `envconfig:"CONSULT_MODEL" default:"amazon.nova-pro-v1:0"`
	ConsultSystemPrompt string        `envconfig:"CONSULT_SYSTEM_PROMPT" default:"You are a helpful customer service agent for an energy company. Provide clear, accurate information about energy efficiency programs and services."`
	PollInterval        time.Duration `envconfig:"POLL_INTERVAL" default:"5s"`

	// CRM service history agent.
	CRMAgentID     string `envconfig:"SALESFORCE_AGENT_ID"`
	CRMInstanceURL string `envconfig:"SALESFORCE_INSTANCE_URL"`

	// Simulated enterprise data enrichment agent.
	ERPDeploymentID  string `envconfig:"ERP_DEPLOYMENT_ID" default:"d12a3b4c5d6e7f8g9h0i"`
	ERPResourceGroup string `envconfig:"ERP_RESOURCE_GROUP" default:"default"`

	// Direct model API adapters.
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
}

// Load reads configuration from the environment, merging in a .env file if
// one exists. A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}

	return &cfg, nil
}

// LoggerLevel maps the configured level string onto a logging level.
// Unrecognized values fall back to info.
func (c *Config) LoggerLevel() logging.LogLevel {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return logging.LogLevelDebug
	case "warn", "warning":
		return logging.LogLevelWarn
	case "error":
		return logging.LogLevelError
	default:
		return logging.LogLevelInfo
	}
}

// Descriptors returns the standard five-agent fleet for the energy
// consultation deployment: two webhook automation agents, a simulated
// enterprise enrichment agent, a polling consultation agent and a CRM
// service history agent.
func (c *Config) Descriptors() []core.AgentDescriptor {
	return []core.AgentDescriptor{
		{
			AgentID:      "n8n-customer-processor",
			AgentType:    "webhook",
			Capabilities: []core.Capability{"customer_processing", "data_analysis"},
			Config: map[string]any{
				"webhook_url": c.CustomerAgentURL,
			},
		},
		{
			AgentID:      "erp-data-enrichment",
			AgentType:    "simulated",
			Capabilities: []core.Capability{"enterprise_data_enrichment", "billing_analysis", "eligibility_verification"},
			Config: map[string]any{
				"deployment_id":  c.ERPDeploymentID,
				"resource_group": c.ERPResourceGroup,
			},
		},
		{
			AgentID:      "nova-pro-energy-consultant",
			AgentType:    "polling",
			Capabilities: []core.Capability{"energy_consultation", "customer_service", "energy_efficiency"},
			Config: map[string]any{
				"endpoint_url":  c.ConsultEndpointURL,
				"model":         c.ConsultModel,
				"system_prompt": c.ConsultSystemPrompt,
			},
		},
		{
			AgentID:      "crm-service-history",
			AgentType:    "webhook",
			Capabilities: []core.Capability{"crm_service_history", "case_management", "customer_insights"},
			Config: map[string]any{
				"webhook_url": c.CRMInstanceURL,
				"agent_id":    c.CRMAgentID,
			},
		},
		{
			AgentID:      "n8n-recommendation-validator",
			AgentType:    "webhook",
			Capabilities: []core.Capability{"recommendation_validation", "compliance_check", "risk_assessment"},
			Config: map[string]any{
				"webhook_url": c.ValidationAgentURL,
			},
		},
	}
}
