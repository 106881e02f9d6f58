package config

import (
	"time"

	"github.com/pitabwire/frame/config"
)

// CallerConfig holds configuration for the outbound caller service.
type CallerConfig struct {
	config.ConfigurationDefault

	// CRM connection.
	CRMBaseURL     string `envDefault:"https://dev.teracrm.ai/api/v1/auth" env:"CRM_BASE_URL"`
	CRMBearerToken string `envDefault:""                                   env:"CRM_BEARER_TOKEN"`
	CRMTimeoutSec  int    `envDefault:"10"                                 env:"CRM_TIMEOUT_SEC"`

	// Telephony room service.
	RoomServiceURL   string `envDefault:""   env:"ROOM_SERVICE_URL"`
	RoomServiceToken string `envDefault:""   env:"ROOM_SERVICE_TOKEN"`
	SIPOutboundTrunk string `envDefault:""   env:"SIP_OUTBOUND_TRUNK_ID"`

	// Clinic identity used on CRM requests.
	ClinicID    string `envDefault:"34"                   env:"CLINIC_ID"`
	WebsiteName string `envDefault:"indianaimplantclinic" env:"WEBSITE_NAME"`

	// Default transfer target for escalations; empty disables transfer.
	TransferNumber string `envDefault:"" env:"TRANSFER_NUMBER"`

	// Call scripts.
	ScriptDir     string `envDefault:"./scripts"              env:"SCRIPT_DIR"`
	DefaultScript string `envDefault:"appointment-specialist" env:"DEFAULT_SCRIPT"`

	// Per-tool handler deadline.
	ToolTimeoutSec int `envDefault:"10" env:"TOOL_TIMEOUT_SEC"`
}

// CRMTimeout returns the CRM request timeout as a duration.
func (c *CallerConfig) CRMTimeout() time.Duration {
	if c.CRMTimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.CRMTimeoutSec) * time.Second
}

// ToolTimeout returns the per-tool handler deadline as a duration.
func (c *CallerConfig) ToolTimeout() time.Duration {
	if c.ToolTimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ToolTimeoutSec) * time.Second
}
