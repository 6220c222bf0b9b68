package types

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Config represents the application configuration that can be loaded from a file.
type Config struct {
	Region               string `json:"region" yaml:"region" toml:"region" validate:"required"`
	LeaseServiceURL      string `json:"lease_service_url" yaml:"lease_service_url" toml:"lease_service_url" validate:"required,url"`
	ReportBucket         string `json:"report_bucket" yaml:"report_bucket" toml:"report_bucket" validate:"required"`
	EventBusName         string `json:"event_bus_name" yaml:"event_bus_name" toml:"event_bus_name" validate:"required"`
	EventSource          string `json:"event_source" yaml:"event_source" toml:"event_source" validate:"required"`
	ScheduleGroup        string `json:"schedule_group" yaml:"schedule_group" toml:"schedule_group"`
	ScheduleTargetArn    string `json:"schedule_target_arn" yaml:"schedule_target_arn" toml:"schedule_target_arn"`
	ScheduleRoleArn      string `json:"schedule_role_arn" yaml:"schedule_role_arn" toml:"schedule_role_arn"`
	CostAccessRoleName   string `json:"cost_access_role_name" yaml:"cost_access_role_name" toml:"cost_access_role_name" validate:"required"`
	BillingPaddingHours  int    `json:"billing_padding_hours" yaml:"billing_padding_hours" toml:"billing_padding_hours" validate:"gte=0,lte=72"`
	CollectionDelayHours int    `json:"collection_delay_hours" yaml:"collection_delay_hours" toml:"collection_delay_hours" validate:"gte=0,lte=720"`
	URLExpiryMinutes     int    `json:"url_expiry_minutes" yaml:"url_expiry_minutes" toml:"url_expiry_minutes" validate:"gt=5"`
	ListenAddr           string `json:"listen_addr" yaml:"listen_addr" toml:"listen_addr"`
}

// ApplyDefaults preenche os campos opcionais com valores padrão.
func (c *Config) ApplyDefaults() {
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	if c.EventSource == "" {
		c.EventSource = "sandbox.cost-collector"
	}
	if c.ScheduleGroup == "" {
		c.ScheduleGroup = "sandbox-cost-collection"
	}
	if c.BillingPaddingHours == 0 {
		c.BillingPaddingHours = 8
	}
	if c.URLExpiryMinutes == 0 {
		c.URLExpiryMinutes = 7 * 24 * 60
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
}

// Validate checks the configuration at startup. Out-of-range values (notably
// the 0-720h collection delay) abort before any AWS client is built.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	verrs := ValidationErrors{}
	if ok := errors.As(err, &fieldErrs); ok {
		for _, fe := range fieldErrs {
			verrs = append(verrs, ValidationError{
				Field:  fe.Field(),
				Value:  fmt.Sprintf("%v", fe.Value()),
				Reason: fmt.Sprintf("failed %q constraint", fe.Tag()),
			})
		}
		return verrs
	}
	return err
}
