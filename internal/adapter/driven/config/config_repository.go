// Package config implements configuration loading from files and the
// environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	"github.com/diillson/sandbox-cost-collector/internal/shared/types"
)

// Prefixo das variáveis de ambiente que sobrescrevem o arquivo.
const envPrefix = "SCC_"

// ConfigRepositoryImpl implementa o carregamento de configuração.
type ConfigRepositoryImpl struct{}

// NewConfigRepository cria uma nova implementação do ConfigRepository.
func NewConfigRepository() *ConfigRepositoryImpl {
	return &ConfigRepositoryImpl{}
}

// Load resolves the effective configuration: file (when given), then
// environment overrides, then defaults, then validation. A zero filePath
// builds the config from the environment alone.
func (r *ConfigRepositoryImpl) Load(filePath string) (*types.Config, error) {
	config := &types.Config{}

	if filePath != "" {
		loaded, err := r.LoadConfigFile(filePath)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	applyEnvOverrides(config)
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// LoadConfigFile carrega um arquivo de configuração TOML, YAML ou JSON.
func (r *ConfigRepositoryImpl) LoadConfigFile(filePath string) (*types.Config, error) {
	fileExtension := strings.ToLower(filepath.Ext(filePath))

	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("error accessing config file: %w", err)
	}
	if fileInfo.IsDir() {
		return nil, fmt.Errorf("%s is a directory, not a file", filePath)
	}

	fileData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config types.Config
	switch fileExtension {
	case ".toml":
		if err := toml.Unmarshal(fileData, &config); err != nil {
			return nil, fmt.Errorf("error parsing TOML file: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(fileData, &config); err != nil {
			return nil, fmt.Errorf("error parsing YAML file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(fileData, &config); err != nil {
			return nil, fmt.Errorf("error parsing JSON file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", fileExtension)
	}

	return &config, nil
}

func applyEnvOverrides(c *types.Config) {
	setString(&c.Region, "REGION")
	setString(&c.LeaseServiceURL, "LEASE_SERVICE_URL")
	setString(&c.ReportBucket, "REPORT_BUCKET")
	setString(&c.EventBusName, "EVENT_BUS_NAME")
	setString(&c.EventSource, "EVENT_SOURCE")
	setString(&c.ScheduleGroup, "SCHEDULE_GROUP")
	setString(&c.ScheduleTargetArn, "SCHEDULE_TARGET_ARN")
	setString(&c.ScheduleRoleArn, "SCHEDULE_ROLE_ARN")
	setString(&c.CostAccessRoleName, "COST_ACCESS_ROLE_NAME")
	setInt(&c.BillingPaddingHours, "BILLING_PADDING_HOURS")
	setInt(&c.CollectionDelayHours, "COLLECTION_DELAY_HOURS")
	setInt(&c.URLExpiryMinutes, "URL_EXPIRY_MINUTES")
	setString(&c.ListenAddr, "LISTEN_ADDR")
}

func setString(dst *string, name string) {
	if v := os.Getenv(envPrefix + name); v != "" {
		*dst = v
	}
}

func setInt(dst *int, name string) {
	v := os.Getenv(envPrefix + name)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}
