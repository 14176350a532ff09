package aralert_api

import (
	"fmt"
	"os"

	"github.com/dnamazing/aralert/logger"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Defaults for missing config values
const (
	defaultAlignerExecutable = "bwa"
	defaultSMSEndpoint       = "https://rest.nexmo.com/sms/json"
	defaultSMTPPort          = 587
)

// The struct representing the configuration file
// The config file is a YAML file, every section is optional
type Config struct {
	// How to run the external aligner
	Aligner AlignerConfig `yaml:"aligner"`

	// How to write the report
	Report ReportConfig `yaml:"report"`

	// Where to send SMS alerts, alerts are only sent when Key is set
	SMS SMSConfig `yaml:"sms"`

	// Where to send email alerts, alerts are only sent when Host is set
	Email EmailConfig `yaml:"email"`
}

type AlignerConfig struct {
	// The aligner binary, looked up on PATH
	Executable string `yaml:"executable"`

	// "short" for short reads (bwa mem), "long" for long reads (minimap2)
	Mode string `yaml:"mode"`

	// The number of aligner threads
	Threads int `yaml:"threads"`
}

type ReportConfig struct {
	// The column delimiter of the report, a single character
	Delimiter string `yaml:"delimiter"`
}

type SMSConfig struct {
	Endpoint string   `yaml:"endpoint"`
	Key      string   `yaml:"key"`
	Secret   string   `yaml:"secret"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

type EmailConfig struct {
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
	Username     string   `yaml:"username"`
	Password     string   `yaml:"password"`
	From         string   `yaml:"from"`
	To           []string `yaml:"to"`
	AttachReport bool     `yaml:"attach_report"`
}

// ReadConfig reads the configuration file, overlays secrets from the
// environment and fills in defaults. An empty path gives the defaults.
func ReadConfig(path string) (*Config, error) {
	var config Config

	if path != "" {
		configFile, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open the config file: %w", err)
		}
		if err := yaml.UnmarshalStrict(configFile, &config); err != nil {
			return nil, fmt.Errorf("failed to parse the config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env found, using local environment")
	}
	config.applyEnv()

	config.defineMissing()
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Secrets are better kept out of the config file
func (config *Config) applyEnv() {
	overlay := func(target *string, key string) {
		if value := os.Getenv(key); value != "" {
			*target = value
		}
	}
	overlay(&config.SMS.Key, "NEXMO_API_KEY")
	overlay(&config.SMS.Secret, "NEXMO_API_SECRET")
	overlay(&config.Email.Username, "SMTP_USERNAME")
	overlay(&config.Email.Password, "SMTP_PASSWORD")
}

// Define all missing fields
func (config *Config) defineMissing() {
	if config.Aligner.Executable == "" {
		if config.Aligner.Mode == AlignModeLong {
			config.Aligner.Executable = "minimap2"
		} else {
			config.Aligner.Executable = defaultAlignerExecutable
		}
	}
	if config.Aligner.Mode == "" {
		config.Aligner.Mode = AlignModeShort
	}
	if config.Aligner.Threads < 1 {
		config.Aligner.Threads = 1
	}
	if config.Report.Delimiter == "" {
		config.Report.Delimiter = ","
	}
	if config.SMS.Endpoint == "" {
		config.SMS.Endpoint = defaultSMSEndpoint
	}
	if config.Email.Port == 0 {
		config.Email.Port = defaultSMTPPort
	}
	if config.Email.From == "" {
		config.Email.From = config.Email.Username
	}
}

func (config *Config) validate() error {
	if config.Aligner.Mode != AlignModeShort && config.Aligner.Mode != AlignModeLong {
		return fmt.Errorf("invalid aligner mode '%s', must be one of: %s, %s", config.Aligner.Mode, AlignModeShort, AlignModeLong)
	}
	if len([]rune(config.Report.Delimiter)) != 1 {
		return fmt.Errorf("invalid report delimiter '%s', must be a single character", config.Report.Delimiter)
	}
	return nil
}

// ReportDelimiter returns the report delimiter as a rune.
func (config *Config) ReportDelimiter() rune {
	return []rune(config.Report.Delimiter)[0]
}

// Notifiers returns a notifier for every configured channel.
func (config *Config) Notifiers() []Notifier {
	notifiers := []Notifier{}
	if config.SMS.Key != "" && len(config.SMS.To) > 0 {
		notifiers = append(notifiers, NewSMSNotifier(config.SMS))
	}
	if config.Email.Host != "" && len(config.Email.To) > 0 {
		notifiers = append(notifiers, NewEmailNotifier(config.Email))
	}
	return notifiers
}
