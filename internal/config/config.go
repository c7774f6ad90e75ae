package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/zhou-yuxin/ctp-client/pkg/trading"
)

type Credentials struct {
	BrokerID string `mapstructure:"broker_id"`
	AppID    string `mapstructure:"app_id"`
	AuthCode string `mapstructure:"auth_code"`
	UserID   string `mapstructure:"user_id"`
	Password string `mapstructure:"password"`
}

type Session struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	QueryInterval time.Duration `mapstructure:"query_interval"`
	DataDir       string        `mapstructure:"data_dir"`
}

type Kafka struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type Config struct {
	ServiceName string      `mapstructure:"service_name"`
	LogLevel    string      `mapstructure:"log_level"`
	DSN         string      `mapstructure:"dsn"`
	Credentials Credentials `mapstructure:"credentials"`
	Session     Session     `mapstructure:"session"`
	Kafka       Kafka       `mapstructure:"kafka"`
	MetricsAddr string      `mapstructure:"metrics_addr"`
	Codes       []string    `mapstructure:"codes"`
}

// Trading returns the session config of trading.NewTrader.
func (c *Config) Trading() trading.Config {
	return trading.Config{
		BrokerID:      c.Credentials.BrokerID,
		AppID:         c.Credentials.AppID,
		AuthCode:      c.Credentials.AuthCode,
		UserID:        c.Credentials.UserID,
		Password:      c.Credentials.Password,
		Timeout:       c.Session.Timeout,
		QueryInterval: c.Session.QueryInterval,
		DataDir:       c.Session.DataDir,
	}
}

// flag name -> config key
var flagKeys = map[string]string{
	"dsn":           "dsn",
	"log-level":     "log_level",
	"broker-id":     "credentials.broker_id",
	"user-id":       "credentials.user_id",
	"timeout":       "session.timeout",
	"data-dir":      "session.data_dir",
	"kafka-brokers": "kafka.brokers",
	"kafka-topic":   "kafka.topic",
	"metrics-addr":  "metrics_addr",
	"codes":         "codes",
}

// RegisterFlags adds the config flags to flags. Flag values override the
// file and the environment only when set.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("config", "c", "", "path to a yaml config file")
	flags.String("dsn", "", "bridge address: zmq://, redis:// or mock://")
	flags.String("log-level", "", "log level")
	flags.String("broker-id", "", "broker id")
	flags.String("user-id", "", "investor id")
	flags.Duration("timeout", 0, "callback wait timeout")
	flags.String("data-dir", "", "instrument cache directory")
	flags.StringSlice("kafka-brokers", nil, "kafka seed brokers")
	flags.String("kafka-topic", "", "kafka topic of relayed quotes")
	flags.String("metrics-addr", "", "listen address of /metrics")
	flags.StringSlice("codes", nil, "instrument codes to subscribe")
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("service_name", service)
	v.SetDefault("log_level", "info")
	v.SetDefault("dsn", "mock://?fixtures=true")
	v.SetDefault("credentials.broker_id", "")
	v.SetDefault("credentials.app_id", "")
	v.SetDefault("credentials.auth_code", "")
	v.SetDefault("credentials.user_id", "")
	v.SetDefault("credentials.password", "")
	v.SetDefault("session.timeout", 10*time.Second)
	v.SetDefault("session.query_interval", time.Second)
	v.SetDefault("session.data_dir", ".ctp_client_data")
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "ctp.quotes")
	v.SetDefault("metrics_addr", ":9102")
	v.SetDefault("codes", []string{})
}

// Load merges defaults, the yaml file named by --config, CTP_* environment
// variables and set flags, in increasing priority. flags may be nil.
func Load(service string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CTP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, service)

	if flags != nil {
		if path, _ := flags.GetString("config"); path != "" {
			v.SetConfigFile(path)
			if err := v.MergeInConfig(); err != nil {
				return nil, errors.WithMessage(err, "fail read config "+path)
			}
		}
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, errors.WithMessage(err, "fail bind flag "+name)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WithMessage(err, "fail decode config")
	}
	if cfg.DSN == "" {
		return nil, errors.New("dsn is empty")
	}
	return cfg, nil
}
