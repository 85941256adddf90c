package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Canonical allow-lists for the universal router. Overridable via
// UNIVERSAL_ROUTER; V2/V3 router lists are configuration only, no
// env-var override is named in the spec so they are flag/config-file only.
var defaultUniversalRouters = []string{
	"0x3fc91a3afd70395cd496c647d5a6cc9d4b2b7fad",
	"0xef1c6e67703c7bd7107eed8303fbe6ec2554bf6b",
}

// Config holds every runtime setting recognized by the pipeline.
type Config struct {
	HTTPRPCURLs    []string
	WSSRPCURL      string
	ChainID        uint64
	UniversalRouter []string
	V2Routers       []string
	V3Routers       []string

	KafkaBrokers           []string
	KafkaClientID          string
	KafkaGroupID           string
	KafkaTransactionsTopic string
	KafkaOpportunitiesTopic string

	DatabaseURL string

	QuoterAddress string

	LogLevel string
}

// Load merges config file, environment variables, and flags into Config.
// Unlike the teacher's INDEXER_-prefixed viper binding, the spec names
// bare environment variables (HTTP_RPC_URL, WSS_RPC_URL, ...), so each key
// is bound individually rather than through a single SetEnvPrefix call.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()

	v.SetDefault("log-level", "info")
	v.SetDefault("kafka-client-id", "sentryx")
	v.SetDefault("kafka-group-id", "sentryx-consumer")
	v.SetDefault("kafka-transactions-topic", "transactions")
	v.SetDefault("kafka-opportunities-topic", "opportunities")
	v.SetDefault("chain-id", uint64(1))

	bind := map[string]string{
		"http-rpc-url":              "HTTP_RPC_URL",
		"wss-rpc-url":               "WSS_RPC_URL",
		"universal-router":          "UNIVERSAL_ROUTER",
		"chain-id":                  "CHAIN_ID",
		"kafka-brokers":             "KAFKA_BROKERS",
		"kafka-client-id":           "KAFKA_CLIENT_ID",
		"kafka-group-id":            "KAFKA_GROUP_ID",
		"kafka-transactions-topic":  "KAFKA_TRANSACTIONS_TOPIC",
		"kafka-opportunities-topic": "KAFKA_OPPORTUNITIES_TOPIC",
		"database-url":              "DATABASE_URL",
	}
	for key, env := range bind {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	universalRouters := getStringSlice(v, "universal-router")
	if len(universalRouters) == 0 {
		universalRouters = append([]string{}, defaultUniversalRouters...)
	}

	cfg := Config{
		HTTPRPCURLs:             getStringSlice(v, "http-rpc-url"),
		WSSRPCURL:               v.GetString("wss-rpc-url"),
		ChainID:                 v.GetUint64("chain-id"),
		UniversalRouter:         lowercaseAll(universalRouters),
		V2Routers:               lowercaseAll(getStringSlice(v, "v2-router")),
		V3Routers:               lowercaseAll(getStringSlice(v, "v3-router")),
		KafkaBrokers:            getStringSlice(v, "kafka-brokers"),
		KafkaClientID:           v.GetString("kafka-client-id"),
		KafkaGroupID:            v.GetString("kafka-group-id"),
		KafkaTransactionsTopic:  v.GetString("kafka-transactions-topic"),
		KafkaOpportunitiesTopic: v.GetString("kafka-opportunities-topic"),
		DatabaseURL:             v.GetString("database-url"),
		QuoterAddress:           strings.ToLower(v.GetString("quoter-address")),
		LogLevel:                v.GetString("log-level"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if len(c.HTTPRPCURLs) == 0 {
		return fmt.Errorf("HTTP_RPC_URL is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

func lowercaseAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, strings.ToLower(item))
	}
	return out
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
