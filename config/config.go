package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig
	MongoDB       MongoDBConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	JWT           JWTConfig
	Platforms     PlatformsConfig
	ProcessorPort int
}

type ServerConfig struct {
	Port           string
	Environment    string
	Version        string
	AllowedOrigins []string
}

type MongoDBConfig struct {
	URI         string
	Database    string
	MaxPoolSize uint64
	MinPoolSize uint64
	MaxRetries  int
	TLSCAFile   string
}

type RedisConfig struct {
	URL          string
	AdAccountTTL time.Duration
}

type KafkaConfig struct {
	Brokers         []string
	ProducerTimeout int
	ConsumerGroup   string
	ClientID        string
	Username        string
	Password        string
	SSL             bool
	SASLMechanism   string
	Topics          KafkaTopics
}

type KafkaTopics struct {
	CampaignEvents string
	SyncRequests   string
}

// JWTConfig only validates tokens; issuing them belongs to the auth service.
type JWTConfig struct {
	JWKSEndpoint string // JWKS endpoint for RS256 validation
	SharedSecret string // Shared secret for HS256 validation
	Issuer       string
}

// OAuthAppConfig holds the registered app credentials and endpoints of one ad vendor.
type OAuthAppConfig struct {
	ClientID     string
	ClientSecret string
	APIURL       string
	TokenURL     string
}

// Configured reports whether both app credentials are present.
func (c OAuthAppConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

type PlatformsConfig struct {
	HTTPTimeout    time.Duration
	Facebook       OAuthAppConfig
	Google         OAuthAppConfig
	LinkedIn       OAuthAppConfig
	Twitter        OAuthAppConfig
	Snapchat       OAuthAppConfig
	DeveloperToken string // Google Ads developer-token header
}

// App returns the app config for a lower-case credential owner key
// (facebook, google, linkedin, twitter, snapchat).
func (c PlatformsConfig) App(key string) (OAuthAppConfig, bool) {
	switch key {
	case "facebook":
		return c.Facebook, true
	case "google":
		return c.Google, true
	case "linkedin":
		return c.LinkedIn, true
	case "twitter":
		return c.Twitter, true
	case "snapchat":
		return c.Snapchat, true
	}
	return OAuthAppConfig{}, false
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	setDefaults()

	// SERVER_PORT overrides server.port
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/campaign-manager")

	// Reading config file is optional
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config

	config.Server = ServerConfig{
		Port:           viper.GetString("server.port"),
		Environment:    viper.GetString("server.environment"),
		Version:        viper.GetString("server.version"),
		AllowedOrigins: viper.GetStringSlice("server.allowed_origins"),
	}

	config.MongoDB = MongoDBConfig{
		URI:         viper.GetString("mongodb.uri"),
		Database:    viper.GetString("mongodb.database"),
		MaxPoolSize: viper.GetUint64("mongodb.max_pool_size"),
		MinPoolSize: viper.GetUint64("mongodb.min_pool_size"),
		MaxRetries:  viper.GetInt("mongodb.max_retries"),
		TLSCAFile:   viper.GetString("mongodb.tls_ca_file"),
	}

	config.Redis = RedisConfig{
		URL:          viper.GetString("redis.url"),
		AdAccountTTL: viper.GetDuration("redis.ad_account_ttl"),
	}

	config.Kafka = KafkaConfig{
		Brokers:         viper.GetStringSlice("kafka.brokers"),
		ProducerTimeout: viper.GetInt("kafka.producer_timeout"),
		ConsumerGroup:   viper.GetString("kafka.consumer_group"),
		ClientID:        viper.GetString("kafka.client_id"),
		Username:        viper.GetString("kafka.username"),
		Password:        viper.GetString("kafka.password"),
		SSL:             viper.GetBool("kafka.ssl"),
		SASLMechanism:   viper.GetString("kafka.sasl_mechanism"),
		Topics: KafkaTopics{
			CampaignEvents: viper.GetString("kafka.topics.campaign_events"),
			SyncRequests:   viper.GetString("kafka.topics.sync_requests"),
		},
	}

	config.JWT = JWTConfig{
		JWKSEndpoint: viper.GetString("jwt.jwks_endpoint"),
		SharedSecret: viper.GetString("jwt.shared_secret"),
		Issuer:       viper.GetString("jwt.issuer"),
	}

	config.Platforms = PlatformsConfig{
		HTTPTimeout:    viper.GetDuration("platforms.http_timeout"),
		Facebook:       loadApp("facebook"),
		Google:         loadApp("google"),
		LinkedIn:       loadApp("linkedin"),
		Twitter:        loadApp("twitter"),
		Snapchat:       loadApp("snapchat"),
		DeveloperToken: viper.GetString("platforms.google.developer_token"),
	}

	config.ProcessorPort = viper.GetInt("processor.port")

	return &config, nil
}

func loadApp(name string) OAuthAppConfig {
	prefix := "platforms." + name + "."
	return OAuthAppConfig{
		ClientID:     viper.GetString(prefix + "client_id"),
		ClientSecret: viper.GetString(prefix + "client_secret"),
		APIURL:       viper.GetString(prefix + "api_url"),
		TokenURL:     viper.GetString(prefix + "token_url"),
	}
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.environment", "development")
	viper.SetDefault("server.version", "1.0.0")
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// MongoDB defaults
	viper.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongodb.database", "campaign_manager")
	viper.SetDefault("mongodb.max_pool_size", 100)
	viper.SetDefault("mongodb.min_pool_size", 10)
	viper.SetDefault("mongodb.max_retries", 5)
	viper.SetDefault("mongodb.tls_ca_file", "")

	// Redis defaults, empty url disables the ad account cache
	viper.SetDefault("redis.url", "")
	viper.SetDefault("redis.ad_account_ttl", time.Hour)

	// Kafka defaults
	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.producer_timeout", 5000)
	viper.SetDefault("kafka.consumer_group", "campaign-manager")
	viper.SetDefault("kafka.client_id", "campaign-manager-producer")
	viper.SetDefault("kafka.username", "")
	viper.SetDefault("kafka.password", "")
	viper.SetDefault("kafka.ssl", false)
	viper.SetDefault("kafka.sasl_mechanism", "plain")
	viper.SetDefault("kafka.topics.campaign_events", "campaigns.events")
	viper.SetDefault("kafka.topics.sync_requests", "campaigns.sync_requested")

	// JWT defaults
	viper.SetDefault("jwt.jwks_endpoint", "")
	viper.SetDefault("jwt.shared_secret", "")
	viper.SetDefault("jwt.issuer", "")

	// Platform defaults
	viper.SetDefault("platforms.http_timeout", 30*time.Second)
	viper.SetDefault("platforms.facebook.api_url", "https://graph.facebook.com/v18.0")
	viper.SetDefault("platforms.facebook.token_url", "https://graph.facebook.com/v18.0/oauth/access_token")
	viper.SetDefault("platforms.google.api_url", "https://googleads.googleapis.com/v14")
	viper.SetDefault("platforms.google.token_url", "https://oauth2.googleapis.com/token")
	viper.SetDefault("platforms.linkedin.api_url", "https://api.linkedin.com/v2")
	viper.SetDefault("platforms.linkedin.token_url", "https://www.linkedin.com/oauth/v2/accessToken")
	viper.SetDefault("platforms.twitter.api_url", "https://ads-api.twitter.com/12")
	viper.SetDefault("platforms.twitter.token_url", "https://api.twitter.com/2/oauth2/token")
	viper.SetDefault("platforms.snapchat.api_url", "https://adsapi.snapchat.com/v1")
	viper.SetDefault("platforms.snapchat.token_url", "https://accounts.snapchat.com/login/oauth2/access_token")

	viper.SetDefault("processor.port", 8081)
}
