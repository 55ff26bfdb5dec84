package mongodb

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type Config struct {
	URI         string
	Database    string
	MaxPoolSize uint64
	MinPoolSize uint64
	MaxRetries  int
	TLSCAFile   string // Path to CA certificate file for TLS
}

type Client struct {
	Client *mongo.Client
	DB     *mongo.Database
	config Config
}

// Index describes one index a repository needs on its collection.
type Index struct {
	Collection string
	Keys       bson.D
	Unique     bool
	Name       string
}

// NewClient creates a new MongoDB client with connection pooling and retry logic.
// Retries back off exponentially: 1s, 2s, 4s, 8s, 16s (max).
func NewClient(config Config) (*Client, error) {
	if config.MaxPoolSize == 0 {
		config.MaxPoolSize = 100
	}
	if config.MinPoolSize == 0 {
		config.MinPoolSize = 10
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 5
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	clientOpts := options.Client().
		ApplyURI(config.URI).
		SetMaxPoolSize(config.MaxPoolSize).
		SetMinPoolSize(config.MinPoolSize).
		SetMaxConnIdleTime(60 * time.Second).
		SetServerSelectionTimeout(10 * time.Second).
		SetConnectTimeout(10 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true)

	if config.TLSCAFile != "" {
		tlsConfig, err := loadTLSConfig(config.TLSCAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS CA file: %w", err)
		}
		clientOpts.SetTLSConfig(tlsConfig)
		log.Printf("MongoDB TLS configured with CA file: %s", config.TLSCAFile)
	}

	var client *mongo.Client
	var err error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := backoff(attempt)
			log.Printf("MongoDB connection attempt %d/%d failed, retrying in %v... (error: %v)",
				attempt, config.MaxRetries, wait, err)
			time.Sleep(wait)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		client, err = mongo.Connect(ctx, clientOpts)
		if err != nil {
			cancel()
			continue
		}

		err = client.Ping(ctx, readpref.Primary())
		cancel()
		if err == nil {
			break
		}

		if attempt == config.MaxRetries {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("failed to connect to MongoDB after %d attempts: %w", config.MaxRetries, err)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB after %d attempts: %w", config.MaxRetries, err)
	}

	log.Printf("Successfully connected to MongoDB database: %s", config.Database)

	return &Client{
		Client: client,
		DB:     client.Database(config.Database),
		config: config,
	}, nil
}

func (c Config) validate() error {
	if c.URI == "" {
		return fmt.Errorf("MongoDB URI cannot be empty")
	}
	if c.Database == "" {
		return fmt.Errorf("MongoDB database name cannot be empty")
	}
	if c.MinPoolSize > c.MaxPoolSize {
		return fmt.Errorf("MinPoolSize (%d) cannot be greater than MaxPoolSize (%d)", c.MinPoolSize, c.MaxPoolSize)
	}
	return nil
}

func backoff(attempt int) time.Duration {
	d := time.Duration(1<<uint(attempt-1)) * time.Second
	if d > 16*time.Second {
		d = 16 * time.Second
	}
	return d
}

// Ping checks that the primary is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.Client == nil {
		return fmt.Errorf("MongoDB client is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return c.Client.Ping(ctx, readpref.Primary())
}

// Collection returns a collection handle
func (c *Client) Collection(name string) *mongo.Collection {
	return c.DB.Collection(name)
}

// EnsureIndexes creates the given indexes; existing identical indexes are left alone.
func (c *Client) EnsureIndexes(ctx context.Context, indexes []Index) error {
	for _, idx := range indexes {
		opts := options.Index().SetUnique(idx.Unique)
		if idx.Name != "" {
			opts.SetName(idx.Name)
		}
		model := mongo.IndexModel{Keys: idx.Keys, Options: opts}
		if _, err := c.DB.Collection(idx.Collection).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", idx.Collection, err)
		}
	}
	return nil
}

// Close disconnects the client.
func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Disconnect(ctx)
}

// loadTLSConfig loads a TLS configuration with a custom CA certificate
func loadTLSConfig(caFile string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to parse CA certificate from %s", caFile)
	}

	return &tls.Config{
		RootCAs:    caCertPool,
		MinVersion: tls.VersionTLS12,
	}, nil
}
