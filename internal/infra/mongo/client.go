package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"

	"github.com/arklim/account-service/internal/infra/config"
)

// Client owns the MongoDB connection used when the document store backend is selected.
type Client struct {
	client   *mongo.Client
	database *mongo.Database
	logger   *zap.Logger
}

// NewClient connects and pings the primary.
func NewClient(ctx context.Context, cfg config.MongoSettings, logger *zap.Logger) (*Client, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	logger.Info("connected to mongo", zap.String("database", cfg.Database))

	return &Client{
		client:   client,
		database: client.Database(cfg.Database),
		logger:   logger,
	}, nil
}

// Database returns the configured database handle.
func (c *Client) Database() *mongo.Database {
	return c.database
}

// Ping satisfies the readiness checker used by the HTTP layer.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo health check failed: %w", err)
	}
	return nil
}

// Close disconnects from the cluster.
func (c *Client) Close(ctx context.Context) error {
	c.logger.Info("closing mongo connection")
	if err := c.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	return nil
}
