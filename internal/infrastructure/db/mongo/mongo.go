package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultTimeout = 10 * time.Second
	defaultAppName = "suatgpt"
)

// Config holds the MONGO_* settings.
type Config struct {
	URI      string
	Database string
	// AppName is reported to the server as the client application name.
	AppName string
	// Timeout bounds connecting, the ping and index creation. Defaults to 10s.
	Timeout time.Duration
}

func (cfg Config) clientOptions() *options.ClientOptions {
	appName := cfg.AppName
	if appName == "" {
		appName = defaultAppName
	}
	return options.Client().
		ApplyURI(cfg.URI).
		SetAppName(appName).
		SetConnectTimeout(cfg.timeout()).
		SetServerSelectionTimeout(cfg.timeout())
}

func (cfg Config) timeout() time.Duration {
	if cfg.Timeout <= 0 {
		return defaultTimeout
	}
	return cfg.Timeout
}

// Store is a connected database with both repositories ready for use.
type Store struct {
	Client *mongo.Client
	Users  *UserRepository
	Turns  *TurnRepository
}

// Open connects, pings and creates the indexes the repositories rely on.
// On any failure the client is disconnected before returning.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.timeout())
	defer cancel()

	client, err := mongo.Connect(ctx, cfg.clientOptions())
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	st, err := newStore(ctx, client, cfg.Database)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return st, nil
}

func newStore(ctx context.Context, client *mongo.Client, database string) (*Store, error) {
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(database)
	st := &Store{
		Client: client,
		Users:  NewUserRepository(db),
		Turns:  NewTurnRepository(db),
	}
	if err := st.Users.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("mongo users indexes: %w", err)
	}
	if err := st.Turns.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("mongo turns indexes: %w", err)
	}
	return st, nil
}

// Ping reports whether the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}
