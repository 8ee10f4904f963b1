// Package bootstrap builds the backends selected by config.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"eduplatform-backend/blob"
	"eduplatform-backend/cache"
	"eduplatform-backend/config"
	"eduplatform-backend/log"
	"eduplatform-backend/mail"
	"eduplatform-backend/store"
	"eduplatform-backend/store/memstore"
	"eduplatform-backend/store/mongostore"
)

// Store connects the configured store and creates its indexes. The returned
// func releases the connection.
func Store(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.StoreBackend {
	case "memory":
		log.Logger.Warn("using in-memory store, data will not survive a restart")
		return memstore.New(), func() {}, nil
	case "mongo":
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(cctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(dctx); err != nil {
			log.Logger.Error("failed disconnecting from database", zap.Error(err))
		}
	}

	st := mongostore.New(client, cfg.MongoDB)
	if err := st.Ping(cctx); err != nil {
		closer()
		return nil, nil, err
	}
	if err := st.EnsureIndexes(cctx); err != nil {
		closer()
		return nil, nil, err
	}
	return st, closer, nil
}

// Cache returns the configured cache and a health check for it.
func Cache(cfg *config.Config) (cache.Cache, func(ctx context.Context) error, error) {
	switch cfg.CacheBackend {
	case "memory":
		return cache.NewMemory(), func(context.Context) error { return nil }, nil
	case "redis":
		r := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		return r, r.Ping, nil
	}
	return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
}

// Blobs returns the configured blob store. FilesDir is set when the HTTP
// server has to serve the blobs itself.
func Blobs(ctx context.Context, cfg *config.Config) (blob.Store, string, error) {
	switch cfg.BlobBackend {
	case "local":
		l, err := blob.NewLocal(cfg.LocalBlobDir, cfg.PublicBaseURL)
		if err != nil {
			return nil, "", err
		}
		return l, l.Dir(), nil
	case "azure":
		a, err := blob.NewAzure(cfg.AzureStorageURL, cfg.AzureStorageAccount, cfg.AzureStorageKey, cfg.AzureStorageContainer)
		if err != nil {
			return nil, "", err
		}
		if err := a.EnsureContainer(ctx); err != nil {
			return nil, "", err
		}
		return a, "", nil
	}
	return nil, "", fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
}

// Sender returns the provider that actually delivers mail.
func Sender(cfg *config.Config) (mail.Sender, error) {
	switch cfg.MailBackend {
	case "log":
		return mail.Log{}, nil
	case "mailgun":
		if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" {
			return nil, fmt.Errorf("mailgun needs MAILGUN_DOMAIN and MAILGUN_API_KEY")
		}
		return mail.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailFrom, cfg.MailgunEU), nil
	}
	return nil, fmt.Errorf("unknown mail backend %q", cfg.MailBackend)
}
