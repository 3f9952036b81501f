package main

import (
	"fmt"
	"os"

	"chartedregistry/internal/api"
	"chartedregistry/internal/config"
	"chartedregistry/internal/logging"
	"chartedregistry/pkg/auth"
	"chartedregistry/pkg/authz"
	"chartedregistry/pkg/registry"
	"chartedregistry/pkg/session"
	"chartedregistry/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "chartedregistry: ", err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Getenv("CHARTED_DEBUG") == "true")
	if err != nil {
		fmt.Fprintln(os.Stderr, "chartedregistry: failed to build logger: ", err)
		os.Exit(1)
	}
	defer logger.Sync()

	backend, err := buildStorageBackend(cfg)
	if err != nil {
		logger.Sugar().Fatalw("failed to build storage backend", "error", err)
	}

	owners := registry.NewOwnerStore()
	repos := registry.NewRepositoryStore()
	releases := registry.NewReleaseStore()
	apikeys := registry.NewApiKeyStore()

	signer := auth.NewSigner(cfg.JWTSecretKey, "Noelware/charted-server")
	sessions := session.NewManager(signer)

	authzBackend, err := buildAuthzBackend(cfg)
	if err != nil {
		logger.Sugar().Fatalw("failed to build authz backend", "error", err)
	}

	handlers := api.NewHandlers(cfg, owners, repos, releases, apikeys, sessions, signer, authzBackend, backend, logger)
	router := api.SetupRouter(handlers)

	logger.Sugar().Infow("starting chartedregistry", "addr", cfg.ListenAddr, "storage", cfg.Storage)
	if err := router.Run(cfg.ListenAddr); err != nil {
		logger.Sugar().Fatalw("server exited", "error", err)
	}
}

func buildStorageBackend(cfg *config.Config) (storage.Backend, error) {
	switch cfg.Storage {
	case config.StorageFilesystem:
		return storage.NewFilesystemBackend(cfg.FilesystemDirectory)
	case config.StorageS3:
		return storage.NewS3Backend(storage.S3Config{
			Endpoint:         cfg.S3Endpoint,
			Region:           cfg.S3Region,
			Bucket:           cfg.S3Bucket,
			Prefix:           cfg.S3Prefix,
			AccessKeyID:      cfg.S3AccessKeyID,
			SecretAccessKey:  cfg.S3SecretAccessKey,
			EnforcePathStyle: cfg.S3EnforcePathStyle,
		}), nil
	case config.StorageAzure:
		credential := storage.AzureCredentialAnonymous
		if cfg.AzureAccountKey != "" {
			credential = storage.AzureCredentialAccessKey
		}
		return storage.NewAzureBackend(storage.AzureConfig{
			Account:    cfg.AzureAccount,
			AccountKey: cfg.AzureAccountKey,
			Container:  cfg.AzureContainer,
			Credential: credential,
			Prefix:     cfg.AzurePrefix,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}

func buildAuthzBackend(cfg *config.Config) (authz.Backend, error) {
	switch cfg.SessionsBackend {
	case config.AuthzLocal:
		return authz.LocalBackend{Verify: authz.BcryptVerify}, nil
	case config.AuthzStatic:
		return authz.StaticBackend{Users: cfg.StaticUsers}, nil
	case config.AuthzLdap:
		return authz.LdapBackend{}, nil
	default:
		return nil, fmt.Errorf("unknown sessions backend %q", cfg.SessionsBackend)
	}
}
