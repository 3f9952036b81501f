// Package config reads the environment-driven configuration spec.md §6
// lists, grounded on original_source/crates/configuration's CHARTED_-
// prefixed environment variable convention.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// StorageKind selects the object store backend.
type StorageKind string

const (
	StorageFilesystem StorageKind = "filesystem"
	StorageS3         StorageKind = "s3"
	StorageAzure      StorageKind = "azure"
)

// AuthzKind selects the sessions authorization backend.
type AuthzKind string

const (
	AuthzLocal  AuthzKind = "local"
	AuthzStatic AuthzKind = "static"
	AuthzLdap   AuthzKind = "ldap"
)

// Config is the fully resolved server configuration.
type Config struct {
	JWTSecretKey        string
	Registrations       bool
	SingleUser          bool
	SingleOrg           bool
	BaseURL             string
	SessionsEnableBasic bool
	SessionsBackend     AuthzKind

	// StaticUsers holds the username->password pairs for
	// CHARTED_SESSIONS_BACKEND=static, keyed by lowercased username. The
	// owner must still exist in the owner registry: login and basic auth
	// resolve it there before the static password is checked.
	StaticUsers map[string]string

	Storage StorageKind

	FilesystemDirectory string

	S3Endpoint         string
	S3Region           string
	S3Bucket           string
	S3Prefix           string
	S3AccessKeyID      string
	S3SecretAccessKey  string
	S3EnforcePathStyle bool

	AzureAccount    string
	AzureAccountKey string
	AzureContainer  string
	AzurePrefix     string

	ListenAddr string
}

// Load builds a Config from the process environment, the same
// `os.Getenv`-per-field style the teacher's cmd/main.go uses for its
// single PORT variable, generalized to the full CHARTED_-prefixed set.
func Load() (*Config, error) {
	cfg := &Config{
		JWTSecretKey:        os.Getenv("CHARTED_JWT_SECRET_KEY"),
		Registrations:       envBool("CHARTED_REGISTRATIONS", false),
		SingleUser:          envBool("CHARTED_SINGLE_USER", false),
		SingleOrg:           envBool("CHARTED_SINGLE_ORG", false),
		BaseURL:             envString("CHARTED_BASE_URL", "http://localhost:8080"),
		SessionsEnableBasic: envBool("CHARTED_SESSIONS_ENABLE_BASIC_AUTH", false),
		SessionsBackend:     AuthzKind(envString("CHARTED_SESSIONS_BACKEND", string(AuthzLocal))),
		StaticUsers:         envStaticUsers("CHARTED_SESSIONS_STATIC_USERS"),

		Storage:             StorageKind(envString("CHARTED_STORAGE_SERVICE", string(StorageFilesystem))),
		FilesystemDirectory: envString("CHARTED_STORAGE_FILESYSTEM_DIRECTORY", "./data"),

		S3Endpoint:         os.Getenv("CHARTED_STORAGE_S3_ENDPOINT"),
		S3Region:           os.Getenv("CHARTED_STORAGE_S3_REGION"),
		S3Bucket:           os.Getenv("CHARTED_STORAGE_S3_BUCKET"),
		S3Prefix:           os.Getenv("CHARTED_STORAGE_S3_PREFIX"),
		S3AccessKeyID:      os.Getenv("CHARTED_STORAGE_S3_ACCESS_KEY_ID"),
		S3SecretAccessKey:  os.Getenv("CHARTED_STORAGE_S3_SECRET_ACCESS_KEY"),
		S3EnforcePathStyle: envBool("CHARTED_STORAGE_S3_ENFORCE_PATH_STYLE", false),

		AzureAccount:    os.Getenv("CHARTED_STORAGE_AZURE_ACCOUNT"),
		AzureAccountKey: os.Getenv("CHARTED_STORAGE_AZURE_ACCOUNT_KEY"),
		AzureContainer:  os.Getenv("CHARTED_STORAGE_AZURE_CONTAINER"),
		AzurePrefix:     os.Getenv("CHARTED_STORAGE_AZURE_PREFIX"),

		ListenAddr: envString("CHARTED_LISTEN_ADDR", ":8080"),
	}

	if cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("CHARTED_JWT_SECRET_KEY must be set")
	}

	switch cfg.Storage {
	case StorageFilesystem, StorageS3, StorageAzure:
	default:
		return nil, fmt.Errorf("unknown CHARTED_STORAGE_SERVICE %q", cfg.Storage)
	}

	switch cfg.SessionsBackend {
	case AuthzLocal, AuthzStatic, AuthzLdap:
	default:
		return nil, fmt.Errorf("unknown CHARTED_SESSIONS_BACKEND %q", cfg.SessionsBackend)
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return parsed
}

// envStaticUsers parses a "user:password,user2:password" pair list for the
// static sessions backend. Malformed entries are skipped rather than
// failing startup, since a typo in one user shouldn't take the service down.
func envStaticUsers(key string) map[string]string {
	users := map[string]string{}
	v := os.Getenv(key)
	if v == "" {
		return users
	}
	for _, pair := range strings.Split(v, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, password, ok := strings.Cut(pair, ":")
		if !ok || name == "" || password == "" {
			continue
		}
		users[strings.ToLower(name)] = password
	}
	return users
}
