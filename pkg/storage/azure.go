package storage

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/storage"
)

// AzureCredentialKind selects how the Azure backend authenticates, per
// original_source's configuration/src/storage.rs Azure variant.
type AzureCredentialKind string

const (
	AzureCredentialAnonymous AzureCredentialKind = "Anonymous"
	AzureCredentialAccessKey AzureCredentialKind = "AccessKey"
)

// AzureConfig configures the Azure Blob backend.
type AzureConfig struct {
	Account    string
	AccountKey string
	Container  string
	Credential AzureCredentialKind
	Prefix     string
}

// AzureBackend implements Backend against Azure Blob Storage, using the
// legacy github.com/Azure/azure-sdk-for-go monolith's storage subpackage —
// the only Azure blob client grounded anywhere in the example pack (see
// DESIGN.md; no dedicated azblob module appears in any example repo).
type AzureBackend struct {
	container *storage.Container
	prefix    string
}

// NewAzureBackend builds an AzureBackend from cfg.
func NewAzureBackend(cfg AzureConfig) (*AzureBackend, error) {
	client, err := storage.NewBasicClient(cfg.Account, cfg.AccountKey)
	if err != nil {
		return nil, err
	}

	blobService := client.GetBlobService()
	container := blobService.GetContainerReference(cfg.Container)

	return &AzureBackend{container: container, prefix: cfg.Prefix}, nil
}

func (b *AzureBackend) key(p string) string {
	if b.prefix == "" {
		return strings.TrimPrefix(p, "/")
	}
	return strings.TrimSuffix(b.prefix, "/") + "/" + strings.TrimPrefix(p, "/")
}

func (b *AzureBackend) Open(_ context.Context, p string) (io.ReadCloser, error) {
	blob := b.container.GetBlobReference(b.key(p))

	exists, err := blob.Exists()
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	return blob.Get(nil)
}

func (b *AzureBackend) Blob(_ context.Context, p string) (*BlobMeta, error) {
	blob := b.container.GetBlobReference(b.key(p))

	exists, err := blob.Exists()
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	if err := blob.GetProperties(nil); err != nil {
		return nil, err
	}

	return &BlobMeta{
		Name:         lastSegment(p),
		Size:         blob.Properties.ContentLength,
		ContentType:  blob.Properties.ContentType,
		LastModified: blob.Properties.LastModified.Time(),
	}, nil
}

func (b *AzureBackend) Blobs(_ context.Context, prefix string, _ ListOptions) ([]Blob, error) {
	resp, err := b.container.ListBlobs(storage.ListBlobsParameters{
		Prefix:    b.key(prefix),
		Delimiter: "/",
	})
	if err != nil {
		return nil, err
	}

	var blobs []Blob
	for _, bp := range resp.BlobPrefixes {
		blobs = append(blobs, Blob{Kind: EntryDirectory, Name: lastSegment(bp)})
	}
	for _, item := range resp.Blobs {
		blobs = append(blobs, Blob{
			Kind:         EntryFile,
			Name:         lastSegment(item.Name),
			Size:         item.Properties.ContentLength,
			ContentType:  item.Properties.ContentType,
			LastModified: item.Properties.LastModified.Time(),
		})
	}

	return blobs, nil
}

func (b *AzureBackend) Exists(_ context.Context, p string) (bool, error) {
	blob := b.container.GetBlobReference(b.key(p))
	return blob.Exists()
}

func (b *AzureBackend) Upload(_ context.Context, p string, req UploadRequest) error {
	data, err := io.ReadAll(req.Data)
	if err != nil {
		return err
	}

	blob := b.container.GetBlobReference(b.key(p))
	if req.ContentType != "" {
		blob.Properties.ContentType = req.ContentType
	}

	return blob.CreateBlockBlobFromReader(bytes.NewReader(data), nil)
}

func (b *AzureBackend) Delete(_ context.Context, p string) error {
	blob := b.container.GetBlobReference(b.key(p))
	_, err := blob.DeleteIfExists(nil)
	return err
}
