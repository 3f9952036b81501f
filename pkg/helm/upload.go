// Package helm implements the chart-specific pieces of the registry: the
// tarball validator/uploader (§4.2), the version catalog/resolver (§4.3),
// and the per-owner chart index generator (§4.4). It is grounded on
// the teacher's pkg/helm/processor.go streaming tar/gzip walk, generalized
// from "extract to disk" into "validate while streaming, discard the
// decoded bytes."
package helm

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"chartedregistry/pkg/storage"
	"chartedregistry/pkg/types"
)

// permittedDirs is the whitelist of directory entry leaf names spec.md
// §4.2 step 1 allows inside a chart tarball.
var permittedDirs = map[string]bool{
	"charts":    true,
	"templates": true,
}

// exemptFiles may appear under any permitted directory regardless of the
// whitelist regex.
var exemptFiles = map[string]bool{
	"values.schema.json": true,
	"README.md":          true,
	"LICENSE":            true,
}

// allowedFilePattern is the whitelist regex from spec.md §4.2 step 3.
var allowedFilePattern = regexp.MustCompile(`^(Chart\.lock|Chart\.ya?ml|values\.ya?ml|\.helmignore|NOTES\.txt|[A-Za-z0-9_]+.*\.(txt|tpl|ya?ml))$`)

// Uploader validates and publishes chart tarballs (spec.md §4.2).
type Uploader struct {
	backend storage.Backend
}

// NewUploader returns an Uploader writing through backend.
func NewUploader(backend storage.Backend) *Uploader {
	return &Uploader{backend: backend}
}

// Upload validates body as a well-formed Helm chart tarball and, only if
// validation succeeds, uploads the untransformed bytes to
// repositories/{owner}/{repo}/tarballs/{version}.tgz. It returns the
// object path on success.
func (u *Uploader) Upload(ctx context.Context, owner, repo types.ULID, version types.SemVer, body []byte) (string, error) {
	if err := ValidateTarball(body); err != nil {
		return "", err
	}

	objectPath := TarballPath(owner, repo, version)
	err := u.backend.Upload(ctx, objectPath, storage.UploadRequest{
		ContentType: "application/gzip",
		Data:        bytes.NewReader(body),
	})
	if err != nil {
		return "", fmt.Errorf("upload chart tarball: %w", err)
	}

	return objectPath, nil
}

// TarballPath returns the canonical object path for a release's tarball.
func TarballPath(owner, repo types.ULID, version types.SemVer) string {
	return path.Join("repositories", owner.String(), repo.String(), "tarballs", version.String()+".tgz")
}

// ProvenancePath returns the canonical object path for a release's
// provenance file.
func ProvenancePath(owner, repo types.ULID, version types.SemVer) string {
	return path.Join("repositories", owner.String(), repo.String(), "tarballs", version.String()+".provenance.tgz")
}

// ValidateTarball walks body as a (possibly multi-member) gzip stream
// containing a tar archive, rejecting anything that does not satisfy
// spec.md §4.2's validation algorithm. It never writes to disk: the
// archive is decoded only to inspect entry metadata.
func ValidateTarball(body []byte) error {
	if len(body) == 0 {
		return types.NewError(types.CodeInvalidTarball, "empty tarball body")
	}

	reader := bytes.NewReader(body)
	sawEntry := false

	for {
		gzr, err := gzip.NewReader(reader)
		if err == io.EOF {
			break
		}
		if err != nil {
			if sawEntry {
				break
			}
			return types.NewError(types.CodeInvalidTarball, "not a valid gzip stream")
		}

		tr := tar.NewReader(gzr)
		for {
			header, err := tr.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return types.NewError(types.CodeInvalidTarball, "corrupt tar stream: "+err.Error())
			}

			if err := validateEntry(header); err != nil {
				return err
			}
			sawEntry = true

			// Drain the entry; content is not inspected, only metadata.
			if _, err := io.Copy(io.Discard, tr); err != nil {
				return types.NewError(types.CodeInvalidTarball, "failed reading entry body: "+err.Error())
			}
		}
		gzr.Close()

		if reader.Len() == 0 {
			break
		}
	}

	if !sawEntry {
		return types.NewError(types.CodeInvalidTarball, "tarball contains no entries")
	}

	return nil
}

func validateEntry(header *tar.Header) error {
	name := header.Name
	if path.IsAbs(name) || strings.Contains(name, "..") {
		return types.NewError(types.CodeInvalidTarball, "path-traversal attempt in entry "+name)
	}

	clean := path.Clean(name)
	leaf := path.Base(clean)

	switch header.Typeflag {
	case tar.TypeDir:
		if !permittedDirs[leaf] {
			return types.NewError(types.CodeInvalidTarball, "disallowed directory entry "+name)
		}
		return nil

	case tar.TypeReg, tar.TypeRegA:
		if exemptFiles[leaf] {
			return nil
		}
		if !allowedFilePattern.MatchString(leaf) {
			return types.NewError(types.CodeInvalidTarball, "disallowed file entry "+name)
		}
		return nil

	default:
		return types.NewError(types.CodeInvalidTarball, "unsupported entry type in "+name)
	}
}
