package helm

import (
	"context"
	"io"
	"path"
	"strings"

	"chartedregistry/pkg/storage"
	"chartedregistry/pkg/types"
)

// Resolver enumerates and resolves the released versions of a repository
// (spec.md §4.3), grounded on original_source's helm-charts sort_versions
// and get_tarball, corrected per spec.md to strip the `.tgz` suffix (not
// `.tar.gz`) and to sort descending (not ascending).
type Resolver struct {
	backend storage.Backend
}

// NewResolver returns a Resolver reading tarballs through backend.
func NewResolver(backend storage.Backend) *Resolver {
	return &Resolver{backend: backend}
}

func tarballsDir(owner, repo types.ULID) string {
	return path.Join("repositories", owner.String(), repo.String(), "tarballs")
}

// SortVersions lists the tarballs directory, parses each `.tgz` leaf name
// as a SemVer, drops parse failures, filters by prereleases, and returns
// the result sorted descending. Provenance files are excluded.
func (r *Resolver) SortVersions(ctx context.Context, owner, repo types.ULID, prereleases bool) ([]types.SemVer, error) {
	entries, err := r.backend.Blobs(ctx, tarballsDir(owner, repo), storage.ListOptions{})
	if err != nil {
		return nil, err
	}

	versions := make([]types.SemVer, 0, len(entries))
	for _, e := range entries {
		if e.Kind != storage.EntryFile {
			continue
		}
		if strings.HasSuffix(e.Name, ".provenance.tgz") {
			continue
		}
		if !strings.HasSuffix(e.Name, ".tgz") {
			continue
		}

		raw := strings.TrimSuffix(e.Name, ".tgz")
		v, err := types.ParseSemVer(raw)
		if err != nil {
			// Parse failures are skipped; a structured logger would warn here.
			continue
		}
		if !prereleases && v.IsPrerelease() {
			continue
		}
		versions = append(versions, v)
	}

	types.SortDescending(versions)

	return versions, nil
}

// QueryableVersion is either the sentinel Latest or a concrete SemVer.
type QueryableVersion struct {
	Latest bool
	Exact  types.SemVer
}

// LatestVersion is the QueryableVersion constructor for the "most recent
// matching release" query.
func LatestVersion() QueryableVersion { return QueryableVersion{Latest: true} }

// ExactVersion wraps a concrete SemVer as a QueryableVersion.
func ExactVersion(v types.SemVer) QueryableVersion { return QueryableVersion{Exact: v} }

// ErrPrereleaseNotAllowed is returned when a concrete prerelease version is
// requested with prereleases disabled.
var ErrPrereleaseNotAllowed = types.NewError(types.CodeBadRequest, "prerelease versions are not enabled for this request")

// GetTarball resolves v to its tarball bytes, or nil if there is no match.
func (r *Resolver) GetTarball(ctx context.Context, owner, repo types.ULID, v QueryableVersion, prereleases bool) (io.ReadCloser, error) {
	resolved, err := r.resolve(ctx, owner, repo, v, prereleases)
	if err != nil || resolved == nil {
		return nil, err
	}
	return r.backend.Open(ctx, TarballPath(owner, repo, *resolved))
}

// GetProvenance resolves v to its provenance bytes, or nil if there is no
// match. Structurally identical to GetTarball but reads the
// `.provenance.tgz` sibling object.
func (r *Resolver) GetProvenance(ctx context.Context, owner, repo types.ULID, v QueryableVersion, prereleases bool) (io.ReadCloser, error) {
	resolved, err := r.resolve(ctx, owner, repo, v, prereleases)
	if err != nil || resolved == nil {
		return nil, err
	}
	return r.backend.Open(ctx, ProvenancePath(owner, repo, *resolved))
}

func (r *Resolver) resolve(ctx context.Context, owner, repo types.ULID, v QueryableVersion, prereleases bool) (*types.SemVer, error) {
	if v.Latest {
		versions, err := r.SortVersions(ctx, owner, repo, prereleases)
		if err != nil {
			return nil, err
		}
		if len(versions) == 0 {
			return nil, nil
		}
		return &versions[0], nil
	}

	if !prereleases && v.Exact.IsPrerelease() {
		return nil, ErrPrereleaseNotAllowed
	}

	exact := v.Exact
	return &exact, nil
}
