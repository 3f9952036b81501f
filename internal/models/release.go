package models

import "chartedregistry/pkg/types"

// RepositoryRelease is an immutable marker for one SemVer tag inside a
// repository (spec.md §3). The tag is immutable. ReleaseStore.Delete
// removes only this row; the release's tarball and provenance objects in
// storage are not deleted.
type RepositoryRelease struct {
	ID         types.ULID   `json:"id"`
	Repository types.ULID   `json:"repository"`
	Tag        types.SemVer `json:"tag"`
	UpdateText string       `json:"update_text,omitempty"`
	Title      string       `json:"title,omitempty"`
}
