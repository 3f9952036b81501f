package models

import "chartedregistry/pkg/types"

// ChartType classifies a Repository per Helm's Chart.yaml "type" field.
type ChartType string

const (
	ChartTypeApplication ChartType = "Application"
	ChartTypeLibrary     ChartType = "Library"
	ChartTypeOperator    ChartType = "Operator"
)

// Repository is a named chart project owned by an Owner (spec.md §3). The
// name is unique per owner; private repositories require an owner session
// to read.
type Repository struct {
	ID      types.ULID `json:"id"`
	Owner   types.ULID `json:"owner"`
	Name    types.Name `json:"name"`
	Private bool       `json:"private"`
	Type    ChartType  `json:"type"`
}

// RepositoryCreateRequest is the request body for creating a repository
// under an owner.
type RepositoryCreateRequest struct {
	Name    string    `json:"name" binding:"required"`
	Private bool      `json:"private"`
	Type    ChartType `json:"type"`
}