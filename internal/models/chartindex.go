package models

import "time"

// ChartMaintainer is a Chart.yaml maintainer entry.
type ChartMaintainer struct {
	Name  string `yaml:"name" json:"name"`
	Email string `yaml:"email,omitempty" json:"email,omitempty"`
	URL   string `yaml:"url,omitempty" json:"url,omitempty"`
}

// ChartDependency is a Chart.yaml dependency entry.
type ChartDependency struct {
	Name       string `yaml:"name" json:"name"`
	Version    string `yaml:"version" json:"version"`
	Repository string `yaml:"repository,omitempty" json:"repository,omitempty"`
	Condition  string `yaml:"condition,omitempty" json:"condition,omitempty"`
}

// Chart is the standard Helm Chart.yaml shape (spec.md §4.4).
type Chart struct {
	APIVersion   string            `yaml:"apiVersion" json:"apiVersion"`
	Name         string            `yaml:"name" json:"name"`
	Version      string            `yaml:"version" json:"version"`
	KubeVersion  string            `yaml:"kubeVersion,omitempty" json:"kubeVersion,omitempty"`
	Description  string            `yaml:"description,omitempty" json:"description,omitempty"`
	Type         string            `yaml:"type,omitempty" json:"type,omitempty"`
	Keywords     []string          `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	Home         string            `yaml:"home,omitempty" json:"home,omitempty"`
	Sources      []string          `yaml:"sources,omitempty" json:"sources,omitempty"`
	Dependencies []ChartDependency `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	Maintainers  []ChartMaintainer `yaml:"maintainers,omitempty" json:"maintainers,omitempty"`
	Icon         string            `yaml:"icon,omitempty" json:"icon,omitempty"`
	AppVersion   string            `yaml:"appVersion,omitempty" json:"appVersion,omitempty"`
	Deprecated   bool              `yaml:"deprecated,omitempty" json:"deprecated,omitempty"`
	Annotations  map[string]string `yaml:"annotations,omitempty" json:"annotations,omitempty"`
}

// ChartIndexSpec flattens a Chart and adds the fields Helm's index.yaml
// entries carry per release (spec.md §4.4).
type ChartIndexSpec struct {
	Chart   `yaml:",inline"`
	URLs    []string   `yaml:"urls" json:"urls"`
	Created *time.Time `yaml:"created,omitempty" json:"created,omitempty"`
	Removed bool       `yaml:"removed" json:"removed"`
	Digest  string     `yaml:"digest,omitempty" json:"digest,omitempty"`
}

// ChartIndex is the Helm-compatible index.yaml document for one owner
// (spec.md §3/§4.4). The only variant is V1.
type ChartIndex struct {
	APIVersion string                      `yaml:"apiVersion" json:"apiVersion"`
	Generated  time.Time                   `yaml:"generated" json:"generated"`
	Entries    map[string][]ChartIndexSpec `yaml:"entries" json:"entries"`
}

// NewChartIndex builds an empty V1 index with generated set to now.
func NewChartIndex(now time.Time) *ChartIndex {
	return &ChartIndex{
		APIVersion: "v1",
		Generated:  now,
		Entries:    map[string][]ChartIndexSpec{},
	}
}
