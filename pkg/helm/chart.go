package helm

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"path"

	"chartedregistry/internal/models"

	"gopkg.in/yaml.v3"
)

// ParseChartMetadata extracts and parses the archive's top-level
// Chart.yaml, used by the upload handler to build the ChartIndexSpec
// entry §4.4 requires after a successful upload. Callers are expected to
// have already run ValidateTarball against the same bytes.
func ParseChartMetadata(body []byte) (models.Chart, error) {
	reader := bytes.NewReader(body)

	for {
		gzr, err := gzip.NewReader(reader)
		if err == io.EOF {
			break
		}
		if err != nil {
			return models.Chart{}, fmt.Errorf("open gzip stream: %w", err)
		}

		tr := tar.NewReader(gzr)
		for {
			header, err := tr.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return models.Chart{}, fmt.Errorf("read tar entry: %w", err)
			}

			if header.Typeflag != tar.TypeReg && header.Typeflag != tar.TypeRegA {
				continue
			}
			if path.Base(path.Clean(header.Name)) != "Chart.yaml" && path.Base(path.Clean(header.Name)) != "Chart.yml" {
				continue
			}
			// Top level means the archive root or the chart's own directory;
			// subcharts under charts/ are skipped.
			if path.Dir(path.Dir(path.Clean(header.Name))) != "." {
				continue
			}

			var chart models.Chart
			if err := yaml.NewDecoder(tr).Decode(&chart); err != nil {
				return models.Chart{}, fmt.Errorf("parse Chart.yaml: %w", err)
			}
			return chart, nil
		}
		gzr.Close()

		if reader.Len() == 0 {
			break
		}
	}

	return models.Chart{}, fmt.Errorf("archive has no Chart.yaml")
}
