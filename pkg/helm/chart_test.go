package helm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChartMetadataExtractsChartYAML(t *testing.T) {
	body := buildTarball(t, validChartFiles())

	chart, err := ParseChartMetadata(body)
	require.NoError(t, err)
	assert.Equal(t, "demo", chart.Name)
	assert.Equal(t, "1.0.0", chart.Version)
	assert.Equal(t, "v2", chart.APIVersion)
}

func TestParseChartMetadataMissingChartYAML(t *testing.T) {
	files := map[string]string{"values.yaml": "a: 1\n"}
	body := buildTarball(t, files)

	_, err := ParseChartMetadata(body)
	require.Error(t, err)
}
