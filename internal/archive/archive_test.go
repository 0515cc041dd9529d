package archive

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportAndReadAuditReportRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.br")
	report := "Lossiness Audit Report\n  Clamp  sampling.temperature  Info\n"

	require.NoError(t, ExportAuditReport(path, report))

	got, err := ReadAuditReport(path)
	require.NoError(t, err)
	assert.Equal(t, report, got)
}

func TestReadAuditReportMissingFile(t *testing.T) {
	_, err := ReadAuditReport(filepath.Join(t.TempDir(), "nonexistent.br"))
	assert.Error(t, err)
}
