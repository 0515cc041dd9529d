// Package archive writes a translation's audit report to disk,
// brotli-compressed, for `specado translate --export-audit`. It never
// persists a provider_request_json or lossiness items by themselves — only
// the already-rendered, human-readable report — keeping with the
// Non-goals' "no cross-request state".
package archive

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/andybalholm/brotli"
)

// ExportAuditReport brotli-compresses report and writes it to path.
func ExportAuditReport(path, report string) error {
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	if _, err := w.Write([]byte(report)); err != nil {
		return fmt.Errorf("compress audit report: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("flush audit report compressor: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write audit report to %q: %w", path, err)
	}
	return nil
}

// ReadAuditReport decompresses a file previously written by
// ExportAuditReport, for the `specado` CLI's own test suite and any
// operator tooling that re-reads an exported report.
func ReadAuditReport(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read audit report %q: %w", path, err)
	}
	r := brotli.NewReader(bytes.NewReader(data))
	out, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decompress audit report %q: %w", path, err)
	}
	return string(out), nil
}
