package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ppiankov/invoicecheck/internal/policy/policytest"
)

func buildDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	return policytest.BuildDOCX(t, paragraphs...)
}

func zipFiles(t *testing.T, files map[string]string) []byte {
	t.Helper()
	return policytest.ZipFiles(t, files)
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}
