package fetcher

import (
	"os"
	"testing"
)

// writeTestFile is a helper that writes data to a file path.
func writeTestFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

// skipIfRoot skips tests that rely on permission denial; uid 0 bypasses
// file modes, so a read-only directory is still writable.
func skipIfRoot(t *testing.T) {
	t.Helper()
	if os.Geteuid() == 0 {
		t.Skip("running as root; file modes are not enforced")
	}
}
