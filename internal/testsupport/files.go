package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// mp4Signature is an ISO-BMFF ftyp box so fixtures sniff as MP4.
var mp4Signature = []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm', 0, 0, 2, 0, 'i', 's', 'o', 'm', 'm', 'p', '4', '1'}

// WriteFile creates a media fixture of exactly size bytes at path, creating
// parent directories. Fixtures start with an MP4 signature when size allows
// and are padded with zeros. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	data := make([]byte, size)
	copy(data, mp4Signature)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
