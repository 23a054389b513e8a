package archive

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMethods_RoundTrip(t *testing.T) {
	content := map[string]string{
		"src/repeat.txt": string(make([]byte, 64<<10)),
		"src/words.txt":  "the quick brown fox jumps over the lazy dog",
	}
	for _, method := range []uint16{MethodStore, MethodDeflate, MethodZstd, MethodLZ4} {
		t.Run(MethodName(method), func(t *testing.T) {
			base := t.TempDir()
			writeTree(t, base, content)

			out := filepath.Join(base, "m.zip")
			if err := ZipFile(out, []string{filepath.Join(base, "src")}, WithMethod(method)); err != nil {
				t.Fatalf("ZipFile failed: %v", err)
			}
			entries, err := List(out)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			for _, e := range entries {
				if e.Method != method {
					t.Errorf("%s stored with method %d, want %d", e.Name, e.Method, method)
				}
			}

			dst := filepath.Join(base, "dst")
			if err := Unzip(out, dst); err != nil {
				t.Fatalf("Unzip failed: %v", err)
			}
			got := readTree(t, dst)
			delete(got, "src/")
			if diff := cmp.Diff(content, got); diff != "" {
				t.Errorf("extracted tree mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		name    string
		want    uint16
		wantErr bool
	}{
		{"store", MethodStore, false},
		{"Deflate", MethodDeflate, false},
		{"ZSTD", MethodZstd, false},
		{"lz4", MethodLZ4, false},
		{"bzip2", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseMethod(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMethod(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMethod(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestMethodName(t *testing.T) {
	if got := MethodName(MethodZstd); got != "zstd" {
		t.Errorf("MethodName(zstd) = %q", got)
	}
	if got := MethodName(99); got != "method(99)" {
		t.Errorf("MethodName(99) = %q", got)
	}
}

func TestCompressor_UnknownMethod(t *testing.T) {
	if _, err := compressor(12, -1); err == nil {
		t.Fatal("expected an error for an unsupported method")
	}
}
