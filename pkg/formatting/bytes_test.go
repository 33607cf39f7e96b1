package formatting_test

import (
	"errors"
	"testing"

	"github.com/JaimeStill/dermis/pkg/formatting"
)

func TestParseBytes(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"bare bytes", "1024", 1024, false},
		{"bytes unit", "512B", 512, false},
		{"kilobytes", "1KB", 1 << 10, false},
		{"upload default", "10MB", 10 << 20, false},
		{"short unit", "2g", 2 << 30, false},
		{"binary unit", "512 KiB", 512 << 10, false},
		{"fractional", "1.5MB", 1536 << 10, false},
		{"with space", "100 MB", 100 << 20, false},
		{"surrounding whitespace", "  50mb  ", 50 << 20, false},
		{"zero", "0", 0, false},
		{"empty string", "", 0, true},
		{"unknown unit", "50XX", 0, true},
		{"no number", "MB", 0, true},
		{"negative", "-5MB", 0, true},
		{"two dots", "1.2.3MB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatting.ParseBytes(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBytes(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, formatting.ErrInvalidSize) {
				t.Errorf("ParseBytes(%q) error = %v, want ErrInvalidSize", tt.input, err)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseBytes(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name      string
		n         int64
		precision int
		want      string
	}{
		{"zero", 0, 2, "0 B"},
		{"bytes", 500, 0, "500 B"},
		{"one KB", 1 << 10, 0, "1 KB"},
		{"upload limit", 10 << 20, 1, "10 MB"},
		{"fractional MB", 1536 << 10, 1, "1.5 MB"},
		{"rounded", 1600 << 10, 0, "2 MB"},
		{"one GB", 1 << 30, 0, "1 GB"},
		{"negative precision clamped", 1 << 10, -1, "1 KB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatting.FormatBytes(tt.n, tt.precision); got != tt.want {
				t.Errorf("FormatBytes(%d, %d) = %q, want %q", tt.n, tt.precision, got, tt.want)
			}
		})
	}
}

func TestFormatParses(t *testing.T) {
	for _, n := range []int64{1 << 10, 10 << 20, 1 << 30, 1 << 40} {
		formatted := formatting.FormatBytes(n, 0)
		parsed, err := formatting.ParseBytes(formatted)
		if err != nil {
			t.Fatalf("ParseBytes(%q) error = %v", formatted, err)
		}
		if parsed != n {
			t.Errorf("%d formatted as %q parsed as %d", n, formatted, parsed)
		}
	}
}
