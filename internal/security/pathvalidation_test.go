package security

import (
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "uuid passes through",
			input: "a3c1e7b0-2f4d-4e8a-9b6c-1d2e3f4a5b6c",
			want:  "a3c1e7b0-2f4d-4e8a-9b6c-1d2e3f4a5b6c",
		},
		{
			name:  "empty string",
			input: "",
			want:  "unknown",
		},
		{
			name:  "path separators replaced",
			input: "../../etc/passwd",
			want:  "etc_passwd",
		},
		{
			name:  "spaces and symbols collapse",
			input: "my video!!  (final)",
			want:  "my_video_final",
		},
		{
			name:  "only unsafe characters",
			input: "///***",
			want:  "unknown",
		},
		{
			name:  "leading and trailing dots trimmed",
			input: ".hidden.",
			want:  "hidden",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.input); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeFilenameLengthCap(t *testing.T) {
	long := strings.Repeat("a", 500)
	got := SanitizeFilename(long)
	if len(got) > 128 {
		t.Errorf("expected at most 128 characters, got %d", len(got))
	}
	if !strings.HasPrefix(long, got) {
		t.Error("truncation should keep the leading characters")
	}
}
