package errors

import (
	"strings"
	"testing"
)

func TestValidatePackageID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "StyleCop.Analyzers", false},
		{"valid with dash", "my-analyzers", false},
		{"valid with underscore", "my_analyzers", false},
		{"valid with dot", "Sample.Analyzers", false},

		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"tab only", "\t", true},
		{"too long", strings.Repeat("a", 300), true},
		{"path traversal ..", "foo..bar", true},
		{"forward slash", "foo/bar", true},
		{"backslash", "foo\\bar", true},
		{"null byte", "foo\x00bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
		{"carriage return", "foo\rbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePackageID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePackageID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateSourceURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"https", "https://api.nuget.org/v3-flatcontainer", false},
		{"http", "http://localhost:8081/feed", false},

		{"empty", "", true},
		{"ftp", "ftp://example.com", true},
		{"bare host", "api.nuget.org", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSourceURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSourceURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
