package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestPacksmithError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *PacksmithError
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(CategoryConfig, SeverityFatal, "project file invalid"),
			expected: "config (fatal): project file invalid",
		},
		{
			name:     "error with cause",
			err:      Wrap(fmt.Errorf("file not found"), CategoryConfig, SeverityFatal, "failed to load project file"),
			expected: "config (fatal): failed to load project file: file not found",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := test.err.Error()
			if result != test.expected {
				t.Errorf("Error() = %q, want %q", result, test.expected)
			}
		})
	}
}

func TestPacksmithError_WithContext(t *testing.T) {
	err := New(CategoryCache, SeverityWarning, "snapshot missing").
		WithContext("bucket", "mycache").
		WithContext("key", "v1")

	if err.Context == nil {
		t.Fatal("Context should not be nil")
	}

	if err.Context["bucket"] != "mycache" {
		t.Errorf("Context[bucket] = %v, want mycache", err.Context["bucket"])
	}

	if err.Context["key"] != "v1" {
		t.Errorf("Context[key] = %v, want v1", err.Context["key"])
	}
}

func TestIsCategory(t *testing.T) {
	configErr := New(CategoryConfig, SeverityFatal, "config error")
	formatErr := New(CategoryFormat, SeverityError, "format error")
	wrappedErr := fmt.Errorf("during build: %w", formatErr)
	standardErr := fmt.Errorf("standard error")

	tests := []struct {
		name     string
		err      error
		category ErrorCategory
		expected bool
	}{
		{"config error matches config category", configErr, CategoryConfig, true},
		{"config error doesn't match format category", configErr, CategoryFormat, false},
		{"format error matches format category", formatErr, CategoryFormat, true},
		{"wrapped error still matches", wrappedErr, CategoryFormat, true},
		{"standard error doesn't match any category", standardErr, CategoryConfig, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsCategory(test.err, test.category)
			if result != test.expected {
				t.Errorf("IsCategory() = %v, want %v", result, test.expected)
			}
		})
	}
}

func TestGetCategory(t *testing.T) {
	if got := GetCategory(New(CategoryPack, SeverityError, "bad key")); got != CategoryPack {
		t.Errorf("GetCategory() = %v, want %v", got, CategoryPack)
	}
	if got := GetCategory(fmt.Errorf("plain")); got != CategoryInternal {
		t.Errorf("GetCategory() = %v, want %v", got, CategoryInternal)
	}
}

func TestConvenienceFunctions(t *testing.T) {
	t.Run("ConfigNotFound", func(t *testing.T) {
		err := ConfigNotFound("/path/to/packsmith.yaml")
		if err.Category != CategoryConfig {
			t.Errorf("Category = %v, want %v", err.Category, CategoryConfig)
		}
		if err.Severity != SeverityFatal {
			t.Errorf("Severity = %v, want %v", err.Severity, SeverityFatal)
		}
		if err.Context["path"] != "/path/to/packsmith.yaml" {
			t.Errorf("Context[path] = %v, want /path/to/packsmith.yaml", err.Context["path"])
		}
	})

	t.Run("UnknownPlaceholder", func(t *testing.T) {
		err := UnknownPlaceholder("nope", "{namespace}:{nope}")
		if err.Category != CategoryFormat {
			t.Errorf("Category = %v, want %v", err.Category, CategoryFormat)
		}
		if err.Context["placeholder"] != "nope" {
			t.Errorf("Context[placeholder] = %v, want nope", err.Context["placeholder"])
		}
	})

	t.Run("CacheError", func(t *testing.T) {
		cause := fmt.Errorf("disk full")
		err := CacheError("mycache", cause)
		if err.Category != CategoryCache {
			t.Errorf("Category = %v, want %v", err.Category, CategoryCache)
		}
		if !stdErrors.Is(err, cause) {
			t.Errorf("Cause should match wrapped cause: %v", cause)
		}
	})

	t.Run("InvalidArgument", func(t *testing.T) {
		err := InvalidArgument("register", "nil file")
		if err.Category != CategoryArgument {
			t.Errorf("Category = %v, want %v", err.Category, CategoryArgument)
		}
		if err.Context["operation"] != "register" {
			t.Errorf("Context[operation] = %v, want register", err.Context["operation"])
		}
	})
}

func TestCLIErrorAdapter_ExitCodes(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, nil)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, 0},
		{"argument error", InvalidArgument("register", "nil file"), 2},
		{"config error", ConfigNotFound("x"), 7},
		{"cache error", CacheError("b", fmt.Errorf("io")), 9},
		{"format error", UnknownPlaceholder("p", "t"), 11},
		{"plain error", fmt.Errorf("plain"), 1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := adapter.ExitCodeFor(test.err); got != test.want {
				t.Errorf("ExitCodeFor() = %d, want %d", got, test.want)
			}
		})
	}
}
