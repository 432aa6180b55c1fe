package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/binfilter/internal/bins"
	"github.com/JonMunkholm/binfilter/internal/loader"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"no data", ErrNoData, "DATA001"},
		{"file too large", fmt.Errorf("load x.csv: %w", loader.ErrFileTooLarge), "FILE001"},
		{"read error", &loader.ReadError{Attempts: []string{"utf-8"}, Err: errors.New("invalid csv: line 3")}, "FILE003"},
		{"xlsx", errors.New("failed to open XLSX file: zip: not a valid zip file"), "FILE002"},
		{"empty file", loader.ErrEmptyFile, "FILE005"},
		{"gzip", errors.New("failed to create gzip reader: gzip: invalid header"), "FILE006"},
		{"column", fmt.Errorf("project: %w: foo", bins.ErrColumnNotFound), "VAL001"},
		{"query flag", errors.New("invalid query parameter: dedupe=maybe"), "VAL004"},
		{"busy", ErrTooManyUploads, "UPL002"},
		{"deadline", errors.New("context deadline exceeded"), "UPL005"},
		{"rate limit", errors.New("rate limit exceeded"), "RATE001"},
		{"case insensitive", errors.New("NO DATA LOADED"), "DATA001"},
		{"unknown", errors.New("some random internal error"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapError(tt.err); got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrNoData)
	want := "No dataset is loaded (Code: DATA001). Upload a BIN file or configure DATA_FILES"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"known error is user facing", ErrTooManyUploads, true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	if got := NewUserError(nil); got != nil {
		t.Errorf("NewUserError(nil) = %v, want nil", got)
	}

	userErr := NewUserError(ErrNoData)
	if userErr.Error() != "No dataset is loaded" {
		t.Errorf("Error() = %q, want user message", userErr.Error())
	}
	if !errors.Is(userErr, ErrNoData) {
		t.Error("Unwrap() should return the original error")
	}
}
