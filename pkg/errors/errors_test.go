package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidNode, "node %s missing version", "lodash")

	if err.Code != ErrCodeInvalidNode {
		t.Errorf("Code = %q, want %q", err.Code, ErrCodeInvalidNode)
	}
	want := "INVALID_NODE: node lodash missing version"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(ErrCodeStorage, cause, "save scan %s", "abc")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped cause lost from error chain")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Error() = %q, missing cause text", err.Error())
	}
}

func TestIs(t *testing.T) {
	err := New(ErrCodeScanNotFound, "scan abc")

	if !Is(err, ErrCodeScanNotFound) {
		t.Error("Is() = false for matching code")
	}
	if Is(err, ErrCodeStorage) {
		t.Error("Is() = true for non-matching code")
	}
	if Is(stderrors.New("plain"), ErrCodeStorage) {
		t.Error("Is() = true for non-structured error")
	}
}

func TestIsUnwrapsChain(t *testing.T) {
	inner := New(ErrCodeInvalidNode, "bad node")
	outer := Wrap(ErrCodeInvalidGraph, inner, "materialize graph")

	// As finds the outermost *Error first.
	if !Is(outer, ErrCodeInvalidGraph) {
		t.Error("outer code not found")
	}
	if GetCode(outer) != ErrCodeInvalidGraph {
		t.Errorf("GetCode() = %q, want %q", GetCode(outer), ErrCodeInvalidGraph)
	}
}

func TestGetCodePlainError(t *testing.T) {
	if got := GetCode(stderrors.New("plain")); got != "" {
		t.Errorf("GetCode() = %q, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(ErrCodeStorage, "mongo down")); got != "mongo down" {
		t.Errorf("UserMessage() = %q, want %q", got, "mongo down")
	}
	if got := UserMessage(stderrors.New("plain")); got != "plain" {
		t.Errorf("UserMessage() = %q, want %q", got, "plain")
	}
}

func TestValidatePackageName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"lodash", false},
		{"@scope/pkg", false},
		{"requests", false},
		{"", true},
		{"pkg\x00", true},
		{"../../etc/passwd", true},
		{"a//b", true},
		{`a\b`, true},
		{strings.Repeat("x", 256), false},
		{strings.Repeat("x", 257), true},
	}
	for _, tt := range tests {
		err := ValidatePackageName(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePackageName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestValidateVersion(t *testing.T) {
	tests := []struct {
		version string
		wantErr bool
	}{
		{"1.0.0", false},
		{"unknown", false},
		{"2.0.0-beta.1+build.5", false},
		{"", true},
		{"1.0\n", true},
		{strings.Repeat("1", 129), true},
	}
	for _, tt := range tests {
		err := ValidateVersion(tt.version)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateVersion(%q) error = %v, wantErr %v", tt.version, err, tt.wantErr)
		}
	}
}

func TestValidateScanID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"2d931510-d99f-494a-8c67-87feb05e1594", false},
		{"short-token", false},
		{"", true},
		{"has space", true},
		{"a/b", true},
		{strings.Repeat("x", 65), true},
	}
	for _, tt := range tests {
		err := ValidateScanID(tt.id)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateScanID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
		}
	}
}
