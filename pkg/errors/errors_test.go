package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := New(ErrCodeFileNotFound, "no requirements file at %s", "missing.txt")
	want := "FILE_NOT_FOUND: no requirements file at missing.txt"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(ErrCodeNetwork, cause, "fetch %s", "requests")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should match cause via errors.Is")
	}
	if got := err.Error(); got != "NETWORK_ERROR: fetch requests: connection refused" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestIsMatchesCode(t *testing.T) {
	err := New(ErrCodeInvalidManifest, "bad line")

	if !Is(err, ErrCodeInvalidManifest) {
		t.Error("Is should match the error's own code")
	}
	if Is(err, ErrCodeNetwork) {
		t.Error("Is should not match a different code")
	}
	if Is(stderrors.New("plain"), ErrCodeNetwork) {
		t.Error("Is should not match plain errors")
	}
}

func TestIsThroughWrapping(t *testing.T) {
	inner := New(ErrCodeNotFound, "package gone")
	outer := fmt.Errorf("resolve: %w", inner)

	if !Is(outer, ErrCodeNotFound) {
		t.Error("Is should unwrap fmt-wrapped errors")
	}
	if GetCode(outer) != ErrCodeNotFound {
		t.Errorf("GetCode = %q, want %q", GetCode(outer), ErrCodeNotFound)
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(ErrCodeTimeout, "pypi took too long")); got != "pypi took too long" {
		t.Errorf("UserMessage = %q", got)
	}
	if got := UserMessage(stderrors.New("plain")); got != "plain" {
		t.Errorf("UserMessage = %q", got)
	}
}
