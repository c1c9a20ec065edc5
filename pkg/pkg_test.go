package pkg

import (
	"errors"
	"io"
	"os"
	"slices"
	"strings"
	"testing"
)

func TestName(t *testing.T) {
	expected := "cmdproc"
	if Name != expected {
		t.Errorf("Expected Name to be %q, got %q", expected, Name)
	}
}

func TestVersion(t *testing.T) {
	// Version is embedded from the VERSION file next to this source file.
	buf, err := os.ReadFile("VERSION")
	if err != nil {
		t.Fatalf("Failed to read VERSION file: %v", err)
	}

	if content := strings.TrimSpace(string(buf)); VersionString() != content {
		t.Errorf("Expected Version to be %q, got %q", content, VersionString())
	}
}

func TestAuthor(t *testing.T) {
	if !slices.ContainsFunc(Author, func(a AuthorInfo) bool {
		return a.Name == "ardnew" && a.Email == "andrew@ardnew.com"
	}) {
		t.Error("Expected Author to contain ardnew")
	}
}

func TestMakeEnvPrefix(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"cmdproc", "CMDPROC"},
		{"my-cli", "MY_CLI"},
		{"--odd..name--", "ODD_NAME"},
		{"tool2", "TOOL2"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := MakeEnvPrefix(tt.in); got != tt.want {
				t.Errorf("MakeEnvPrefix(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestError_Wrap_MatchesSentinel(t *testing.T) {
	err := ErrReadInput.Wrap(io.ErrUnexpectedEOF)

	if !errors.Is(err, ErrReadInput) {
		t.Error("expected wrapped error to match its sentinel")
	}

	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("expected wrapped error to match the cause")
	}

	if errors.Is(err, ErrParse) {
		t.Error("expected wrapped error not to match an unrelated sentinel")
	}

	if len(ErrReadInput) != 1 {
		t.Errorf("Wrap modified the sentinel: %v", ErrReadInput)
	}

	if got := err.Error(); got != "failed to read input: unexpected EOF" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestWrap_AppliesOptionsInOrder(t *testing.T) {
	add := func(s string) Option[[]string] {
		return func(v []string) []string { return append(v, s) }
	}

	got := Wrap(Make(add("a")), add("b"), nil, add("c"))
	if !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("unexpected result %v", got)
	}
}

func TestMakeError_FlattensNestedChains(t *testing.T) {
	tests := []struct {
		name string
		errs []error
		want string
		size int
	}{
		{"none", nil, "", 0},
		{"nil skipped", []error{nil, io.EOF}, "EOF", 1},
		{"nested", []error{ErrParse.Wrap(ErrReadInput), io.EOF}, "parse error: failed to read input: EOF", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MakeError(tt.errs...)

			if len(got) != tt.size {
				t.Errorf("len = %d, want %d", len(got), tt.size)
			}

			if got.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", got.Error(), tt.want)
			}
		})
	}
}
