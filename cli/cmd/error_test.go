package cmd

import (
	"errors"
	"log/slog"
	"testing"
)

func TestError_Error(t *testing.T) {
	cause := errors.New("cause")

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"msg_and_cause", NewError("msg").Wrap(cause), "msg: cause"},
		{"msg_only", NewError("msg"), "msg"},
		{"cause_only", NewError("").Wrap(cause), "cause"},
		{"empty", NewError(""), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("cause")
	err := ErrWriteConfig.Wrap(cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is did not find the wrapped cause")
	}
}

func TestError_With(t *testing.T) {
	base := NewError("base")
	with := base.With(slog.String("file", "a.yaml"))

	if len(base.attrs) != 0 {
		t.Errorf("With modified the receiver: %v", base.attrs)
	}

	v := with.Wrap(errors.New("cause")).LogValue()
	if v.Kind() != slog.KindGroup {
		t.Fatalf("LogValue kind = %v, want group", v.Kind())
	}

	got := map[string]string{}
	for _, a := range v.Group() {
		got[a.Key] = a.Value.String()
	}

	want := map[string]string{"error": "base", "cause": "cause", "file": "a.yaml"}
	for k, w := range want {
		if got[k] != w {
			t.Errorf("LogValue[%q] = %q, want %q", k, got[k], w)
		}
	}
}
