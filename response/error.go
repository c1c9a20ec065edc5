package response

import (
	"errors"
	"fmt"
	"reflect"
)

// Error is the structured error of a failed command. Handlers return it to
// report an expected failure.
type Error struct {
	Msg               string `json:"msg"`
	AdditionalDetails string `json:"additionalDetails,omitempty"`
	ErrorCode         string `json:"errorCode,omitempty"`
	CauseErrors       any    `json:"causeErrors,omitempty"`
	Stack             string `json:"stack,omitempty"`
}

func (e *Error) Error() string { return e.Msg }

// Panic is a value recovered from a panicking handler.
type Panic struct {
	Value any
	Stack string
}

func (p *Panic) Error() string { return fmt.Sprint(p.Value) }

// Kind classifies how a handler rejected.
type Kind int

const (
	KindNone       Kind = iota // no value
	KindStructured             // *Error
	KindException              // any other error, including a panic
	KindMessage                // string
	KindOther                  // any other value
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindStructured:
		return "structured"
	case KindException:
		return "exception"
	case KindMessage:
		return "message"
	default:
		return "other"
	}
}

// Failure is a classified handler rejection.
type Failure struct {
	Kind       Kind
	Structured *Error
	Err        error
	Message    string
	Stack      string
	Value      any
}

// Headers and messages written by [Failure.Apply].
const (
	HeaderCommandError    = "Command Error"
	HeaderErrorDetails    = "Error Details"
	HeaderUnexpectedError = "Unexpected Command Error"
	HeaderMessage         = "Message"
	HeaderStack           = "Stack"

	MessageNone = "Command failed"
	ErrorNone   = "Command Failed"
)

// Classify sorts a handler rejection into one of the [Kind] variants.
func Classify(rejection any) Failure {
	if isNil(rejection) {
		return Failure{Kind: KindNone}
	}

	switch v := rejection.(type) {
	case *Error:
		return Failure{Kind: KindStructured, Structured: v}

	case Error:
		return Failure{Kind: KindStructured, Structured: &v}

	case string:
		return Failure{Kind: KindMessage, Message: v}

	case error:
		var structured *Error
		if errors.As(v, &structured) && structured != nil {
			return Failure{Kind: KindStructured, Structured: structured}
		}

		f := Failure{Kind: KindException, Err: v}

		var p *Panic
		if errors.As(v, &p) {
			f.Stack = p.Stack
		}

		return f

	default:
		return Failure{Kind: KindOther, Value: v}
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}

// Apply marks env failed and reports f on it. handler names the handler that
// rejected.
func (f Failure) Apply(env *Envelope, handler string) {
	env.Failed()
	env.Progress().EndBar()

	c, d := env.Console(), env.Data()

	switch f.Kind {
	case KindStructured:
		env.SetError(f.Structured)
		c.ErrorHeader(HeaderCommandError)
		c.Error(f.Structured.Msg)

		if f.Structured.AdditionalDetails != "" {
			c.ErrorHeader(HeaderErrorDetails)
			c.Error(f.Structured.AdditionalDetails)
		}

		d.SetMessage(f.Structured.Msg)

	case KindException:
		msg := f.Err.Error()

		env.SetError(&Error{Msg: msg, Stack: f.Stack})
		d.SetMessage(HeaderUnexpectedError + ": " + msg)
		c.ErrorHeader(HeaderUnexpectedError)
		c.Errorf("Please review the message and stack below.\n"+
			"Contact the creator of handler:\n%q", handler)

		c.ErrorHeader(HeaderMessage)

		if msg != "" {
			c.Error(msg)
		} else {
			c.Error("No message present in the error.")
		}

		c.ErrorHeader(HeaderStack)

		if f.Stack != "" {
			c.Error(f.Stack)
		} else {
			c.Error("No error stack present in the error.")
		}

	case KindMessage:
		c.ErrorHeader(HeaderCommandError)
		c.Error(f.Message)
		d.SetMessage(f.Message)
		env.SetError(&Error{Msg: f.Message})

	case KindNone:
		d.SetMessage(MessageNone)
		env.SetError(&Error{Msg: ErrorNone})

	default:
		c.ErrorHeader(HeaderUnexpectedError)
		c.Error("The command indicated failure through an unexpected means.")
		c.Error("Contact the creator of handler:")
		c.Errorf("%q", handler)
		d.SetObj(f.Value, false)
	}
}
