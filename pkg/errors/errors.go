package errors

import (
	stdErrors "errors"
	"fmt"
	"sync"
)

// Code identifies a class of failure across the engine.
type Code string

// Attributes describe the default behaviour attached to a code.
type Attributes struct {
	Message string
	// Validation errors are raised before any network or on-chain side effect.
	Validation bool
	Retryable  bool
}

const (
	CodeUnknown          Code = "UNKNOWN"
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodePrecision        Code = "PRECISION"
	CodeUnresolvedName   Code = "UNRESOLVED_NAME"
	CodeUnsupportedToken Code = "UNSUPPORTED_TOKEN"
	CodeQuoteUnavailable Code = "QUOTE_UNAVAILABLE"
	CodeNoRoute          Code = "NO_ROUTE"
	CodeExecutionFailed  Code = "EXECUTION_FAILED"
	CodeRelayRejected    Code = "RELAY_REJECTED"
	CodeRelayUnavailable Code = "RELAY_UNAVAILABLE"
	CodeApprovalDeclined Code = "APPROVAL_DECLINED"
	CodeConfiguration    Code = "CONFIGURATION"
	CodeChainFailure     Code = "CHAIN_FAILURE"
)

var (
	registryMu sync.RWMutex
	registry   = map[Code]Attributes{
		CodeUnknown:          {Message: "unknown error"},
		CodeInvalidArgument:  {Message: "invalid argument", Validation: true},
		CodePrecision:        {Message: "amount exceeds token precision", Validation: true},
		CodeUnresolvedName:   {Message: "name could not be resolved", Validation: true},
		CodeUnsupportedToken: {Message: "token not supported on this network", Validation: true},
		CodeQuoteUnavailable: {Message: "quote unavailable", Retryable: true},
		CodeNoRoute:          {Message: "no swap route"},
		CodeExecutionFailed:  {Message: "execution failed"},
		CodeRelayRejected:    {Message: "relay rejected transaction"},
		CodeRelayUnavailable: {Message: "relay unavailable", Retryable: true},
		CodeApprovalDeclined: {Message: "approval declined"},
		CodeConfiguration:    {Message: "invalid configuration", Validation: true},
		CodeChainFailure:     {Message: "chain request failed", Retryable: true},
	}
)

// Sentinels for errors.Is comparisons. Matching is by code only.
var (
	ErrInvalidArgument  = New(CodeInvalidArgument, "")
	ErrPrecision        = New(CodePrecision, "")
	ErrUnresolvedName   = New(CodeUnresolvedName, "")
	ErrUnsupportedToken = New(CodeUnsupportedToken, "")
	ErrQuoteUnavailable = New(CodeQuoteUnavailable, "")
	ErrNoRoute          = New(CodeNoRoute, "")
	ErrExecutionFailed  = New(CodeExecutionFailed, "")
	ErrRelayRejected    = New(CodeRelayRejected, "")
	ErrRelayUnavailable = New(CodeRelayUnavailable, "")
	ErrApprovalDeclined = New(CodeApprovalDeclined, "")
	ErrConfiguration    = New(CodeConfiguration, "")
	ErrChainFailure     = New(CodeChainFailure, "")
)

// Register adds or replaces the attributes for a code.
func Register(code Code, attr Attributes) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[code] = attr
}

// AttributesOf returns the attributes of code, falling back to UNKNOWN.
func AttributesOf(code Code) Attributes {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if attr, ok := registry[code]; ok {
		return attr
	}
	return registry[CodeUnknown]
}

// Error is the engine's error type.
type Error struct {
	code      Code
	message   string
	cause     error
	metadata  map[string]string
	retryable *bool
}

// Option configures an Error.
type Option func(*Error)

// WithMetadata attaches a key/value pair to the error.
func WithMetadata(key, value string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata[key] = value
	}
}

// WithRetryable overrides the default retryable flag of the code.
func WithRetryable(retryable bool) Option {
	return func(e *Error) {
		e.retryable = &retryable
	}
}

// New creates an error with the given code. An empty message uses the code default.
func New(code Code, message string, opts ...Option) *Error {
	if message == "" {
		message = AttributesOf(code).Message
	}
	e := &Error{code: code, message: message}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap creates an error with the given code around cause.
func Wrap(code Code, cause error, message string, opts ...Option) *Error {
	e := New(code, message, opts...)
	e.cause = cause
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is reports whether target carries the same code.
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.code == t.code
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeUnknown
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Metadata returns a copy of the attached metadata.
func (e *Error) Metadata() map[string]string {
	if e == nil || len(e.metadata) == 0 {
		return nil
	}
	clone := make(map[string]string, len(e.metadata))
	for k, v := range e.metadata {
		clone[k] = v
	}
	return clone
}

// Get returns a single metadata value.
func (e *Error) Get(key string) string {
	if e == nil {
		return ""
	}
	return e.metadata[key]
}

func (e *Error) Retryable() bool {
	if e == nil {
		return false
	}
	if e.retryable != nil {
		return *e.retryable
	}
	return AttributesOf(e.code).Retryable
}

// From extracts an *Error from the chain of err.
func From(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var target *Error
	if stdErrors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf returns the code of err, or UNKNOWN.
func CodeOf(err error) Code {
	if e, ok := From(err); ok {
		return e.Code()
	}
	return CodeUnknown
}

// IsValidation reports whether err was raised by input validation.
func IsValidation(err error) bool {
	if e, ok := From(err); ok {
		return AttributesOf(e.Code()).Validation
	}
	return false
}

// RetryableError reports whether err may succeed when retried by the caller.
func RetryableError(err error) bool {
	if e, ok := From(err); ok {
		return e.Retryable()
	}
	return false
}

// MetadataOf returns a metadata value from the first *Error in the chain of err.
func MetadataOf(err error, key string) string {
	if e, ok := From(err); ok {
		return e.Get(key)
	}
	return ""
}
