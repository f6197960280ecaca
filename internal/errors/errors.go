package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ConfigInvalid indicates a rule definition or config document is malformed
	ConfigInvalid ErrorCode = "CONFIG_ERROR"
	// FileRead indicates a source file is missing or unreadable
	FileRead ErrorCode = "FILE_READ_ERROR"
	// PatternInvalid indicates a Pattern rule carries an invalid regular expression
	PatternInvalid ErrorCode = "PATTERN_ERROR"
	// RulesNotFound indicates no invariants file exists for the project
	RulesNotFound ErrorCode = "RULES_NOT_FOUND"
	// GitUnavailable indicates git is missing or the directory is not a repository
	GitUnavailable ErrorCode = "GIT_UNAVAILABLE"
	// StorageFailure indicates the project database could not be used
	StorageFailure ErrorCode = "STORAGE_ERROR"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditFile suggests editing a project file
	EditFile FixActionType = "edit-file"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Path        string        `json:"path,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
}

// ThymusError represents a thymus error with code, message, and suggestions
type ThymusError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// NewThymusError creates a new ThymusError
func NewThymusError(code ErrorCode, message string, cause error, suggestedFixes []FixAction) *ThymusError {
	return &ThymusError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: suggestedFixes,
	}
}

// Error implements the error interface
func (e *ThymusError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ThymusError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *ThymusError) WithDetails(details interface{}) *ThymusError {
	e.Details = details
	return e
}

// RuleDetails identifies the rule and field a config error refers to.
type RuleDetails struct {
	RuleID  string `json:"ruleId,omitempty"`
	Field   string `json:"field,omitempty"`
	Pattern string `json:"pattern,omitempty"`
}

// NewConfigError reports a rule definition that cannot be used.
func NewConfigError(ruleID, field, message string) *ThymusError {
	msg := message
	if ruleID != "" {
		msg = fmt.Sprintf("rule %q: %s", ruleID, message)
	}
	return NewThymusError(ConfigInvalid, msg, nil, GetSuggestedFixes(ConfigInvalid)).
		WithDetails(RuleDetails{RuleID: ruleID, Field: field})
}

// NewPatternError reports an invalid forbidden_pattern. It is raised as a
// config error at load time with the regex failure as its cause.
func NewPatternError(ruleID, pattern string, cause error) *ThymusError {
	inner := NewThymusError(PatternInvalid, fmt.Sprintf("invalid regular expression %q", pattern), cause, nil)
	return NewThymusError(ConfigInvalid, fmt.Sprintf("rule %q: forbidden_pattern does not compile", ruleID), inner,
		GetSuggestedFixes(ConfigInvalid)).
		WithDetails(RuleDetails{RuleID: ruleID, Field: "forbidden_pattern", Pattern: pattern})
}

// NewFileReadError reports a source file that could not be read.
func NewFileReadError(path string, cause error) *ThymusError {
	return NewThymusError(FileRead, fmt.Sprintf("cannot read %s", path), cause, nil)
}

// CodeOf returns the code of the outermost ThymusError in err's chain,
// or InternalError when there is none.
func CodeOf(err error) ErrorCode {
	var te *ThymusError
	if stderrors.As(err, &te) {
		return te.Code
	}
	return InternalError
}

// HasCode reports whether any ThymusError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var te *ThymusError
		if !stderrors.As(err, &te) {
			return false
		}
		if te.Code == code {
			return true
		}
		err = te.cause
	}
	return false
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	ConfigInvalid: {
		{
			Type:        RunCommand,
			Command:     "thymus rules validate",
			Safe:        true,
			Description: "List every invalid rule with the offending field",
		},
	},
	RulesNotFound: {
		{
			Type:        RunCommand,
			Command:     "thymus init",
			Safe:        true,
			Description: "Create .thymus/invariants.yml with starter rules",
		},
	},
	GitUnavailable: {
		{
			Type:        RunCommand,
			Command:     "git status",
			Safe:        true,
			Description: "Check that the project is a git repository",
		},
	},
	StorageFailure: {
		{
			Type:        EditFile,
			Path:        ".thymus/thymus.db",
			Description: "Remove the project database; it is recreated on the next run",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
