package errors

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
)

func TestNewThymusError(t *testing.T) {
	cause := errors.New("underlying error")
	fixes := []FixAction{{Type: RunCommand, Command: "thymus rules validate"}}

	err := NewThymusError(ConfigInvalid, "rules file is malformed", cause, fixes)

	if err.Code != ConfigInvalid {
		t.Errorf("Code = %v, want %v", err.Code, ConfigInvalid)
	}
	if err.Message != "rules file is malformed" {
		t.Errorf("Message = %q, want %q", err.Message, "rules file is malformed")
	}
	if len(err.SuggestedFixes) != 1 {
		t.Errorf("len(SuggestedFixes) = %d, want 1", len(err.SuggestedFixes))
	}
}

func TestThymusError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      FileRead,
			message:   "cannot read src/a.ts",
			cause:     errors.New("permission denied"),
			wantParts: []string{"FILE_READ_ERROR", "cannot read src/a.ts", "permission denied"},
		},
		{
			name:      "without cause",
			code:      RulesNotFound,
			message:   "no invariants file",
			cause:     nil,
			wantParts: []string{"RULES_NOT_FOUND", "no invariants file"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewThymusError(tt.code, tt.message, tt.cause, nil)
			got := err.Error()

			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestThymusError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewThymusError(InternalError, "something went wrong", cause, nil)

	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}

	errNoCause := NewThymusError(StorageFailure, "database locked", nil, nil)
	if errNoCause.Unwrap() != nil {
		t.Errorf("Unwrap() on error without cause should return nil")
	}
}

func TestNewConfigError(t *testing.T) {
	err := NewConfigError("no-db-in-routes", "forbidden_imports", "boundary rule needs forbidden_imports")

	if err.Code != ConfigInvalid {
		t.Errorf("Code = %v, want %v", err.Code, ConfigInvalid)
	}
	if !strings.Contains(err.Error(), `rule "no-db-in-routes"`) {
		t.Errorf("Error() = %q, want rule id", err.Error())
	}
	details, ok := err.Details.(RuleDetails)
	if !ok {
		t.Fatalf("Details = %T, want RuleDetails", err.Details)
	}
	if details.Field != "forbidden_imports" {
		t.Errorf("Field = %q, want forbidden_imports", details.Field)
	}
}

func TestNewPatternError(t *testing.T) {
	_, reErr := regexp.Compile("(unclosed")
	err := NewPatternError("no-sql", "(unclosed", reErr)

	if err.Code != ConfigInvalid {
		t.Errorf("Code = %v, want %v", err.Code, ConfigInvalid)
	}
	if !HasCode(err, PatternInvalid) {
		t.Error("pattern error should carry PATTERN_ERROR in its chain")
	}
	if !errors.Is(err, reErr) {
		t.Error("pattern error should wrap the regexp failure")
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"plain error", errors.New("boom"), InternalError},
		{"direct", NewFileReadError("a.go", nil), FileRead},
		{"wrapped", fmt.Errorf("scan: %w", NewConfigError("r", "type", "bad")), ConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetSuggestedFixes(t *testing.T) {
	tests := []struct {
		code    ErrorCode
		wantNil bool
		wantLen int
	}{
		{ConfigInvalid, false, 1},
		{RulesNotFound, false, 1},
		{GitUnavailable, false, 1},
		{StorageFailure, false, 1},
		{FileRead, true, 0},
		{PatternInvalid, true, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			fixes := GetSuggestedFixes(tt.code)

			if tt.wantNil && fixes != nil {
				t.Errorf("GetSuggestedFixes(%v) = %v, want nil", tt.code, fixes)
			}
			if !tt.wantNil && len(fixes) != tt.wantLen {
				t.Errorf("GetSuggestedFixes(%v) len = %d, want %d", tt.code, len(fixes), tt.wantLen)
			}
		})
	}
}

func TestErrorCodes(t *testing.T) {
	codes := []ErrorCode{
		ConfigInvalid,
		FileRead,
		PatternInvalid,
		RulesNotFound,
		GitUnavailable,
		StorageFailure,
		InternalError,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %v", code)
		}
		seen[code] = true
		if string(code) == "" {
			t.Error("Error code should not be empty")
		}
	}
}

func TestErrorActionsMap(t *testing.T) {
	for code, fixes := range ErrorActions {
		if len(fixes) == 0 {
			t.Errorf("ErrorActions[%v] has no fix actions", code)
		}
		for i, fix := range fixes {
			if fix.Type == "" {
				t.Errorf("ErrorActions[%v][%d].Type is empty", code, i)
			}
		}
	}
}
