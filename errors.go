package vcschema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/credkit/vcschema/i18n"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	CodeParseError               = "parse_error"
	CodeDuplicateKey             = "duplicate_key"
	CodeMissingCredentialSubject = "missing_credential_subject"
	CodeAlreadyExists            = "already_exists"
	CodeNotFound                 = "not_found"
	CodeInvalidPath              = "invalid_path"
	CodeTitleRequired            = "title_required"
	CodeNormalizationFailed      = "normalization_failed"
	CodeInvalidContextURI        = "invalid_context_uri"
	CodeExampleMismatch          = "example_mismatch"
	CodeUnwrappedProperties      = "unwrapped_properties"
	CodeSchemaViolation          = "schema_violation"
)

// Sentinel errors matched through Issues.Is.
var (
	ErrParse               = errors.New("vcschema: parse error")
	ErrAlreadyExists       = errors.New("vcschema: already exists")
	ErrNotFound            = errors.New("vcschema: not found")
	ErrInvalidPath         = errors.New("vcschema: invalid path")
	ErrTitleRequired       = errors.New("vcschema: title required")
	ErrNormalizationFailed = errors.New("vcschema: normalization failed")
	ErrInvalidContextURI   = errors.New("vcschema: invalid context uri")
)

var sentinelByCode = map[string]error{
	CodeParseError:               ErrParse,
	CodeDuplicateKey:             ErrParse,
	CodeMissingCredentialSubject: ErrParse,
	CodeAlreadyExists:            ErrAlreadyExists,
	CodeNotFound:                 ErrNotFound,
	CodeInvalidPath:              ErrInvalidPath,
	CodeTitleRequired:            ErrTitleRequired,
	CodeNormalizationFailed:      ErrNormalizationFailed,
	CodeInvalidContextURI:        ErrInvalidContextURI,
}

// Issue represents a single problem found in a template or an edit.
type Issue struct {
	Path    string // JSON Pointer (for example: /properties/credentialSubject/properties/name).
	Code    string // One of the codes listed above.
	Message string
	Hint    string // Optional: remediation hints.
	Cause   error  // Optional: underlying error.
	// Params carries structured parameters (e.g., {"key":"name"}) for i18n and logs.
	Params map[string]any
}

// NewIssue builds an Issue whose message comes from the current translator.
func NewIssue(path, code string, params map[string]any) Issue {
	data := make(map[string]string, len(params))
	for k, v := range params {
		data[k] = fmt.Sprint(v)
	}
	return Issue{Path: path, Code: code, Message: i18n.T(code, data), Params: params}
}

// Issues is a collection of problems that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := min(n, maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. already_exists at /name: field already exists
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
		if it.Message != "" {
			fmt.Fprintf(b, ": %s", it.Message)
		}
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Is lets errors.Is match the sentinel of any contained issue code.
func (iss Issues) Is(target error) bool {
	for _, it := range iss {
		if s, ok := sentinelByCode[it.Code]; ok && s == target {
			return true
		}
	}
	return false
}

// Unwrap exposes the underlying causes.
func (iss Issues) Unwrap() []error {
	var out []error
	for _, it := range iss {
		if it.Cause != nil {
			out = append(out, it.Cause)
		}
	}
	return out
}

// HasCode reports whether any issue carries code.
func (iss Issues) HasCode(code string) bool {
	for _, it := range iss {
		if it.Code == code {
			return true
		}
	}
	return false
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}
