package cli

import (
	"errors"

	"github.com/roach88/macromover/internal/document"
	"github.com/roach88/macromover/internal/engine"
)

// Error codes for CLI responses.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeNotFound      = "E002" // Path not found
	ErrCodeReadFailed    = "E003" // Document read error
	ErrCodeWriteFailed   = "E004" // Document write error
	ErrCodeInvalidSchema = "E005" // Document fails the schema
	ErrCodeNoRecords     = "E006" // Nothing to retrieve or deploy
	ErrCodeStore         = "E007" // Store open or ledger error

	ErrCodeEmptyValueSet = "E101" // Lookup built with no values
	ErrCodeRemoteQuery   = "E102" // Target query failed
	ErrCodeRemoteInsert  = "E103" // Bulk insert call failed
	ErrCodeMissingField  = "E104" // Record lacks a required field

	ErrCodeTestFailed = "E201" // One or more scenarios failed
)

// codeForError maps an error to its CLI error code.
func codeForError(err error) string {
	var schemaErr *document.SchemaError
	if errors.As(err, &schemaErr) && engine.CodeOf(err) == "" {
		return ErrCodeInvalidSchema
	}

	switch engine.CodeOf(err) {
	case engine.ErrCodeEmptyValueSet:
		return ErrCodeEmptyValueSet
	case engine.ErrCodeRemoteQuery:
		return ErrCodeRemoteQuery
	case engine.ErrCodeRemoteInsert:
		return ErrCodeRemoteInsert
	case engine.ErrCodeFileRead:
		return ErrCodeReadFailed
	case engine.ErrCodeFileWrite:
		return ErrCodeWriteFailed
	case engine.ErrCodeNoRecordsFound:
		return ErrCodeNoRecords
	case engine.ErrCodeMissingField:
		return ErrCodeMissingField
	default:
		return ErrCodeGeneric
	}
}

// exitCodeForError picks the process exit code for a failed run.
// Finding nothing to move is a failure, not a command error.
func exitCodeForError(err error) int {
	if engine.IsCode(err, engine.ErrCodeNoRecordsFound) {
		return ExitFailure
	}
	return ExitCommandError
}

// reportError writes err through formatter and returns the ExitError
// the command should exit with.
func reportError(formatter *OutputFormatter, message string, err error) error {
	code := codeForError(err)
	var details interface{}
	if c := engine.CodeOf(err); c != "" {
		details = map[string]string{"engine_code": string(c)}
	}
	_ = formatter.Error(code, err.Error(), details)
	return WrapExitError(exitCodeForError(err), message, err)
}
