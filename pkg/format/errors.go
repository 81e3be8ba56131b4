package format

import "errors"

// Sentinel errors for inspection failures. Registry.Inspect converts them
// into error states; they never escape the registry as Go errors.
var (
	ErrDocumentNotFound   = errors.New("document not found")
	ErrDocumentUnreadable = errors.New("document unreadable")
	ErrDocumentDenied     = errors.New("document denied")
	ErrInspectorFault     = errors.New("inspector fault")
	ErrMissingInspector   = errors.New("no inspector registered")
	ErrInconsistentState  = errors.New("inconsistent format state")
)

// Detail keys shared by inspectors, the comparator and the renderers.
const (
	KeyError        = "error"
	KeyErrorMessage = "error_message"
	KeyNote         = "note"
)

// Error codes stored under KeyError.
const (
	CodeDocumentNotFound   = "document_not_found"
	CodeDocumentUnreadable = "document_unreadable"
	CodeDocumentDenied     = "document_denied"
	CodeInspectorFault     = "inspector_fault"
	CodeMissingInspector   = "missing_inspector"
	CodeInconsistentState  = "inconsistent_state"
)

// Code maps an inspection error to the code recorded in details.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInconsistentState):
		return CodeInconsistentState
	case errors.Is(err, ErrMissingInspector):
		return CodeMissingInspector
	case errors.Is(err, ErrDocumentNotFound):
		return CodeDocumentNotFound
	case errors.Is(err, ErrDocumentDenied):
		return CodeDocumentDenied
	case errors.Is(err, ErrDocumentUnreadable):
		return CodeDocumentUnreadable
	default:
		return CodeInspectorFault
	}
}
