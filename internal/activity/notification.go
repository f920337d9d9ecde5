// Package activity turns editor notifications into recorded actions.
package activity

import (
	"encoding/json"
	"fmt"
)

// Kind names an activity stream. The names double as the recorded action.
type Kind string

const (
	KindOpenDocument          Kind = "openDocument"
	KindSaveDocument          Kind = "saveDocument"
	KindTextDocumentChanged   Kind = "textDocumentChanged"
	KindStartDebugSession     Kind = "startDebugSession"
	KindEndDebugSession       Kind = "endDebugSession"
	KindEndTaskProcess        Kind = "endTaskProcess"
	KindTerminalOpened        Kind = "terminalOpened"
	KindTerminalClosed        Kind = "terminalClosed"
	KindTerminalActiveChanged Kind = "terminalActiveChanged"
	KindDiagnosticsChanged    Kind = "diagnosticsChanged"
)

// AllKinds lists every supported stream in a stable order.
var AllKinds = []Kind{
	KindOpenDocument,
	KindStartDebugSession,
	KindEndDebugSession,
	KindEndTaskProcess,
	KindSaveDocument,
	KindTerminalOpened,
	KindTerminalClosed,
	KindTerminalActiveChanged,
	KindDiagnosticsChanged,
	KindTextDocumentChanged,
}

// Supported reports whether k is a known stream.
func Supported(k Kind) bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Notification is one occurrence on a stream.
type Notification interface {
	Kind() Kind
}

type Document struct {
	Path string `json:"path"`
	Text string `json:"text,omitempty"`
}

type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// ContentChange is one discrete edit inside a text change notification.
type ContentChange struct {
	Range Range  `json:"range"`
	Text  string `json:"text"`
}

type DebugSession struct {
	Name string `json:"name"`
	// WorkspaceFolder is empty when the session is not tied to a folder.
	WorkspaceFolder string `json:"workspaceFolder,omitempty"`
}

type Terminal struct {
	Name string `json:"name"`
}

type Severity string

const (
	SeverityError       Severity = "error"
	SeverityWarning     Severity = "warning"
	SeverityInformation Severity = "information"
	SeverityHint        Severity = "hint"
)

type Diagnostic struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// ResourceDiagnostics is the full current diagnostic set of one file.
type ResourceDiagnostics struct {
	Path        string       `json:"path"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

type DocumentOpened struct{ Document }

type DocumentSaved struct{ Document }

type DocumentChanged struct {
	Document
	Changes []ContentChange `json:"changes"`
}

type DebugSessionStarted struct{ DebugSession }

type DebugSessionEnded struct{ DebugSession }

type TaskProcessEnded struct {
	TaskName string `json:"taskName"`
	// ExitCode is nil when the host could not determine it.
	ExitCode *int `json:"exitCode"`
}

type TerminalOpened struct{ Terminal }

type TerminalClosed struct{ Terminal }

// ActiveTerminalChanged carries a nil Terminal when no terminal is active.
type ActiveTerminalChanged struct {
	Terminal *Terminal `json:"terminal"`
}

type DiagnosticsChanged struct {
	Resources []ResourceDiagnostics `json:"resources"`
}

func (DocumentOpened) Kind() Kind        { return KindOpenDocument }
func (DocumentSaved) Kind() Kind         { return KindSaveDocument }
func (DocumentChanged) Kind() Kind       { return KindTextDocumentChanged }
func (DebugSessionStarted) Kind() Kind   { return KindStartDebugSession }
func (DebugSessionEnded) Kind() Kind     { return KindEndDebugSession }
func (TaskProcessEnded) Kind() Kind      { return KindEndTaskProcess }
func (TerminalOpened) Kind() Kind        { return KindTerminalOpened }
func (TerminalClosed) Kind() Kind        { return KindTerminalClosed }
func (ActiveTerminalChanged) Kind() Kind { return KindTerminalActiveChanged }
func (DiagnosticsChanged) Kind() Kind    { return KindDiagnosticsChanged }

// Decode parses a JSON payload for the given stream.
func Decode(kind Kind, data []byte) (Notification, error) {
	var n Notification
	switch kind {
	case KindOpenDocument:
		n = &DocumentOpened{}
	case KindSaveDocument:
		n = &DocumentSaved{}
	case KindTextDocumentChanged:
		n = &DocumentChanged{}
	case KindStartDebugSession:
		n = &DebugSessionStarted{}
	case KindEndDebugSession:
		n = &DebugSessionEnded{}
	case KindEndTaskProcess:
		n = &TaskProcessEnded{}
	case KindTerminalOpened:
		n = &TerminalOpened{}
	case KindTerminalClosed:
		n = &TerminalClosed{}
	case KindTerminalActiveChanged:
		n = &ActiveTerminalChanged{}
	case KindDiagnosticsChanged:
		n = &DiagnosticsChanged{}
	default:
		return nil, fmt.Errorf("unsupported activity kind %q", kind)
	}

	if err := json.Unmarshal(data, n); err != nil {
		return nil, fmt.Errorf("decoding %s notification: %w", kind, err)
	}
	return deref(n), nil
}

// deref hands out value types so handlers need only one type switch arm.
func deref(n Notification) Notification {
	switch v := n.(type) {
	case *DocumentOpened:
		return *v
	case *DocumentSaved:
		return *v
	case *DocumentChanged:
		return *v
	case *DebugSessionStarted:
		return *v
	case *DebugSessionEnded:
		return *v
	case *TaskProcessEnded:
		return *v
	case *TerminalOpened:
		return *v
	case *TerminalClosed:
		return *v
	case *ActiveTerminalChanged:
		return *v
	case *DiagnosticsChanged:
		return *v
	}
	return n
}
