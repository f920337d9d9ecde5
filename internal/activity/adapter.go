package activity

import (
	"log/slog"
	"path/filepath"
	"sync"
)

// Recorder receives shaped actions from the adapter.
type Recorder interface {
	Record(action string, details map[string]any)
}

// Adapter subscribes to the configured streams of a Source and records each
// in-scope notification with an action-specific detail payload.
type Adapter struct {
	recorder Recorder
	scope    Scope
	logger   *slog.Logger

	mu    sync.Mutex
	subs  []Subscription
	kinds []Kind
}

// NewAdapter subscribes to every recognised name in kinds. Unknown names are
// ignored and duplicates subscribe once.
func NewAdapter(src Source, rec Recorder, scope Scope, kinds []string, logger *slog.Logger) *Adapter {
	a := &Adapter{
		recorder: rec,
		scope:    scope,
		logger:   logger,
	}

	seen := make(map[Kind]struct{}, len(kinds))
	for _, name := range kinds {
		kind := Kind(name)
		handler := a.handlerFor(kind)
		if handler == nil {
			logger.Debug("ignoring unsupported activity kind", "kind", name)
			continue
		}
		if _, dup := seen[kind]; dup {
			continue
		}
		seen[kind] = struct{}{}

		a.subs = append(a.subs, src.Subscribe(kind, handler))
		a.kinds = append(a.kinds, kind)
	}

	logger.Info("activity adapter subscribed", "kinds", a.kinds)
	return a
}

// Kinds returns the streams the adapter is subscribed to.
func (a *Adapter) Kinds() []Kind {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Kind, len(a.kinds))
	copy(out, a.kinds)
	return out
}

// Close revokes every subscription. Further calls are no-ops.
func (a *Adapter) Close() {
	a.mu.Lock()
	subs := a.subs
	a.subs = nil
	a.kinds = nil
	a.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
}

func (a *Adapter) handlerFor(kind Kind) func(Notification) {
	switch kind {
	case KindOpenDocument:
		return a.handleOpenDocument
	case KindSaveDocument:
		return a.handleSaveDocument
	case KindTextDocumentChanged:
		return a.handleTextDocumentChanged
	case KindStartDebugSession, KindEndDebugSession:
		return a.handleDebugSession
	case KindEndTaskProcess:
		return a.handleEndTaskProcess
	case KindTerminalOpened, KindTerminalClosed:
		return a.handleTerminal
	case KindTerminalActiveChanged:
		return a.handleActiveTerminalChanged
	case KindDiagnosticsChanged:
		return a.handleDiagnosticsChanged
	}
	return nil
}

func (a *Adapter) unexpected(n Notification) {
	a.logger.Warn("dropping notification of unexpected type",
		"kind", n.Kind(),
	)
}

func (a *Adapter) handleOpenDocument(n Notification) {
	ev, ok := n.(DocumentOpened)
	if !ok {
		a.unexpected(n)
		return
	}
	if !a.scope.Contains(ev.Path) {
		return
	}
	a.recorder.Record(string(KindOpenDocument), map[string]any{
		"fileName": ev.Path,
	})
}

func (a *Adapter) handleSaveDocument(n Notification) {
	ev, ok := n.(DocumentSaved)
	if !ok {
		a.unexpected(n)
		return
	}
	if !a.scope.Contains(ev.Path) {
		return
	}
	a.recorder.Record(string(KindSaveDocument), map[string]any{
		"fileName":       ev.Path,
		"contentPreview": ev.Text,
	})
}

func (a *Adapter) handleTextDocumentChanged(n Notification) {
	ev, ok := n.(DocumentChanged)
	if !ok {
		a.unexpected(n)
		return
	}
	if !a.scope.Contains(ev.Path) {
		return
	}

	changes := ev.Changes
	if changes == nil {
		changes = []ContentChange{}
	}
	a.recorder.Record(string(KindTextDocumentChanged), map[string]any{
		"fileName":    filepath.Base(ev.Path),
		"changeCount": len(changes),
		"changes":     changes,
	})
}

func (a *Adapter) handleDebugSession(n Notification) {
	var session DebugSession
	switch ev := n.(type) {
	case DebugSessionStarted:
		session = ev.DebugSession
	case DebugSessionEnded:
		session = ev.DebugSession
	default:
		a.unexpected(n)
		return
	}

	if session.WorkspaceFolder == "" || !a.scope.Contains(session.WorkspaceFolder) {
		return
	}
	a.recorder.Record(string(n.Kind()), map[string]any{
		"sessionName": session.Name,
	})
}

func (a *Adapter) handleEndTaskProcess(n Notification) {
	ev, ok := n.(TaskProcessEnded)
	if !ok {
		a.unexpected(n)
		return
	}

	var exitCode any
	if ev.ExitCode != nil {
		exitCode = *ev.ExitCode
	}
	a.recorder.Record(string(KindEndTaskProcess), map[string]any{
		"taskName": ev.TaskName,
		"exitCode": exitCode,
	})
}

func (a *Adapter) handleTerminal(n Notification) {
	var terminal Terminal
	switch ev := n.(type) {
	case TerminalOpened:
		terminal = ev.Terminal
	case TerminalClosed:
		terminal = ev.Terminal
	default:
		a.unexpected(n)
		return
	}

	a.recorder.Record(string(n.Kind()), map[string]any{
		"terminalName": terminal.Name,
	})
}

func (a *Adapter) handleActiveTerminalChanged(n Notification) {
	ev, ok := n.(ActiveTerminalChanged)
	if !ok {
		a.unexpected(n)
		return
	}

	if ev.Terminal == nil {
		a.recorder.Record(string(KindTerminalActiveChanged), map[string]any{
			"status": "deactivated",
		})
		return
	}
	a.recorder.Record(string(KindTerminalActiveChanged), map[string]any{
		"terminalName": ev.Terminal.Name,
		"status":       "activated",
	})
}

// handleDiagnosticsChanged records one event per in-scope resource.
func (a *Adapter) handleDiagnosticsChanged(n Notification) {
	ev, ok := n.(DiagnosticsChanged)
	if !ok {
		a.unexpected(n)
		return
	}

	for _, res := range ev.Resources {
		if !a.scope.Contains(res.Path) {
			continue
		}

		errorMessages := []string{}
		warningMessages := []string{}
		for _, d := range res.Diagnostics {
			switch d.Severity {
			case SeverityError:
				errorMessages = append(errorMessages, d.Message)
			case SeverityWarning:
				warningMessages = append(warningMessages, d.Message)
			}
		}

		a.recorder.Record(string(KindDiagnosticsChanged), map[string]any{
			"fileName":        filepath.Base(res.Path),
			"errorCount":      len(errorMessages),
			"warningCount":    len(warningMessages),
			"errorMessages":   errorMessages,
			"warningMessages": warningMessages,
		})
	}
}
