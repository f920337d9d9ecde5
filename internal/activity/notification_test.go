package activity

import "testing"

func TestDecode(t *testing.T) {
	n, err := Decode(KindTextDocumentChanged, []byte(`{
		"path": "/ws/csc111/a.py",
		"changes": [{"range": {"start": {"line": 1, "character": 2}, "end": {"line": 1, "character": 5}}, "text": "abc"}]
	}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	ev, ok := n.(DocumentChanged)
	if !ok {
		t.Fatalf("Decode returned %T, want DocumentChanged", n)
	}
	if ev.Path != "/ws/csc111/a.py" || len(ev.Changes) != 1 || ev.Changes[0].Range.End.Character != 5 {
		t.Errorf("decoded = %+v", ev)
	}
}

func TestDecode_ActiveTerminalNull(t *testing.T) {
	n, err := Decode(KindTerminalActiveChanged, []byte(`{"terminal": null}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ev := n.(ActiveTerminalChanged); ev.Terminal != nil {
		t.Errorf("expected nil terminal, got %+v", ev.Terminal)
	}
}

func TestDecode_EveryKind(t *testing.T) {
	for _, k := range AllKinds {
		n, err := Decode(k, []byte(`{}`))
		if err != nil {
			t.Errorf("Decode(%s): %v", k, err)
			continue
		}
		if n.Kind() != k {
			t.Errorf("Decode(%s) produced kind %s", k, n.Kind())
		}
	}
}

func TestDecode_Errors(t *testing.T) {
	if _, err := Decode("renameFile", []byte(`{}`)); err == nil {
		t.Error("expected error for unsupported kind")
	}
	if _, err := Decode(KindOpenDocument, []byte(`{`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestSupported(t *testing.T) {
	if !Supported(KindDiagnosticsChanged) {
		t.Error("diagnosticsChanged should be supported")
	}
	if Supported("renameFile") {
		t.Error("renameFile should not be supported")
	}
}
