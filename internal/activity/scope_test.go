package activity

import "testing"

func TestScope_Contains(t *testing.T) {
	scope := Scope{WorkspaceRoot: "/home/student/ws", ProjectFolder: "csc111"}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"file in project", "/home/student/ws/csc111/lab1/a.py", true},
		{"project folder itself", "/home/student/ws/csc111", true},
		{"trailing slash", "/home/student/ws/csc111/", true},
		{"workspace root", "/home/student/ws", false},
		{"sibling folder", "/home/student/ws/other/a.py", false},
		{"prefix sibling", "/home/student/ws/csc111x/a.py", false},
		{"dot-dot escape", "/home/student/ws/csc111/../other/a.py", false},
		{"relative path", "csc111/a.py", false},
		{"empty path", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scope.Contains(tt.path); got != tt.want {
				t.Errorf("Contains(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestScope_NoWorkspace(t *testing.T) {
	scope := Scope{ProjectFolder: "csc111"}

	if scope.Contains("/home/student/ws/csc111/a.py") {
		t.Error("no open workspace should match nothing")
	}
	if scope.Dir() != "" {
		t.Errorf("Dir() = %q, want empty", scope.Dir())
	}
}
