package navigator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultProfiles(t *testing.T) {
	p := DefaultProfiles()
	if diff := cmp.Diff([]string{"embedded", "employee", "organization"}, p.Names()); diff != "" {
		t.Fatalf("Names mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		name      string
		root      string
		smartJump bool
		reconcile bool
		levels    int
		userLevel bool
	}{
		{ProfileOrganization, "Departments", true, true, 7, true},
		{ProfileEmployee, "Home", false, false, 4, false},
		{ProfileEmbedded, "My Documents", false, false, 2, false},
	}
	for _, tt := range tests {
		g, err := p.Get(tt.name)
		if err != nil {
			t.Fatalf("Get(%q): %v", tt.name, err)
		}
		if g.RootName != tt.root {
			t.Errorf("%s: RootName = %q, want %q", tt.name, g.RootName, tt.root)
		}
		if g.SmartJump != tt.smartJump || g.SmartBack != tt.smartJump || g.Reconcile != tt.reconcile {
			t.Errorf("%s: flags = %v/%v/%v", tt.name, g.SmartJump, g.SmartBack, g.Reconcile)
		}
		if len(g.Levels) != tt.levels {
			t.Errorf("%s: %d levels, want %d", tt.name, len(g.Levels), tt.levels)
		}
		if (g.userRank() >= 0) != tt.userLevel {
			t.Errorf("%s: userRank = %d", tt.name, g.userRank())
		}
	}

	if _, err := p.Get("kiosk"); err == nil {
		t.Error("Get of an unknown explorer should fail")
	}
}

func TestParseProfilesErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "malformed yaml",
			yaml:    "kiosk: [",
			wantErr: "parse profiles",
		},
		{
			name: "unknown group",
			yaml: `
kiosk:
  levels:
    - {type: root, group: shelves}
`,
			wantErr: "unknown group",
		},
		{
			name: "first level is not root",
			yaml: `
kiosk:
  levels:
    - {type: category, group: files}
`,
			wantErr: "first level must be root",
		},
		{
			name: "next points nowhere",
			yaml: `
kiosk:
  levels:
    - {type: root, group: categories, next: category}
`,
			wantErr: "missing level",
		},
		{
			name: "duplicate level",
			yaml: `
kiosk:
  levels:
    - {type: root, group: categories, next: category}
    - {type: category, group: filtered_files}
    - {type: category, group: years}
`,
			wantErr: "duplicate level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProfiles([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadProfilesOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "explorers.yaml")
	doc := `
kiosk:
  root_name: Lobby
  priority: [Personal]
  default_type: Personal
  levels:
    - {type: root, group: categories, next: category}
    - {type: category, group: filtered_files}
employee:
  root_name: Start
  levels:
    - {type: root, group: categories, next: category}
    - {type: category, group: files}
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}
	if diff := cmp.Diff([]string{"embedded", "employee", "kiosk", "organization"}, p.Names()); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}

	kiosk, _ := p.Get("kiosk")
	got := kiosk.Resolve(testIndex(), State{
		Path:    Path{RootSegment("Lobby"), category("Personal")},
		Filters: allFilters(),
		Owner:   "u1",
	})
	if diff := cmp.Diff([]string{"d4", "d9"}, docIDs(got)); diff != "" {
		t.Errorf("kiosk files mismatch (-want +got):\n%s", diff)
	}

	employee, _ := p.Get(ProfileEmployee)
	if employee.RootName != "Start" {
		t.Errorf("overlay did not replace the employee explorer: %q", employee.RootName)
	}

	if _, err := LoadProfiles(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadProfiles of a missing file should fail")
	}

	builtin, err := LoadProfiles("")
	if err != nil || len(builtin) != 3 {
		t.Errorf("LoadProfiles(\"\") = %d profiles, %v", len(builtin), err)
	}
}
