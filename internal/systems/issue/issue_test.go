package issue

import "testing"

func TestIssueString(t *testing.T) {
	tests := []struct {
		name string
		in   Issue
		want string
	}{
		{
			name: "file and path",
			in: Issue{
				File:    "systems/5e/system.rpg.json",
				Path:    []string{"resources", "[1]"},
				Message: "dangling reference",
			},
			want: "systems/5e/system.rpg.json: resources -> [1]: dangling reference",
		},
		{
			name: "root location",
			in:   Issue{File: "a.json", Message: "bad"},
			want: "a.json: <root>: bad",
		},
		{
			name: "system fallback",
			in:   Issue{System: "5e", Message: "missing"},
			want: "5e: <root>: missing",
		},
		{
			name: "no file",
			in:   Issue{Message: "bare"},
			want: "<root>: bare",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.String(); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestCountAndHasErrors(t *testing.T) {
	issues := []Issue{
		Errorf(KindSchema, nil, "missing %s", "id"),
		Warnf(KindUnusedResource, nil, "unused"),
		Warnf(KindUnusedResource, nil, "unused"),
	}
	errs, warns := Count(issues)
	if errs != 1 || warns != 2 {
		t.Fatalf("expected 1 error and 2 warnings, got %d/%d", errs, warns)
	}
	if !HasErrors(issues) {
		t.Fatal("expected HasErrors to be true")
	}
	if HasErrors(issues[1:]) {
		t.Fatal("expected warnings alone not to count as errors")
	}
}

func TestInFileKeepsExistingFile(t *testing.T) {
	issues := []Issue{
		{Message: "a"},
		{File: "other.json", Message: "b"},
	}
	got := InFile(issues, "5e", "system.rpg.json")
	if got[0].File != "system.rpg.json" || got[0].System != "5e" {
		t.Fatalf("expected file to be stamped, got %+v", got[0])
	}
	if got[1].File != "other.json" {
		t.Fatalf("expected existing file to be kept, got %q", got[1].File)
	}
}

func TestChildDoesNotAlias(t *testing.T) {
	base := make([]string, 1, 4)
	base[0] = "stats"
	a := Child(base, "a")
	b := Child(base, "b")
	if a[1] != "a" || b[1] != "b" {
		t.Fatalf("expected independent paths, got %v and %v", a, b)
	}
}

func TestKindIsReference(t *testing.T) {
	if !KindDanglingReference.IsReference() || !KindUnusedResource.IsReference() {
		t.Fatal("expected reference kinds")
	}
	if KindSchema.IsReference() || KindParse.IsReference() {
		t.Fatal("expected non-reference kinds")
	}
}
