package access

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseIndicators(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []Indicator
		wantErr bool
	}{
		{
			name: "kind and scope defaults",
			input: `indicators:
  - value: members only
  - kind: regex
    scope: content
    value: 'log ?in to (read|continue)'
`,
			want: []Indicator{
				{Kind: KindContains, Scope: ScopeAll, Value: "members only"},
				{Kind: KindRegex, Scope: ScopeContent, Value: "log ?in to (read|continue)"},
			},
		},
		{
			name:  "empty document",
			input: "",
		},
		{
			name:    "missing value",
			input:   "indicators:\n  - scope: bullet\n",
			wantErr: true,
		},
		{
			name:    "unknown scope",
			input:   "indicators:\n  - value: x\n    scope: title\n",
			wantErr: true,
		},
		{
			name:    "unknown field",
			input:   "indicator:\n  - value: x\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIndicators(strings.NewReader(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("indicators mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseIndicatorsWithDefaults(t *testing.T) {
	got, err := ParseIndicators(strings.NewReader("defaults: true\nindicators:\n  - value: e-edition\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := append(DefaultIndicators(), Indicator{Kind: KindContains, Scope: ScopeAll, Value: "e-edition"})
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("indicators mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.yaml")
	body := `indicators:
  - kind: regex
    scope: bullet
    value: '^\s*sponsored'
  - scope: content
    value: register now
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write indicators: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	tests := []struct {
		name    string
		text    Text
		want    string
		blocked bool
	}{
		{"sponsored bullet", Text{Bullet: "  Sponsored: new truck deals"}, `^\s*sponsored`, true},
		{"sponsored mid bullet", Text{Bullet: "Not sponsored content"}, "", false},
		{"register in content", Text{Content: "Please Register Now to keep reading."}, "register now", true},
		{"register in bullet only", Text{Bullet: "register now"}, "", false},
		{"default phrase not loaded", Text{Content: "paywall"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ind, blocked := c.Blocked(tt.text)
			if blocked != tt.blocked || ind.Value != tt.want {
				t.Errorf("Blocked(%+v) = (%q, %v), want (%q, %v)", tt.text, ind.Value, blocked, tt.want, tt.blocked)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("indicators:\n  - kind: regex\n    value: '('\n"), 0o600); err != nil {
		t.Fatalf("write indicators: %v", err)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); !os.IsNotExist(err) {
		t.Errorf("missing file: got %v, want not-exist error", err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("invalid regex: expected error, got nil")
	}

	c, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if c.Accessible("", "premium content") {
		t.Error("default checker accepted premium content")
	}
}
