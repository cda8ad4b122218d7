package stamper

import (
	"testing"
)

func TestFindPlaceholders(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"none", "plain text", nil},
		{"single", "Hello ${name}!", []string{"name"}},
		{"multiple", "${greeting} ${name}, order ${order.id}", []string{"greeting", "name", "order.id"}},
		{"expression", "total: ${price * quantity}", []string{"price * quantity"}},
		{"empty braces", "${}", []string{""}},
		{"unterminated", "Hello ${name", nil},
		{"dollar without brace", "cost is $5", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindPlaceholders(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("FindPlaceholders(%q) = %d placeholders, want %d", tt.text, len(got), len(tt.want))
			}
			for i, ph := range got {
				if ph.Expression != tt.want[i] {
					t.Errorf("placeholder %d = %q, want %q", i, ph.Expression, tt.want[i])
				}
				if tt.text[ph.Start:ph.End] != "${"+tt.want[i]+"}" {
					t.Errorf("placeholder %d span = %q", i, tt.text[ph.Start:ph.End])
				}
			}
		})
	}
}

func TestHasPlaceholders(t *testing.T) {
	if !HasPlaceholders("x ${y} z") {
		t.Errorf("HasPlaceholders() = false, want true")
	}
	if HasPlaceholders("no placeholders here") {
		t.Errorf("HasPlaceholders() = true, want false")
	}
	if HasPlaceholders("broken ${ only") {
		t.Errorf("HasPlaceholders() on unterminated = true, want false")
	}
}

func placeholderEnv(t *testing.T, vars map[string]interface{}) *EvalEnv {
	t.Helper()
	registry, err := NewRegistry(nil)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return NewEvalEnv(NewContextRoot(vars).Root(), registry)
}

func textParagraph(text string) *Paragraph {
	p := &Paragraph{}
	p.SetText(text)
	return p
}

func TestResolvePlaceholders(t *testing.T) {
	env := placeholderEnv(t, map[string]interface{}{
		"name":  "Ada",
		"count": 3,
		"price": 2.5,
	})

	tests := []struct {
		name        string
		text        string
		want        string
		wantChanged bool
	}{
		{"no placeholder", "plain", "plain", false},
		{"variable", "Hello ${name}!", "Hello Ada!", true},
		{"arithmetic", "${count * 2} items", "6 items", true},
		{"mixed types", "${price} x ${count}", "2.5 x 3", true},
		{"unknown variable becomes empty", "[${missing}]", "[]", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := textParagraph(tt.text)
			changed, err := resolvePlaceholders(p, env, true)
			if err != nil {
				t.Fatalf("resolvePlaceholders() error = %v", err)
			}
			if changed != tt.wantChanged {
				t.Errorf("changed = %v, want %v", changed, tt.wantChanged)
			}
			if got := p.GetText(); got != tt.want {
				t.Errorf("text = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolvePlaceholdersStrict(t *testing.T) {
	env := placeholderEnv(t, nil)

	p := textParagraph("before ${1 +} after")
	if _, err := resolvePlaceholders(p, env, true); err == nil {
		t.Fatalf("strict mode should surface the parse error")
	}
	if got := p.GetText(); got != "before ${1 +} after" {
		t.Errorf("strict failure must leave text untouched, got %q", got)
	}
}

func TestResolvePlaceholdersLenient(t *testing.T) {
	env := placeholderEnv(t, map[string]interface{}{"name": "Ada"})

	p := textParagraph("${1 +} and ${name}")
	changed, err := resolvePlaceholders(p, env, false)
	if err != nil {
		t.Fatalf("resolvePlaceholders() error = %v", err)
	}
	if !changed {
		t.Errorf("changed = false, want true")
	}
	if got := p.GetText(); got != "${1 +} and Ada" {
		t.Errorf("text = %q, want %q", got, "${1 +} and Ada")
	}
}

func TestResolvePlaceholdersAcrossRuns(t *testing.T) {
	// Word splits text into runs mid-expression; resolution works on the
	// joined paragraph text.
	p := &Paragraph{Content: []ParagraphChild{
		&Run{Children: []RunChild{&Text{Content: "Hello ${na"}}},
		&Run{Children: []RunChild{&Text{Content: "me}!"}}},
	}}

	env := placeholderEnv(t, map[string]interface{}{"name": "Ada"})
	changed, err := resolvePlaceholders(p, env, true)
	if err != nil {
		t.Fatalf("resolvePlaceholders() error = %v", err)
	}
	if !changed {
		t.Errorf("changed = false, want true")
	}
	if got := p.GetText(); got != "Hello Ada!" {
		t.Errorf("text = %q, want %q", got, "Hello Ada!")
	}
}
