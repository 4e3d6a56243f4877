package classify

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCategory(t *testing.T) {
	c := New()

	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "achievement",
			text: "Successfully deployed the new ingest service, migration complete and everything now works.",
			want: "technical_achievement",
		},
		{
			name: "problem",
			text: "Hit a weird bug, the import is broken and the worker is stuck on a blocker.",
			want: "problem",
		},
		{
			name: "decision",
			text: "Decided to go with pgvector, the approach fits our strategy better.",
			want: "decision",
		},
		{
			name: "insight",
			text: "Realized the key finding: batch writes dominate the latency profile. Important: revisit pool sizing.",
			want: "insight",
		},
		{
			name: "default when nothing matches",
			text: "Lorem ipsum dolor sit amet.",
			want: "note",
		},
		{
			name: "empty text",
			text: "",
			want: "note",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Category(tt.text); got != tt.want {
				t.Errorf("Category() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTags(t *testing.T) {
	c := New()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "tech stack",
			text: "Wired the Python service to PostgreSQL behind a Docker compose setup.",
			want: []string{"configuration", "docker", "postgresql", "python"},
		},
		{
			name: "case insensitive",
			text: "DOCKER and PYTHON in caps",
			want: []string{"docker", "python"},
		},
		{
			name: "word boundaries respected",
			text: "pythonic gitignore reactor",
			want: nil,
		},
		{
			name: "no matches",
			text: "a quiet walk outside",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Tags(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("Tags() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Tags()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTags_Capped(t *testing.T) {
	c := New()

	// Text engineered to trip well over MaxTags patterns.
	text := "python javascript postgres docker github mcp blockchain ai llm react " +
		"api database test deploy config auth performance voice memory agent"

	got := c.Tags(text)
	if len(got) > MaxTags {
		t.Errorf("Tags() returned %d tags, cap is %d", len(got), MaxTags)
	}
	if len(got) != MaxTags {
		t.Errorf("Tags() = %d tags, want the full cap of %d for this fixture", len(got), MaxTags)
	}
}

func TestImportance(t *testing.T) {
	c := New()

	tests := []struct {
		name string
		text string
		min  float64
		max  float64
	}{
		{
			name: "neutral text stays near base",
			text: "An ordinary comment about nothing in particular.",
			min:  0.45,
			max:  0.55,
		},
		{
			name: "high signals boost",
			text: "Critical milestone: shipped to production. Major architecture decision.",
			min:  0.8,
			max:  1.0,
		},
		{
			name: "low signals reduce",
			text: "Quick minor debug, just experimenting.",
			min:  0.3,
			max:  0.45,
		},
		{
			name: "long text gets length bonus",
			text: strings.Repeat("An ordinary sentence with no signal words at all here. ", 10),
			min:  0.55,
			max:  0.65,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Importance(tt.text)
			if got < tt.min || got > tt.max {
				t.Errorf("Importance() = %v, want in [%v, %v]", got, tt.min, tt.max)
			}
		})
	}
}

func TestImportance_Clamped(t *testing.T) {
	c := New()

	// Stack every high signal plus length bonus; must not exceed 1.0.
	text := strings.Repeat(
		"Important critical breakthrough milestone deployed to production, key strategy decision. ", 10)
	if got := c.Importance(text); got > 1.0 {
		t.Errorf("Importance() = %v, want <= 1.0", got)
	}

	// Stack low signals; must not fall below 0.1.
	if got := c.Importance("minor quick debug testing experimenting troubleshoot"); got < 0.1 {
		t.Errorf("Importance() = %v, want >= 0.1", got)
	}
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	rules := `
categories:
  fieldwork:
    - "\\bsurvey\\b"
tags:
  botany: "\\bplant\\b"
importance:
  high:
    - "\\bcritical\\b"
`
	if err := os.WriteFile(path, []byte(rules), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile: %v", err)
	}
	if got := c.Category("completed the survey today"); got != "fieldwork" {
		t.Errorf("Category = %q, want fieldwork", got)
	}
}

func TestNewFromFile_Missing(t *testing.T) {
	if _, err := NewFromFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing rules file")
	}
}
