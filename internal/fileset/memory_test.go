package fileset

import (
	"errors"
	"io/fs"
	"testing"
)

func TestMemoryResolver_Resolve(t *testing.T) {
	r := NewMemoryResolver(map[string][]byte{
		"hr.ddl":          []byte("model Employee { id Int @id }"),
		"billing.ddl":     []byte("model Invoice { id Int @id }"),
		"notes.txt":       []byte("not a schema"),
		"nested/shop.ddl": []byte("model Order { id Int @id }"),
	})

	t.Run("exact match", func(t *testing.T) {
		paths, err := r.Resolve([]string{"hr.ddl"})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if len(paths) != 1 || paths[0] != "hr.ddl" {
			t.Errorf("Resolve() = %v, want [hr.ddl]", paths)
		}
	})

	t.Run("glob stays at one level", func(t *testing.T) {
		paths, err := r.Resolve([]string{"*.ddl"})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if len(paths) != 2 || paths[0] != "billing.ddl" || paths[1] != "hr.ddl" {
			t.Errorf("Resolve() = %v, want [billing.ddl hr.ddl]", paths)
		}
	})

	t.Run("overlapping patterns are de-duplicated", func(t *testing.T) {
		paths, err := r.Resolve([]string{"hr.ddl", "*.ddl", "nested/*.ddl"})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		want := []string{"hr.ddl", "billing.ddl", "nested/shop.ddl"}
		if len(paths) != len(want) {
			t.Fatalf("Resolve() = %v, want %v", paths, want)
		}
		for i := range want {
			if paths[i] != want[i] {
				t.Fatalf("Resolve() = %v, want %v", paths, want)
			}
		}
	})

	t.Run("no patterns", func(t *testing.T) {
		if _, err := r.Resolve(nil); !errors.Is(err, ErrNoPatterns) {
			t.Errorf("expected ErrNoPatterns, got %v", err)
		}
	})

	t.Run("no match", func(t *testing.T) {
		_, err := r.Resolve([]string{"*.sql"})
		var noMatch NoMatchError
		if !errors.As(err, &noMatch) || noMatch.Patterns[0] != "*.sql" {
			t.Errorf("expected NoMatchError, got %v", err)
		}
	})

	t.Run("bad pattern", func(t *testing.T) {
		_, err := r.Resolve([]string{"["})
		var patternErr PatternError
		if !errors.As(err, &patternErr) {
			t.Errorf("expected PatternError, got %v", err)
		}
	})
}

func TestMemoryResolver_ReadFile(t *testing.T) {
	r := NewMemoryResolver(map[string][]byte{})
	r.AddFile("hr.ddl", []byte("model A { id Int @id }"))

	content, err := r.ReadFile("hr.ddl")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(content) != "model A { id Int @id }" {
		t.Errorf("ReadFile() = %q", content)
	}
	if _, err := r.ReadFile("missing.ddl"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
}
