package registry

import (
	"errors"
	"testing"

	"github.com/danielafriyie/raccy-orm/core/errs"
	"github.com/danielafriyie/raccy-orm/core/schema"
)

// makeTestSchema builds a concrete schema with one text field.
func makeTestSchema(name string) *schema.Schema {
	return schema.Model(name).Field("name", schema.Text()).MustBuild()
}

func TestNew(t *testing.T) {
	r := New()
	if r == nil {
		t.Fatal("New() returned nil")
	}
	if r.schemas == nil {
		t.Error("schemas map not initialized")
	}
	if r.tables == nil {
		t.Error("tables map not initialized")
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestRegistry_Register(t *testing.T) {
	r := New()
	dog := makeTestSchema("Dog")

	if err := r.Register(dog); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	got, ok := r.Get("Dog")
	if !ok {
		t.Fatal("Get() should find registered schema")
	}
	if got != dog {
		t.Error("Get() returned a different schema")
	}

	owner, ok := r.Table("dog")
	if !ok || owner != "Dog" {
		t.Errorf("Table(dog) = %q, %v, want Dog", owner, ok)
	}
}

func TestRegistry_RegisterDuplicateName(t *testing.T) {
	r := New()
	if err := r.Register(makeTestSchema("Dog")); err != nil {
		t.Fatal(err)
	}

	err := r.Register(makeTestSchema("Dog"))
	if err == nil {
		t.Fatal("Register() should reject a duplicate model name")
	}

	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("error type = %T, want *ConflictError", err)
	}
	if conflict.Kind != "model" {
		t.Errorf("Kind = %q, want model", conflict.Kind)
	}
	if !errors.Is(err, errs.ErrImproperlyConfigured) {
		t.Error("conflict should be a configuration error")
	}
}

func TestRegistry_RegisterTableCollision(t *testing.T) {
	r := New()
	if err := r.Register(makeTestSchema("Dog")); err != nil {
		t.Fatal(err)
	}

	err := r.Register(makeTestSchema("DOG"))
	if err == nil {
		t.Fatal("Register() should reject a table collision")
	}

	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("error type = %T, want *ConflictError", err)
	}
	if conflict.Kind != "table" || conflict.Name != "dog" || conflict.Existing != "Dog" || conflict.Claimant != "DOG" {
		t.Errorf("conflict = %+v", conflict)
	}
	if !errors.Is(err, errs.ErrImproperlyConfigured) {
		t.Error("conflict should be a configuration error")
	}
}

func TestRegistry_AbstractClaimsNoTable(t *testing.T) {
	r := New()

	animal := schema.Model("Animal").Abstract().Field("name", schema.Text()).MustBuild()
	if err := r.Register(animal); err != nil {
		t.Fatal(err)
	}
	if _, ok := r.Table("animal"); ok {
		t.Error("abstract schema should not claim a table")
	}

	// A concrete model may take the lower-cased name of an abstract one.
	if err := r.Register(makeTestSchema("ANIMAL")); err != nil {
		t.Errorf("Register() error = %v", err)
	}
}

func TestRegistry_RegisterNil(t *testing.T) {
	if err := New().Register(nil); !errors.Is(err, errs.ErrImproperlyConfigured) {
		t.Errorf("Register(nil) error = %v", err)
	}
}

func TestRegistry_Unregister(t *testing.T) {
	r := New()
	if err := r.Register(makeTestSchema("Dog")); err != nil {
		t.Fatal(err)
	}

	if err := r.Unregister("Dog"); err != nil {
		t.Fatalf("Unregister() error = %v", err)
	}
	if _, ok := r.Get("Dog"); ok {
		t.Error("schema should be gone after Unregister")
	}
	if _, ok := r.Table("dog"); ok {
		t.Error("table claim should be released after Unregister")
	}

	if err := r.Unregister("Dog"); err == nil {
		t.Error("Unregister() of an unknown model should fail")
	}

	if err := r.Register(makeTestSchema("Dog")); err != nil {
		t.Errorf("re-Register() error = %v", err)
	}
}

func TestRegistry_List(t *testing.T) {
	r := New()
	for _, name := range []string{"Zebra", "Ant", "Mole"} {
		if err := r.Register(makeTestSchema(name)); err != nil {
			t.Fatal(err)
		}
	}

	list := r.List()
	if len(list) != 3 {
		t.Fatalf("List() length = %d, want 3", len(list))
	}
	for i, want := range []string{"Ant", "Mole", "Zebra"} {
		if list[i].Name() != want {
			t.Errorf("List()[%d] = %s, want %s", i, list[i].Name(), want)
		}
	}
}

func TestRegistry_Concrete(t *testing.T) {
	r := New()

	animal := schema.Model("Animal").Abstract().Field("name", schema.Text()).MustBuild()
	zoo := makeTestSchema("Zoo")
	cage := schema.Model("Cage").Field("zoo", schema.ForeignKey(zoo, "pk")).MustBuild()

	for _, s := range []*schema.Schema{animal, cage, zoo} {
		if err := r.Register(s); err != nil {
			t.Fatal(err)
		}
	}

	got := r.Concrete()
	if len(got) != 2 {
		t.Fatalf("Concrete() length = %d, want 2", len(got))
	}
	if got[0] != zoo || got[1] != cage {
		t.Errorf("Concrete() = [%s %s], want [Zoo Cage]", got[0].Name(), got[1].Name())
	}
}

func TestRegistry_Reset(t *testing.T) {
	r := New()
	if err := r.Register(makeTestSchema("Dog")); err != nil {
		t.Fatal(err)
	}

	r.Reset()

	if r.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", r.Len())
	}
	if err := r.Register(makeTestSchema("Dog")); err != nil {
		t.Errorf("Register() after Reset error = %v", err)
	}
}
