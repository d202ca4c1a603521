package schema

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/danielafriyie/raccy-orm/core/errs"
)

func animalSchemas(t *testing.T) (animal, dog, audit *Schema) {
	t.Helper()

	animal = Model("Animal").Abstract().
		Field("name", Char(60)).
		Field("age", Integer()).
		MustBuild()
	dog = Model("Dog").Extends(animal).MustBuild()
	audit = Model("DogAudit").Extends(animal).
		Field("dog_id", Integer()).
		Field("action", Char(60)).
		MustBuild()
	return animal, dog, audit
}

func TestBuildConcrete(t *testing.T) {
	_, dog, audit := animalSchemas(t)

	if dog.Table() != "dog" {
		t.Errorf("Table() = %q, want dog", dog.Table())
	}
	if audit.Table() != "dogaudit" {
		t.Errorf("Table() = %q, want dogaudit", audit.Table())
	}
	if dog.PrimaryKey() != "pk" || audit.PrimaryKey() != "pk" {
		t.Errorf("PrimaryKey() = %q/%q, want pk", dog.PrimaryKey(), audit.PrimaryKey())
	}

	if got, want := dog.FieldNames(), []string{"pk", "name", "age"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Dog fields = %v, want %v", got, want)
	}
	if got, want := audit.FieldNames(), []string{"pk", "name", "age", "dog_id", "action"}; !reflect.DeepEqual(got, want) {
		t.Errorf("DogAudit fields = %v, want %v", got, want)
	}
	if got, want := audit.Columns(), []string{"name", "age", "dog_id", "action"}; !reflect.DeepEqual(got, want) {
		t.Errorf("DogAudit columns = %v, want %v", got, want)
	}

	pk, ok := dog.Field("pk")
	if !ok || pk.Type != TypePrimaryKey {
		t.Errorf("Field(pk) = %+v, %v", pk, ok)
	}
	if dog.IsAbstract() {
		t.Error("Dog should not be abstract")
	}
	if dog.String() != "Dog (dog)" {
		t.Errorf("String() = %q", dog.String())
	}
}

func TestBuildAbstract(t *testing.T) {
	animal, _, _ := animalSchemas(t)

	if !animal.IsAbstract() {
		t.Error("Animal should be abstract")
	}
	if animal.Table() != "" {
		t.Errorf("abstract Table() = %q, want empty", animal.Table())
	}
	if animal.PrimaryKey() != "" {
		t.Errorf("abstract PrimaryKey() = %q, want empty", animal.PrimaryKey())
	}
	if got, want := animal.FieldNames(), []string{"name", "age"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Animal fields = %v, want %v", got, want)
	}
	if animal.String() != "Animal (abstract)" {
		t.Errorf("String() = %q", animal.String())
	}
}

func TestBuildOverrideInPlace(t *testing.T) {
	animal, _, _ := animalSchemas(t)

	cat := Model("Cat").Extends(animal).
		Field("lives", Integer(Default(9))).
		Field("name", Text(NotNull())).
		MustBuild()

	if got, want := cat.FieldNames(), []string{"pk", "name", "age", "lives"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Cat fields = %v, want %v", got, want)
	}
	name, _ := cat.Field("name")
	if name.Type != TypeText || name.Null {
		t.Errorf("overridden name = %+v, want NOT NULL text", name)
	}
}

func TestBuildForeignKeys(t *testing.T) {
	_, dog, _ := animalSchemas(t)

	collar := Model("Collar").
		Field("dog", ForeignKey(dog, "pk")).
		Field("color", Text()).
		MustBuild()

	fks := collar.ForeignKeys()
	if len(fks) != 1 || fks[0].Name != "dog" {
		t.Fatalf("ForeignKeys() = %+v", fks)
	}
	if fks[0].Field.To != dog {
		t.Error("foreign key target mismatch")
	}
}

func TestBuildErrors(t *testing.T) {
	animal, dog, _ := animalSchemas(t)

	tests := []struct {
		name    string
		builder *Builder
		wantMsg string
	}{
		{"reserved pk", Model("Bad").Field("pk", Integer()), "reserved"},
		{"invalid model name", Model("bad name"), "not a valid identifier"},
		{"invalid field name", Model("Bad").Field("drop;", Integer()), "not a valid identifier"},
		{"duplicate field", Model("Bad").Field("a", Integer()).Field("a", Text()), "declared twice"},
		{"explicit primary key", Model("Bad").Field("id", PrimaryKey()), "implicit"},
		{"extends concrete", Model("Puppy").Extends(dog), "concrete"},
		{"char without length", Model("Bad").Extends(animal).Field("nick", Char(0)), "max length"},
		{"foreign key to abstract", Model("Bad").Field("owner", ForeignKey(animal, "name")), "abstract"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			if err == nil {
				t.Fatal("Build() should fail")
			}
			if !errors.Is(err, errs.ErrImproperlyConfigured) {
				t.Errorf("error = %v, want ErrImproperlyConfigured", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestMustBuildPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustBuild should panic on invalid model")
		}
	}()
	Model("Bad").Field("pk", Integer()).MustBuild()
}

func TestFieldsReturnsCopy(t *testing.T) {
	_, dog, _ := animalSchemas(t)

	fields := dog.Fields()
	fields[0].Name = "changed"

	if dog.FieldNames()[0] != "pk" {
		t.Error("Fields() must not expose internal state")
	}
}
