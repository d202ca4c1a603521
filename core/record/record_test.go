package record

import (
	"errors"
	"testing"
	"time"
)

func TestRecord_Get(t *testing.T) {
	r := FromMap(map[string]any{"name": "Test", "age": 10, "dob": "21-04-1996"})

	tests := []struct {
		key  string
		want any
	}{
		{"name", "Test"},
		{"age", 10},
		{"dob", "21-04-1996"},
	}
	for _, tt := range tests {
		got, err := r.Get(tt.key)
		if err != nil {
			t.Fatalf("Get(%q) error: %v", tt.key, err)
		}
		if got != tt.want {
			t.Errorf("Get(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}

	if _, err := r.Get("you"); !errors.Is(err, ErrUnknownAttribute) {
		t.Errorf("Get(you) error = %v, want ErrUnknownAttribute", err)
	}
}

func TestRecord_Set(t *testing.T) {
	r := FromMap(map[string]any{"name": "Test", "age": 10})

	if err := r.Set("name", "Hello"); err != nil {
		t.Fatalf("Set(name) error: %v", err)
	}
	if got, _ := r.Get("name"); got != "Hello" {
		t.Errorf("name = %v, want Hello", got)
	}

	if err := r.Set("age", 99); err != nil {
		t.Fatalf("Set(age) error: %v", err)
	}
	if got, _ := r.Get("age"); got != 99 {
		t.Errorf("age = %v, want 99", got)
	}

	if err := r.Set("you", "I am you!"); !errors.Is(err, ErrUnknownAttribute) {
		t.Errorf("Set(you) error = %v, want ErrUnknownAttribute", err)
	}
	if r.Has("you") {
		t.Error("undeclared key became declared after a failed Set")
	}
}

func TestRecord_DeclaredButUnset(t *testing.T) {
	r := New("pk", "name")

	got, err := r.Get("name")
	if err != nil {
		t.Fatalf("Get(name) error: %v", err)
	}
	if got != nil {
		t.Errorf("Get(name) = %v, want nil", got)
	}
	if r.IsSet("name") {
		t.Error("IsSet(name) = true before any Set")
	}

	_ = r.Set("name", "x")
	r.Unset("name")
	if r.IsSet("name") {
		t.Error("IsSet(name) = true after Unset")
	}
}

func TestRecord_Equal(t *testing.T) {
	if !New("a", "b").Equal(New("c")) {
		t.Error("empty records should be equal")
	}

	a := New("name", "age")
	b := New("name", "age")
	_ = a.Set("name", "Rex")
	if a.Equal(b) {
		t.Error("records with different populated values should differ")
	}

	_ = b.Set("name", "Rex")
	if !a.Equal(b) {
		t.Error("records with the same populated values should be equal")
	}

	var nilRec *Record
	if a.Equal(nilRec) {
		t.Error("record should not equal nil")
	}
}

func TestRecord_EqualTimes(t *testing.T) {
	utc := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	local := utc.In(time.FixedZone("UTC+2", 2*60*60))

	a := New("at")
	b := New("at")
	_ = a.Set("at", utc)
	_ = b.Set("at", local)
	if !a.Equal(b) {
		t.Error("records holding the same instant in different zones should be equal")
	}

	_ = b.Set("at", utc.Add(time.Second))
	if a.Equal(b) {
		t.Error("records holding different instants should not be equal")
	}

	_ = b.Set("at", "2024-01-02 03:04:05")
	if a.Equal(b) {
		t.Error("a time and a string should not be equal")
	}
}

func TestRecord_CloneIsIndependent(t *testing.T) {
	r := New("name")
	_ = r.Set("name", "before")

	c := r.Clone()
	_ = c.Set("name", "after")

	if got, _ := r.Get("name"); got != "before" {
		t.Errorf("original mutated through clone: %v", got)
	}
	if keys := c.Keys(); len(keys) != 1 || keys[0] != "name" {
		t.Errorf("clone keys = %v, want [name]", keys)
	}
}
