package errs

import (
	"errors"
	"testing"
)

func TestHelpersWrapSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		msg      string
	}{
		{"config", Configf("model %q", "Dog"), ErrImproperlyConfigured, `improperly configured: model "Dog"`},
		{"query", Queryf("unknown field %s", "x"), ErrQuery, "query error: unknown field x"},
		{"insert", Insertf("bad row"), ErrInsert, "insert error: bad row"},
		{"does not exist", DoesNotExistf("Dog matching query"), ErrDoesNotExist, "does not exist: Dog matching query"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.sentinel)
			}
			if tt.err.Error() != tt.msg {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.msg)
			}
		})
	}
}

func TestDriverWrappers(t *testing.T) {
	cause := errors.New("UNIQUE constraint failed")

	err := Database(cause, "exec")
	if !errors.Is(err, ErrDatabase) || !errors.Is(err, cause) {
		t.Errorf("Database() = %v, want both ErrDatabase and cause", err)
	}
	if err.Error() != "database error: exec: UNIQUE constraint failed" {
		t.Errorf("Database() message = %q", err.Error())
	}

	err = Insert(cause, "dog")
	if !errors.Is(err, ErrInsert) || !errors.Is(err, cause) {
		t.Errorf("Insert() = %v, want both ErrInsert and cause", err)
	}

	if Database(nil, "exec") != nil || Insert(nil, "dog") != nil {
		t.Error("nil errors should stay nil")
	}
}
