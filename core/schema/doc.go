/*
Package schema defines the field type system and the model schemas built
from it.

A schema is an ordered list of named fields plus a table name. Schemas are
built once, at registration time, and never change afterwards.

# Declaring Models

In Go:

	animal := schema.Model("Animal").Abstract().
		Field("name", schema.Text()).
		Field("age", schema.Integer()).
		MustBuild()

	dog := schema.Model("Dog").Extends(animal).MustBuild()

or in YAML:

	model: DogAudit
	extends: Animal
	fields:
	  dog_id: { type: integer }
	  action: { type: text, null: false }

Concrete schemas get the implicit primary key "pk" as their first field,
followed by inherited fields in the parent's order, then local fields in
declaration order. Abstract schemas have no table and no primary key.

# Field Types

  - char:        bounded string, requires max_length
  - text:        unbounded string
  - integer:     signed integer
  - float:       double precision
  - boolean:     true/false
  - date:        calendar date
  - datetime:    timestamp
  - foreign_key: reference to a concrete model (requires to, optional on)

Columns are nullable unless declared NOT NULL. Foreign keys are NOT NULL
by default and render an ON UPDATE/ON DELETE CASCADE constraint.
*/
package schema
