package model

import "github.com/google/uuid"

// newID fills an empty string primary key before insert.
func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// Models lists every table for AutoMigrate, parents first.
func Models() []interface{} {
	return []interface{}{&Parent{}, &Child{}, &Sprint{}, &Task{}, &TelegramLink{}}
}
