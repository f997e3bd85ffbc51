package repo

import "errors"

// Общие ошибки репозиториев.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = errors.New("not found")

	// ErrUnknownOwner — поля запрошены для неизвестного владельца.
	ErrUnknownOwner = errors.New("unknown field owner")
)
