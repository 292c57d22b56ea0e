package domain

import "errors"

var (
	// ErrNotFound se devuelve cuando la sesión o el trade no existen.
	// La capa de presentación lo trata como un no-op visible, no como un fallo.
	ErrNotFound = errors.New("not found")

	// ErrValidation marca peticiones rechazadas antes de tocar el storage:
	// cerrar una sesión sin trades, balances no numéricos, resultados desconocidos.
	ErrValidation = errors.New("validation failed")

	// ErrSessionActive se devuelve al abrir una sesión mientras el cliente
	// ya apunta a otra sesión activa.
	ErrSessionActive = errors.New("another session is active")
)
