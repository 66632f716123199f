package dbconnect

import "database/sql"

// Database -- подключение к хранилищу отзывов. Connect идемпотентен: повторный
// вызов возвращает уже открытое соединение.
type Database interface {
	Connect() (*sql.DB, error)
	Ping() error
}
