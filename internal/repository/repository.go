// Package repository holds the Postgres-backed catalog, order and outbox stores.
package repository

import "errors"

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrProductNotFound = errors.New("product not found")
)
