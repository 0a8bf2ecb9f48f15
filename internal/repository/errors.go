package repository

import "errors"

var (
	ErrNotFound         = errors.New("entity not found")
	ErrUpdateFailed     = errors.New("update failed")
	ErrDeleteForbidden  = errors.New("requester is not the record's seller")
	ErrAlreadyExists    = errors.New("entity already exists")
	ErrConnectionFailed = errors.New("database connection failed")
)
