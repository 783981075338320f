package service

import "errors"

var (
	ErrNotFound      = errors.New("error not found")
	ErrInvalidPeriod = errors.New("error invalid period")
	ErrInvalidMonth  = errors.New("error invalid month")
	ErrUnknownFormat = errors.New("error unknown csv format")
	ErrNoSnapshots   = errors.New("error no snapshots stored")
	ErrDriveDisabled = errors.New("error google drive integration disabled")
)
