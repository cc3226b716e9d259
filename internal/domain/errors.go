package domain

import "errors"

var (
	ErrInvalidHashFormat = errors.New("invalid hash format")
	ErrSchemaMismatch    = errors.New("registry schema mismatch")
	ErrExecutionReverted = errors.New("execution reverted")
	ErrTransportFault    = errors.New("registry transport fault")

	ErrAlreadyRegistered = errors.New("content hash already registered")
	ErrNotRegistered     = errors.New("content hash not registered")
	ErrAlreadyRevoked    = errors.New("license already revoked")
	ErrNotRevokable      = errors.New("license is not revokable")
	ErrInvalidLicenseID  = errors.New("invalid license id")
	ErrReadOnly          = errors.New("registry is read-only")
	ErrUnauthorized      = errors.New("unauthorized")
)

func IsTransportFault(err error) bool { return errors.Is(err, ErrTransportFault) }

func IsReverted(err error) bool { return errors.Is(err, ErrExecutionReverted) }
