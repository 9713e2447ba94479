package repository

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrConstraintViolation = errors.New("constraint violation")
)

// OpError хранит операцию, вид ошибки (один из sentinel выше) и исходную ошибку драйвера
type OpError struct {
	Op   string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *OpError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Kind: ErrStorageUnavailable, Err: err}
}

func Constraint(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Kind: ErrConstraintViolation, Err: err}
}

// Classify относит ошибку к нарушению ограничений, если её распознал isConstraint,
// иначе к недоступности хранилища. Истёкший контекст всегда недоступность.
func Classify(op string, err error, isConstraint func(error) bool) error {
	if err == nil {
		return nil
	}
	var opErr *OpError
	if errors.As(err, &opErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Unavailable(op, err)
	}
	if isConstraint != nil && isConstraint(err) {
		return Constraint(op, err)
	}
	return Unavailable(op, err)
}
