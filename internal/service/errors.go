package service

import (
	"errors"
	"fmt"
	"strings"
	"weekendTasks/internal/repository"
)

const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeConstraintViolation = "CONSTRAINT_VIOLATION"
	CodeStorageUnavailable  = "STORAGE_UNAVAILABLE"
)

// ErrValidation позволяет проверять ошибки валидации через errors.Is
var ErrValidation = errors.New("validation error")

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func NewValidationError(field, reason string) *BusinessError {
	return &BusinessError{
		Code:    CodeValidation,
		Message: fmt.Sprintf("Неверное значение поля '%s': %s", field, reason),
		Details: map[string]any{
			"field":  field,
			"reason": reason,
		},
		Err: ErrValidation,
	}
}

// NewMissingFieldsError сообщение совпадает с прежним API: "Missing required fields"
func NewMissingFieldsError(fields []string) *BusinessError {
	return &BusinessError{
		Code:    CodeValidation,
		Message: "Missing required fields",
		Details: map[string]any{
			"fields": fields,
		},
		Err: fmt.Errorf("%w: %s", ErrValidation, strings.Join(fields, ", ")),
	}
}

// fromRepositoryError переводит ошибку хранилища в бизнес-ошибку,
// errors.Is по-прежнему находит исходный sentinel.
func fromRepositoryError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, repository.ErrConstraintViolation):
		return &BusinessError{
			Code:    CodeConstraintViolation,
			Message: "Задача нарушает ограничения хранилища",
			Details: map[string]any{"operation": op},
			Err:     err,
		}
	default:
		return &BusinessError{
			Code:    CodeStorageUnavailable,
			Message: "Хранилище недоступно",
			Details: map[string]any{"operation": op},
			Err:     err,
		}
	}
}
