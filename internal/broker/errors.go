package broker

import "errors"

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrMemberNotFound    = errors.New("member not found")
	ErrTaskNotAssignable = errors.New("task cannot be assigned")
	ErrInvalidInput      = errors.New("invalid input")
)
