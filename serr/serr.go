package serr

import (
	"errors"
	"fmt"
)

type Terror uint32

const (
	TErrNoError Terror = iota

	// Plan-level errors
	TErrOversubscribed
	TErrAllocFailed
	TErrBuggyPlan

	// Kernel errors
	TErrKernel

	// Boot errors
	TErrBootInfo

	// Library errors
	TErrBadMapFunc
	TErrBadArch
)

func (err Terror) String() string {
	switch err {
	case TErrNoError:
		return "No error"
	case TErrOversubscribed:
		return "Plan oversubscribed"
	case TErrAllocFailed:
		return "Allocation failure"
	case TErrBuggyPlan:
		return "Buggy plan"
	case TErrKernel:
		return "Kernel error"
	case TErrBootInfo:
		return "Boot info unavailable"
	case TErrBadMapFunc:
		return "Unknown map func"
	case TErrBadArch:
		return "Unknown architecture"
	default:
		return "unknown error"
	}
}

type Err struct {
	ErrCode Terror
	Obj     string
	Err     error
}

func NewErr(err Terror, obj interface{}) *Err {
	return &Err{err, fmt.Sprintf("%v", obj), nil}
}

func NewErrError(error error) *Err {
	return &Err{TErrKernel, "", error}
}

func (err *Err) Code() Terror {
	return err.ErrCode
}

func (err *Err) Unwrap() error { return err.Err }

func (err *Err) Error() string {
	return fmt.Sprintf("%v %v err %v", err.ErrCode, err.Obj, err.Err)
}

func (err *Err) String() string {
	return err.Error()
}

func IsErrCode(err error, code Terror) bool {
	var serr *Err
	if errors.As(err, &serr) {
		return serr.Code() == code
	}
	return false
}
