package lang

import "fmt"

// WrongArityError is returned when a function is invoked with an argument
// count that matches none of its arities.
type WrongArityError struct {
	Name  string
	Count int
}

func (err *WrongArityError) Error() string {
	return fmt.Sprintf("Wrong number of args (%d) passed to: %s", err.Count, err.Name)
}

// ArithmeticError is returned by checked numeric operations.
type ArithmeticError struct {
	Msg string
}

func (err *ArithmeticError) Error() string {
	return err.Msg
}

// IllegalArgumentError reports an argument a function cannot accept.
type IllegalArgumentError struct {
	Msg string
}

func (err *IllegalArgumentError) Error() string {
	return err.Msg
}

// IllegalStateError reports an operation attempted in the wrong state, such
// as setting a Var that has no thread binding.
type IllegalStateError struct {
	Msg string
}

func (err *IllegalStateError) Error() string {
	return err.Msg
}

// ClassCastError reports a value of the wrong runtime type.
type ClassCastError struct {
	From string
	To   string
}

func (err *ClassCastError) Error() string {
	return fmt.Sprintf("%s cannot be cast to %s", err.From, err.To)
}

// IndexOutOfBoundsError reports an invalid index.
type IndexOutOfBoundsError struct {
	Index int
}

func (err *IndexOutOfBoundsError) Error() string {
	return fmt.Sprintf("index out of bounds: %d", err.Index)
}

// StackOverflowError is returned when nested calls exceed the runtime's
// maximum depth.
type StackOverflowError struct {
	Depth int
}

func (err *StackOverflowError) Error() string {
	return fmt.Sprintf("stack overflow: call depth exceeded %d", err.Depth)
}

// ExceptionInfo is an error carrying a map of data.
type ExceptionInfo struct {
	Msg   string
	Data  *Map
	Cause error
}

// NewExceptionInfo returns an ExceptionInfo.  A nil data map is replaced by
// the empty map.
func NewExceptionInfo(msg string, data *Map, cause error) *ExceptionInfo {
	if data == nil {
		data = EmptyMap
	}
	return &ExceptionInfo{Msg: msg, Data: data, Cause: cause}
}

func (err *ExceptionInfo) Error() string {
	return err.Msg
}

func (err *ExceptionInfo) Unwrap() error {
	return err.Cause
}
