package qdrant

import (
	"context"
	"errors"
	"fmt"
	"net"
)

type OperationErrorCode string

const (
	OperationErrorValidation        OperationErrorCode = "validation_failed"
	OperationErrorUnsupportedFilter OperationErrorCode = "unsupported_filter"
	OperationErrorDecodeFailed      OperationErrorCode = "decode_failed"
	OperationErrorTransportFailed   OperationErrorCode = "transport_failed"
	OperationErrorTimeout           OperationErrorCode = "timeout"
	OperationErrorQueryFailed       OperationErrorCode = "query_failed"
)

type OperationError struct {
	Code       OperationErrorCode
	Operation  string
	StatusCode int
	Message    string
	Cause      error
}

func (e *OperationError) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	return fmt.Sprintf("qdrant %s failed (code=%s status=%d): %s", e.Operation, e.Code, e.StatusCode, msg)
}

func (e *OperationError) Unwrap() error { return e.Cause }

func opErr(op string, code OperationErrorCode, msg string, cause error) error {
	return &OperationError{Code: code, Operation: op, Message: msg, Cause: cause}
}

func classifyHTTPCallError(op string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return opErr(op, OperationErrorTimeout, "request timed out", err)
	}
	return opErr(op, OperationErrorTransportFailed, "request failed", err)
}
