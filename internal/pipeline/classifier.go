package pipeline

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

type Kind string

const (
	KindCardFormatMismatch        Kind = "card-format-mismatch"
	KindRegistrationInfoMismatch  Kind = "registration-info-mismatch"
	KindAccountDisabled           Kind = "account-disabled"
	KindLivenessFailed            Kind = "liveness-failed"
	KindFaceNotFound              Kind = "face-not-found"
	KindDirectoryConnectionFailed Kind = "directory-connection-failed"
	KindTimeoutExceeded           Kind = "timeout-exceeded"
	KindRateLimited               Kind = "rate-limited"
	KindInvalidRequest            Kind = "invalid-request"
	KindUnauthorized              Kind = "unauthorized"
	KindGenericError              Kind = "generic-error"
)

// neutralMessage is the single end-user string for every technical failure.
const neutralMessage = "밝은 곳에서 다시 시도해주세요"

// Error is the failure value every stage returns. Context is an opaque map
// attached for operators; it is redacted before it reaches a log line.
type Error struct {
	Kind    Kind
	Op      string
	Err     error
	Status  int // optional HTTP status override
	Context map[string]interface{}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Fail(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func FailWithContext(kind Kind, op string, err error, ctx map[string]interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: err, Context: ctx}
}

// Verdict is the classified form of a failure: everything a response writer
// and a log line need.
type Verdict struct {
	Kind           Kind
	Status         int
	UserMessage    string
	OperatorReason string
	Retryable      bool
	Level          logrus.Level
}

type ruling struct {
	status      int
	userMessage string
	retryable   bool
	level       logrus.Level
}

var rulings = map[Kind]ruling{
	KindCardFormatMismatch:        {http.StatusBadRequest, "사원증 규격 불일치", true, logrus.WarnLevel},
	KindRegistrationInfoMismatch:  {http.StatusUnauthorized, "등록 정보 불일치", true, logrus.WarnLevel},
	KindAccountDisabled:           {http.StatusForbidden, "계정 비활성화", false, logrus.WarnLevel},
	KindLivenessFailed:            {http.StatusUnauthorized, neutralMessage, true, logrus.InfoLevel},
	KindFaceNotFound:              {http.StatusUnauthorized, neutralMessage, true, logrus.InfoLevel},
	KindDirectoryConnectionFailed: {http.StatusServiceUnavailable, neutralMessage, true, logrus.ErrorLevel},
	KindTimeoutExceeded:           {http.StatusRequestTimeout, neutralMessage, true, logrus.WarnLevel},
	KindRateLimited:               {http.StatusTooManyRequests, "너무 많은 시도가 있었습니다. 잠시 후 다시 시도해주세요", false, logrus.WarnLevel},
	KindInvalidRequest:            {http.StatusBadRequest, "잘못된 요청입니다", false, logrus.WarnLevel},
	KindUnauthorized:              {http.StatusUnauthorized, "인증이 필요합니다", false, logrus.WarnLevel},
	KindGenericError:              {http.StatusInternalServerError, neutralMessage, true, logrus.ErrorLevel},
}

// sensitiveKeys match context entries that must never reach a log line.
var sensitiveKeys = []string{
	"password", "token", "secret", "api_key", "face_image", "image_bytes", "image",
}

type Classifier struct {
	log *logrus.Logger
}

func NewClassifier(log *logrus.Logger) *Classifier {
	return &Classifier{log: log}
}

// Classify is total: any error maps to a verdict, unknown ones to generic-error.
func (c *Classifier) Classify(err error) Verdict {
	kind := KindGenericError
	op := "unknown"
	statusOverride := 0
	var context map[string]interface{}

	var pErr *Error
	if errors.As(err, &pErr) {
		kind = pErr.Kind
		op = pErr.Op
		statusOverride = pErr.Status
		context = pErr.Context
	}

	r, ok := rulings[kind]
	if !ok {
		r = rulings[KindGenericError]
		kind = KindGenericError
	}

	status := r.status
	if statusOverride != 0 {
		status = statusOverride
	}

	return Verdict{
		Kind:           kind,
		Status:         status,
		UserMessage:    r.userMessage,
		OperatorReason: operatorReason(op, err, context),
		Retryable:      r.retryable,
		Level:          r.level,
	}
}

// Report writes the operator-facing line at the verdict's level.
func (c *Classifier) Report(requestID string, v Verdict) {
	c.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"error_kind": string(v.Kind),
		"retryable":  v.Retryable,
	}).Log(v.Level, v.OperatorReason)
}

func operatorReason(op string, err error, context map[string]interface{}) string {
	reason := fmt.Sprintf("%s failed", op)
	if err != nil {
		reason = fmt.Sprintf("%s: %v", reason, err)
	}

	redacted := Redact(context)
	if len(redacted) > 0 {
		reason = fmt.Sprintf("%s (context: %v)", reason, redacted)
	}

	return reason
}

// Redact replaces values of sensitive-named keys before any context map is
// serialized for operators.
func Redact(context map[string]interface{}) map[string]interface{} {
	if len(context) == 0 {
		return nil
	}

	out := make(map[string]interface{}, len(context))
	for k, v := range context {
		if isSensitiveKey(k) {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = v
	}

	return out
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
