package apierr

import (
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/binhbb2204/litverse/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type Envelope struct {
	Error     string      `json:"error"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp string      `json:"timestamp"`
	Path      string      `json:"path"`
}

type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

var registerOnce sync.Once

// UseJSONFieldNames makes validator report json tag names instead of Go field names.
func UseJSONFieldNames() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
	})
}

// FromBinding converts a gin bind error into a validation error with per-field details.
func FromBinding(err error) *Error {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		fields := make([]FieldError, 0, len(ve))
		for _, fe := range ve {
			fields = append(fields, FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
		}
		return Wrap(KindValidation, "Validation failed", err).WithDetails(fields)
	}
	if errors.Is(err, io.EOF) {
		return Wrap(KindValidation, "Request body is required", err)
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return Wrap(KindValidation, "Malformed JSON body", err)
	}
	return Wrap(KindValidation, "Invalid request", err)
}

// Respond writes err as the error envelope and aborts the chain.
func Respond(c *gin.Context, err error) {
	kind := KindInternal
	message := "Internal server error"
	var details interface{}

	var classified Classified
	if errors.As(err, &classified) {
		kind = classified.Kind()
		if kind != KindInternal {
			message = clientMessage(classified)
		}
		var d Detailed
		if errors.As(err, &d) {
			details = d.Details()
		}
	}

	log := logger.GetLogger().WithContext("request_id", c.GetString("request_id"))
	if kind == KindInternal {
		details = nil
		log.Error("request_failed", "path", c.Request.URL.Path, "error", err)
	} else {
		log.Debug("request_rejected", "path", c.Request.URL.Path, "kind", string(kind), "error", err)
	}

	c.AbortWithStatusJSON(kind.Status(), Envelope{
		Error:     message,
		Details:   details,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      c.Request.URL.Path,
	})
}

func clientMessage(err Classified) string {
	var e *Error
	if errors.As(err, &e) && e.kind == err.Kind() {
		return e.Message
	}
	return err.Error()
}

// Recovery turns panics into an internal envelope.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.GetLogger().Error("panic_recovered", "path", c.Request.URL.Path, "panic", recovered)
		Respond(c, New(KindInternal, "Internal server error"))
	})
}

func NoRoute(c *gin.Context) {
	Respond(c, NotFound("Route not found"))
}
