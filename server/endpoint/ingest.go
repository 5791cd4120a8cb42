package endpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/validation"
)

// PostFunc hands one decoded input to a running pipeline.
type PostFunc[T any] func(ctx context.Context, in T) error

// IngestResult is the body of a successful ingest response.
type IngestResult struct {
	Accepted int `json:"accepted"`
}

// Ingest returns a handler that decodes the JSON request body into T, or a
// JSON array into []T, validates struct inputs and posts each one in order.
// It answers 202 with the number of accepted inputs. A post failure stops
// the batch and is returned with its status; inputs already posted stay
// accepted and are counted in the error details.
func Ingest[T any](post PostFunc[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			writeError(c, apperrors.InvalidInput("body", err.Error()))
			return
		}
		inputs, err := decode[T](raw)
		if err != nil {
			writeError(c, err)
			return
		}

		for i, in := range inputs {
			if isStruct(in) {
				if err := validation.Validate(in); err != nil {
					writeError(c, err)
					return
				}
			}
			if err := post(c.Request.Context(), in); err != nil {
				if appErr, ok := apperrors.AsAppError(err); ok {
					err = appErr.WithDetail("accepted", i)
				}
				writeError(c, err)
				return
			}
		}
		c.JSON(http.StatusAccepted, IngestResult{Accepted: len(inputs)})
	}
}

func decode[T any](raw []byte) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, apperrors.InvalidInput("body", "empty request body")
	}
	if raw[0] == '[' {
		var many []T
		if err := json.Unmarshal(raw, &many); err != nil {
			return nil, apperrors.InvalidInput("body", err.Error())
		}
		return many, nil
	}
	var one T
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, apperrors.InvalidInput("body", err.Error())
	}
	return []T{one}, nil
}

func isStruct(v any) bool {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t != nil && t.Kind() == reflect.Struct
}

func writeError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperrors.Response(err))
}
