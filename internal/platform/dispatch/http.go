package dispatch

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HTTPStatus maps a failure kind to the status code handlers answer with.
func HTTPStatus(kind ErrorKind) int {
	switch kind {
	case KindNone:
		return http.StatusOK
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstreamUnavailable:
		return http.StatusBadGateway
	case KindInvalidInput:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Respond writes env with status on success, or with the status of its
// failure kind otherwise. The envelope body is written either way.
func Respond[T any](c echo.Context, status int, env Envelope[T]) error {
	if !env.Success {
		status = HTTPStatus(env.ErrorKind)
	}
	return c.JSON(status, env)
}

// RespondList is Respond for list envelopes.
func RespondList[T any](c echo.Context, env ListEnvelope[T]) error {
	status := http.StatusOK
	if !env.Success {
		status = HTTPStatus(env.ErrorKind)
	}
	return c.JSON(status, env)
}

// BadRequest answers with an invalid_input envelope, for bodies that do not
// bind.
func BadRequest(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, Envelope[any]{
		Success:   false,
		Error:     err.Error(),
		ErrorKind: KindInvalidInput,
	})
}
