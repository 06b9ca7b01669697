package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/beacon/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

// error codes carried in the "error" field of failed responses
const (
	ReasonInvalidCredentials = "InvalidCredentials"
	ReasonMissingFields      = "MissingFields"
	ReasonInvalidScreenID    = "InvalidScreenId"
	ReasonScreenNotFound     = "ScreenNotFound"
	ReasonChannelError       = "ChannelError"
	ReasonStorageUnavailable = "StorageUnavailable"
	ReasonUnauthorized       = "Unauthorized"
	ReasonInternal           = "InternalError"
)

// APIError is what a handler returns instead of a result. Code is the HTTP
// status, Reason the machine-readable error code.
type APIError struct {
	Code    int
	Reason  string
	Message string
}

func (e *APIError) Error() string {
	return e.Reason + ": " + e.Message
}

// ErrorResponse is the body written for every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func BadRequest(message string) *APIError {
	return &APIError{Code: http.StatusBadRequest, Reason: ReasonMissingFields, Message: message}
}

// FromError maps a domain error onto its HTTP shape.
func FromError(err error) *APIError {
	switch {
	case errors.Is(err, model.ErrInvalidCredentials):
		return &APIError{Code: http.StatusBadRequest, Reason: ReasonInvalidCredentials, Message: model.ErrInvalidCredentials.Error()}
	case errors.Is(err, model.ErrMissingFields):
		return &APIError{Code: http.StatusBadRequest, Reason: ReasonMissingFields, Message: model.ErrMissingFields.Error()}
	case errors.Is(err, model.ErrInvalidScreenID):
		return &APIError{Code: http.StatusBadRequest, Reason: ReasonInvalidScreenID, Message: model.ErrInvalidScreenID.Error()}
	case errors.Is(err, model.ErrScreenNotFound), errors.Is(err, model.ErrNotFound):
		return &APIError{Code: http.StatusNotFound, Reason: ReasonScreenNotFound, Message: model.ErrScreenNotFound.Error()}
	case errors.Is(err, model.ErrChannel):
		return &APIError{Code: http.StatusBadGateway, Reason: ReasonChannelError, Message: err.Error()}
	case errors.Is(err, model.ErrStorageUnavailable):
		return &APIError{Code: http.StatusServiceUnavailable, Reason: ReasonStorageUnavailable, Message: model.ErrStorageUnavailable.Error()}
	default:
		return &APIError{Code: http.StatusInternalServerError, Reason: ReasonInternal, Message: "internal server error"}
	}
}

// ReasonError turns an error code received from a peer back into its
// sentinel. Unknown codes return nil.
func ReasonError(reason string) error {
	switch reason {
	case ReasonInvalidCredentials:
		return model.ErrInvalidCredentials
	case ReasonMissingFields:
		return model.ErrMissingFields
	case ReasonInvalidScreenID:
		return model.ErrInvalidScreenID
	case ReasonScreenNotFound:
		return model.ErrScreenNotFound
	case ReasonStorageUnavailable:
		return model.ErrStorageUnavailable
	case ReasonChannelError:
		return model.ErrChannel
	}
	return nil
}

type HandlerFuncWithAuth func(ctx *gin.Context, operator *model.Operator) (any, *APIError)
type HandlerFunc func(ctx *gin.Context) (any, *APIError)

func ResolveEndpointWithAuth(h HandlerFuncWithAuth) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		operator, ok := middleware.GetCurrentOperator(ctx)
		if !ok {
			WriteError(ctx, &APIError{Code: http.StatusUnauthorized, Reason: ReasonUnauthorized, Message: "unauthorized"})
			return
		}
		respond(ctx, func() (any, *APIError) { return h(ctx, operator) })
	}
}

func ResolveEndpoint(h HandlerFunc) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		respond(ctx, func() (any, *APIError) { return h(ctx) })
	}
}

func respond(ctx *gin.Context, call func() (any, *APIError)) {
	result, apiErr := call()
	if apiErr != nil {
		WriteError(ctx, apiErr)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// WriteError aborts the request with the standard error body.
func WriteError(ctx *gin.Context, apiErr *APIError) {
	if apiErr.Code >= http.StatusInternalServerError {
		log.Error().
			Str("path", ctx.FullPath()).
			Str("reason", apiErr.Reason).
			Msg(apiErr.Message)
	}
	ctx.AbortWithStatusJSON(apiErr.Code, ErrorResponse{Success: false, Error: apiErr.Reason, Message: apiErr.Message})
}
