package httputil

import "errors"

// Request parsing errors. All of them map to 400 Bad Request.
var (
	ErrInvalidBody      = errors.New("the body of your request contains invalid or un-parseable data. Please check and try again")
	ErrRequestBodyEmpty = errors.New("the request body must not be empty")
	ErrInvalidYear      = errors.New("the year query parameter must be a number")
	ErrInvalidNumber    = errors.New("the query parameter must be a whole number")
	ErrInvalidAmount    = errors.New("the amount must be a decimal number")
)
