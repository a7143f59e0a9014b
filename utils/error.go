package utils

import "errors"

var ErrorInvalidDateRange = errors.New("to date must not be before from date")

var ErrorBusinessRequired = errors.New("business id is required")
