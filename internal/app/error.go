package app

import "errors"

var ErrUnknownDriver = errors.New("unknown driver")
