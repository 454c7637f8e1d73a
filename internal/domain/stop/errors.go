package stop

import "errors"

var ErrInvalidStopType = errors.New("invalid stop type")
