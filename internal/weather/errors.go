package weather

import "errors"

var errNoProvider = errors.New("no weather provider configured")
