package cli

import "errors"

var errNoSource = errors.New("no question source configured: set quiz.source or postgres.url")
