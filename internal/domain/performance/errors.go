package performance

import "errors"

// ErrDataIntegrity marks a session whose raw values cannot describe a real run.
var ErrDataIntegrity = errors.New("session data integrity violation")
