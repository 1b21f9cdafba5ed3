package httpapi

import "time"

// nowUnix is overridable by tests.
var nowUnix = func() int64 { return time.Now().Unix() }
