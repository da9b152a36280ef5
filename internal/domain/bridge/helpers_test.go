package bridge_test

import "time"

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
