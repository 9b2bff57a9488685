package sync

import "time"

// nowFunc stamps last_synced_at; overridable in tests.
var nowFunc = time.Now
