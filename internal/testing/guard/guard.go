// Package guard flips the runtime into test mode as a side effect of being
// imported, keeping mains inert under go test.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("BACKSTAGE_TEST_MODE") == "" {
			_ = os.Setenv("BACKSTAGE_TEST_MODE", "1")
		}
	})
}
