package journal

import (
	"fmt"
	"time"
)

// AcademicYear renders the portal's year selector for the given moment.
// The academic year rolls over in September.
func AcademicYear(now time.Time) string {
	if now.Month() >= time.September {
		return fmt.Sprintf("%d-%d", now.Year(), now.Year()+1)
	}
	return fmt.Sprintf("%d-%d", now.Year()-1, now.Year())
}
