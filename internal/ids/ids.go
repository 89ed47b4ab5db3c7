// Package ids allocates the human-readable identifiers of new records.
//
// Allocation is checked only against the ids the caller passes in; two
// processes allocating at the same time can still pick the same id.
package ids

import (
	"fmt"
	"strings"
	"time"

	"tutorado/internal/models"
)

const (
	StudentPrefix    = "ALU"
	AdminPrefix      = "ADM"
	TutorPrefix      = "TUT"
	AttendancePrefix = "ATD"
)

// NextStudentID returns ALU + the number of loaded students plus one,
// bumped until it is not in existing.
func NextStudentID(existing []string) string {
	return next(StudentPrefix, len(existing)+1, existing)
}

// NextUserID numbers users per prefix: the base is the count of existing
// ids carrying the role's prefix.
func NextUserID(role models.Role, existing []string) string {
	prefix := UserPrefix(role)
	count := 0
	for _, id := range existing {
		if strings.HasPrefix(id, prefix) {
			count++
		}
	}
	return next(prefix, count+1, existing)
}

// Allocate dispatches on kind. role is only read for users.
func Allocate(kind models.Kind, role models.Role, existing []string) (string, error) {
	switch kind {
	case models.KindStudent:
		return NextStudentID(existing), nil
	case models.KindUser:
		return NextUserID(role, existing), nil
	default:
		return "", fmt.Errorf("no id allocation for %s", kind)
	}
}

func UserPrefix(role models.Role) string {
	if role == models.RoleAdmin {
		return AdminPrefix
	}
	return TutorPrefix
}

// AttendanceID derives an id from the creation instant in milliseconds.
func AttendanceID(t time.Time) string {
	return fmt.Sprintf("%s%d", AttendancePrefix, t.UnixMilli())
}

func next(prefix string, base int, existing []string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		taken[id] = struct{}{}
	}
	for offset := 0; ; offset++ {
		candidate := fmt.Sprintf("%s%03d", prefix, base+offset)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}
