package ui

//go:generate templ generate

import (
	"fmt"
	"strings"

	"github.com/atvirokodosprendimai/accessdesk/internal/domain"
)

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0-RC.5/bundles/datastar.js"

func joinLevels(levels []string) string {
	if len(levels) == 0 {
		return "-"
	}
	return strings.Join(levels, ", ")
}

// Actions only interpolate numeric ids and fixed statuses. User text reaches
// expressions through data attributes read with el.dataset.
func reviewAction(id uint, status domain.RequestStatus) string {
	return fmt.Sprintf("@patch('/dashboard/requests/%d/%s')", id, status)
}

func deleteSoftwareAction(id uint) string {
	return fmt.Sprintf("confirm('Delete ' + el.dataset.name + ' and its requests?') && @delete('/dashboard/software/%d')", id)
}
