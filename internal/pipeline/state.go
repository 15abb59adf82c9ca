package pipeline

import (
	"github.com/docintelhq/docintel/constants"
	"github.com/docintelhq/docintel/internal/entity"
)

// ShouldProcess decides whether a page needs a (re-)structuring attempt.
//
// A page is done only when it is marked structured AND carries a non-empty
// page summary. A structured page with an empty summary is a degraded result
// from an earlier failed attempt and gets re-submitted on the next run.
func ShouldProcess(page *entity.PageRecord) bool {
	return !(page.Status == constants.PageStatusStructured && page.PageSummary != "")
}
