package schedule

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"coursecal/internal/model"
)

const productID = "-//coursecal//Emploi du temps//FR"

// ExportICS serializes rendered events, with their resolved colors, into an
// iCalendar document.
func ExportICS(calName string, events []model.RenderedEvent, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if calName != "" {
		cal.SetXWRCalName(calName)
	}

	for _, re := range events {
		ev := cal.AddEvent(re.Key + "@coursecal")
		ev.SetDtStampTime(now.UTC())
		ev.SetStartAt(re.Start)
		ev.SetEndAt(re.End)
		ev.SetSummary(re.Title)
		if re.Room != "" {
			ev.SetLocation(re.Room)
		}
		if re.Note != "" {
			ev.SetDescription(re.Note)
		}
		if re.Teacher != "" {
			ev.SetProperty(propTeacher, re.Teacher)
		}
		ev.SetProperty(propColor, re.Colors.Bg)
		ev.SetProperty("X-BORDER-COLOR", re.Colors.Border)
	}

	return cal.Serialize()
}
