package inspection

import "car-inspection-api-server/internal/models"

// Summarize derives the checkpoint counts of a report. Every entry counts
// toward the total; not_checked entries count toward nothing else.
func Summarize(c models.Checkpoints) models.InspectionSummary {
	var s models.InspectionSummary
	for _, section := range c.Sections() {
		for _, cp := range section {
			s.TotalCheckpoints++
			switch cp.Status {
			case models.CheckpointPass:
				s.PassedCheckpoints++
			case models.CheckpointFail:
				s.FailedCheckpoints++
			case models.CheckpointWarning:
				s.WarningCheckpoints++
			}
		}
	}
	return s
}
