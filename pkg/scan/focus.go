package scan

import "fmt"

// FocusRegion is the downstream crop/focus artifact derived from a
// subject: its time range plus its averaged box expressed as percentages
// of the frame, ready for reformatting math.
type FocusRegion struct {
	TimeStart      float64 `json:"time_start"`
	TimeEnd        float64 `json:"time_end"`
	CenterXPercent float64 `json:"center_x_percent"`
	CenterYPercent float64 `json:"center_y_percent"`
	WidthPercent   float64 `json:"width_percent"`
	HeightPercent  float64 `json:"height_percent"`
	Label          string  `json:"label"`
}

// SubjectsToFocusRegions converts subjects to focus regions using the
// arithmetic mean of each subject's boxes. Pure: identical input yields
// identical output. Non-positive frame dimensions yield nil.
func SubjectsToFocusRegions(subjects []Subject, frameWidth, frameHeight float64) []FocusRegion {
	if frameWidth <= 0 || frameHeight <= 0 {
		return nil
	}

	regions := make([]FocusRegion, 0, len(subjects))
	for _, s := range subjects {
		if len(s.Positions) == 0 {
			continue
		}
		mean := s.MeanBox()
		cx, cy := mean.Center()
		regions = append(regions, FocusRegion{
			TimeStart:      s.FirstSeen,
			TimeEnd:        s.LastSeen,
			CenterXPercent: cx / frameWidth * 100,
			CenterYPercent: cy / frameHeight * 100,
			WidthPercent:   mean.W / frameWidth * 100,
			HeightPercent:  mean.H / frameHeight * 100,
			Label:          fmt.Sprintf("%s %.0f%%", s.Class, s.MeanScore()*100),
		})
	}
	return regions
}
