package aggregator

import (
	"github.com/pable/go-scrim-metrics/internal/model"
)

// Column aliases recognized in the scrim table header.
var (
	MapColumns        = []string{"Map"}
	OutcomeColumns    = []string{"Outcome", "Result"}
	StartColumns      = []string{"Start", "Starting Side"}
	FirstHalfColumns  = []string{"First Half WR"}
	SecondHalfColumns = []string{"Second Half WR"}
	PostPlantColumns  = []string{"Atk PP %"}
	RetakeColumns     = []string{"Def PP %"}
	Pistol1Columns    = []string{"Pistol 1", "First Pistol"}
	Pistol2Columns    = []string{"Pistol 2", "Second Pistol"}
)

// Capabilities records where each known column sits in a table header, -1
// when absent. It is computed once per load and consulted by every metric.
type Capabilities struct {
	Map        int
	Outcome    int
	Start      int
	FirstHalf  int
	SecondHalf int
	PostPlant  int
	Retake     int
	Pistol1    int
	Pistol2    int
}

// Detect resolves the capability set of a header.
func Detect(header []string) Capabilities {
	return Capabilities{
		Map:        model.ColumnIndex(header, MapColumns...),
		Outcome:    model.ColumnIndex(header, OutcomeColumns...),
		Start:      model.ColumnIndex(header, StartColumns...),
		FirstHalf:  model.ColumnIndex(header, FirstHalfColumns...),
		SecondHalf: model.ColumnIndex(header, SecondHalfColumns...),
		PostPlant:  model.ColumnIndex(header, PostPlantColumns...),
		Retake:     model.ColumnIndex(header, RetakeColumns...),
		Pistol1:    model.ColumnIndex(header, Pistol1Columns...),
		Pistol2:    model.ColumnIndex(header, Pistol2Columns...),
	}
}

func (c Capabilities) HasMap() bool { return c.Map >= 0 }
func (c Capabilities) HasOutcome() bool { return c.Outcome >= 0 }
func (c Capabilities) HasPostPlant() bool { return c.PostPlant >= 0 }
func (c Capabilities) HasRetake() bool { return c.Retake >= 0 }

// HasSides reports whether side-derived win rates can be computed.
func (c Capabilities) HasSides() bool {
	return c.Start >= 0 && c.FirstHalf >= 0 && c.SecondHalf >= 0
}

// HasPistol reports whether both pistol-round columns are present.
func (c Capabilities) HasPistol() bool {
	return c.Pistol1 >= 0 && c.Pistol2 >= 0
}

// Warnings lists the optional round metrics that will be skipped.
func (c Capabilities) Warnings() []*model.MissingColumnWarning {
	var out []*model.MissingColumnWarning
	add := func(metric string, idx int, col string) {
		if idx < 0 {
			out = append(out, &model.MissingColumnWarning{Metric: metric, Column: col})
		}
	}
	add("outcome counts", c.Outcome, OutcomeColumns[0])
	add("side win rates", c.Start, StartColumns[0])
	add("side win rates", c.FirstHalf, FirstHalfColumns[0])
	add("side win rates", c.SecondHalf, SecondHalfColumns[0])
	add("post-plant success", c.PostPlant, PostPlantColumns[0])
	add("retake success", c.Retake, RetakeColumns[0])
	add("pistol win rate", c.Pistol1, Pistol1Columns[0])
	add("pistol win rate", c.Pistol2, Pistol2Columns[0])
	return out
}
