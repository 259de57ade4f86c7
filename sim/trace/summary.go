package trace

import "fmt"

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalArrivals   int
	ServedCount     int
	DeclinedCount   int
	CanceledCount   int
	UniqueFiles     int
	ServedPerFile   map[int]int // file id → completed services
	PeakReaders     map[int]int // file id → max concurrent readers observed
	ExclusionFaults []string    // admissions that overlapped an exclusive occupant
}

type fileOccupancy struct {
	readers int
	writer  bool
	deleter bool
}

// Summarize computes aggregate statistics from a SimulationTrace by replaying
// admitted/completed records in sequence order. Safe for nil or empty traces.
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		ServedPerFile: make(map[int]int),
		PeakReaders:   make(map[int]int),
	}
	records := st.Records()
	if len(records) == 0 {
		return summary
	}

	files := make(map[int]*fileOccupancy)
	occupancy := func(id int) *fileOccupancy {
		if f, ok := files[id]; ok {
			return f
		}
		f := &fileOccupancy{}
		files[id] = f
		return f
	}

	for _, r := range records {
		switch r.Kind {
		case KindArrived:
			summary.TotalArrivals++
		case KindDeclined:
			summary.DeclinedCount++
		case KindCanceled:
			summary.CanceledCount++
		case KindAdmitted:
			f := occupancy(r.ResourceID)
			busy := f.writer || f.deleter
			if r.Operation != "READ" {
				busy = busy || f.readers > 0
			}
			if busy {
				summary.ExclusionFaults = append(summary.ExclusionFaults,
					fmt.Sprintf("seq %d: user %d %s on file %d overlapped (readers=%d writer=%t delete=%t)",
						r.Seq, r.RequesterID, r.Operation, r.ResourceID, f.readers, f.writer, f.deleter))
			}
			switch r.Operation {
			case "READ":
				f.readers++
				summary.PeakReaders[r.ResourceID] = max(summary.PeakReaders[r.ResourceID], f.readers)
			case "WRITE":
				f.writer = true
			case "DELETE":
				f.deleter = true
			}
		case KindCompleted:
			f := occupancy(r.ResourceID)
			switch r.Operation {
			case "READ":
				f.readers--
			case "WRITE":
				f.writer = false
			case "DELETE":
				f.deleter = false
			}
			summary.ServedCount++
			summary.ServedPerFile[r.ResourceID]++
		}
	}
	summary.UniqueFiles = len(files)
	return summary
}
