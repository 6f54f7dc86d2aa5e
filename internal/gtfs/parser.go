package gtfs

import (
	"archive/zip"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/spkg/bom"
)

// Data is the fully parsed contents of one GTFS static feed.
type Data struct {
	Routes              []Route
	Stops               []Stop
	Trips               []Trip
	StopTimes           []StopTime
	Calendars           []Calendar
	CalendarExceptions  []CalendarException
	RouteFrequencies    []RouteFrequency
	Shapes              map[string][]ShapePoint
	Transfers           []Transfer
}

// Parse reads a GTFS zip file and returns the parsed static feed. Each file
// is parsed independently; a missing optional file is skipped silently and
// a malformed one logs a warning, and either way the corresponding slice is
// left empty rather than failing the whole load — routes.txt, stops.txt,
// trips.txt and stop_times.txt are mandatory and a failure there is fatal.
func Parse(zipPath string) (*Data, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("open gtfs zip: %w", err)
	}
	defer r.Close()

	files := make(map[string]*zip.File)
	for _, f := range r.File {
		files[f.Name] = f
	}

	data := &Data{Shapes: make(map[string][]ShapePoint)}

	mandatory := []struct {
		name string
		fn   func(*zip.File) error
	}{
		{"routes.txt", func(f *zip.File) error {
			out, err := readCSV[Route](f)
			if err != nil {
				return err
			}
			data.Routes = out
			return nil
		}},
		{"stops.txt", func(f *zip.File) error {
			out, err := readCSV[Stop](f)
			if err != nil {
				return err
			}
			data.Stops = out
			return nil
		}},
		{"trips.txt", func(f *zip.File) error {
			out, err := readCSV[Trip](f)
			if err != nil {
				return err
			}
			data.Trips = out
			return nil
		}},
		{"stop_times.txt", func(f *zip.File) error {
			out, err := readCSV[StopTime](f)
			if err != nil {
				return err
			}
			for i := range out {
				out[i].ArrivalSeconds = parseGTFSTime(out[i].ArrivalTime)
				out[i].DepartureSeconds = parseGTFSTime(out[i].DepartureTime)
			}
			data.StopTimes = out
			return nil
		}},
	}

	for _, m := range mandatory {
		f, ok := files[m.name]
		if !ok {
			return nil, fmt.Errorf("gtfs zip missing mandatory file %s", m.name)
		}
		if err := m.fn(f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", m.name, err)
		}
	}

	optional := []struct {
		name string
		fn   func(*zip.File) error
	}{
		{"calendar.txt", func(f *zip.File) error {
			out, err := readCSV[Calendar](f)
			if err != nil {
				return err
			}
			data.Calendars = out
			return nil
		}},
		{"calendar_dates.txt", func(f *zip.File) error {
			out, err := readCSV[CalendarException](f)
			if err != nil {
				return err
			}
			data.CalendarExceptions = out
			return nil
		}},
		{"frequencies_extended.txt", func(f *zip.File) error {
			out, err := readCSV[RouteFrequency](f)
			if err != nil {
				return err
			}
			data.RouteFrequencies = out
			return nil
		}},
		{"shapes.txt", func(f *zip.File) error {
			out, err := readCSV[ShapePoint](f)
			if err != nil {
				return err
			}
			for _, p := range out {
				data.Shapes[p.ShapeID] = append(data.Shapes[p.ShapeID], p)
			}
			for id := range data.Shapes {
				pts := data.Shapes[id]
				sort.Slice(pts, func(i, j int) bool { return pts[i].Sequence < pts[j].Sequence })
				data.Shapes[id] = pts
			}
			return nil
		}},
		{"transfers.txt", func(f *zip.File) error {
			out, err := readCSV[Transfer](f)
			if err != nil {
				return err
			}
			data.Transfers = out
			return nil
		}},
	}

	for _, o := range optional {
		f, ok := files[o.name]
		if !ok {
			continue
		}
		if err := o.fn(f); err != nil {
			log.Printf("gtfs: warning: failed to parse %s: %v", o.name, err)
		}
	}

	return data, nil
}

// readCSV decodes one GTFS CSV file into a slice of T via gocsv struct tags,
// stripping a leading UTF-8 BOM if present (several operator exports carry
// one).
func readCSV[T any](f *zip.File) ([]T, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var out []T
	if err := gocsv.Unmarshal(bom.NewReader(rc), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// parseGTFSTime converts "HH:MM:SS" (hours may exceed 23 for past-midnight
// service) into seconds since local midnight. Malformed values return 0,
// matching the teacher parser's lenient-on-bad-row behavior.
func parseGTFSTime(hhmmss string) int {
	parts := strings.Split(strings.TrimSpace(hhmmss), ":")
	if len(parts) != 3 {
		return 0
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	s, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0
	}
	return h*3600 + m*60 + s
}
