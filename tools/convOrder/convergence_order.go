package main

import (
	"bufio"
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

var (
	csvFile string
	pngFile string
)

func main() {
	csvFilePtr := flag.String("csvFile", csvFile, "file containing entries of a convergence study")
	pngFilePtr := flag.String("png", "convergence.png", "log-log plot of residual against mesh size")
	flag.Parse()
	csvFile = *csvFilePtr
	pngFile = *pngFilePtr
	if len(csvFile) == 0 {
		flag.Usage()
		os.Exit(1)
	}
	fmt.Printf("Input file: %v\n", csvFile)
	studies, err := readCSV(csvFile)
	if err != nil {
		fmt.Printf("error: %s\n", err.Error())
		os.Exit(1)
	}
	for _, cs := range studies {
		fmt.Printf("Title = %s, Order = %d, fitted rate = %5.2f\n", cs.title, cs.order, cs.FittedRate())
		for i := range cs.h {
			fmt.Printf("%d, %v, %v, %5.2f\n", cs.cells[i], cs.h[i], cs.residual[i], cs.Rate(i))
		}
	}
	if err = plotStudies(studies, pngFile); err != nil {
		fmt.Printf("error: %s\n", err.Error())
		os.Exit(1)
	}
}

type ConvergenceStudy struct {
	title       string
	order       int
	cells       []int
	h, residual []float64
}

func NewConvergenceStudy(title string, order int) *ConvergenceStudy {
	return &ConvergenceStudy{
		title: title,
		order: order,
	}
}

func (cs *ConvergenceStudy) Add(cells int, h, residual float64) {
	cs.cells = append(cs.cells, cells)
	cs.h = append(cs.h, h)
	cs.residual = append(cs.residual, residual)
}

// Rate is the observed order between mesh i-1 and mesh i, NaN for i = 0.
func (cs *ConvergenceStudy) Rate(i int) float64 {
	if i == 0 {
		return math.NaN()
	}
	return math.Log(cs.residual[i-1]/cs.residual[i]) / math.Log(cs.h[i-1]/cs.h[i])
}

// FittedRate is the least squares slope of log(residual) against log(h).
func (cs *ConvergenceStudy) FittedRate() float64 {
	var sx, sy, sxx, sxy float64
	n := float64(len(cs.h))
	for i := range cs.h {
		x, y := math.Log(cs.h[i]), math.Log(cs.residual[i])
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
	}
	return (n*sxy - sx*sy) / (n*sxx - sx*sx)
}

func (cs *ConvergenceStudy) Label() string {
	return fmt.Sprintf("%s P=%d", cs.title, cs.order)
}

// readCSV groups the records of the study by title and order, in the order
// they first appear.
func readCSV(csvFile string) (studies []*ConvergenceStudy, err error) {
	var (
		records [][]string
		f       *os.File
		byKey   = make(map[string]*ConvergenceStudy)
	)
	if f, err = os.Open(csvFile); err != nil {
		return
	}
	defer f.Close()
	r := csv.NewReader(bufio.NewReader(f))
	if records, err = r.ReadAll(); err != nil {
		return
	}
	for i, rec := range records {
		if i == 0 {
			continue
		}
		if len(rec) < 5 {
			return nil, fmt.Errorf("line %d: %d fields, want Title,Cells,Order,H,Residual", i+1, len(rec))
		}
		title, cellstxt, ntxt := rec[0], rec[1], rec[2]
		var (
			cells, order int
			h, residual  float64
		)
		if cells, err = strconv.Atoi(cellstxt); err != nil {
			return
		}
		if order, err = strconv.Atoi(ntxt); err != nil {
			return
		}
		if h, err = strconv.ParseFloat(rec[3], 64); err != nil {
			return
		}
		if residual, err = strconv.ParseFloat(rec[4], 64); err != nil {
			return
		}
		cs, ok := byKey[title+ntxt]
		if !ok {
			cs = NewConvergenceStudy(title, order)
			byKey[title+ntxt] = cs
			studies = append(studies, cs)
		}
		cs.Add(cells, h, residual)
	}
	for _, cs := range studies {
		sort.Sort(byH{cs})
	}
	return
}

// byH orders a study from the coarsest mesh to the finest.
type byH struct{ *ConvergenceStudy }

func (s byH) Len() int           { return len(s.h) }
func (s byH) Less(i, j int) bool { return s.h[i] > s.h[j] }
func (s byH) Swap(i, j int) {
	s.cells[i], s.cells[j] = s.cells[j], s.cells[i]
	s.h[i], s.h[j] = s.h[j], s.h[i]
	s.residual[i], s.residual[j] = s.residual[j], s.residual[i]
}

func plotStudies(studies []*ConvergenceStudy, file string) (err error) {
	p := plot.New()
	p.Title.Text = "Residual of the projected manufactured solution"
	p.X.Label.Text = "h"
	p.Y.Label.Text = "|R|"
	p.X.Scale, p.Y.Scale = plot.LogScale{}, plot.LogScale{}
	p.X.Tick.Marker, p.Y.Tick.Marker = plot.LogTicks{Prec: -1}, plot.LogTicks{Prec: -1}
	var lines []any
	for _, cs := range studies {
		pts := make(plotter.XYs, len(cs.h))
		for i := range cs.h {
			pts[i].X, pts[i].Y = cs.h[i], cs.residual[i]
		}
		lines = append(lines, cs.Label(), pts)
	}
	if err = plotutil.AddLinePoints(p, lines...); err != nil {
		return
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, file)
}
