// Package report renders finalized yield results as flat tables.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/signalsfoundry/windfarm-yield/core"
	"github.com/signalsfoundry/windfarm-yield/internal/site"
)

// TotalLabel identifies the farm summary row.
const TotalLabel = "TOTAL"

// DefaultPlaces is the number of decimals written for every value.
const DefaultPlaces int32 = 3

// Columns is the header of the per-turbine table.
var Columns = []string{
	"Turbine_ID",
	"Ideal_Production_GWh",
	"Wake_Loss_GWh",
	"Wake_Loss_Percent",
	"Sector_Loss_GWh",
	"Sector_Loss_Percent",
	"Other_Loss_GWh",
	"Other_Loss_Percent",
	"Net_Production_GWh",
	"Capacity_Factor_Percent",
	"Full_Load_Hours",
}

// Row is one table line.
type Row struct {
	ID                    string
	IdealGWh              float64
	WakeLossGWh           float64
	WakeLossPercent       float64
	SectorLossGWh         float64
	SectorLossPercent     float64
	OtherLossGWh          float64
	OtherLossPercent      float64
	NetGWh                float64
	CapacityFactorPercent float64
	FullLoadHours         float64
}

// Table is the per-turbine breakdown plus the farm TOTAL row.
type Table struct {
	Rows  []Row
	Total Row
}

// BuildTable flattens a result. Percentages are relative to each turbine's
// ideal production. The TOTAL row uses farm-level aggregates.
func BuildTable(res *site.WindSimulationResult) Table {
	rated := res.RatedPowerMW
	maxGWh := rated * 8760 / 1000

	var t Table
	for _, e := range res.Ledger.Entries() {
		r := Row{
			ID:                strconv.Itoa(e.TurbineID),
			IdealGWh:          e.Ideal,
			WakeLossGWh:       e.WakeLoss,
			WakeLossPercent:   core.Percent(e.WakeLoss, e.Ideal),
			SectorLossGWh:     e.SectorLoss,
			SectorLossPercent: core.Percent(e.SectorLoss, e.Ideal),
			OtherLossGWh:      e.OtherLoss,
			OtherLossPercent:  core.Percent(e.OtherLoss, e.Ideal),
			NetGWh:            e.Net,
		}
		if maxGWh > 0 {
			r.CapacityFactorPercent = 100 * e.Net / maxGWh
			r.FullLoadHours = e.Net * 1000 / rated
		}
		t.Rows = append(t.Rows, r)
	}

	tot := res.Ledger.Totals()
	t.Total = Row{
		ID:                    TotalLabel,
		IdealGWh:              res.GrossAEPGWh,
		WakeLossGWh:           tot.WakeLoss,
		WakeLossPercent:       res.WakeLossPercent,
		SectorLossGWh:         tot.SectorLoss,
		SectorLossPercent:     res.SectorLossPercent,
		OtherLossGWh:          tot.OtherLoss,
		OtherLossPercent:      res.OtherLossPercent,
		NetGWh:                res.AEPGWh,
		CapacityFactorPercent: 100 * res.CapacityFactor,
		FullLoadHours:         res.Summary.FullLoadHours,
	}
	return t
}

func (r Row) values() []float64 {
	return []float64{
		r.IdealGWh,
		r.WakeLossGWh,
		r.WakeLossPercent,
		r.SectorLossGWh,
		r.SectorLossPercent,
		r.OtherLossGWh,
		r.OtherLossPercent,
		r.NetGWh,
		r.CapacityFactorPercent,
		r.FullLoadHours,
	}
}

func (r Row) record(places int32) []string {
	out := make([]string, 0, len(Columns))
	out = append(out, r.ID)
	for _, v := range r.values() {
		out = append(out, Round(v, places))
	}
	return out
}

// Round formats v with a fixed number of decimals, rounding half away from
// zero.
func Round(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// WriteCSV writes the header, every turbine row and the TOTAL row.
func WriteCSV(w io.Writer, t Table, places int32) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range t.Rows {
		if err := cw.Write(r.record(places)); err != nil {
			return fmt.Errorf("write turbine %s: %w", r.ID, err)
		}
	}
	if err := cw.Write(t.Total.record(places)); err != nil {
		return fmt.Errorf("write total: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// WriteText writes an aligned, human-readable version of the table.
func WriteText(w io.Writer, t Table, places int32) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	writeLine := func(fields []string) {
		for _, f := range fields {
			fmt.Fprint(tw, f, "\t")
		}
		fmt.Fprintln(tw)
	}
	writeLine(Columns)
	for _, r := range t.Rows {
		writeLine(r.record(places))
	}
	writeLine(t.Total.record(places))
	return tw.Flush()
}

// BreakdownColumns is the header of the loss breakdown table.
var BreakdownColumns = []string{"Category", "Value", "Percent", "Computed", "Applied_In", "Description"}

// WriteBreakdownCSV writes the loss category breakdown.
func WriteBreakdownCSV(w io.Writer, entries []core.LossBreakdownEntry, places int32) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(BreakdownColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range entries {
		rec := []string{
			string(e.Name),
			Round(e.Value, places+2),
			Round(e.Percentage, places),
			strconv.FormatBool(e.IsComputed),
			e.AppliedIn,
			e.Description,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write %s: %w", e.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
