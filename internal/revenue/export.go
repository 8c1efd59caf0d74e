package revenue

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	billsSheet = "Bills"
	itemsSheet = "Items"
)

var (
	billsHeader = []any{"Bill", "Table", "Settled At", "Discount", "Total", "Actual", "Discount Amount"}
	itemsHeader = []any{"Bill", "Order", "Dish", "Flavors", "Quantity", "Unit Price", "Subtotal"}
)

// WriteXLSX renders rep as a workbook with one sheet of bills, one sheet of
// billed items, and a totals row under the bills.
func WriteXLSX(rep *Report) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", billsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(billsSheet, "A1", &billsHeader); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(itemsSheet, "A1", &itemsHeader); err != nil {
		return nil, err
	}

	billRow, itemRow := 2, 2
	for _, b := range rep.Bills {
		settled := ""
		if b.SettledAt != nil {
			settled = b.SettledAt.Format("2006-01-02 15:04")
		}
		row := []any{
			b.ID,
			b.TableID,
			settled,
			string(b.DiscountType),
			b.TotalAmount.InexactFloat64(),
			b.ActualAmount.InexactFloat64(),
			b.TotalAmount.Sub(b.ActualAmount).InexactFloat64(),
		}
		if err := f.SetSheetRow(billsSheet, cell("A", billRow), &row); err != nil {
			return nil, err
		}
		billRow++

		for _, o := range b.Orders {
			for _, it := range o.Items {
				flavors := make([]string, 0, len(it.FlavorChoices))
				for _, fc := range it.FlavorChoices {
					flavors = append(flavors, fc.Round+": "+fc.Option)
				}
				row := []any{
					b.ID,
					o.ID,
					it.DishName,
					strings.Join(flavors, ", "),
					it.Quantity,
					it.UnitPrice.InexactFloat64(),
					it.Subtotal().InexactFloat64(),
				}
				if err := f.SetSheetRow(itemsSheet, cell("A", itemRow), &row); err != nil {
					return nil, err
				}
				itemRow++
			}
		}
	}

	totals := []any{"Total", rep.BillCount, "", "", rep.TotalSum.InexactFloat64(), rep.ActualSum.InexactFloat64(), rep.DiscountSum.InexactFloat64()}
	if err := f.SetSheetRow(billsSheet, cell("A", billRow), &totals); err != nil {
		return nil, err
	}

	for _, sheet := range []string{billsSheet, itemsSheet} {
		if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheet, "A", "G", 16); err != nil {
			return nil, err
		}
	}
	if err := f.SetRowStyle(billsSheet, billRow, billRow, bold); err != nil {
		return nil, err
	}

	return f.WriteToBuffer()
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
