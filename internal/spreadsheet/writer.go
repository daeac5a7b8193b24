package spreadsheet

import (
	"fmt"
	"io"

	"github.com/voterlookup/epic-extractor/internal/store/model"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Voters"

var exportColumns = []struct {
	header string
	value  func(v model.Voter) any
}{
	{"epic_number", func(v model.Voter) any { return v.EpicNumber }},
	{"full_name", func(v model.Voter) any { return deref(v.FullName) }},
	{"full_name_l1", func(v model.Voter) any { return deref(v.FullNameL1) }},
	{"age", func(v model.Voter) any { return deref(v.Age) }},
	{"gender", func(v model.Voter) any { return deref(v.Gender) }},
	{"relation_type", func(v model.Voter) any { return deref(v.RelationType) }},
	{"relative_full_name", func(v model.Voter) any { return deref(v.RelativeFullName) }},
	{"part_number", func(v model.Voter) any { return deref(v.PartNumber) }},
	{"part_name", func(v model.Voter) any { return deref(v.PartName) }},
	{"part_serial_number", func(v model.Voter) any { return deref(v.PartSerialNumber) }},
	{"ac_number", func(v model.Voter) any { return deref(v.AcNumber) }},
	{"asmbly_name", func(v model.Voter) any { return deref(v.AsmblyName) }},
	{"district_value", func(v model.Voter) any { return deref(v.DistrictValue) }},
	{"state_name", func(v model.Voter) any { return deref(v.StateName) }},
	{"ps_building_name", func(v model.Voter) any { return deref(v.PsBuildingName) }},
	{"ps_room_details", func(v model.Voter) any { return deref(v.PsRoomDetails) }},
	{"created_at", func(v model.Voter) any { return v.CreatedAt }},
}

// WriteVoters renders voters as a single sheet workbook with a header row.
func WriteVoters(w io.Writer, voters model.VoterList) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}

	header := make([]any, 0, len(exportColumns))
	for _, c := range exportColumns {
		header = append(header, c.header)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, v := range voters {
		row := make([]any, 0, len(exportColumns))
		for _, c := range exportColumns {
			row = append(row, c.value(v))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func deref[T any](p *T) any {
	if p == nil {
		return ""
	}
	return *p
}
