package render

// columnLabels maps database column names to table headers.
var columnLabels = map[string]string{
	"CLIENT_NAME":              "Client Name",
	"Client_Name":              "Client Name",
	"client_name":              "Client Name",
	"MTD_CONTAINER":            "Current Month",
	"PREVMONTH_CONTAINER":      "Previous Month",
	"MONTHS":                   "Month",
	"LOADING_MONTH":            "Loading Month",
	"NO_OF_CONTAINER":          "Containers",
	"ContainerNo":              "Container No",
	"Container_Completed_date": "Completion Date",
	"Destination":              "Destination",
	"Qty":                      "Quantity",
	"Amount":                   "Amount",

	"PALLET_NO":       "Pallet No",
	"GRADING_NORMS":   "Grading Norms",
	"GRADE":           "Grade",
	"LENGTH":          "Length",
	"WIDTH":           "Width",
	"HEIGHT":          "Height",
	"THICKNESS":       "Thickness",
	"PCS":             "Pieces",
	"CBM":             "CBM",
	"ENTRY_DATE":      "Entry Date",
	"GRADER_NAME":     "Grader Name",
	"user_id":         "User ID",
	"workorderno":     "Work Order No",
	"slip_no":         "Slip No",
	"QUALITY_NAME":    "Quality Name",
	"EUROPE":          "Europe",
	"SOUTH_EAST_ASIA": "South East Asia",
	"INDIA":           "India",
	"WIDTH_CAT":       "Width Category",
	"SHEETS":          "Sheets",
	"FULL":            "Full",
	"PART_SHEET":      "Part Sheet",
	"BANDES":          "Bandes",
	"SM":              "SM",
	"TOTAL_CBM":       "Total CBM",
	"FULL_P":          "Full %",
	"PART_SHEET_P":    "Part Sheet %",
	"BANDES_P":        "Bandes %",
	"SM_P":            "SM %",

	"DATE":     "Date",
	"DAY":      "Day",
	"GRADE-1":  "Grade 1",
	"GRADE-2":  "Grade 2",
	"GRADE-3":  "Grade 3",
	"GRADE-4":  "Grade 4",
	"GRADE-5":  "Grade 5",
	"GRADE-6":  "Grade 6",
	"TOTAL":    "Total CBM",
	"GRADE-1P": "Grade 1 %",
	"GRADE-2P": "Grade 2 %",
	"GRADE-3P": "Grade 3 %",
	"GRADE-4P": "Grade 4 %",
	"GRADE-5P": "Grade 5 %",
	"GRADE-6P": "Grade 6 %",
}

// Label returns the header for a column, or the column name itself.
func Label(column string) string {
	if l, ok := columnLabels[column]; ok {
		return l
	}
	return column
}
