package apiclient

// ExportFormat is the closed set of export formats offered by the API.
type ExportFormat string

const (
	FormatCSV   ExportFormat = "csv"
	FormatExcel ExportFormat = "excel"
)

// ParseExportFormat accepts the path names plus the "xlsx" alias.
func ParseExportFormat(s string) (ExportFormat, bool) {
	switch s {
	case "csv":
		return FormatCSV, true
	case "excel", "xlsx":
		return FormatExcel, true
	}
	return "", false
}

func (f ExportFormat) Valid() bool {
	return f == FormatCSV || f == FormatExcel
}

// Filename is the name the export is saved under.
func (f ExportFormat) Filename() string {
	if f == FormatCSV {
		return "productos_export.csv"
	}
	return "productos_export.xlsx"
}
