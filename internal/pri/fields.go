package pri

import "forestnav/internal/domain"

// ── Header code → column name ──────────────────────────────
// Codes missing from these maps pass through as the numeric code itself.

var logFieldNames = map[string]string{
	"1":    "Type",
	"2":    "Species Number",
	"20":   "Unique ID",
	"201":  "Diameter (Top mm ob)",
	"202":  "Diameter (Top mm ub)",
	"203":  "Diameter (Mid mm ob)",
	"204":  "Diameter (Mid mm ub)",
	"205":  "Diameter (Root mm ob)",
	"206":  "Diameter (Root mm ub)",
	"207":  "Middle diameter (HKS measurement mm ob)",
	"208":  "Middle diameter (HKS measurement mm ub)",
	"300":  "Forced cross-cut",
	"301":  "Length (cm)",
	"302":  "Length class",
	"400":  "Volume (Var161)",
	"1400": "Volume (Decimal)",
	"401":  "Volume (m3sob)",
	"1401": "Volume (m3sob Decimal)",
	"402":  "Volume (m3sub)",
	"1402": "Volume (m3sub Decimal)",
	"403":  "Volume (m3topob)",
	"1403": "Volume (m3topob Decimal)",
	"404":  "Volume (m3topub)",
	"1404": "Volume (m3topub Decimal)",
	"405":  "Volume (m3smiob)",
	"1405": "Volume (m3smiob Decimal)",
	"406":  "Volume (m3smiub)",
	"1406": "Volume (m3smiub Decimal)",
	"420":  "Volume (Var161) in dl",
	"421":  "Volume (dlsob)",
	"422":  "Volume (dlsub)",
	"423":  "Volume (dltopob)",
	"424":  "Volume (dltopub)",
	"425":  "Volume (dlsmiob)",
	"426":  "Volume (dlsmiub)",
	"500":  "Stem Number",
	"501":  "Stem Log number",
	"600":  "Number of Log",
	"2001": "Reserved",
}

var treeFieldNames = map[string]string{
	"1":    "Type",
	"2":    "Species Number",
	"500":  "Stem Number",
	"505":  "Suitable for Bio Energy Flag",
	"723":  "Reference Diameter for DBH",
	"724":  "Reference Diameter Height",
	"740":  "DBH (mm)",
	"741":  "Stem Type",
	"750":  "Operator Number",
	"760":  "Latitude",
	"761":  "North/South Flag",
	"762":  "Longitude",
	"763":  "East/West Flag",
	"764":  "Altitude",
	"765":  "Height (dm)",
	"766":  "Height (m)",
	"767":  "Volume (dm3)",
	"768":  "Volume (m3)",
	"769":  "DBH (mm)",
	"770":  "DBH (cm)",
	"771":  "Log Count",
	"772":  "Number of Log",
	"2001": "Reserved",
}

// numericColumns are coerced to numbers right after the table is built.
var numericColumns = map[domain.EntityKind][]string{
	domain.EntityTree: {
		"DBH", "DBH (mm)", "DBH (cm)",
		"Height (dm)", "Height (m)",
		"Volume (dm3)", "Volume (m3)",
		"Log Count", "Number of Log",
		"Altitude",
	},
	domain.EntityLog: {
		"Length (cm)", "Physical Length",
		"Diameter (Top mm ob)", "Diameter (Root mm ob)",
		"Volume (Var161)",
	},
}

// FieldName maps one header code to its column name.
func FieldName(kind domain.EntityKind, code string) string {
	names := treeFieldNames
	if kind == domain.EntityLog {
		names = logFieldNames
	}
	if name, ok := names[code]; ok {
		return name
	}
	return code
}

// MapHeader maps a header code list to column names, preserving order.
func MapHeader(kind domain.EntityKind, codes []string) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = FieldName(kind, c)
	}
	return out
}

// NumericColumns returns the designated numeric columns for kind.
func NumericColumns(kind domain.EntityKind) []string {
	return numericColumns[kind]
}

// CoerceNumeric fills the numeric view of every designated column the
// table actually has.
func CoerceNumeric(t *domain.Table) {
	for _, name := range numericColumns[t.Kind] {
		t.Coerce(name)
	}
}

// ── StanForD variable catalogue ────────────────────────────

// Variable describes a StanForD (var, type) pair.
type Variable struct {
	Var         int    `json:"var"`
	Type        int    `json:"type"`
	Description string `json:"description"`
	Unit        string `json:"unit"`
}

var variables = []Variable{
	{1, 0, "Type", "Code"},
	{2, 0, "Species Number", "Code"},
	{5, 0, "Software", "Text"},
	{20, 0, "Unique ID", "Number"},
	{201, 0, "Diameter (Top mm ob)", "mm"},
	{202, 0, "Diameter (Top mm ub)", "mm"},
	{203, 0, "Diameter (Mid mm ob)", "mm"},
	{204, 0, "Diameter (Mid mm ub)", "mm"},
	{205, 0, "Diameter (Root mm ob)", "mm"},
	{206, 0, "Diameter (Root mm ub)", "mm"},
	{207, 0, "Middle diameter (HKS measurement mm ob)", "mm"},
	{208, 0, "Middle diameter (HKS measurement mm ub)", "mm"},
	{256, 1, "Log header", "Codes"},
	{257, 1, "Log data", "Values"},
	{266, 1, "Tree header", "Codes"},
	{267, 1, "Tree data", "Values"},
	{300, 0, "Forced cross-cut", "Flag"},
	{301, 0, "Length (cm)", "cm"},
	{302, 0, "Length class", "Code"},
	{400, 0, "Volume (Var161)", "dl"},
	{401, 0, "Volume (m3sob)", "m3"},
	{402, 0, "Volume (m3sub)", "m3"},
	{403, 0, "Volume (m3topob)", "m3"},
	{404, 0, "Volume (m3topub)", "m3"},
	{405, 0, "Volume (m3smiob)", "m3"},
	{406, 0, "Volume (m3smiub)", "m3"},
	{420, 0, "Volume (Var161) in dl", "dl"},
	{421, 0, "Volume (dlsob)", "dl"},
	{422, 0, "Volume (dlsub)", "dl"},
	{423, 0, "Volume (dltopob)", "dl"},
	{424, 0, "Volume (dltopub)", "dl"},
	{425, 0, "Volume (dlsmiob)", "dl"},
	{426, 0, "Volume (dlsmiub)", "dl"},
	{500, 0, "Stem Number", "Number"},
	{501, 0, "Stem Log number", "Number"},
	{505, 0, "Suitable for Bio Energy", "Flag"},
	{600, 0, "Number of Log", "Number"},
	{723, 0, "Reference Diameter for DBH", "mm"},
	{724, 0, "Reference Diameter Height", "cm"},
	{740, 0, "DBH", "mm"},
	{741, 0, "Stem Type", "Code"},
	{750, 0, "Operator Number", "Number"},
	{760, 0, "Latitude", "Coordinate"},
	{761, 0, "North/South Flag", "Flag"},
	{762, 0, "Longitude", "Coordinate"},
	{763, 0, "East/West Flag", "Flag"},
	{764, 0, "Altitude", "m"},
	{1400, 0, "Volume (Decimal)", "dl"},
	{1401, 0, "Volume (m3sob Decimal)", "m3"},
	{1402, 0, "Volume (m3sub Decimal)", "m3"},
	{1403, 0, "Volume (m3topob Decimal)", "m3"},
	{1404, 0, "Volume (m3topub Decimal)", "m3"},
	{1405, 0, "Volume (m3smiob Decimal)", "m3"},
	{1406, 0, "Volume (m3smiub Decimal)", "m3"},
	{2001, 0, "Reserved", "Text"},
}

var variableIndex = func() map[[2]int]Variable {
	m := make(map[[2]int]Variable, len(variables))
	for _, v := range variables {
		m[[2]int{v.Var, v.Type}] = v
	}
	return m
}()

// LookupVariable returns the catalogue entry for (var, type).
func LookupVariable(v, typ int) (Variable, bool) {
	vr, ok := variableIndex[[2]int{v, typ}]
	return vr, ok
}

// Describe returns the description of (var, type), or "Unknown".
func Describe(v, typ int) string {
	if vr, ok := LookupVariable(v, typ); ok {
		return vr.Description
	}
	return "Unknown"
}

// Variables returns a copy of the catalogue.
func Variables() []Variable {
	out := make([]Variable, len(variables))
	copy(out, variables)
	return out
}
