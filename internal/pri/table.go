package pri

// BuildTable cuts a flat, row-major token stream into rows of len(header)
// cells. A trailing partial row is padded with empty cells. An empty header
// yields an empty table.
//
// Nothing in the stream marks row boundaries, so the result is only correct
// when the producer emitted whole rows in header order.
func BuildTable(header []string, data []string) [][]string {
	width := len(header)
	if width == 0 {
		return [][]string{}
	}

	rows := make([][]string, 0, (len(data)+width-1)/width)
	for start := 0; start < len(data); start += width {
		row := make([]string, width)
		copy(row, data[start:min(start+width, len(data))])
		rows = append(rows, row)
	}
	return rows
}
