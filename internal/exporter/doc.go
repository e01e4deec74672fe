// Package exporter writes normalized tables and comparisons as downloadable
// files.
//
// CSVWriter handles CSV files under the exports directory, always with a
// UTF-8 BOM so Excel detects the encoding. WriteComparisonCSV and
// WriteComparisonXLSX render a comparison to any io.Writer, which is how the
// HTTP export endpoint and the ejicompare CLI share one layout:
//
//	Entity,Source,Overall EJI,Environmental Burden,...
//	Bernalillo County,county,0.72,0.55,...
//	Santa Fe County,county,0.41,0.37,...
//
// Missing values are written as empty cells.
package exporter
