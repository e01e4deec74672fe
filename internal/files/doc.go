// Package files discovers table files on disk.
//
// A directory of CSV and XLSX exports can be served without a config file:
// Discovery.Sources names each table after its file, so county.csv becomes
// the "county" source.
//
//	sources, err := files.NewDiscovery("").Sources("data")
package files
