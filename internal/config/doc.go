// Package config loads the ejiview configuration.
//
// # Configuration Sources
//
// Values are layered in this order, later layers winning:
//
//	1. Default()
//	2. A YAML file (EJI_CONFIG_FILE, or config.yaml / configs/config.yaml)
//	3. Environment variables prefixed EJI_
//
// Only variables that are actually set override the file:
//
//	EJI_SERVER_PORT=9090
//	EJI_LOGGING_LEVEL=debug
//	EJI_DATA_ALIAS_FILE=/etc/ejiview/aliases.yaml
//
// # Sources
//
// Raw tables are listed under data.sources and can only come from the file:
//
//	data:
//	  sources:
//	    - name: county
//	      kind: csv
//	      path: nm_county_eji.csv
//	      entity_key_columns: [COUNTY]
//	      aggregate_labels: [Count]
//
// Relative paths resolve against the config file's directory.
package config
