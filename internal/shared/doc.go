// Package shared holds helpers used across the ejiview packages.
//
// The testutil subpackage provides:
//
//   - BufferedSlogHandler and NewTestLogger for asserting on structured logs
//   - Raw EJI table fixtures (state, county and national sources)
//   - Temp-file helpers for CSV and YAML inputs
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    raw := testutil.CountyRawTable()
//	    // ...
//	    assert.True(t, logs.ContainsMessage("normalized"))
//	}
package shared
