// Package services implements the business logic between the HTTP handlers
// and the core packages.
//
// # Loading
//
// Loader fetches every configured source concurrently (errgroup), normalizes
// each raw table against the alias table and indexes the results into a
// repository.Repository. One failing source fails the load.
//
// # Serving
//
// DataService holds the current repository behind an atomic pointer:
//
//	repo, aliases, err := loader.LoadRepository(ctx)
//	...
//	rec, err := ds.Compare(ctx, services.CompareRequest{
//	    A: "Bernalillo", ASource: "county",
//	    B: "United States", BSource: "national",
//	})
//
// Reload swaps in a freshly loaded repository and broadcasts
// EventSourcesReloaded. A failed reload leaves the previous one serving.
//
// # Errors
//
// ErrSourceNotFound, ErrEntityNotFound, ErrNoSources and ErrInvalidInput are
// wrapped with context; match them with errors.Is. Normalization failures
// surface as *schema.NormalizationError inside an AppError.
package services
