// Package metascrub inspects uploaded files for embedded metadata, scores
// the privacy risk of what it finds, and produces scrubbed copies with the
// metadata removed.
//
// The package is a reusable library. The extraction and risk heuristics live
// in the extract and risk subpackages and are pure functions; this package
// adds the service layer around them: per-file scrubbing, batch archives,
// pluggable blob storage for cleaned outputs and a scan-history repository.
// The HTTP surface in pkg/metascrub/api and the server in cmd/server are
// thin consumers of the Service interface defined here.
package metascrub
