package services

import (
	"os"
	"sync"

	"github.com/Alterya/Globe/pkg/intel"
)

// DefaultIntelSource resolves the record source from the environment.
// INTEL_CSV points at the flat intelligence export; it defaults to
// intel.csv in the working directory.
var DefaultIntelSource = sync.OnceValue(func() intel.Source {
	path := os.Getenv("INTEL_CSV")
	if path == "" {
		path = "intel.csv"
	}
	return intel.NewCSVSource(path)
})

// DefaultIntelRecords loads the record set once per process.
var DefaultIntelRecords = sync.OnceValues(func() ([]intel.Record, error) {
	return DefaultIntelSource().Load()
})
