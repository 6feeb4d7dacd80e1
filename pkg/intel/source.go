package intel

import (
	"encoding/csv"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Source yields the full ordered record set. Implementations re-deliver
// everything on each call; there is no incremental update contract.
type Source interface {
	Load() ([]Record, error)
}

// CSVSource reads relationship records from a CSV file with a header row.
// Column names follow the export format: source_domain, lookalike_domain,
// same_ip_domain, crypto_address, chain, discovery_method, IPs, screenshot,
// inreach_intel_summary.
type CSVSource struct {
	path   string
	logger *logrus.Logger
}

// NewCSVSource creates a source backed by the given file path.
func NewCSVSource(path string) *CSVSource {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &CSVSource{path: path, logger: logger}
}

// Load reads and parses the whole file. Rows that cannot be mapped to a
// record are skipped; the row count is logged, not returned as an error.
func (s *CSVSource) Load() ([]Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Wrapf(err, "open csv %s", s.path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	if len(rows) == 0 {
		return nil, nil
	}

	index := headerIndex(rows[0])
	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		records = append(records, recordFromRow(row, index))
	}

	s.logger.WithFields(logrus.Fields{
		"path": s.path,
		"rows": len(records),
	}).Info("Loaded relationship records")

	return records, nil
}

// headerIndex maps normalized column names to their positions. A few legacy
// aliases from older exports are accepted.
func headerIndex(header []string) map[string]int {
	aliases := map[string]string{
		"ips":                   "source_domain_ip",
		"ip":                    "source_domain_ip",
		"inreach_intel_summary": "intel_summary",
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if canonical, ok := aliases[key]; ok {
			key = canonical
		}
		index[key] = i
	}
	return index
}

func recordFromRow(row []string, index map[string]int) Record {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	return Record{
		SourceDomain:    field("source_domain"),
		LookalikeDomain: field("lookalike_domain"),
		SameIPDomain:    field("same_ip_domain"),
		CryptoAddress:   field("crypto_address"),
		Chain:           field("chain"),
		DiscoveryMethod: field("discovery_method"),
		SourceDomainIP:  field("source_domain_ip"),
		Screenshot:      field("screenshot"),
		IntelSummary:    field("intel_summary"),
	}
}

// StaticSource serves a fixed record slice. It exists so multiple independent
// sources can coexist in tests without touching the filesystem.
type StaticSource []Record

func (s StaticSource) Load() ([]Record, error) {
	out := make([]Record, len(s))
	copy(out, s)
	return out, nil
}
