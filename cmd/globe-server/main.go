package main

import (
	"flag"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Alterya/Globe/pkg/intel"
	"github.com/Alterya/Globe/pkg/query"
	"github.com/Alterya/Globe/server"
)

var (
	inputFile = flag.String("input", "intel.csv", "CSV file with intelligence records")
	addr      = flag.String("addr", ":8090", "Address for the interaction server to listen on")
	logLevel  = flag.String("log-level", "info", "Logging level (debug, info, warn, error)")
)

func main() {
	flag.Parse()

	logger := logrus.New()
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logger.Fatalf("Invalid log level: %v", err)
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if err := godotenv.Load(); err != nil {
		logger.Debugf("No env file loaded: %v", err)
	}

	records, err := intel.NewCSVSource(*inputFile).Load()
	if err != nil {
		logger.Fatalf("Failed to load records from %s: %v", *inputFile, err)
	}
	logger.Infof("Loaded %d records", len(records))

	session := server.NewSession(records, query.Default())
	srv := server.New(session)

	logger.Infof("Serving network on %s", *addr)
	if err := srv.ListenAndServe(*addr); err != nil {
		logger.Fatalf("Server failed: %v", err)
	}
}
