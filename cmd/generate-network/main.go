package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Alterya/Globe/pkg/graph"
	"github.com/Alterya/Globe/pkg/graph/storage"
	"github.com/Alterya/Globe/pkg/graph/visualizer"
	"github.com/Alterya/Globe/pkg/intel"
	"github.com/Alterya/Globe/pkg/query"
)

var (
	inputFile       = flag.String("input", "intel.csv", "CSV file with intelligence records")
	outputFile      = flag.String("output", "network.json", "Output file path for the network")
	queryText       = flag.String("query", "", "Optional natural-language filter applied before building")
	visualize       = flag.Bool("visualize", false, "Generate an HTML visualization of the network")
	visualizeOutput = flag.String("viz-output", "network.html", "Output file for the visualization")
	neo4jExport     = flag.Bool("neo4j", false, "Export the network to Neo4j (NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD)")
	logLevel        = flag.String("log-level", "info", "Logging level (debug, info, warn, error)")
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

	ctx := context.Background()

	if *queryText != "" {
		analysis := query.Default().Interpret(ctx, *queryText, records)
		records = query.Apply(records, analysis.Spec)
		logger.Infof("Query %q matched %d records (%s)", *queryText, len(records), analysis.Explanation)
	}

	network := graph.Build(records)
	logger.Infof("Built network with %d nodes and %d edges", len(network.Nodes), len(network.Edges))

	store := storage.NewJSONGraphStore(*outputFile)
	if err := store.StoreGraph(ctx, network); err != nil {
		logger.Fatalf("Failed to store network: %v", err)
	}
	logger.Infof("Network written to %s", *outputFile)

	if *visualize {
		viz := visualizer.NewVisualizer(*visualizeOutput)
		if err := viz.Visualize(network); err != nil {
			logger.Fatalf("Failed to generate visualization: %v", err)
		}
		logger.Infof("Visualization written to %s", *visualizeOutput)
	}

	if *neo4jExport {
		exporter, err := storage.NewNeo4jExporter(
			os.Getenv("NEO4J_URI"),
			os.Getenv("NEO4J_USER"),
			os.Getenv("NEO4J_PASSWORD"),
		)
		if err != nil {
			logger.Fatalf("Failed to connect to Neo4j: %v", err)
		}
		defer exporter.Close()

		if err := exporter.Export(ctx, network); err != nil {
			logger.Fatalf("Failed to export to Neo4j: %v", err)
		}
		logger.Info("Network exported to Neo4j")
	}
}
