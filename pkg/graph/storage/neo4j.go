package storage

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v4/neo4j"

	"github.com/Alterya/Globe/pkg/graph"
)

// Neo4jExporter mirrors a built network into a Neo4j instance so analysts
// can run Cypher over the same relationships the visualization shows.
type Neo4jExporter struct {
	driver neo4j.Driver
	uri    string
}

// NewNeo4jExporter creates an exporter for the given connection settings.
func NewNeo4jExporter(uri, username, password string) (*Neo4jExporter, error) {
	auth := neo4j.BasicAuth(username, password, "")
	driver, err := neo4j.NewDriver(uri, auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %v", err)
	}

	return &Neo4jExporter{
		driver: driver,
		uri:    uri,
	}, nil
}

// Close releases the underlying driver.
func (e *Neo4jExporter) Close() error {
	if e.driver != nil {
		return e.driver.Close()
	}
	return nil
}

// Export writes all nodes and edges in one transaction. Nodes are merged on
// their content-derived ID so repeated exports stay idempotent.
func (e *Neo4jExporter) Export(ctx context.Context, network *graph.Network) error {
	session := e.driver.NewSession(neo4j.SessionConfig{})
	defer session.Close()

	_, err := session.WriteTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		for _, node := range network.Nodes {
			params := map[string]interface{}{
				"id":     node.ID,
				"kind":   string(node.Kind),
				"key":    node.Key,
				"label":  node.DisplayLabel,
				"type":   node.NodeType,
				"weight": node.Weight,
			}

			_, err := tx.Run(`
				MERGE (n:IntelNode {id: $id})
				SET n.kind = $kind,
					n.key = $key,
					n.label = $label,
					n.node_type = $type,
					n.weight = $weight,
					n.updated_at = datetime()
			`, params)

			if err != nil {
				return nil, err
			}
		}

		for _, edge := range network.Edges {
			params := map[string]interface{}{
				"sourceID": edge.SourceID,
				"targetID": edge.TargetID,
				"relation": edge.Relation,
			}

			_, err := tx.Run(`
				MATCH (from:IntelNode {id: $sourceID})
				MATCH (to:IntelNode {id: $targetID})
				MERGE (from)-[r:RELATES {relation: $relation}]->(to)
				SET r.updated_at = datetime()
			`, params)

			if err != nil {
				return nil, err
			}
		}

		return nil, nil
	})

	return err
}
