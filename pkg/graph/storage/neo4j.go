package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v4/neo4j"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/yashdarak08/Graph-Machine-Learning/pkg/graph"
	"github.com/yashdarak08/Graph-Machine-Learning/pkg/graph/metrics"
)

const (
	constraintQuery = `CREATE CONSTRAINT company_name_unique IF NOT EXISTS
		FOR (c:Company) REQUIRE c.name IS UNIQUE`

	upsertNodeQuery = `
		MERGE (c:Company {name: $name})
		SET c.id = $id, c.value = $value, c.date = $date, c.observations = $observations
	`

	upsertNodesQuery = `
		UNWIND $rows AS row
		MERGE (c:Company {name: row.name})
		SET c.id = row.id, c.value = row.value, c.date = row.date, c.observations = row.observations
	`

	mergeEdgeQuery = `
		MATCH (a:Company {name: $a})
		MATCH (b:Company {name: $b})
		MERGE (a)-[r:RELATED_TO]-(b)
		ON CREATE SET r.id = $id
	`

	mergeEdgesQuery = `
		UNWIND $rows AS row
		MATCH (a:Company {name: row.a})
		MATCH (b:Company {name: row.b})
		MERGE (a)-[r:RELATED_TO]-(b)
		ON CREATE SET r.id = row.id
	`

	relatedQuery = `
		MATCH (c:Company {name: $name})
		OPTIONAL MATCH (c)-[:RELATED_TO]-(other:Company)
		RETURN collect(DISTINCT other.name) AS names
	`
)

// Neo4jStorage publishes company graphs to Neo4j. Sessions are opened per call and
// always closed before the call returns.
type Neo4jStorage struct {
	driver   neo4j.Driver
	database string
	logger   *logrus.Logger
}

var _ graph.SinkSession = (*Neo4jStorage)(nil)

// NewNeo4jStorage creates a new Neo4j storage instance
func NewNeo4jStorage(uri, username, password, database string, logger *logrus.Logger) (*Neo4jStorage, error) {
	auth := neo4j.BasicAuth(username, password, "")
	driver, err := neo4j.NewDriver(uri, auth)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Neo4j driver")
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return &Neo4jStorage{
		driver:   driver,
		database: database,
		logger:   logger,
	}, nil
}

// VerifyConnectivity checks that the server is reachable with the configured credentials
func (s *Neo4jStorage) VerifyConnectivity(ctx context.Context) error {
	return errors.Wrap(s.driver.VerifyConnectivity(), "verify Neo4j connectivity")
}

// Close releases the driver
func (s *Neo4jStorage) Close() error {
	if s.driver != nil {
		return s.driver.Close()
	}
	return nil
}

func (s *Neo4jStorage) session(mode neo4j.AccessMode) neo4j.Session {
	return s.driver.NewSession(neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
}

// EnsureSchema creates the company name uniqueness constraint. A server that rejects
// the statement only produces a warning.
func (s *Neo4jStorage) EnsureSchema(ctx context.Context) error {
	session := s.session(neo4j.AccessModeWrite)
	defer session.Close()

	_, err := session.WriteTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		return nil, txRunner{tx: tx}.run(constraintQuery, nil)
	})
	if err != nil {
		s.logger.WithError(err).Warn("Could not create Company constraint")
	}
	return nil
}

// Write runs fn inside one write transaction. The sink passed to fn is only valid
// until fn returns; the transaction commits when fn returns nil.
func (s *Neo4jStorage) Write(ctx context.Context, fn func(graph.Sink) error) error {
	session := s.session(neo4j.AccessModeWrite)
	defer session.Close()

	_, err := session.WriteTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		return nil, fn(newCypherSink(txRunner{tx: tx}))
	})
	if err != nil {
		return errors.Wrap(err, "neo4j write transaction")
	}
	return nil
}

// RelatedCompanies returns the names directly related to name, sorted.
// A company that is not stored gives graph.ErrUnknownNode.
func (s *Neo4jStorage) RelatedCompanies(ctx context.Context, name string) ([]string, error) {
	session := s.session(neo4j.AccessModeRead)
	defer session.Close()

	out, err := session.ReadTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		result, err := tx.Run(relatedQuery, map[string]interface{}{"name": name})
		if err != nil {
			return nil, err
		}
		var row []interface{}
		if result.Next() {
			row = result.Record().Values
		}
		return row, result.Err()
	})
	if err != nil {
		return nil, errors.Wrapf(err, "related companies of %s", name)
	}
	row, _ := out.([]interface{})
	return relatedNames(name, row)
}

// relatedNames decodes the single row of relatedQuery. No row means the MATCH on the
// start company failed.
func relatedNames(name string, row []interface{}) ([]string, error) {
	if len(row) == 0 {
		return nil, fmt.Errorf("company %s: %w", name, graph.ErrUnknownNode)
	}
	values, _ := row[0].([]interface{})
	names := make([]string, 0, len(values))
	for _, v := range values {
		if n, ok := v.(string); ok {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Related lets traversals walk the stored graph
func (s *Neo4jStorage) Related(ctx context.Context, name string) ([]string, error) {
	return s.RelatedCompanies(ctx, name)
}

// runner executes one statement and discards its records
type runner interface {
	run(cypher string, params map[string]interface{}) error
}

type txRunner struct {
	tx neo4j.Transaction
}

func (r txRunner) run(cypher string, params map[string]interface{}) error {
	result, err := r.tx.Run(cypher, params)
	if err != nil {
		return err
	}
	_, err = result.Consume()
	return err
}

// cypherSink translates sink calls into idempotent MERGE statements
type cypherSink struct {
	runner runner
}

var _ graph.BatchSink = (*cypherSink)(nil)

func newCypherSink(r runner) *cypherSink {
	return &cypherSink{runner: r}
}

func nodeParams(n graph.CompanyNode) map[string]interface{} {
	return map[string]interface{}{
		"id":           graph.NodeID(n.Name),
		"name":         n.Name,
		"value":        n.Value,
		"date":         n.Date,
		"observations": int64(n.Observations),
	}
}

// canonical orders the endpoints so repeated merges create the same direction
func canonical(a, b string) (graph.Edge, error) {
	if a == b {
		return graph.Edge{}, fmt.Errorf("edge %s-%s: %w", a, b, graph.ErrSelfLoop)
	}
	k := graph.Edge{A: a, B: b}.Key()
	return graph.Edge{A: k.Low, B: k.High}, nil
}

func edgeParams(e graph.Edge) map[string]interface{} {
	return map[string]interface{}{
		"a":  e.A,
		"b":  e.B,
		"id": graph.EdgeID(e),
	}
}

func (c *cypherSink) UpsertNode(ctx context.Context, node graph.CompanyNode) error {
	if err := c.runner.run(upsertNodeQuery, nodeParams(node)); err != nil {
		return errors.Wrapf(err, "merge company %s", node.Name)
	}
	metrics.SinkWrites.WithLabelValues("neo4j", "node").Inc()
	return nil
}

func (c *cypherSink) UpsertNodes(ctx context.Context, nodes []graph.CompanyNode) error {
	if len(nodes) == 0 {
		return nil
	}
	rows := make([]interface{}, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, nodeParams(n))
	}
	if err := c.runner.run(upsertNodesQuery, map[string]interface{}{"rows": rows}); err != nil {
		return errors.Wrapf(err, "merge %d companies", len(nodes))
	}
	metrics.SinkWrites.WithLabelValues("neo4j", "node").Add(float64(len(nodes)))
	return nil
}

func (c *cypherSink) MergeEdge(ctx context.Context, a, b string) error {
	e, err := canonical(a, b)
	if err != nil {
		return err
	}
	if err := c.runner.run(mergeEdgeQuery, edgeParams(e)); err != nil {
		return errors.Wrapf(err, "merge relationship %s-%s", a, b)
	}
	metrics.SinkWrites.WithLabelValues("neo4j", "edge").Inc()
	return nil
}

func (c *cypherSink) MergeEdges(ctx context.Context, edges []graph.Edge) error {
	if len(edges) == 0 {
		return nil
	}
	rows := make([]interface{}, 0, len(edges))
	for _, e := range edges {
		ce, err := canonical(e.A, e.B)
		if err != nil {
			return err
		}
		rows = append(rows, edgeParams(ce))
	}
	if err := c.runner.run(mergeEdgesQuery, map[string]interface{}{"rows": rows}); err != nil {
		return errors.Wrapf(err, "merge %d relationships", len(edges))
	}
	metrics.SinkWrites.WithLabelValues("neo4j", "edge").Add(float64(len(edges)))
	return nil
}
