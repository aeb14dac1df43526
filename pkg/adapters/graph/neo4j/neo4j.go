package neo4j

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/ogghst/puntini/internal/domain"
)

// identRe accepts only safe label and relationship type names. Labels cannot
// be parameterized in Cypher, so they are interpolated after this check.
var identRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Config holds Neo4j connection configuration.
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// GraphStore implements ports.GraphStore on a Neo4j database. Idempotence
// and per-operation atomicity come from Cypher MERGE inside managed write
// transactions; no cross-operation transactions are needed because every
// tool call is a single store operation.
type GraphStore struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// NewGraphStore connects to Neo4j and verifies connectivity.
func NewGraphStore(ctx context.Context, cfg Config, logger *zap.Logger) (*GraphStore, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}

	logger.Info("connected to Neo4j", zap.String("uri", cfg.URI))

	return &GraphStore{driver: driver, database: cfg.Database, logger: logger}, nil
}

func (s *GraphStore) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
}

func checkIdent(kind, name string) error {
	if !identRe.MatchString(name) {
		return domain.NewError(domain.ErrCodeValidation, "invalid %s: %q", kind, name)
	}
	return nil
}

// UpsertNode merges a node on (label, key). Property deltas are applied with
// `SET n += $props` so keys absent from the delta survive.
func (s *GraphStore) UpsertNode(ctx context.Context, spec domain.NodeSpec) (*domain.Node, error) {
	if spec.Label == "" || spec.Key == "" {
		return nil, domain.NewError(domain.ErrCodeValidation, "node label and key are required")
	}
	if err := checkIdent("label", spec.Label); err != nil {
		return nil, err
	}

	cypher := fmt.Sprintf(`
		MERGE (n:%s {key: $key})
		ON CREATE SET n.id = $id, n.created_at = datetime()
		SET n += $props, n.updated_at = datetime()
		RETURN n.id AS id, n.created_at AS created_at, properties(n) AS props`, spec.Label)

	session := s.session(ctx)
	defer session.Close(ctx)

	record, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"key":   spec.Key,
			"id":    uuid.New().String(),
			"props": normalizeProps(spec.Props),
		})
		if err != nil {
			return nil, err
		}
		return result.Single(ctx)
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeTool, err, "upsert node %s:%s", spec.Label, spec.Key)
	}

	rec := record.(*neo4j.Record)
	id, _ := rec.Get("id")
	createdAt, _ := rec.Get("created_at")
	props, _ := rec.Get("props")

	return &domain.Node{
		ID:        asString(id),
		Label:     spec.Label,
		Key:       spec.Key,
		Props:     filterReserved(asMap(props)),
		CreatedAt: asTime(createdAt),
		UpdatedAt: time.Now(),
	}, nil
}

// UpsertEdge merges a relationship on the (source, type, target) tuple.
// Endpoints are matched by natural key; a missing endpoint surfaces as a
// not-found error.
func (s *GraphStore) UpsertEdge(ctx context.Context, spec domain.EdgeSpec) (*domain.Edge, error) {
	if spec.Type == "" {
		return nil, domain.NewError(domain.ErrCodeValidation, "edge type is required")
	}
	if spec.SourceLabel == "" || spec.SourceKey == "" || spec.TargetLabel == "" || spec.TargetKey == "" {
		return nil, domain.NewError(domain.ErrCodeValidation, "edge endpoints require label and key")
	}
	for kind, name := range map[string]string{
		"relationship type": spec.Type,
		"source label":      spec.SourceLabel,
		"target label":      spec.TargetLabel,
	} {
		if err := checkIdent(kind, name); err != nil {
			return nil, err
		}
	}

	matchCypher := fmt.Sprintf(`
		MATCH (a:%s {key: $srcKey}), (b:%s {key: $tgtKey})
		MERGE (a)-[r:%s]->(b)
		ON CREATE SET r.id = $id, r.created_at = datetime()
		SET r += $props, r.updated_at = datetime()
		RETURN r.id AS id, a.id AS src, b.id AS tgt,
		       r.created_at AS created_at, properties(r) AS props`,
		spec.SourceLabel, spec.TargetLabel, spec.Type)

	session := s.session(ctx)
	defer session.Close(ctx)

	record, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, matchCypher, map[string]any{
			"srcKey": spec.SourceKey,
			"tgtKey": spec.TargetKey,
			"id":     uuid.New().String(),
			"props":  normalizeProps(spec.Props),
		})
		if err != nil {
			return nil, err
		}
		return result.Single(ctx)
	})
	if err != nil {
		if strings.Contains(err.Error(), "result contains no more records") {
			return nil, domain.NewError(domain.ErrCodeNotFound,
				"edge endpoint not found: %s:%s or %s:%s",
				spec.SourceLabel, spec.SourceKey, spec.TargetLabel, spec.TargetKey)
		}
		return nil, domain.WrapError(domain.ErrCodeTool, err, "upsert edge %s", spec.Type)
	}

	rec := record.(*neo4j.Record)
	id, _ := rec.Get("id")
	src, _ := rec.Get("src")
	tgt, _ := rec.Get("tgt")
	createdAt, _ := rec.Get("created_at")
	props, _ := rec.Get("props")

	return &domain.Edge{
		ID:          asString(id),
		Type:        spec.Type,
		SourceID:    asString(src),
		SourceLabel: spec.SourceLabel,
		SourceKey:   spec.SourceKey,
		TargetID:    asString(tgt),
		TargetLabel: spec.TargetLabel,
		TargetKey:   spec.TargetKey,
		Props:       filterReserved(asMap(props)),
		CreatedAt:   asTime(createdAt),
		UpdatedAt:   time.Now(),
	}, nil
}

// UpdateProps applies the delta to every matching node and relationship.
func (s *GraphStore) UpdateProps(ctx context.Context, match domain.MatchSpec, props map[string]any) error {
	if len(props) == 0 {
		return nil
	}

	nodeWhere, nodeParams := matchClause("n", match, true)
	edgeWhere, edgeParams := matchClause("r", match, false)
	params := map[string]any{"props": normalizeProps(props)}
	for k, v := range nodeParams {
		params[k] = v
	}
	for k, v := range edgeParams {
		params[k] = v
	}

	cypher := fmt.Sprintf(`
		OPTIONAL MATCH (n) WHERE %s
		SET n += $props, n.updated_at = datetime()
		WITH count(n) AS nodes
		OPTIONAL MATCH ()-[r]->() WHERE %s
		SET r += $props, r.updated_at = datetime()
		RETURN nodes + count(r) AS touched`, nodeWhere, edgeWhere)

	session := s.session(ctx)
	defer session.Close(ctx)

	record, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return result.Single(ctx)
	})
	if err != nil {
		return domain.WrapError(domain.ErrCodeTool, err, "update props")
	}

	touched, _ := record.(*neo4j.Record).Get("touched")
	if n, ok := touched.(int64); ok && n == 0 {
		return domain.NewError(domain.ErrCodeNotFound, "no node or edge matches spec")
	}
	return nil
}

// DeleteNode removes every matching node with DETACH DELETE, which cascades
// to all touching relationships.
func (s *GraphStore) DeleteNode(ctx context.Context, match domain.MatchSpec) error {
	where, params := matchClause("n", match, true)
	cypher := fmt.Sprintf(`MATCH (n) WHERE %s DETACH DELETE n RETURN count(n) AS deleted`, where)

	session := s.session(ctx)
	defer session.Close(ctx)

	record, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return result.Single(ctx)
	})
	if err != nil {
		return domain.WrapError(domain.ErrCodeTool, err, "delete node")
	}

	deleted, _ := record.(*neo4j.Record).Get("deleted")
	if n, ok := deleted.(int64); ok && n == 0 {
		return domain.NewError(domain.ErrCodeNotFound, "no node matches spec")
	}
	return nil
}

// DeleteEdge removes every matching relationship, leaving nodes untouched.
func (s *GraphStore) DeleteEdge(ctx context.Context, match domain.MatchSpec) error {
	where, params := matchClause("r", match, false)
	cypher := fmt.Sprintf(`MATCH ()-[r]->() WHERE %s DELETE r RETURN count(r) AS deleted`, where)

	session := s.session(ctx)
	defer session.Close(ctx)

	record, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return result.Single(ctx)
	})
	if err != nil {
		return domain.WrapError(domain.ErrCodeTool, err, "delete edge")
	}

	deleted, _ := record.(*neo4j.Record).Get("deleted")
	if n, ok := deleted.(int64); ok && n == 0 {
		return domain.NewError(domain.ErrCodeNotFound, "no edge matches spec")
	}
	return nil
}

// GetSubgraph expands from all matching centers with a variable-length path
// match bounded at depth hops.
func (s *GraphStore) GetSubgraph(ctx context.Context, match domain.MatchSpec, depth int) (*domain.Subgraph, error) {
	if depth < 0 {
		return nil, domain.NewError(domain.ErrCodeValidation, "depth must be non-negative, got %d", depth)
	}

	where, params := matchClause("c", match, true)
	cypher := fmt.Sprintf(`
		MATCH (c) WHERE %s
		OPTIONAL MATCH p = (c)-[*1..%d]-(m)
		RETURN collect(DISTINCT c) AS centers,
		       [n IN collect(DISTINCT m) WHERE n IS NOT NULL] AS reached,
		       [r IN collect(DISTINCT relationships(p)) WHERE r IS NOT NULL] AS rels`,
		where, max(depth, 1))
	if depth == 0 {
		cypher = fmt.Sprintf(`
			MATCH (c) WHERE %s
			RETURN collect(DISTINCT c) AS centers, [] AS reached, [] AS rels`, where)
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	record, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return result.Single(ctx)
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeTool, err, "get subgraph")
	}

	rec := record.(*neo4j.Record)
	centersVal, _ := rec.Get("centers")
	reachedVal, _ := rec.Get("reached")
	relsVal, _ := rec.Get("rels")

	sg := assembleSubgraph(asList(centersVal), asList(reachedVal), asList(relsVal))
	if len(sg.Centers) == 0 {
		return nil, domain.NewError(domain.ErrCodeNotFound, "no center node matches spec")
	}
	return sg, nil
}

// assembleSubgraph converts driver entities into a domain subgraph. Nodes
// and relationships are deduplicated by ID: a reached node that is also a
// center, or one reachable through several centers, appears once.
func assembleSubgraph(centers, reached, rels []any) *domain.Subgraph {
	sg := &domain.Subgraph{}
	seenNodes := make(map[string]bool)
	seenEdges := make(map[string]bool)

	addNode := func(n neo4j.Node) *domain.Node {
		dn := toDomainNode(n)
		if seenNodes[dn.ID] {
			return dn
		}
		seenNodes[dn.ID] = true
		sg.Nodes = append(sg.Nodes, dn)
		return dn
	}

	for _, v := range centers {
		if n, ok := v.(neo4j.Node); ok {
			dn := addNode(n)
			sg.Centers = append(sg.Centers, dn.ID)
		}
	}
	for _, v := range reached {
		if n, ok := v.(neo4j.Node); ok {
			addNode(n)
		}
	}
	for _, group := range rels {
		for _, v := range asList(group) {
			if r, ok := v.(neo4j.Relationship); ok {
				de := toDomainEdge(r)
				if seenEdges[de.ID] {
					continue
				}
				seenEdges[de.ID] = true
				sg.Edges = append(sg.Edges, de)
			}
		}
	}
	return sg
}

// RunQuery executes a raw Cypher read and returns the collected records.
func (s *GraphStore) RunQuery(ctx context.Context, raw string, params map[string]any) (any, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	records, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, raw, params)
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeTool, err, "run query")
	}

	rows := make([]map[string]any, 0)
	for _, r := range records.([]*neo4j.Record) {
		rows = append(rows, r.AsMap())
	}
	return rows, nil
}

// Stats counts nodes and relationships.
func (s *GraphStore) Stats(ctx context.Context) (domain.GraphStats, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	record, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx,
			`MATCH (n) WITH count(n) AS nodes OPTIONAL MATCH ()-[r]->() RETURN nodes, count(r) AS edges`,
			nil)
		if err != nil {
			return nil, err
		}
		return result.Single(ctx)
	})
	if err != nil {
		return domain.GraphStats{}, fmt.Errorf("failed to count graph: %w", err)
	}

	rec := record.(*neo4j.Record)
	nodes, _ := rec.Get("nodes")
	edges, _ := rec.Get("edges")
	return domain.GraphStats{Nodes: int(nodes.(int64)), Edges: int(edges.(int64))}, nil
}

// Close releases the driver.
func (s *GraphStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// matchClause renders a MatchSpec as a WHERE clause over variable v.
// isNode selects node semantics (label predicate, key property) versus
// relationship semantics (type() predicate, no key).
func matchClause(v string, match domain.MatchSpec, isNode bool) (string, map[string]any) {
	var parts []string
	params := make(map[string]any)
	p := func(name string) string { return v + "_" + name }

	if match.ID != "" {
		parts = append(parts, fmt.Sprintf("%s.id = $%s", v, p("id")))
		params[p("id")] = match.ID
	}
	if match.Label != "" {
		if isNode {
			parts = append(parts, fmt.Sprintf("$%s IN labels(%s)", p("label"), v))
		} else {
			parts = append(parts, fmt.Sprintf("type(%s) = $%s", v, p("label")))
		}
		params[p("label")] = match.Label
	}
	if match.Key != "" {
		if !isNode {
			// Key never matches a relationship.
			parts = append(parts, "false")
		} else {
			parts = append(parts, fmt.Sprintf("%s.key = $%s", v, p("key")))
			params[p("key")] = match.Key
		}
	}
	i := 0
	for k, val := range match.Props {
		if !identRe.MatchString(k) {
			continue
		}
		name := fmt.Sprintf("%s_prop%d", v, i)
		parts = append(parts, fmt.Sprintf("%s.%s = $%s", v, k, name))
		params[name] = val
		i++
	}

	if len(parts) == 0 {
		return "true", params
	}
	return strings.Join(parts, " AND "), params
}

// normalizeProps guards against nil maps, which the driver rejects.
func normalizeProps(props map[string]any) map[string]any {
	if props == nil {
		return map[string]any{}
	}
	return props
}

func toDomainNode(n neo4j.Node) *domain.Node {
	node := &domain.Node{
		ID:        asString(n.Props["id"]),
		Key:       asString(n.Props["key"]),
		Props:     filterReserved(n.Props),
		CreatedAt: asTime(n.Props["created_at"]),
	}
	if len(n.Labels) > 0 {
		node.Label = n.Labels[0]
	}
	return node
}

func toDomainEdge(r neo4j.Relationship) *domain.Edge {
	return &domain.Edge{
		ID:        asString(r.Props["id"]),
		Type:      r.Type,
		Props:     filterReserved(r.Props),
		CreatedAt: asTime(r.Props["created_at"]),
	}
}

// filterReserved drops the bookkeeping properties the store manages itself,
// leaving only the caller-owned property map.
func filterReserved(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		switch k {
		case "id", "key", "created_at", "updated_at":
		default:
			out[k] = v
		}
	}
	return out
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asTime(v any) time.Time {
	if t, ok := v.(time.Time); ok {
		return t
	}
	return time.Time{}
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}

func asList(v any) []any {
	if l, ok := v.([]any); ok {
		return l
	}
	return nil
}
