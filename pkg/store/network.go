package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/flowgrid/pathcover/pkg/logging"
	"github.com/flowgrid/pathcover/pkg/network"
)

var _ network.Builder = (*Store)(nil)

// scopeSQL holds the dynamic fragments of a filter-scoped network query.
// Placeholders are numbered, so the same args serve both halves of the link
// UNION without duplication.
type scopeSQL struct {
	join  string
	where string
	args  []any
}

// buildScopeSQL translates a filter into join/where fragments against the
// node alias "n". The toolset list goes through the toolset indirection
// table rather than a node-id membership list.
func buildScopeSQL(f network.Filter) scopeSQL {
	var (
		joins      []string
		conditions []string
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.FabNo != 0 {
		conditions = append(conditions, "n.fab_no = "+arg(f.FabNo))
	}
	if f.ModelNo != 0 {
		conditions = append(conditions, "n.model_no = "+arg(f.ModelNo))
	}
	if f.PhaseNo != 0 {
		conditions = append(conditions, "n.phase_no = "+arg(f.PhaseNo))
	}
	if len(f.E2EGroupNos) > 0 {
		conditions = append(conditions, "n.e2e_group_no = ANY("+arg(f.E2EGroupNos)+")")
	}
	if len(f.Toolsets) > 0 {
		joins = append(joins, "JOIN tb_toolsets ts ON ts.e2e_group_no = n.e2e_group_no")
		conditions = append(conditions, "ts.code = ANY("+arg(f.Toolsets)+")")
	}

	return scopeSQL{
		join:  strings.Join(joins, " "),
		where: "WHERE " + strings.Join(conditions, " AND "),
		args:  args,
	}
}

const nodeColumns = `n.id, n.fab_no, n.model_no, n.phase_no, n.data_code,
	COALESCE(n.utility_no, 0), n.item_no, n.e2e_group_no, COALESCE(n.markers, '')`

// Build materializes the node and link scope for a filter. Links are
// selected by joining the filter predicates directly against either endpoint
// (union, deduplicated); the node set is then widened with any boundary
// endpoints the node-side filter missed, keeping the universe closed over
// link endpoints. An empty filter is a configuration error.
func (s *Store) Build(ctx context.Context, f network.Filter) (*network.Universe, error) {
	if f.IsEmpty() {
		return nil, network.ErrUnboundedFilter
	}
	start := time.Now()
	var err error
	defer func() { s.observe("build_universe", start, err) }()

	scope := buildScopeSQL(f)

	var nodes []network.Node
	var links []network.Link
	err = s.withRetry(ctx, "build_universe", func(ctx context.Context) error {
		var err error
		nodes, err = s.fetchScopedNodes(ctx, scope)
		if err != nil {
			return err
		}
		links, err = s.fetchScopedLinks(ctx, scope)
		if err != nil {
			return err
		}
		nodes, err = s.widenToBoundary(ctx, nodes, links)
		return err
	})
	if err != nil {
		return nil, opError("Build", "universe", err)
	}

	u, err := network.NewUniverse(nodes, links)
	if err != nil {
		return nil, opError("Build", "universe", err)
	}
	s.log.Info("universe built",
		logging.String("filter", f.Normalize()),
		logging.Int("nodes", u.NodeCount()),
		logging.Int("links", u.LinkCount()),
		logging.Latency(time.Since(start)))
	return u, nil
}

func (s *Store) fetchScopedNodes(ctx context.Context, scope scopeSQL) ([]network.Node, error) {
	query := fmt.Sprintf(`SELECT %s FROM nw_nodes n %s %s ORDER BY n.id`,
		nodeColumns, scope.join, scope.where)

	rows, err := s.pool.Query(ctx, query, scope.args...)
	if err != nil {
		return nil, fmt.Errorf("%w: nodes in scope: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	var nodes []network.Node
	for rows.Next() {
		var n network.Node
		if err := rows.Scan(&n.ID, &n.FabNo, &n.ModelNo, &n.PhaseNo, &n.DataCode,
			&n.UtilityNo, &n.ItemNo, &n.E2EGroupNo, &n.Markers); err != nil {
			return nil, fmt.Errorf("%w: node row: %v", ErrScanFailed, err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// fetchScopedLinks unions links whose start node matches the filter with
// links whose end node matches it. UNION deduplicates; no node-id membership
// list ever crosses the wire.
func (s *Store) fetchScopedLinks(ctx context.Context, scope scopeSQL) ([]network.Link, error) {
	const linkColumns = `l.id, l.s_node_id, l.e_node_id, l.bidirected, l.cost, l.length_mm`
	query := fmt.Sprintf(`
		SELECT %[1]s FROM nw_links l
		JOIN nw_nodes n ON l.s_node_id = n.id
		%[2]s %[3]s
		UNION
		SELECT %[1]s FROM nw_links l
		JOIN nw_nodes n ON l.e_node_id = n.id
		%[2]s %[3]s
		ORDER BY 1`,
		linkColumns, scope.join, scope.where)

	rows, err := s.pool.Query(ctx, query, scope.args...)
	if err != nil {
		return nil, fmt.Errorf("%w: links in scope: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	var links []network.Link
	for rows.Next() {
		var l network.Link
		if err := rows.Scan(&l.ID, &l.StartNodeID, &l.EndNodeID, &l.Bidirected, &l.Cost, &l.LengthMM); err != nil {
			return nil, fmt.Errorf("%w: link row: %v", ErrScanFailed, err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// widenToBoundary fetches the endpoint nodes the scope query missed, so the
// universe invariant (every link endpoint resolves to a node) holds.
func (s *Store) widenToBoundary(ctx context.Context, nodes []network.Node, links []network.Link) ([]network.Node, error) {
	known := make(map[int64]struct{}, len(nodes))
	for _, n := range nodes {
		known[n.ID] = struct{}{}
	}
	missingSet := make(map[int64]struct{})
	for _, l := range links {
		if _, ok := known[l.StartNodeID]; !ok {
			missingSet[l.StartNodeID] = struct{}{}
		}
		if _, ok := known[l.EndNodeID]; !ok {
			missingSet[l.EndNodeID] = struct{}{}
		}
	}
	if len(missingSet) == 0 {
		return nodes, nil
	}
	missing := make([]int64, 0, len(missingSet))
	for id := range missingSet {
		missing = append(missing, id)
	}

	query := fmt.Sprintf(`SELECT %s FROM nw_nodes n WHERE n.id = ANY($1)`, nodeColumns)
	rows, err := s.pool.Query(ctx, query, missing)
	if err != nil {
		return nil, fmt.Errorf("%w: boundary nodes: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	for rows.Next() {
		var n network.Node
		if err := rows.Scan(&n.ID, &n.FabNo, &n.ModelNo, &n.PhaseNo, &n.DataCode,
			&n.UtilityNo, &n.ItemNo, &n.E2EGroupNo, &n.Markers); err != nil {
			return nil, fmt.Errorf("%w: boundary node row: %v", ErrScanFailed, err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// FetchEquipment reads the active equipment inside the filter's scope via
// the toolset indirection table.
func (s *Store) FetchEquipment(ctx context.Context, f network.Filter) ([]network.Equipment, error) {
	start := time.Now()
	var err error
	defer func() { s.observe("fetch_equipment", start, err) }()

	var (
		conditions = []string{"eq.is_active", "ts.is_active"}
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.FabNo != 0 {
		conditions = append(conditions, "ts.fab_no = "+arg(f.FabNo))
	}
	if f.ModelNo != 0 {
		conditions = append(conditions, "ts.model_no = "+arg(f.ModelNo))
	}
	if f.PhaseNo != 0 {
		conditions = append(conditions, "ts.phase_no = "+arg(f.PhaseNo))
	}
	if len(f.E2EGroupNos) > 0 {
		conditions = append(conditions, "ts.e2e_group_no = ANY("+arg(f.E2EGroupNos)+")")
	}
	if len(f.Toolsets) > 0 {
		conditions = append(conditions, "eq.toolset = ANY("+arg(f.Toolsets)+")")
	}

	query := fmt.Sprintf(`
		SELECT eq.id, eq.toolset, eq.node_id, eq.data_code, eq.category_no,
		       ts.fab_no, ts.phase_no, ts.model_no, ts.e2e_group_no
		FROM tb_equipments eq
		JOIN tb_toolsets ts ON ts.code = eq.toolset
		WHERE %s
		ORDER BY eq.id`, strings.Join(conditions, " AND "))

	var equipment []network.Equipment
	err = s.withRetry(ctx, "fetch_equipment", func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("%w: equipment in scope: %v", ErrQueryFailed, err)
		}
		defer rows.Close()

		equipment = equipment[:0]
		for rows.Next() {
			var eq network.Equipment
			if err := rows.Scan(&eq.ID, &eq.Toolset, &eq.NodeID, &eq.DataCode, &eq.CategoryNo,
				&eq.FabNo, &eq.PhaseNo, &eq.ModelNo, &eq.E2EGroupNo); err != nil {
				return fmt.Errorf("%w: equipment row: %v", ErrScanFailed, err)
			}
			equipment = append(equipment, eq)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, opError("FetchEquipment", "equipment", err)
	}
	return equipment, nil
}

// FetchPoCs reads the usable points of contact for the given equipment ids.
func (s *Store) FetchPoCs(ctx context.Context, equipmentIDs []int64) ([]network.PoC, error) {
	if len(equipmentIDs) == 0 {
		return nil, nil
	}
	start := time.Now()
	var err error
	defer func() { s.observe("fetch_pocs", start, err) }()

	const query = `
		SELECT id, equipment_id, node_id, COALESCE(markers, ''), COALESCE(reference, ''),
		       COALESCE(utility_no, 0), COALESCE(flow, ''), is_used, is_loopback
		FROM tb_equipment_pocs
		WHERE equipment_id = ANY($1) AND is_used
		ORDER BY id`

	var pocs []network.PoC
	err = s.withRetry(ctx, "fetch_pocs", func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, query, equipmentIDs)
		if err != nil {
			return fmt.Errorf("%w: pocs for equipment: %v", ErrQueryFailed, err)
		}
		defer rows.Close()

		pocs = pocs[:0]
		for rows.Next() {
			var p network.PoC
			if err := rows.Scan(&p.ID, &p.EquipmentID, &p.NodeID, &p.Markers, &p.Reference,
				&p.UtilityNo, &p.Flow, &p.IsUsed, &p.IsLoopback); err != nil {
				return fmt.Errorf("%w: poc row: %v", ErrScanFailed, err)
			}
			pocs = append(pocs, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, opError("FetchPoCs", "poc", err)
	}
	return pocs, nil
}
