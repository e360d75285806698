package store

import (
	"context"
	"fmt"
	"time"

	"github.com/flowgrid/pathcover/pkg/paths"
)

// findPathQuery resolves the raw link sequence from the database's
// shortest-path primitive and joins every attribute validation needs onto
// the rows, so each attempt costs exactly one round trip and validation
// never goes back to the store.
const findPathQuery = `
	SELECT p.seq, p.link_id, p.reversed, l.cost, l.length_mm,
	       sn.id, sn.data_code, COALESCE(sn.utility_no, 0), COALESCE(sn.markers, ''),
	       COALESCE(sp.is_used, FALSE), COALESCE(sp.reference, ''),
	       en.id, en.data_code, COALESCE(en.utility_no, 0), COALESCE(en.markers, ''),
	       COALESCE(ep.is_used, FALSE), COALESCE(ep.reference, '')
	FROM find_shortest_path($1, $2) AS p(seq, link_id, s_node_id, e_node_id, reversed)
	JOIN nw_links l ON l.id = p.link_id
	JOIN nw_nodes sn ON sn.id = p.s_node_id
	JOIN nw_nodes en ON en.id = p.e_node_id
	LEFT JOIN tb_equipment_pocs sp ON sp.node_id = sn.id
	LEFT JOIN tb_equipment_pocs ep ON ep.node_id = en.id
	ORDER BY p.seq`

// FindPath runs the database shortest-path primitive between two nodes and
// materializes the result as a Path with fully resolved node snapshots.
// Returns paths.ErrNoPath when the endpoints are not connected.
func (s *Store) FindPath(ctx context.Context, startNodeID, endNodeID int64) (*paths.Path, error) {
	start := time.Now()
	var err error
	defer func() { s.observe("find_path", start, err) }()

	var p *paths.Path
	err = s.withRetry(ctx, "find_path", func(ctx context.Context) error {
		var err error
		p, err = s.queryPath(ctx, startNodeID, endNodeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) queryPath(ctx context.Context, startNodeID, endNodeID int64) (*paths.Path, error) {
	rows, err := s.pool.Query(ctx, findPathQuery, startNodeID, endNodeID)
	if err != nil {
		return nil, fmt.Errorf("%w: shortest path %d -> %d: %v", ErrQueryFailed, startNodeID, endNodeID, err)
	}
	defer rows.Close()

	p := &paths.Path{StartNodeID: startNodeID, EndNodeID: endNodeID}
	for rows.Next() {
		var (
			rec                    paths.LinkRecord
			sData, eData           int64
			sUsed, eUsed           bool
			sRef, eRef             string
			sMarkers, eMarkers     string
			sUtility, eUtility     int64
			startID, endID         int64
		)
		if err := rows.Scan(&rec.Seq, &rec.LinkID, &rec.Reversed, &rec.Cost, &rec.LengthMM,
			&startID, &sData, &sUtility, &sMarkers, &sUsed, &sRef,
			&endID, &eData, &eUtility, &eMarkers, &eUsed, &eRef); err != nil {
			return nil, fmt.Errorf("%w: path row: %v", ErrScanFailed, err)
		}
		rec.Start = s.snapshot(startID, sData, sUtility, sMarkers, sUsed, sRef)
		rec.End = s.snapshot(endID, eData, eUtility, eMarkers, eUsed, eRef)
		p.Records = append(p.Records, rec)
		p.TotalCost += rec.Cost
		p.TotalLengthMM += rec.LengthMM
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: path rows: %v", ErrQueryFailed, err)
	}
	if len(p.Records) == 0 {
		return nil, paths.ErrNoPath
	}
	return p, nil
}

func (s *Store) snapshot(id, dataCode, utilityNo int64, markers string, used bool, reference string) paths.NodeSnapshot {
	return paths.NodeSnapshot{
		ID:                 id,
		DataCode:           dataCode,
		UtilityNo:          utilityNo,
		IsPoC:              s.classifier.IsPoC(dataCode),
		IsEquipmentLogical: s.classifier.IsEquipmentLogical(dataCode),
		IsUsed:             used,
		Markers:            markers,
		Reference:          reference,
	}
}
