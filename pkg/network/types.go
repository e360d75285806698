// Package network models the bounded set of piping-network elements under
// study for one sampling run: nodes, links, equipment and their points of
// contact, plus the Universe that maps element ids onto dense indexes.
package network

// Node is a network node as loaded from the relational store. Nodes are
// immutable once loaded for a run.
type Node struct {
	ID         int64
	FabNo      int64
	ModelNo    int64
	PhaseNo    int64
	DataCode   int64
	UtilityNo  int64 // 0 when the node carries no utility
	ItemNo     int64
	E2EGroupNo int64
	Markers    string
}

// Link is a directed connection between two nodes. Bidirected links may be
// traversed against their stored direction.
type Link struct {
	ID          int64
	StartNodeID int64
	EndNodeID   int64
	Bidirected  bool
	Cost        float64
	LengthMM    float64
}

// Equipment is a piece of production equipment inside a toolset. Its PoCs are
// the nodes where it connects to the piping network.
type Equipment struct {
	ID         int64
	Toolset    string
	NodeID     int64
	DataCode   int64
	CategoryNo int64
	FabNo      int64
	PhaseNo    int64
	ModelNo    int64
	E2EGroupNo int64
}

// PoC is an equipment point of contact, the unit the pair sampler picks
// start and end points from.
type PoC struct {
	ID          int64
	EquipmentID int64
	NodeID      int64
	Markers     string
	Reference   string
	UtilityNo   int64
	Flow        string
	IsUsed      bool
	IsLoopback  bool
}
