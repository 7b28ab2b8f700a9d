package model

// Stats describes the read path after the first snapshot build: dataset
// cardinalities plus when and how the active view was built. BuiltAt is a
// unix timestamp in seconds, like every other timestamp on the wire.
type Stats struct {
	Rows            int64  `json:"rows"`
	DistinctActors  int    `json:"distinct_actors"`
	DistinctActions int    `json:"distinct_actions"`
	BuiltAt         int64  `json:"built_at"`
	BuildMS         int64  `json:"build_ms"`
	Strategy        string `json:"strategy"`
}
