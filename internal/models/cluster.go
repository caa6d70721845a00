package models

// ClusterPreferences is the result of a preference clustering run:
// a cluster label per user, and for every cluster with at least two members a
// full ranked list of same-cluster peers per user (descending similarity,
// self excluded).
type ClusterPreferences struct {
	Assignments map[int64]int             `json:"assignments"`
	Preferences map[int]map[int64][]int64 `json:"preferences"`
	NumClusters int                       `json:"num_clusters"`
	TotalUsers  int                       `json:"total_users"`
}
