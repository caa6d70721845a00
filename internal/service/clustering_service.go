package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"

	"github.com/ColeUyematsu/RoomMatchv2/internal/matcherrors"
	"github.com/ColeUyematsu/RoomMatchv2/internal/models"
	"github.com/ColeUyematsu/RoomMatchv2/pkg/vector"
)

// ClusteringRepository defines the data access needed by clustering.
type ClusteringRepository interface {
	AllLatestVectors(ctx context.Context) (map[int64]vector.Vector, error)
}

// ClusteringService partitions users into preference-homogeneous groups via
// k-means on the filled response vectors and derives per-cluster ranked
// preference lists. The RNG seed is fixed so runs are reproducible.
type ClusteringService struct {
	repo     ClusteringRepository
	seed     int64
	restarts int
	maxIter  int
}

// ClusteringParams configures a ClusteringService.
type ClusteringParams struct {
	Repo ClusteringRepository

	// Seed fixes the k-means RNG (default 42).
	Seed int64

	// Restarts is how many initializations to try, keeping the lowest-inertia
	// run (default 10).
	Restarts int

	// MaxIterations bounds a single k-means run (default 100).
	MaxIterations int
}

// NewClusteringService creates a clustering service.
func NewClusteringService(params ClusteringParams) *ClusteringService {
	if params.Seed == 0 {
		params.Seed = 42
	}
	if params.Restarts <= 0 {
		params.Restarts = 10
	}
	if params.MaxIterations <= 0 {
		params.MaxIterations = 100
	}
	return &ClusteringService{
		repo:     params.Repo,
		seed:     params.Seed,
		restarts: params.Restarts,
		maxIter:  params.MaxIterations,
	}
}

// ClusterPreferences clusters all users into k groups and builds, for every
// cluster of size >= 2, a full ranked preference list of same-cluster peers
// per user (descending cosine similarity, self excluded, ties by ascending
// id). Clusters of size < 2 produce no preference list.
func (s *ClusteringService) ClusterPreferences(ctx context.Context, k int) (*models.ClusterPreferences, error) {
	if k < 2 {
		return nil, matcherrors.NewValidationError("k", "must be at least 2")
	}

	vectors, err := s.repo.AllLatestVectors(ctx)
	if err != nil {
		return nil, fmt.Errorf("load response vectors: %w", err)
	}
	if len(vectors) == 0 {
		return nil, matcherrors.NewNoResponsesError("no questionnaire responses to cluster")
	}
	if len(vectors) < k {
		return nil, matcherrors.NewValidationError("k", fmt.Sprintf("not enough users (%d) for %d clusters", len(vectors), k))
	}

	users := make([]int64, 0, len(vectors))
	for id := range vectors {
		users = append(users, id)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })

	points := make([]vector.Vector, len(users))
	for i, id := range users {
		points[i] = vectors[id]
	}

	slog.Info("clustering users", "k", k, "users", len(users), "restarts", s.restarts)

	rng := rand.New(rand.NewSource(s.seed))
	assignments := kMeansBestOf(points, k, s.maxIter, s.restarts, rng)

	result := &models.ClusterPreferences{
		Assignments: make(map[int64]int, len(users)),
		Preferences: make(map[int]map[int64][]int64),
		NumClusters: k,
		TotalUsers:  len(users),
	}
	for i, id := range users {
		result.Assignments[id] = assignments[i]
	}

	for label := 0; label < k; label++ {
		memberIdx := make([]int, 0)
		for i, a := range assignments {
			if a == label {
				memberIdx = append(memberIdx, i)
			}
		}
		if len(memberIdx) < 2 {
			continue
		}
		result.Preferences[label] = preferenceLists(users, points, memberIdx)
	}

	return result, nil
}

// preferenceLists ranks, for every member of a cluster, all other members by
// descending cosine similarity (ties by ascending id).
func preferenceLists(users []int64, points []vector.Vector, memberIdx []int) map[int64][]int64 {
	type peer struct {
		id    int64
		score float64
	}

	lists := make(map[int64][]int64, len(memberIdx))
	for _, i := range memberIdx {
		peers := make([]peer, 0, len(memberIdx)-1)
		for _, j := range memberIdx {
			if i == j {
				continue
			}
			peers = append(peers, peer{id: users[j], score: vector.Cosine(points[i], points[j])})
		}
		sort.Slice(peers, func(a, b int) bool {
			if peers[a].score != peers[b].score {
				return peers[a].score > peers[b].score
			}
			return peers[a].id < peers[b].id
		})

		ranked := make([]int64, len(peers))
		for n, p := range peers {
			ranked[n] = p.id
		}
		lists[users[i]] = ranked
	}

	return lists
}

// kMeansBestOf runs k-means `restarts` times from different seeded
// initializations and keeps the assignment with the lowest inertia.
func kMeansBestOf(points []vector.Vector, k, maxIter, restarts int, rng *rand.Rand) []int {
	best := make([]int, len(points))
	bestInertia := math.Inf(1)

	for r := 0; r < restarts; r++ {
		assignments := kMeans(points, k, maxIter, rng)
		inertia := kMeansInertia(points, assignments, k)
		if inertia < bestInertia {
			bestInertia = inertia
			copy(best, assignments)
		}
	}

	slog.Debug("k-means finished", "inertia", bestInertia)

	return best
}

// kMeans performs one seeded k-means run (k-means++ initialization, squared
// Euclidean distance on the raw filled vectors).
func kMeans(points []vector.Vector, k, maxIter int, rng *rand.Rand) []int {
	centroids := initializeCentroidsKMeansPlusPlus(points, k, rng)
	assignments := make([]int, len(points))

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range points {
			nearest := nearestCentroid(p, centroids)
			if assignments[i] != nearest {
				assignments[i] = nearest
				changed = true
			}
		}

		if !changed && iter > 0 {
			break
		}

		// Update step: recompute centroids as member means. Empty clusters
		// keep their previous centroid.
		sums := make([][vector.Dim]float64, k)
		counts := make([]int, k)
		for i, p := range points {
			c := assignments[i]
			counts[c]++
			for d := 0; d < vector.Dim; d++ {
				sums[c][d] += float64(p[d])
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				continue
			}
			for d := 0; d < vector.Dim; d++ {
				centroids[c][d] = float32(sums[c][d] / float64(counts[c]))
			}
		}
	}

	return assignments
}

// initializeCentroidsKMeansPlusPlus picks starting centroids with probability
// proportional to squared distance from the already-chosen ones.
func initializeCentroidsKMeansPlusPlus(points []vector.Vector, k int, rng *rand.Rand) []vector.Vector {
	n := len(points)
	centroids := make([]vector.Vector, 0, k)
	centroids = append(centroids, points[rng.Intn(n)])

	for len(centroids) < k {
		distances := make([]float64, n)
		var total float64

		for i, p := range points {
			minDist := math.Inf(1)
			for _, c := range centroids {
				if d := squaredDistance(p, c); d < minDist {
					minDist = d
				}
			}
			distances[i] = minDist
			total += minDist
		}

		// Weighted random selection; falls back to the first point when all
		// distances are zero (duplicate inputs).
		target := rng.Float64() * total
		var cum float64
		selected := 0
		for i, d := range distances {
			cum += d
			if cum >= target && d > 0 {
				selected = i
				break
			}
		}

		centroids = append(centroids, points[selected])
	}

	return centroids
}

// nearestCentroid returns the index of the closest centroid (lowest index
// wins ties, keeping assignment deterministic).
func nearestCentroid(p vector.Vector, centroids []vector.Vector) int {
	best := 0
	bestDist := math.Inf(1)
	for i, c := range centroids {
		if d := squaredDistance(p, c); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// kMeansInertia is the within-cluster sum of squared distances to centroids.
func kMeansInertia(points []vector.Vector, assignments []int, k int) float64 {
	sums := make([][vector.Dim]float64, k)
	counts := make([]int, k)
	for i, p := range points {
		c := assignments[i]
		counts[c]++
		for d := 0; d < vector.Dim; d++ {
			sums[c][d] += float64(p[d])
		}
	}

	centroids := make([]vector.Vector, k)
	for c := 0; c < k; c++ {
		if counts[c] == 0 {
			continue
		}
		for d := 0; d < vector.Dim; d++ {
			centroids[c][d] = float32(sums[c][d] / float64(counts[c]))
		}
	}

	var inertia float64
	for i, p := range points {
		inertia += squaredDistance(p, centroids[assignments[i]])
	}
	return inertia
}

func squaredDistance(a, b vector.Vector) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
