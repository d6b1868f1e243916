package steward

import (
	"context"
	"strconv"
	"strings"

	"github.com/philippgille/chromem-go"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/intent"
)

// similarityThreshold is the cosine-similarity floor above which two
// signals are folded into the same cluster by the embedding pass, in
// addition to the label heuristic (spec.md §4.L step 3, SPEC_FULL.md
// "IntentSteward candidate clusterer").
const similarityThreshold = 0.82

// cluster is a group of surviving signals the heuristic (or the embedding
// pass) considers related.
type cluster struct {
	key     string
	signals []intent.Signal
}

func clusterKey(label string) string {
	lower := strings.ToLower(strings.TrimSpace(label))
	if len(lower) > 20 {
		lower = lower[:20]
	}
	return lower
}

// clusterSignals groups surviving signals by first-20-chars lowercased key,
// then merges groups whose representative labels are cosine-similar in the
// hash-embedding space, via a union-find over group indices.
func clusterSignals(ctx context.Context, signals []intent.Signal) []cluster {
	byKey := make(map[string]*cluster)
	order := make([]string, 0, len(signals))
	for _, sig := range signals {
		k := clusterKey(sig.Label)
		c, ok := byKey[k]
		if !ok {
			c = &cluster{key: k}
			byKey[k] = c
			order = append(order, k)
		}
		c.signals = append(c.signals, sig)
	}

	groups := make([]*cluster, 0, len(order))
	for _, k := range order {
		groups = append(groups, byKey[k])
	}
	if len(groups) <= 1 {
		return groups
	}

	parent := mergeBySimilarity(ctx, groups)

	merged := make(map[int]*cluster)
	for i, g := range groups {
		root := find(parent, i)
		if dst, ok := merged[root]; ok {
			dst.signals = append(dst.signals, g.signals...)
		} else {
			merged[root] = &cluster{key: groups[root].key, signals: append([]intent.Signal{}, g.signals...)}
		}
	}

	out := make([]cluster, 0, len(merged))
	for _, g := range merged {
		out = append(out, *g)
	}
	return out
}

// mergeBySimilarity returns a union-find parent array over groups, unioning
// any pair whose representative label embeds above similarityThreshold.
// chromem-go failures degrade to "no merge" rather than aborting clustering.
func mergeBySimilarity(ctx context.Context, groups []*cluster) []int {
	parent := make([]int, len(groups))
	for i := range parent {
		parent[i] = i
	}

	db := chromem.NewDB()
	coll, err := db.CreateCollection("signals", nil, hashEmbed)
	if err != nil {
		return parent
	}
	for i, g := range groups {
		if err := coll.AddDocument(ctx, chromem.Document{ID: groupID(i), Content: g.key}); err != nil {
			return parent
		}
	}

	n := coll.Count()
	for i, g := range groups {
		results, err := coll.Query(ctx, g.key, n, nil, nil)
		if err != nil {
			continue
		}
		for _, r := range results {
			if r.ID == groupID(i) || r.Similarity < similarityThreshold {
				continue
			}
			j := indexFromGroupID(r.ID)
			if j >= 0 {
				union(parent, i, j)
			}
		}
	}
	return parent
}

func groupID(i int) string { return "g" + strconv.Itoa(i) }

func indexFromGroupID(id string) int {
	if len(id) < 2 || id[0] != 'g' {
		return -1
	}
	n, err := strconv.Atoi(id[1:])
	if err != nil {
		return -1
	}
	return n
}

func find(parent []int, i int) int {
	for parent[i] != i {
		parent[i] = parent[parent[i]]
		i = parent[i]
	}
	return i
}

func union(parent []int, a, b int) {
	ra, rb := find(parent, a), find(parent, b)
	if ra != rb {
		parent[ra] = rb
	}
}
