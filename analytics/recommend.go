package analytics

import "sort"

type productCount struct {
	name  string
	count int
}

// popularity counts line-item occurrences of each named product across sale
// transactions, in first-seen order.
func popularity(txns []Transaction) []productCount {
	index := map[string]int{}
	counts := []productCount{}
	for _, t := range txns {
		if !t.IsSale() {
			continue
		}
		for _, item := range t.Items {
			if item.Name == "" {
				continue
			}
			i, ok := index[item.Name]
			if !ok {
				i = len(counts)
				index[item.Name] = i
				counts = append(counts, productCount{name: item.Name})
			}
			counts[i].count++
		}
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].count > counts[j].count
	})
	return counts
}

// Recommend ranks the products customerKey has not bought in txns by global
// popularity and returns at most topN names.
func Recommend(txns []Transaction, customerKey string, topN int) []string {
	bought := map[string]bool{}
	for _, t := range txns {
		if t.CustomerKey != customerKey || !t.IsSale() {
			continue
		}
		for _, item := range t.Items {
			if item.Name != "" {
				bought[item.Name] = true
			}
		}
	}
	out := []string{}
	if topN <= 0 {
		return out
	}
	for _, p := range popularity(txns) {
		if bought[p.name] {
			continue
		}
		out = append(out, p.name)
		if len(out) == topN {
			break
		}
	}
	return out
}
